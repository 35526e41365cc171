// Package archive mirrors routed messages into Redis with a TTL. It is a
// pluggable persistence collaborator: strictly best-effort, and never on
// the delivery critical path.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anasakil/chat-app-techniq8/internal/models"
	"github.com/anasakil/chat-app-techniq8/internal/tracker"
)

// archiveTTL bounds how long mirrored conversations are kept.
const archiveTTL = 7 * 24 * time.Hour

// Archive stores recent conversation traffic in Redis sorted sets.
type Archive struct {
	client *redis.Client
}

// NewArchive connects to Redis and verifies the connection.
func NewArchive(ctx context.Context, redisURL string) (*Archive, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Archive{client: client}, nil
}

// Client exposes the underlying connection for collaborators that share
// the same Redis, such as the ops-surface rate limiter.
func (a *Archive) Client() *redis.Client {
	return a.client
}

// Close closes the Redis connection.
func (a *Archive) Close() error {
	return a.client.Close()
}

// Ping checks the Redis connection.
func (a *Archive) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// conversationKey returns the key for a pair's archived messages. The
// canonical pair key keeps (a,b) and (b,a) in the same set.
func conversationKey(a, b string) string {
	return fmt.Sprintf("conv:%s:messages", tracker.Key(a, b))
}

// StoreMessage mirrors a message (encrypted at rest) into the pair's
// sorted set, scored by creation time.
func (a *Archive) StoreMessage(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := conversationKey(msg.SenderID, msg.ReceiverID)

	err = a.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(msg.CreatedAt.UnixMilli()),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	a.client.Expire(ctx, key, archiveTTL)

	return nil
}

// RecentMessages returns up to limit archived messages for a pair,
// oldest first.
func (a *Archive) RecentMessages(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	key := conversationKey(userA, userB)
	results, err := a.client.ZRevRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		var msg models.Message
		if err := json.Unmarshal([]byte(results[i]), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}
