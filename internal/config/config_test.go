package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCapsMatchCoreBounds(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("PENDING_QUEUE_CAP", "")
	t.Setenv("HISTORY_CAP", "")

	cfg := Load()

	assert.Equal(t, 100, cfg.PendingQueueCap)
	assert.Equal(t, 100, cfg.HistoryCap)
}

func TestEnvOverridesCaps(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("PENDING_QUEUE_CAP", "250")
	t.Setenv("HISTORY_CAP", "50")

	cfg := Load()

	assert.Equal(t, 250, cfg.PendingQueueCap)
	assert.Equal(t, 50, cfg.HistoryCap)
}
