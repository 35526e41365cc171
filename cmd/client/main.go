// Command client is a line-oriented terminal client for the realtime
// gateway. It registers an identity, prints incoming events, and sends
// messages typed as "<peer> <text>".
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

func main() {
	addr := flag.String("addr", "localhost:9090", "Gateway address")
	user := flag.String("user", "", "User ID to connect as")
	token := flag.String("token", "", "JWT token (required when the server verifies identity)")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "Usage: client -user <user-id> [-addr host:port] [-token <jwt>]")
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connect failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)

	if *token != "" {
		emit(enc, models.EventHello, models.HelloRequest{Token: *token})
	}
	emit(enc, models.EventUserConnected, models.UserConnectedRequest{UserID: *user})

	go printEvents(conn)

	fmt.Printf("Connected as %s. Type \"<peer> <message>\" to chat, \"/history <peer>\" for history.\n", *user)

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}

		if peer, ok := strings.CutPrefix(line, "/history "); ok {
			emit(enc, models.EventGetConversation, models.GetConversationRequest{OtherUserID: strings.TrimSpace(peer)})
			continue
		}

		peer, text, found := strings.Cut(line, " ")
		if !found {
			fmt.Fprintln(os.Stderr, "Expected: <peer> <message>")
			continue
		}
		emit(enc, models.EventSendMessage, models.SendMessageRequest{ReceiverID: peer, Message: text})
	}
}

func emit(enc *json.Encoder, eventType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		return
	}
	if err := enc.Encode(models.Frame{Type: eventType, Data: raw}); err != nil {
		fmt.Fprintf(os.Stderr, "Send failed: %v\n", err)
		os.Exit(1)
	}
}

func printEvents(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case models.EventNewMessage:
			var msg models.NewMessagePayload
			if json.Unmarshal(ev.Data, &msg) == nil {
				from := msg.SenderID
				if msg.SenderName != "" {
					from = msg.SenderName
				}
				fmt.Printf("[%s] %s\n", from, msg.Content)
			}
		case models.EventUserStatus:
			var status models.UserStatusPayload
			if json.Unmarshal(ev.Data, &status) == nil {
				fmt.Printf("* %s is %s\n", status.UserID, status.Status)
			}
		case models.EventConversationHistory:
			var history models.ConversationHistoryPayload
			if json.Unmarshal(ev.Data, &history) == nil {
				for _, msg := range history.Messages {
					fmt.Printf("[%s] %s\n", msg.SenderID, msg.Content)
				}
			}
		case models.EventError:
			var e models.ErrorPayload
			if json.Unmarshal(ev.Data, &e) == nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", e.Message)
			}
		default:
			fmt.Printf("* %s: %s\n", ev.Type, string(ev.Data))
		}
	}

	fmt.Fprintln(os.Stderr, "Connection closed")
	os.Exit(0)
}
