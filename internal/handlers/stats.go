package handlers

import (
	"net/http"
	"time"
)

// StatsResponse reports live server counters.
type StatsResponse struct {
	OnlineUsers   int    `json:"online_users"`
	Connections   int    `json:"connections"`
	PendingTotal  int    `json:"pending_total"`
	Conversations int    `json:"conversations"`
	Uptime        string `json:"uptime"`
	StartedAt     string `json:"started_at"`
}

var startedAt = time.Now()

// Stats returns live platform statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, StatsResponse{
		OnlineUsers:   h.registry.OnlineUsers(),
		Connections:   h.registry.Connections(),
		PendingTotal:  h.pending.Total(),
		Conversations: h.tracker.Conversations(),
		Uptime:        formatUptime(time.Since(startedAt)),
		StartedAt:     startedAt.UTC().Format(time.RFC3339),
	})
}

// formatUptime renders a duration as a coarse human-readable string.
func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just started"
	case d < time.Hour:
		return pluralize(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return pluralize(int(d.Hours()), "hour")
	default:
		return pluralize(int(d.Hours()/24), "day")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return formatInt(n) + " " + unit + "s"
}

// formatInt converts an int to string without importing strconv.
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
