// Package gateway is the connection surface of the realtime core: one
// goroutine per TCP connection reading newline-delimited JSON frames,
// plus a writer goroutine per registered handle draining its outbound
// buffer. Wire framing lives here; routing semantics live in the router
// and relay.
package gateway

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/anasakil/chat-app-techniq8/internal/auth"
	"github.com/anasakil/chat-app-techniq8/internal/metrics"
	"github.com/anasakil/chat-app-techniq8/internal/models"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
	"github.com/anasakil/chat-app-techniq8/internal/router"
	"github.com/anasakil/chat-app-techniq8/internal/signal"
)

// Config holds gateway tunables.
type Config struct {
	Addr           string
	OutboundBuffer int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxFrameBytes  int
}

func (c Config) withDefaults() Config {
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = 64
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = 64 * 1024
	}
	return c
}

// Gateway accepts client connections and dispatches their events.
type Gateway struct {
	log      zerolog.Logger
	cfg      Config
	verifier auth.Verifier
	registry *presence.Registry
	router   *router.Router
	relay    *signal.Relay

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// New wires a gateway over the shared core. A nil verifier disables
// token authentication: clients then identify with user_connected, which
// mirrors the development behavior of the platform. The gateway also
// subscribes to presence changes and broadcasts user_status to every
// connected client.
func New(log zerolog.Logger, cfg Config, verifier auth.Verifier, reg *presence.Registry, rt *router.Router, rl *signal.Relay) *Gateway {
	g := &Gateway{
		log:      log.With().Str("component", "gateway").Logger(),
		cfg:      cfg.withDefaults(),
		verifier: verifier,
		registry: reg,
		router:   rt,
		relay:    rl,
	}

	reg.Subscribe(func(userID string, status models.PresenceStatus) {
		reg.Broadcast(models.Event{
			Type: models.EventUserStatus,
			Data: models.UserStatusPayload{UserID: userID, Status: status},
		})
	})

	return g
}

// ListenAndServe listens on the configured address and serves until
// Shutdown.
func (g *Gateway) ListenAndServe() error {
	ln, err := net.Listen("tcp", g.cfg.Addr)
	if err != nil {
		return err
	}
	return g.Serve(ln)
}

// Serve accepts connections on ln until the listener closes.
func (g *Gateway) Serve(ln net.Listener) error {
	g.mu.Lock()
	g.ln = ln
	g.mu.Unlock()

	g.log.Info().Str("addr", ln.Addr().String()).Msg("gateway listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			g.log.Error().Err(err).Msg("accept failed")
			continue
		}
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting and waits for in-flight connections to wind
// down or the timeout to pass.
func (g *Gateway) Shutdown(timeout time.Duration) {
	g.mu.Lock()
	if g.ln != nil {
		g.ln.Close()
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		g.log.Warn().Msg("shutdown timeout, abandoning connections")
	}
}

// session is the per-connection state seen by the dispatcher.
type session struct {
	conn   net.Conn
	userID string
	authed bool
	handle *presence.Handle
}

// send delivers an event to the client. Registered sessions go through
// the handle buffer so the writer goroutine owns the socket; before
// registration the reader goroutine writes directly.
func (g *Gateway) send(sess *session, ev models.Event) {
	if sess.handle != nil {
		sess.handle.Send(ev)
		return
	}
	g.writeEvent(sess.conn, ev)
}

func (g *Gateway) sendError(sess *session, event, message string) {
	g.send(sess, models.Event{
		Type: models.EventError,
		Data: models.ErrorPayload{Event: event, Message: message},
	})
}

func (g *Gateway) writeEvent(conn net.Conn, ev models.Event) {
	conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
	if err := json.NewEncoder(conn).Encode(ev); err != nil {
		g.log.Debug().Err(err).Msg("direct write failed")
	}
}

// handleConn owns one client connection from accept to teardown.
func (g *Gateway) handleConn(conn net.Conn) {
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	remote := conn.RemoteAddr().String()
	g.log.Debug().Str("remote", remote).Msg("client connected")

	sess := &session{conn: conn}

	defer func() {
		g.teardown(sess)
		conn.Close()
		g.log.Debug().Str("remote", remote).Str("user", sess.userID).Msg("client disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), g.cfg.MaxFrameBytes)

	for {
		conn.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !isExpectedClose(err) {
				g.log.Debug().Err(err).Str("remote", remote).Msg("read failed")
			}
			return
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var frame models.Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			g.sendError(sess, "", "invalid frame")
			continue
		}
		if frame.Type == "" {
			g.sendError(sess, "", "missing event type")
			continue
		}
		g.dispatch(sess, frame)
	}
}

// teardown deregisters the session's handle exactly once and closes it.
func (g *Gateway) teardown(sess *session) {
	if sess.handle == nil {
		return
	}
	sess.handle.Close()
	g.registry.Deregister(sess.handle.ID)
}

// writeLoop drains a handle's outbound buffer onto the socket.
func (g *Gateway) writeLoop(conn net.Conn, h *presence.Handle) {
	for {
		select {
		case ev := <-h.Out():
			conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := json.NewEncoder(conn).Encode(ev); err != nil {
				g.log.Debug().Err(err).Str("user", h.UserID).Msg("write failed, closing connection")
				conn.Close()
				return
			}
		case <-h.Done():
			return
		}
	}
}

func isExpectedClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
