// Package gateway maintains the websocket session with the chat platform and
// turns raw frames into domain events.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/956zs/pinit/internal/adapter/metrics"
	"github.com/956zs/pinit/internal/domain"
	"github.com/956zs/pinit/internal/platform/retry"
)

const (
	handshakeTimeout = 10 * time.Second
	readyTimeout     = 10 * time.Second
	writeDeadline    = 5 * time.Second
	pingInterval     = 30 * time.Second
	pongDeadline     = 60 * time.Second
)

// Client owns the gateway connection: identify handshake, heartbeat, event
// decoding, and dispatch to the handler on a worker pool. Run reconnects with
// backoff until its context is cancelled.
type Client struct {
	url        string
	token      string
	instanceID string
	handler    domain.EventHandler
	dispatcher *dispatcher
	metrics    *metrics.GatewayMetrics
	clock      clockwork.Clock

	// botUserID comes from the ready frame and is only touched on the
	// connection goroutine.
	botUserID string
	connected atomic.Bool
}

// NewClient wires a gateway client to the event handler. workers sizes the
// dispatch pool.
func NewClient(url, token, instanceID string, workers int, handler domain.EventHandler, m *metrics.GatewayMetrics, clock clockwork.Clock) *Client {
	return &Client{
		url:        url,
		token:      token,
		instanceID: instanceID,
		handler:    handler,
		dispatcher: newDispatcher(workers, m),
		metrics:    m,
		clock:      clock,
	}
}

// Connected reports whether a gateway session is currently established.
// The readiness probe uses this.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run connects and serves until ctx is cancelled. Lost connections reconnect
// with fresh backoff; only auth rejections and cancellation end the loop.
func (c *Client) Run(ctx context.Context) error {
	c.dispatcher.start(ctx)
	defer c.dispatcher.stop()

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("gateway connect: %w", err)
		}

		c.serve(ctx, conn)

		if ctx.Err() != nil {
			return nil
		}
		c.metrics.Reconnects.Inc()
		slog.Warn("Gateway connection lost, reconnecting")
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	policy := retry.Policy{
		InitialBackoff:   time.Second,
		MaxBackoff:       time.Minute,
		RateLimitBackoff: 5 * time.Minute,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Gateway connect failed, backing off",
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
			)
		},
	}

	return retry.Do(ctx, policy, classifyDial, func() (*websocket.Conn, error) {
		return c.dialAndIdentify(ctx)
	})
}

// dialError carries the HTTP status of a rejected websocket handshake so the
// retry policy can tell auth failures from outages.
type dialError struct {
	status int
	err    error
}

func (e *dialError) Error() string {
	return fmt.Sprintf("gateway handshake rejected with status %d: %v", e.status, e.err)
}

func (e *dialError) Unwrap() error { return e.err }

func classifyDial(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}

	var de *dialError
	if errors.As(err, &de) {
		switch de.status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return retry.Stop
		case http.StatusTooManyRequests:
			return retry.After
		}
	}
	return retry.Retry
}

func (c *Client) dialAndIdentify(ctx context.Context) (*websocket.Conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return nil, &dialError{status: resp.StatusCode, err: err}
		}
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	payload, err := json.Marshal(identifyPayload{
		Token:      c.token,
		InstanceID: c.instanceID,
		Intents:    []string{"messages", "reactions"},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode identify: %w", err)
	}

	_ = conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
	if err := conn.WriteJSON(envelope{T: eventIdentify, D: payload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send identify: %w", err)
	}

	_ = conn.SetReadDeadline(c.clock.Now().Add(readyTimeout))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		conn.Close()
		return nil, fmt.Errorf("await ready: %w", err)
	}
	if env.T != eventReady {
		conn.Close()
		return nil, fmt.Errorf("expected ready frame, got %q", env.T)
	}

	var ready readyPayload
	if err := json.Unmarshal(env.D, &ready); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode ready: %w", err)
	}

	c.botUserID = ready.BotUserID
	slog.Info("Gateway session established",
		"session_id", ready.SessionID,
		"bot_user_id", ready.BotUserID,
	)
	return conn, nil
}

// serve pumps events off conn until it dies or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.connected.Store(true)
	c.metrics.Connected.Set(1)
	defer func() {
		c.connected.Store(false)
		c.metrics.Connected.Set(0)
	}()

	done := make(chan struct{})
	defer close(done)

	// Closing the connection is the only way to unblock ReadJSON.
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	go c.pingLoop(conn, done)

	_ = conn.SetReadDeadline(c.clock.Now().Add(pongDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(c.clock.Now().Add(pongDeadline))
	})

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				slog.Warn("Gateway read failed", "error", err)
			}
			return
		}
		c.handleEnvelope(env)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			_ = conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Client) handleEnvelope(env envelope) {
	switch env.T {
	case eventMessageCreated:
		c.metrics.EventsReceived.WithLabelValues(env.T).Inc()
		var msg messagePayload
		if err := json.Unmarshal(env.D, &msg); err != nil {
			slog.Warn("Malformed message payload", "error", err)
			return
		}
		c.handleMessage(msg)

	case eventReactionAdded:
		c.metrics.EventsReceived.WithLabelValues(env.T).Inc()
		r, ok := c.decodeVote(env.D)
		if !ok {
			return
		}
		ev := domain.VoteCast{RequestID: r.MessageID, VoterID: r.UserID}
		c.dispatcher.enqueue(func(ctx context.Context) { c.handler.HandleVoteCast(ctx, ev) })

	case eventReactionRemoved:
		c.metrics.EventsReceived.WithLabelValues(env.T).Inc()
		r, ok := c.decodeVote(env.D)
		if !ok {
			return
		}
		ev := domain.VoteRetracted{RequestID: r.MessageID, VoterID: r.UserID}
		c.dispatcher.enqueue(func(ctx context.Context) { c.handler.HandleVoteRetracted(ctx, ev) })

	default:
		c.metrics.EventsReceived.WithLabelValues("unknown").Inc()
		slog.Debug("Ignoring unknown gateway event", "type", env.T)
	}
}

// handleMessage turns a message into a pin request when it is a reply that
// mentions the bot. The bot's own messages never count.
func (c *Client) handleMessage(msg messagePayload) {
	if msg.AuthorIsBot || msg.AuthorID == c.botUserID {
		return
	}
	if msg.ReferenceID == "" || !mentionsBot(msg.Content, c.botUserID) {
		return
	}

	ev := domain.RequestCreated{
		RequestID:       msg.ID,
		TargetMessageID: msg.ReferenceID,
		ChannelID:       msg.ChannelID,
		RequesterID:     msg.AuthorID,
	}
	c.dispatcher.enqueue(func(ctx context.Context) { c.handler.HandleRequestCreated(ctx, ev) })
}

// decodeVote filters reactions down to genuine votes: the vote emoji, cast by
// someone other than the bot.
func (c *Client) decodeVote(raw json.RawMessage) (reactionPayload, bool) {
	var r reactionPayload
	if err := json.Unmarshal(raw, &r); err != nil {
		slog.Warn("Malformed reaction payload", "error", err)
		return r, false
	}
	if r.UserIsBot || r.UserID == c.botUserID || r.Emoji != domain.VoteEmoji {
		return r, false
	}
	return r, true
}

func mentionsBot(content, botID string) bool {
	return strings.HasPrefix(content, "<@"+botID+">") || strings.HasPrefix(content, "<@!"+botID+">")
}
