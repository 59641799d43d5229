// File: internal/realtime/client.go
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"satonic/internal/backend"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultHeartbeat   = 30 * time.Second
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultMaxAttempts = 5
	writeWait          = 10 * time.Second
	eventBuffer        = 64
)

var ErrNotConnected = errors.New("WebSocket not connected")

type EventType string

const (
	EventConnected       EventType = "connected"
	EventDisconnected    EventType = "disconnected"
	EventWelcome         EventType = "welcome"
	EventAuctionUpdate   EventType = "auction_update"
	EventBidPlaced       EventType = "bid_placed"
	EventError           EventType = "error"
	EventReconnectFailed EventType = "reconnect_failed"
)

// Event is delivered on Client.Events. Only the fields relevant to Type are set.
type Event struct {
	Type    EventType
	Auction *backend.Auction
	Bid     *backend.Bid
	Payload json.RawMessage
	Message string
	Code    int
}

// Message is the frame format in both directions.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type BidMessage struct {
	AuctionID string `json:"auction_id"`
	WalletID  string `json:"wallet_id"`
	Amount    int64  `json:"amount"`
}

type Option func(*Client)

func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

// WithReconnect overrides the backoff base, its cap and the attempt limit.
func WithReconnect(base, max time.Duration, attempts int) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = max
		c.maxAttempts = attempts
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// Client keeps one WebSocket to the marketplace backend and reconnects with
// exponential backoff after abnormal closes.
type Client struct {
	url         string
	dialer      *websocket.Dialer
	logger      *zap.Logger
	events      chan Event
	heartbeat   time.Duration
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	policy      backoff.BackOff

	mu         sync.Mutex
	conn       *websocket.Conn
	connecting bool
	closed     bool
	attempts   int
	timer      *time.Timer
	stopPing   chan struct{}

	writeMu sync.Mutex
}

func New(url string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		url:         url,
		dialer:      websocket.DefaultDialer,
		logger:      logger.Named("realtime"),
		events:      make(chan Event, eventBuffer),
		heartbeat:   defaultHeartbeat,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy = newReconnectBackOff(c.baseDelay, c.maxDelay, c.maxAttempts)
	return c
}

// newReconnectBackOff yields base·2^n for attempts 1..attempts, capped at
// max, then backoff.Stop.
func newReconnectBackOff(base, max time.Duration, attempts int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 2 * base
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = max
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(attempts))
}

func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the socket. A failed dial is also retried in the background.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.closed = false
	c.mu.Unlock()
	return c.dial(ctx)
}

func (c *Client) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.conn != nil || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()

	c.logger.Debug("Connecting", zap.String("url", c.url))
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)

	c.mu.Lock()
	c.connecting = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("WebSocket connection error", zap.String("url", c.url), zap.Error(err))
		c.emit(Event{Type: EventError, Message: "WebSocket connection error"})
		c.scheduleReconnect()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.attempts = 0
	c.policy.Reset()
	stop := make(chan struct{})
	c.stopPing = stop
	c.mu.Unlock()

	c.logger.Info("WebSocket connection established")
	c.emit(Event{Type: EventConnected})
	go c.readLoop(conn)
	go c.pingLoop(stop)
	return nil
}

// Close stops the heartbeat and any pending reconnect and closes with 1000.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.stopPing != nil {
		close(c.stopPing)
		c.stopPing = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// Subscribe asks for updates on an auction. When disconnected it starts a
// connect and returns ErrNotConnected; the caller subscribes again after
// the connected event.
func (c *Client) Subscribe(auctionID string) error {
	err := c.send(Message{Type: "subscribe", Payload: auctionID})
	if errors.Is(err, ErrNotConnected) {
		c.logger.Warn("WebSocket not connected. Cannot subscribe to auction.", zap.String("auction_id", auctionID))
		go func() { _ = c.Connect(context.Background()) }()
	}
	return err
}

func (c *Client) Unsubscribe(auctionID string) error {
	err := c.send(Message{Type: "unsubscribe", Payload: auctionID})
	if errors.Is(err, ErrNotConnected) {
		c.logger.Warn("WebSocket not connected. Cannot unsubscribe from auction.", zap.String("auction_id", auctionID))
	}
	return err
}

func (c *Client) PlaceBid(bid BidMessage) error {
	err := c.send(Message{Type: "bid", Payload: bid})
	if errors.Is(err, ErrNotConnected) {
		c.emit(Event{Type: EventError, Message: "WebSocket not connected. Cannot place bid."})
	}
	return err
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

func (c *Client) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.send(Message{Type: "ping"}); err != nil {
				c.logger.Debug("Heartbeat failed", zap.Error(err))
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, err)
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleClose(conn *websocket.Conn, err error) {
	code := websocket.CloseAbnormalClosure
	reason := err.Error()
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		code = ce.Code
		reason = ce.Text
	}

	c.mu.Lock()
	if c.conn != conn {
		// Close() already tore this connection down.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.stopPing != nil {
		close(c.stopPing)
		c.stopPing = nil
	}
	c.mu.Unlock()
	_ = conn.Close()

	c.logger.Info("WebSocket connection closed", zap.Int("code", code), zap.String("reason", reason))
	c.emit(Event{Type: EventDisconnected, Code: code, Message: reason})

	if code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway {
		return
	}
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	delay := c.policy.NextBackOff()
	if delay == backoff.Stop {
		c.logger.Error("Failed to reconnect", zap.Int("attempts", c.maxAttempts))
		c.emit(Event{Type: EventReconnectFailed})
		return
	}
	c.attempts++
	c.logger.Info("Attempting to reconnect",
		zap.Duration("delay", delay),
		zap.Int("attempt", c.attempts),
		zap.Int("max_attempts", c.maxAttempts))
	c.timer = time.AfterFunc(delay, func() {
		_ = c.dial(context.Background())
	})
}

func (c *Client) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("Error parsing WebSocket message", zap.Error(err))
		return
	}
	c.logger.Debug("WebSocket message received", zap.String("type", msg.Type))

	switch msg.Type {
	case "welcome":
		c.emit(Event{Type: EventWelcome, Payload: msg.Payload})
	case "auction_update":
		var a backend.Auction
		if err := json.Unmarshal(msg.Payload, &a); err != nil {
			c.logger.Warn("Malformed auction_update payload", zap.Error(err))
			return
		}
		c.emit(Event{Type: EventAuctionUpdate, Auction: &a, Payload: msg.Payload})
	case "bid_placed":
		var b backend.Bid
		if err := json.Unmarshal(msg.Payload, &b); err != nil {
			c.logger.Warn("Malformed bid_placed payload", zap.Error(err))
			return
		}
		c.emit(Event{Type: EventBidPlaced, Bid: &b, Payload: msg.Payload})
	case "error":
		text := errorText(msg.Payload)
		c.logger.Warn("WebSocket error message", zap.String("message", text))
		c.emit(Event{Type: EventError, Message: text, Payload: msg.Payload})
	case "pong":
	default:
		c.logger.Debug("Unknown message type", zap.String("type", msg.Type))
	}
}

func errorText(payload json.RawMessage) string {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}
	return string(payload)
}

// emit drops the event when the buffer is full.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("Event buffer full, dropping event", zap.String("type", string(ev.Type)))
	}
}
