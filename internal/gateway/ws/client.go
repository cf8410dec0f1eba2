package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trivia-gamemaster/internal/domain"
	"trivia-gamemaster/internal/gateway"
)

const ackTimeout = 10 * time.Second

// frame is the JSON envelope spoken with the chat bridge. Outbound sends
// carry a client-generated tag; the bridge acks with the same tag plus the
// message ID and server-side send timestamp.
type frame struct {
	Type    string          `json:"type"`
	Tag     uint64          `json:"tag,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Tag     uint64 `json:"tag,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type sendTextPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type replyPayload struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	QuotedID string `json:"quotedId"`
}

type ackPayload struct {
	ID string `json:"id"`
	T  int64  `json:"t"`
}

type statePayload struct {
	State string `json:"state"`
}

type messagePayload struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	Body       string `json:"body"`
	T          int64  `json:"t"`
	FromMe     bool   `json:"fromMe"`
	IsGroupMsg bool   `json:"isGroupMsg"`
	Sender     struct {
		ID       string `json:"id"`
		Pushname string `json:"pushname"`
	} `json:"sender"`
}

// Client is a gateway.Gateway backed by a websocket connection to a chat
// bridge. A single writer goroutine owns all connection writes; the read
// loop correlates acks by tag and dispatches inbound messages to the
// registered handler on its own goroutine.
type Client struct {
	conn *websocket.Conn
	log  *zap.Logger

	send      chan outbound
	quit      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	handler func(domain.Message)
	pending map[uint64]chan ackPayload
	nextTag uint64
}

var _ gateway.Gateway = (*Client)(nil)

// Dial connects to the bridge and waits for it to report a CONNECTED
// session state. Anything else is a startup failure; the game is never
// run over a half-connected gateway.
func Dial(ctx context.Context, bridgeURL, session string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	u, err := url.Parse(bridgeURL)
	if err != nil {
		return nil, fmt.Errorf("parse bridge url: %w", err)
	}
	q := u.Query()
	q.Set("session", session)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read session state: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var state statePayload
	if hello.Type != "state" || json.Unmarshal(hello.Payload, &state) != nil || state.State != "CONNECTED" {
		conn.Close()
		return nil, fmt.Errorf("%w: state %q", domain.ErrGatewayNotConnected, state.State)
	}

	c := &Client{
		conn:    conn,
		log:     log,
		send:    make(chan outbound, 16),
		quit:    make(chan struct{}),
		pending: make(map[uint64]chan ackPayload),
	}
	go c.writePump()
	go c.readPump()
	log.Info("gateway connected", zap.String("session", session))
	return c, nil
}

// OnMessage registers the inbound handler.
func (c *Client) OnMessage(handler func(domain.Message)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

func (c *Client) SendText(ctx context.Context, to, text string) (domain.SendReceipt, error) {
	ack, err := c.request(ctx, "sendText", sendTextPayload{To: to, Body: text})
	if err != nil {
		return domain.SendReceipt{}, err
	}
	return domain.SendReceipt{MessageID: ack.ID, Timestamp: ack.T}, nil
}

func (c *Client) Reply(ctx context.Context, to, text, quotedID string) error {
	_, err := c.request(ctx, "reply", replyPayload{To: to, Body: text, QuotedID: quotedID})
	return err
}

// Close tears down the connection and fails any in-flight sends.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	return c.conn.Close()
}

// request enqueues one outbound frame and waits for its ack.
func (c *Client) request(ctx context.Context, typ string, payload any) (ackPayload, error) {
	c.mu.Lock()
	c.nextTag++
	tag := c.nextTag
	ch := make(chan ackPayload, 1)
	c.pending[tag] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, tag)
		c.mu.Unlock()
	}()

	select {
	case c.send <- outbound{Type: typ, Tag: tag, Payload: payload}:
	case <-ctx.Done():
		return ackPayload{}, ctx.Err()
	case <-c.quit:
		return ackPayload{}, fmt.Errorf("%s: gateway closed", typ)
	}

	select {
	case ack := <-ch:
		return ack, nil
	case <-time.After(ackTimeout):
		return ackPayload{}, fmt.Errorf("%s: ack timeout", typ)
	case <-ctx.Done():
		return ackPayload{}, ctx.Err()
	case <-c.quit:
		return ackPayload{}, fmt.Errorf("%s: gateway closed", typ)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Error("gateway write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-c.quit:
			return
		}
	}
}

// readPump decodes frames until the connection dies. A malformed frame is
// logged and skipped; it never stops delivery.
func (c *Client) readPump() {
	defer c.Close()
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			select {
			case <-c.quit:
			default:
				c.log.Error("gateway read failed", zap.Error(err))
			}
			return
		}
		switch f.Type {
		case "ack":
			var ack ackPayload
			if err := json.Unmarshal(f.Payload, &ack); err != nil {
				c.log.Warn("malformed ack frame", zap.Error(err))
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[f.Tag]
			c.mu.Unlock()
			if ok {
				ch <- ack
			}
		case "message":
			var p messagePayload
			if err := json.Unmarshal(f.Payload, &p); err != nil {
				c.log.Warn("malformed message frame", zap.Error(err))
				continue
			}
			c.mu.Lock()
			handler := c.handler
			c.mu.Unlock()
			if handler != nil {
				handler(domain.Message{
					ID:         p.ID,
					From:       p.From,
					Body:       p.Body,
					Timestamp:  p.T,
					FromMe:     p.FromMe,
					IsGroupMsg: p.IsGroupMsg,
					SenderID:   p.Sender.ID,
					SenderName: p.Sender.Pushname,
				})
			}
		default:
			c.log.Warn("unknown frame type", zap.String("type", f.Type))
		}
	}
}
