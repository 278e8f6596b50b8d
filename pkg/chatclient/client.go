// Package chatclient is a small client for the realtime chat endpoint. It
// maintains one connection, transparently reconnects with bounded
// exponential backoff, and re-joins the active conversation after a
// reconnect so callers only observe a stream of events.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chat_errors "craftlink-chat/pkg/errors"
)

// State reports the connection lifecycle to the OnStateChange callback.
type State string

const (
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// ErrClosed is returned by operations on a client that has been closed or
// has exhausted its reconnect attempts.
var ErrClosed = errors.New("chatclient: client is closed")

// Policy bounds the reconnect schedule. The delay before attempt n is
// min(Base*2^n, Cap); after MaxAttempts consecutive failures the client
// gives up and closes.
type Policy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

var DefaultPolicy = Policy{
	Base:        500 * time.Millisecond,
	Cap:         15 * time.Second,
	MaxAttempts: 8,
}

func (p Policy) backoffForAttempt(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	delay := p.Base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.Cap {
			return p.Cap
		}
	}
	if p.Cap > 0 && delay > p.Cap {
		return p.Cap
	}
	return delay
}

// Options configures a Client.
type Options struct {
	// URL is the realtime endpoint, e.g. ws://host:8080/ws.
	URL   string
	Token string

	Policy Policy

	OnEvent       func(Event)
	OnStateChange func(State)

	Logger *zap.Logger
}

type Client struct {
	opts   Options
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	joined string
	closed bool
	// closeCause distinguishes an explicit Close (nil, operations return
	// ErrClosed) from an exhausted reconnect schedule (ErrChannelLost).
	closeCause error

	done chan struct{}
	wg   sync.WaitGroup
}

// Dial connects and starts the receive loop. The initial connection is not
// retried: callers decide whether a cold-start failure is fatal.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("chatclient: url is required")
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		opts:   opts,
		dialer: websocket.DefaultDialer,
		done:   make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.setState(StateConnected)

	c.wg.Add(1)
	go c.readLoop(conn)

	return c, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, err
	}
	if c.opts.Token != "" {
		q := u.Query()
		q.Set("token", c.opts.Token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// Join subscribes this connection to a conversation. The key is remembered
// and re-sent automatically after every reconnect.
func (c *Client) Join(conversationKey string) error {
	c.mu.Lock()
	c.joined = conversationKey
	c.mu.Unlock()
	return c.writeEvent(outboundEvent{Type: eventJoin, ConversationKey: conversationKey})
}

// SendMessage submits a message to the joined conversation.
func (c *Client) SendMessage(body, imageURL string) error {
	return c.writeEvent(outboundEvent{Type: eventSendMessage, Body: body, ImageURL: imageURL})
}

// Typing reports the local typing state.
func (c *Client) Typing(isTyping bool) error {
	return c.writeEvent(outboundEvent{Type: eventTyping, IsTyping: isTyping})
}

// MarkRead acknowledges the given message ids as read.
func (c *Client) MarkRead(messageIDs []string) error {
	return c.writeEvent(outboundEvent{Type: eventMarkRead, MessageIDs: messageIDs})
}

func (c *Client) writeEvent(ev outboundEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		if c.closeCause != nil {
			return c.closeCause
		}
		return ErrClosed
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close shuts the client down. A closed client never reconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	c.wg.Wait()
	c.setState(StateClosed)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			c.opts.Logger.Warn("chatclient: connection lost", zap.Error(err))
			c.reconnect()
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.opts.Logger.Warn("chatclient: undecodable frame", zap.Error(err))
			continue
		}
		if c.opts.OnEvent != nil {
			c.opts.OnEvent(ev)
		}
	}
}

// reconnect runs the backoff schedule until a dial succeeds or the policy
// is exhausted. On success it re-joins the previously joined conversation
// before resuming the read loop; missed messages are recovered by the
// caller through the history endpoint.
func (c *Client) reconnect() {
	c.setState(StateReconnecting)

	for attempt := 0; attempt < c.opts.Policy.MaxAttempts; attempt++ {
		delay := c.opts.Policy.backoffForAttempt(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.done:
			timer.Stop()
			return
		}

		if c.isClosed() {
			return
		}

		conn, err := c.dial(context.Background())
		if err != nil {
			c.opts.Logger.Warn("chatclient: reconnect attempt failed",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		joined := c.joined
		c.mu.Unlock()

		if joined != "" {
			if err := c.writeEvent(outboundEvent{Type: eventJoin, ConversationKey: joined}); err != nil {
				c.opts.Logger.Warn("chatclient: re-join failed", zap.Error(err))
				conn.Close()
				continue
			}
		}

		c.setState(StateConnected)
		c.wg.Add(1)
		go c.readLoop(conn)
		return
	}

	c.opts.Logger.Error("chatclient: reconnect attempts exhausted",
		zap.Int("attempts", c.opts.Policy.MaxAttempts))
	c.mu.Lock()
	c.closed = true
	c.closeCause = chat_errors.ErrChannelLost
	c.mu.Unlock()
	c.setState(StateClosed)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) setState(s State) {
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}
