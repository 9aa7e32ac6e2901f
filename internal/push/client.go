package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/saravenpi/baatcheet/internal/api"
	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/convsync"
	"github.com/saravenpi/baatcheet/internal/models"
)

// Event names of the socket protocol.
const (
	EventJoinUser          = "join_user"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventMessageNew        = "message:new"
)

const writeWait = 10 * time.Second

// ErrClosed is returned by Subscribe after the connection has ended.
var ErrClosed = errors.New("push connection closed")

// wsConn is the part of *websocket.Conn the client uses.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client is a live push connection. One reader goroutine dispatches
// message:new events to the handler registered for the message's
// conversation, in the order they arrive.
type Client struct {
	conn   wsConn
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[int64]*subscription
	closed   bool
	err      error

	done chan struct{}
}

// Connect dials the socket with the bearer token and joins the user's room.
func Connect(ctx context.Context, socketURL string, auth models.Auth, logger *slog.Logger) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+auth.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, socketURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, apperr.Unauthorized("session expired, please log in again")
		}
		return nil, apperr.Unavailable("could not connect to live updates", err)
	}

	c := newClient(conn, logger)
	if err := c.emit(EventJoinUser, auth.User.ID); err != nil {
		c.Close()
		return nil, apperr.Unavailable("could not join user channel", err)
	}
	logger.Info("push connected", "url", socketURL, "user_id", auth.User.ID)
	return c, nil
}

func newClient(conn wsConn, logger *slog.Logger) *Client {
	c := &Client{
		conn:     conn,
		logger:   logger,
		handlers: make(map[int64]*subscription),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

type subscription struct {
	client         *Client
	conversationID int64
	onMessage      func(models.Message)
	once           sync.Once
}

// Unsubscribe removes the handler and leaves the conversation room.
func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		c := s.client
		c.mu.Lock()
		if c.handlers[s.conversationID] == s {
			delete(c.handlers, s.conversationID)
		}
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			err = c.emit(EventLeaveConversation, s.conversationID)
		}
	})
	return err
}

// Subscribe registers onMessage for conversationID and joins its room. A
// later subscription for the same conversation replaces the earlier one.
func (c *Client) Subscribe(conversationID int64, onMessage func(models.Message)) (convsync.Subscription, error) {
	sub := &subscription{client: c, conversationID: conversationID, onMessage: onMessage}

	c.mu.Lock()
	if c.closed {
		err := c.err
		c.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return nil, ErrClosed
	}
	c.handlers[conversationID] = sub
	c.mu.Unlock()

	if err := c.emit(EventJoinConversation, conversationID); err != nil {
		c.mu.Lock()
		delete(c.handlers, conversationID)
		c.mu.Unlock()
		return nil, err
	}
	return sub, nil
}

// Done is closed when the reader stops.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, or nil while it is open or after a
// clean Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) emit(event string, data any) error {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.closed = true
				c.err = err
			}
			c.handlers = make(map[int64]*subscription)
			c.mu.Unlock()

			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("push connection lost", "error", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	if !gjson.ValidBytes(data) {
		c.logger.Debug("push frame is not json", "size", len(data))
		return
	}
	event := gjson.GetBytes(data, "event").String()
	if event != EventMessageNew {
		c.logger.Debug("push event ignored", "event", event)
		return
	}

	var wire api.MessageDTO
	raw := gjson.GetBytes(data, "data").Raw
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		c.logger.Debug("bad message:new payload", "error", err)
		return
	}
	m := wire.ToModel()
	if m.ConversationID == 0 {
		c.logger.Debug("message without conversation id dropped", "message_id", m.ID)
		return
	}

	c.mu.Lock()
	sub := c.handlers[m.ConversationID]
	c.mu.Unlock()
	if sub == nil {
		c.logger.Debug("message for unsubscribed conversation", "conversation_id", m.ConversationID, "message_id", m.ID)
		return
	}
	sub.onMessage(m)
}
