package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/models"
)

// Client talks to the messaging REST API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token. The token is also installed on
// the client.
func (c *Client) Login(ctx context.Context, email, password string) (models.Auth, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.Auth{}, apperr.InvalidArg("Please enter email and password.")
	}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return models.Auth{}, err
	}
	if resp.Token == "" {
		return models.Auth{}, apperr.Internal("login response carried no token", nil)
	}

	c.SetToken(resp.Token)
	return models.Auth{
		Token:  resp.Token,
		User:   resp.User.toModel(),
		Server: c.baseURL,
	}, nil
}

func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var wire []conversationDTO
	if err := c.do(ctx, http.MethodGet, "/conversation", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]models.Conversation, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toModel())
	}
	return out, nil
}

// CreatePrivateConversation returns the 1:1 conversation with userID,
// creating it when it does not exist yet.
func (c *Client) CreatePrivateConversation(ctx context.Context, userID int64) (models.Conversation, error) {
	var wire conversationDTO
	if err := c.do(ctx, http.MethodPost, "/conversation/private", privateRequest{UserID: userID}, &wire); err != nil {
		return models.Conversation{}, err
	}
	return wire.toModel(), nil
}

// Messages returns the history of a conversation, newest first.
func (c *Client) Messages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var wire []MessageDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/message/%d", conversationID), nil, &wire); err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.ToModel())
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, req models.SendRequest) (models.Message, error) {
	body := sendRequest{
		ConversationID: req.ConversationID,
		Text:           req.Text,
		ClientID:       req.ClientID,
	}
	var wire MessageDTO
	if err := c.do(ctx, http.MethodPost, "/message/send", body, &wire); err != nil {
		return models.Message{}, err
	}
	m := wire.ToModel()
	if m.ClientID == "" {
		m.ClientID = req.ClientID
	}
	return m, nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/message/%d/read", conversationID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperr.Internal("encode request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Internal("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperr.Unavailable("server unreachable", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Internal("decode response", err)
	}
	return nil
}

// statusError maps an HTTP error status to an apperr code, keeping the
// server's message when the body carries one.
func statusError(resp *http.Response) error {
	var body errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)

	msg := body.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var code apperr.Code
	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		code = apperr.CodeInvalidArgument
	case resp.StatusCode == http.StatusUnauthorized:
		code = apperr.CodeUnauthenticated
	case resp.StatusCode == http.StatusForbidden:
		code = apperr.CodePermissionDenied
	case resp.StatusCode == http.StatusNotFound:
		code = apperr.CodeNotFound
	case resp.StatusCode == http.StatusConflict:
		code = apperr.CodeFailedPrecondition
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		code = apperr.CodeUnavailable
	default:
		code = apperr.CodeUnknown
	}
	return apperr.Wrap(code, msg, fmt.Errorf("http %d", resp.StatusCode))
}
