package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/logger"
	"github.com/saravenpi/baatcheet/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, logger.Discard())
}

func TestLogin(t *testing.T) {
	var got loginRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"token":"tok","user":{"id":1,"name":null,"email":"me@example.com","avatar":null}}`))
	})

	auth, err := c.Login(context.Background(), " me@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, loginRequest{Email: "me@example.com", Password: "secret"}, got)
	assert.Equal(t, "tok", auth.Token)
	assert.Equal(t, models.User{ID: 1, Email: "me@example.com"}, auth.User)
	assert.True(t, auth.Valid())
	assert.Equal(t, "tok", c.bearer())
}

func TestLoginValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.Login(context.Background(), "", "secret")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	assert.Equal(t, "Please enter email and password.", apperr.UserMessage(err))

	_, err = c.Login(context.Background(), "me@example.com", "")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestMessagesDecodesWireFormat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/16", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"id":10,"conversationId":16,"senderId":1,"text":"yo","type":"text","clientId":"c1",
			 "createdAt":"2026-10-19T12:00:00Z","sender":{"id":1,"name":"Me","avatar":null}},
			{"id":9,"conversationId":16,"senderId":2,"text":null,"type":"image","clientId":null,
			 "createdAt":"2026-10-19T11:59:00Z"}
		]`))
	})
	c.SetToken("tok")

	msgs, err := c.Messages(context.Background(), 16)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, models.Message{
		ID:             10,
		ConversationID: 16,
		SenderID:       1,
		SenderName:     "Me",
		Text:           "yo",
		Type:           "text",
		ClientID:       "c1",
		CreatedAt:      time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}, msgs[0])
	assert.Equal(t, "", msgs[1].Text)
	assert.Equal(t, "", msgs[1].ClientID)
	assert.True(t, msgs[1].Confirmed())
}

func TestSendMessage(t *testing.T) {
	var got sendRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":11,"conversationId":16,"senderId":1,"text":"hey","type":"text","createdAt":"2026-10-19T12:00:00Z"}`))
	})

	m, err := c.SendMessage(context.Background(), models.SendRequest{ConversationID: 16, Text: "hey", ClientID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, sendRequest{ConversationID: 16, Text: "hey", ClientID: "c9"}, got)
	assert.Equal(t, int64(11), m.ID)
	assert.Equal(t, "c9", m.ClientID, "client id falls back to the request")
}

func TestConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversation":
			w.Write([]byte(`[{"id":3,"participants":[{"id":1,"name":"Me"},{"id":2,"name":"Asha"}],
				"lastMessage":{"text":"see you","senderId":2}},{"id":4}]`))
		case "/conversation/private":
			var body privateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(7), body.UserID)
			w.Write([]byte(`{"id":5}`))
		default:
			http.NotFound(w, r)
		}
	})

	list, err := c.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Asha", list[0].Title(1))
	assert.Equal(t, "see you", list[0].LastMessage.Text)
	assert.Nil(t, list[1].LastMessage)
	assert.Equal(t, "Conversation #4", list[1].Title(1))

	conv, err := c.CreatePrivateConversation(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), conv.ID)
}

func TestMarkRead(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/message/16/read", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.MarkRead(context.Background(), 16))
	assert.True(t, called)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    apperr.Code
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid credentials"}`, apperr.CodeUnauthenticated, "Invalid credentials"},
		{"validation list", http.StatusBadRequest, `{"message":["text should not be empty"]}`, apperr.CodeInvalidArgument, "text should not be empty"},
		{"forbidden", http.StatusForbidden, `{"message":"Not a participant"}`, apperr.CodePermissionDenied, "Not a participant"},
		{"not found", http.StatusNotFound, ``, apperr.CodeNotFound, "Not Found"},
		{"server error", http.StatusBadGateway, `<html>`, apperr.CodeUnavailable, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Conversations(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
			assert.Equal(t, tt.message, apperr.UserMessage(err))
		})
	}
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, logger.Discard())
	_, err := c.Messages(context.Background(), 1)
	assert.True(t, apperr.Is(err, apperr.CodeUnavailable))
}
