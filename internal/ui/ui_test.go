package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/config"
	"github.com/saravenpi/baatcheet/internal/contacts"
	"github.com/saravenpi/baatcheet/internal/logger"
	"github.com/saravenpi/baatcheet/internal/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app := NewApp(config.Default(), nil, nil, contacts.NewBook(t.TempDir()), logger.Discard())
	app.auth = models.Auth{Token: "tok", User: models.User{ID: 1, Name: "Me"}}
	return app
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "unknown"},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-90 * time.Second), "1 min ago"},
		{now.Add(-15 * time.Minute), "15m ago"},
		{now.Add(-90 * time.Minute), "1h ago"},
		{now.Add(-5 * time.Hour), "5h ago"},
		{now.Add(-30 * time.Hour), "yesterday"},
		{now.Add(-72 * time.Hour), "3d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTimeAgo(tt.at))
	}
}

func TestConversationPreview(t *testing.T) {
	assert.Equal(t, emptyPreview, conversationPreview(models.Conversation{ID: 1}))
	assert.Equal(t, emptyPreview, conversationPreview(models.Conversation{ID: 1, LastMessage: &models.LastMessage{}}))

	long := "this preview is much longer than fifty characters and must be cut"
	got := conversationPreview(models.Conversation{LastMessage: &models.LastMessage{
		Text:      long,
		CreatedAt: time.Now(),
	}})
	assert.Contains(t, got, "just now • ")
	assert.Contains(t, got, "...")
	assert.NotContains(t, got, "must be cut")
}

func TestParseUserID(t *testing.T) {
	_, err := parseUserID("  ")
	assert.Equal(t, "Enter a user id to start a private chat.", apperr.UserMessage(err))

	_, err = parseUserID("abc")
	assert.Equal(t, "User id must be a number.", apperr.UserMessage(err))

	_, err = parseUserID("-4")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	id, err := parseUserID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestBuildContact(t *testing.T) {
	c, err := buildContact(" Asha ", []string{"#2", "", "2", " 7"}, []string{"", "asha@example.com"})
	require.NoError(t, err)
	assert.Equal(t, contacts.Contact{Name: "Asha", UserIDs: []int64{2, 7}, Emails: []string{"asha@example.com"}}, c)

	_, err = buildContact("", []string{"2"}, nil)
	assert.EqualError(t, err, "name is required")

	_, err = buildContact("Asha", []string{"two"}, nil)
	assert.Error(t, err)

	_, err = buildContact("Asha", []string{""}, []string{" "})
	assert.EqualError(t, err, "at least one user id or email is required")
}

func TestSenderNameRule(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Contacts.Save(contacts.Contact{Name: "Bestie", UserIDs: []int64{2}}))

	assert.Equal(t, "You", app.SenderName(models.Message{SenderID: 1, SenderName: "Me"}))
	assert.Equal(t, "Bestie", app.SenderName(models.Message{SenderID: 2, SenderName: "Asha"}))
	assert.Equal(t, "Ravi", app.SenderName(models.Message{SenderID: 3, SenderName: "Ravi"}))
	assert.Equal(t, "User 4", app.SenderName(models.Message{SenderID: 4}))
}

func TestConversationTitleUsesNicknames(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Contacts.Save(contacts.Contact{Name: "Bestie", UserIDs: []int64{2}}))

	conv := models.Conversation{ID: 9, Participants: []models.Participant{
		{ID: 1, Name: "Me"},
		{ID: 2, Name: "Asha"},
	}}
	assert.Equal(t, "Bestie", app.conversationTitle(conv))
	assert.Equal(t, "Asha", conv.Participants[1].Name, "original left untouched")

	assert.Equal(t, "Conversation #9", app.conversationTitle(models.Conversation{ID: 9}))
}

func TestMessageRendering(t *testing.T) {
	assert.Equal(t, "hi", messageBody(models.Message{Text: "hi", Type: "text"}))
	assert.Equal(t, "[image]", messageBody(models.Message{Type: "image"}))
	assert.Equal(t, "", messageBody(models.Message{Type: "text"}))

	assert.Empty(t, statusMarker(models.Message{Status: models.StatusConfirmed}))
	assert.Contains(t, statusMarker(models.Message{Status: models.StatusPending}), "sending")
	assert.Contains(t, statusMarker(models.Message{Status: models.StatusFailed}), "failed")
}

func TestMessagesModelSignedOut(t *testing.T) {
	app := newTestApp(t)
	m := NewMessagesModel(app, models.Conversation{ID: 16})
	assert.Nil(t, m.session)
	assert.Contains(t, m.View(), "signed out")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, cmd)
}

func TestLoginValidation(t *testing.T) {
	app := newTestApp(t)
	m := NewLoginModel(app)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, updated.View(), "Please enter email and password.")
}

func TestRootModelWithoutSession(t *testing.T) {
	app := newTestApp(t)
	_, ok := NewRootModel(app).(LoginModel)
	assert.True(t, ok, "no engine means the login screen")
}

func TestResizedReplaysWindowSize(t *testing.T) {
	app := newTestApp(t)
	m := resized(NewMenuModel(app), 120, 40)
	assert.Equal(t, 120, m.windowWidth)
	assert.Equal(t, 40, m.windowHeight)

	unchanged := resized(NewMenuModel(app), 0, 0)
	assert.Equal(t, 80, unchanged.windowWidth)
}
