package api

import (
	"time"

	"github.com/saravenpi/baatcheet/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type privateRequest struct {
	UserID int64 `json:"userId"`
}

type sendRequest struct {
	ConversationID int64  `json:"conversationId"`
	Text           string `json:"text"`
	ClientID       string `json:"clientId"`
}

type errorBody struct {
	Message any    `json:"message"`
	Error   string `json:"error"`
}

// text flattens the message field, which some endpoints send as a list of
// validation errors.
func (b errorBody) text() string {
	switch m := b.Message.(type) {
	case string:
		return m
	case []any:
		for _, item := range m {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return b.Error
}

type userDTO struct {
	ID     int64   `json:"id"`
	Name   *string `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
}

func (u userDTO) toModel() models.User {
	return models.User{
		ID:     u.ID,
		Name:   deref(u.Name),
		Email:  u.Email,
		Avatar: deref(u.Avatar),
	}
}

type participantDTO struct {
	ID     int64   `json:"id"`
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type lastMessageDTO struct {
	Text      *string   `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	SenderID  int64     `json:"senderId"`
}

type conversationDTO struct {
	ID           int64            `json:"id"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	Participants []participantDTO `json:"participants"`
	LastMessage  *lastMessageDTO  `json:"lastMessage"`
}

func (c conversationDTO) toModel() models.Conversation {
	conv := models.Conversation{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, p := range c.Participants {
		conv.Participants = append(conv.Participants, models.Participant{
			ID:     p.ID,
			Name:   deref(p.Name),
			Avatar: deref(p.Avatar),
		})
	}
	if c.LastMessage != nil {
		conv.LastMessage = &models.LastMessage{
			Text:      deref(c.LastMessage.Text),
			CreatedAt: c.LastMessage.CreatedAt,
			SenderID:  c.LastMessage.SenderID,
		}
	}
	return conv
}

// MessageDTO is the wire form of a message, shared with the push channel.
type MessageDTO struct {
	ID             int64           `json:"id"`
	ConversationID int64           `json:"conversationId"`
	SenderID       int64           `json:"senderId"`
	Text           *string         `json:"text"`
	Type           string          `json:"type"`
	ClientID       *string         `json:"clientId"`
	CreatedAt      time.Time       `json:"createdAt"`
	Sender         *participantDTO `json:"sender"`
}

// ToModel converts a confirmed wire message.
func (m MessageDTO) ToModel() models.Message {
	out := models.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           deref(m.Text),
		Type:           m.Type,
		ClientID:       deref(m.ClientID),
		CreatedAt:      m.CreatedAt,
		Status:         models.StatusConfirmed,
	}
	if m.Sender != nil {
		out.SenderName = deref(m.Sender.Name)
		if out.SenderID == 0 {
			out.SenderID = m.Sender.ID
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
