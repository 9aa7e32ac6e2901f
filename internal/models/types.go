package models

import (
	"fmt"
	"time"
)

type Status int

const (
	StatusConfirmed Status = iota
	StatusPending
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	default:
		return "confirmed"
	}
}

// Message is one entry of a conversation. ID is zero until the server has
// confirmed the message; until then ClientID is its only identity.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	SenderName     string
	Text           string
	Type           string
	CreatedAt      time.Time
	ClientID       string
	Status         Status
}

func (m Message) Confirmed() bool {
	return m.Status == StatusConfirmed
}

type Participant struct {
	ID     int64
	Name   string
	Avatar string
}

type LastMessage struct {
	Text      string
	CreatedAt time.Time
	SenderID  int64
}

type Conversation struct {
	ID           int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []Participant
	LastMessage  *LastMessage
}

// Title names a conversation for list rendering. Participants other than
// selfID are preferred; without any, the numeric id is used.
func (c Conversation) Title(selfID int64) string {
	names := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.ID == selfID || p.Name == "" {
			continue
		}
		names = append(names, p.Name)
	}
	if len(names) == 0 {
		return fmt.Sprintf("Conversation #%d", c.ID)
	}
	title := names[0]
	for _, n := range names[1:] {
		title += ", " + n
	}
	return title
}

type User struct {
	ID     int64
	Name   string
	Email  string
	Avatar string
}

// Auth is the logged-in session handed to every component that talks to
// the server.
type Auth struct {
	Token  string
	User   User
	Server string
}

func (a Auth) Valid() bool {
	return a.Token != "" && a.User.ID != 0
}

type SendRequest struct {
	ConversationID int64
	Text           string
	ClientID       string
}
