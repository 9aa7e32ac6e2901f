package convsync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/models"
)

type ConversationLister interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
}

type ConversationCreator interface {
	CreatePrivateConversation(ctx context.Context, userID int64) (models.Conversation, error)
}

// ListSync keeps the conversation list. Every refresh replaces the list
// wholesale; a refresh that finishes after a newer one started is ignored.
type ListSync struct {
	lister  ConversationLister
	creator ConversationCreator
	logger  *slog.Logger

	mu            sync.Mutex
	gen           uint64
	conversations []models.Conversation
	err           error
}

func NewListSync(lister ConversationLister, creator ConversationCreator, logger *slog.Logger) *ListSync {
	return &ListSync{lister: lister, creator: creator, logger: logger}
}

// Refresh fetches the list. On error the previous list is kept and the
// error is returned.
func (l *ListSync) Refresh(ctx context.Context) ([]models.Conversation, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	fetched, err := l.lister.Conversations(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.Debug("stale conversation list dropped")
		return cloneConversations(l.conversations), l.err
	}
	if err != nil {
		l.err = err
		l.logger.Warn("conversation list refresh failed", "error", err)
		return cloneConversations(l.conversations), err
	}
	l.err = nil
	l.conversations = fetched
	return cloneConversations(fetched), nil
}

func (l *ListSync) Conversations() []models.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneConversations(l.conversations)
}

// Err returns the error of the last completed refresh.
func (l *ListSync) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// StartPrivate creates (or reuses) a private conversation with userID and
// puts it at the top of the list.
func (l *ListSync) StartPrivate(ctx context.Context, userID int64) (models.Conversation, error) {
	if userID <= 0 {
		return models.Conversation{}, apperr.InvalidArg("user id must be a positive number")
	}
	conv, err := l.creator.CreatePrivateConversation(ctx, userID)
	if err != nil {
		return models.Conversation{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	list := make([]models.Conversation, 0, len(l.conversations)+1)
	list = append(list, conv)
	for _, c := range l.conversations {
		if c.ID != conv.ID {
			list = append(list, c)
		}
	}
	l.conversations = list
	return conv, nil
}

func cloneConversations(in []models.Conversation) []models.Conversation {
	if in == nil {
		return nil
	}
	out := make([]models.Conversation, len(in))
	copy(out, in)
	return out
}
