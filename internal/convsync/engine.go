package convsync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/saravenpi/baatcheet/internal/models"
)

// Engine owns the single open conversation of a logged-in user. Opening a
// conversation closes the previous one first, so results for a conversation
// the user has left are never applied.
type Engine struct {
	auth   models.Auth
	deps   Deps
	logger *slog.Logger
	opts   []Option

	mu      sync.Mutex
	current *Session
}

func NewEngine(auth models.Auth, deps Deps, logger *slog.Logger, opts ...Option) *Engine {
	return &Engine{
		auth:   auth,
		deps:   deps,
		logger: logger,
		opts:   opts,
	}
}

// Open closes the current session, if any, and opens conversationID.
func (e *Engine) Open(ctx context.Context, conversationID int64) *Session {
	e.mu.Lock()
	prev := e.current
	s := NewSession(conversationID, e.auth, e.deps, e.logger, e.opts...)
	e.current = s
	e.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	s.Open(ctx)
	return s
}

// Current returns the open session or nil.
func (e *Engine) Current() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Leave closes the current session if it is conversationID.
func (e *Engine) Leave(conversationID int64) {
	e.mu.Lock()
	s := e.current
	if s == nil || s.ConversationID() != conversationID {
		e.mu.Unlock()
		return
	}
	e.current = nil
	e.mu.Unlock()
	s.Close()
}

func (e *Engine) Close() {
	e.mu.Lock()
	s := e.current
	e.current = nil
	e.mu.Unlock()
	if s != nil {
		s.Close()
	}
}
