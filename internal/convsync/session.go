package convsync

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/models"
)

// eventChanSize is the buffer of the channel feeding the session loop.
const eventChanSize = 64

// HistoryFetcher returns the confirmed messages of a conversation, newest
// first.
type HistoryFetcher interface {
	Messages(ctx context.Context, conversationID int64) ([]models.Message, error)
}

// MessageSender sends a message and returns the server's confirmed copy,
// which carries the same ClientID.
type MessageSender interface {
	SendMessage(ctx context.Context, req models.SendRequest) (models.Message, error)
}

// Subscription is the handle returned by PushChannel.Subscribe.
type Subscription interface {
	Unsubscribe() error
}

// PushChannel delivers real-time messages for a conversation. Delivery is
// at-least-once; onMessage is called from a single goroutine in receipt
// order.
type PushChannel interface {
	Subscribe(conversationID int64, onMessage func(models.Message)) (Subscription, error)
}

// Deps are the collaborators a Session talks to.
type Deps struct {
	History  HistoryFetcher
	Sender   MessageSender
	Receipts ReadReceipts
	Push     PushChannel
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}

// Snapshot is a consistent copy of a session's state for rendering.
type Snapshot struct {
	ConversationID int64
	State          State
	Messages       []models.Message
	Err            error
	Version        uint64
}

// Failed reports whether loading ended in an error. The session stays in
// this state until it is closed.
func (s Snapshot) Failed() bool {
	return s.State == StateLoading && s.Err != nil
}

type historyLoaded struct {
	messages []models.Message
	err      error
}

type inboundReceived struct {
	message models.Message
}

type sendRequested struct {
	message models.Message
	reply   chan error
}

type sendResolved struct {
	clientID string
	message  models.Message
	err      error
}

type readTriggered struct{}

// Session synchronizes one open conversation. A single loop goroutine owns
// the Reconciler and applies history, push events, local sends and read
// triggers strictly in arrival order. Network calls run on their own
// goroutines and report back through the loop; once the session is closed
// their results are dropped.
type Session struct {
	id        int64
	auth      models.Auth
	deps      Deps
	logger    *slog.Logger
	debouncer *Debouncer
	newID     func() string
	debOpts   []DebouncerOption

	// owned by the loop once it runs
	state    State
	rec      *Reconciler
	buffered []models.Message
	loadErr  error
	sub      Subscription

	ctx     context.Context
	events  chan any
	quit    chan struct{}
	done    chan struct{}
	updates chan Snapshot

	lifecycle sync.Mutex
	started   bool
	closed    bool

	snapMu  sync.RWMutex
	snap    Snapshot
	version uint64
}

type Option func(*Session)

// WithDebouncer passes options to the session's read-receipt debouncer.
func WithDebouncer(opts ...DebouncerOption) Option {
	return func(s *Session) { s.debOpts = append(s.debOpts, opts...) }
}

// WithClientIDs replaces the client id generator.
func WithClientIDs(f func() string) Option {
	return func(s *Session) { s.newID = f }
}

func NewSession(conversationID int64, auth models.Auth, deps Deps, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		id:      conversationID,
		auth:    auth,
		deps:    deps,
		logger:  logger.With("conversation_id", conversationID),
		newID:   uuid.NewString,
		rec:     NewReconciler(),
		events:  make(chan any, eventChanSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		updates: make(chan Snapshot, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debouncer = NewDebouncer(deps.Receipts, s.logger, s.debOpts...)
	s.snap = Snapshot{ConversationID: conversationID, State: StateIdle}
	return s
}

func (s *Session) ConversationID() int64 { return s.id }

// Open subscribes to push events, then starts the history fetch without
// waiting for the subscription to deliver anything. ctx bounds the
// network calls the session makes, not the session itself.
func (s *Session) Open(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	s.ctx = ctx

	s.state = StateLoading
	s.logger.Debug("opening conversation")

	sub, err := s.deps.Push.Subscribe(s.id, s.onPush)
	if err != nil {
		s.loadErr = apperr.Unavailable("could not subscribe to live updates", err)
		s.logger.Warn("push subscribe failed", "error", err)
	} else {
		s.sub = sub
	}
	s.publish()

	go s.run()
	if s.loadErr == nil {
		go s.fetchHistory()
	}
}

// Close unsubscribes, stops the debouncer and discards the messages. It
// waits for the loop to exit and is safe to call more than once.
func (s *Session) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.quit)

	if !s.started {
		s.teardown()
		close(s.done)
		return
	}
	<-s.done
}

// Send validates text and inserts it as a pending message before the
// network call is made. It returns the generated client id.
func (s *Session) Send(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.InvalidArg("message is empty")
	}

	s.lifecycle.Lock()
	running := s.started && !s.closed
	s.lifecycle.Unlock()
	if !running {
		return "", apperr.FailedPrecondition("conversation is not open")
	}

	m := models.Message{
		ConversationID: s.id,
		SenderID:       s.auth.User.ID,
		SenderName:     s.auth.User.Name,
		Text:           text,
		Type:           "text",
		CreatedAt:      time.Now(),
		ClientID:       s.newID(),
	}

	reply := make(chan error, 1)
	if !s.post(sendRequested{message: m, reply: reply}) {
		return "", apperr.FailedPrecondition("conversation is closed")
	}
	select {
	case err := <-reply:
		if err != nil {
			return "", err
		}
		return m.ClientID, nil
	case <-s.done:
		return "", apperr.FailedPrecondition("conversation is closed")
	}
}

// MarkRead reports scroll activity; it may lead to a read receipt.
func (s *Session) MarkRead() {
	s.post(readTriggered{})
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Updates delivers the latest snapshot after each change. Intermediate
// snapshots may be skipped when the reader is slow. The channel is closed
// after the final StateClosed snapshot.
func (s *Session) Updates() <-chan Snapshot {
	return s.updates
}

// LastAcknowledged returns when this conversation was last marked read.
func (s *Session) LastAcknowledged() time.Time {
	return s.debouncer.LastAcknowledged(s.id)
}

func (s *Session) onPush(m models.Message) {
	if m.ConversationID != s.id {
		s.logger.Debug("dropping push for another conversation", "message_conversation_id", m.ConversationID)
		return
	}
	s.post(inboundReceived{message: m})
}

// post hands an event to the loop. It reports false once the session is
// closed.
func (s *Session) post(ev any) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.quit:
		return false
	}
}

func (s *Session) fetchHistory() {
	messages, err := s.deps.History.Messages(s.ctx, s.id)
	s.post(historyLoaded{messages: messages, err: err})
}

func (s *Session) deliver(m models.Message) {
	confirmed, err := s.deps.Sender.SendMessage(s.ctx, models.SendRequest{
		ConversationID: m.ConversationID,
		Text:           m.Text,
		ClientID:       m.ClientID,
	})
	s.post(sendResolved{clientID: m.ClientID, message: confirmed, err: err})
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-s.quit:
			s.teardown()
			return
		}
	}
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case historyLoaded:
		s.onHistory(ev)

	case inboundReceived:
		s.onInbound(ev.message)

	case sendRequested:
		if s.state != StateLive {
			ev.reply <- apperr.FailedPrecondition("conversation is still loading")
			return
		}
		s.rec.InsertLocalOptimistic(ev.message)
		s.publish()
		ev.reply <- nil
		go s.deliver(ev.message)

	case sendResolved:
		if s.state != StateLive {
			return
		}
		if ev.err != nil {
			s.logger.Warn("send failed", "client_id", ev.clientID, "error", ev.err)
			if s.rec.FailLocalSend(ev.clientID) {
				s.publish()
			}
			return
		}
		if s.rec.ConfirmLocalSend(ev.clientID, ev.message) {
			s.publish()
		}

	case readTriggered:
		if s.state == StateLive {
			s.debouncer.Trigger(s.id)
		}
	}
}

func (s *Session) onHistory(ev historyLoaded) {
	if s.state != StateLoading || s.loadErr != nil {
		return
	}
	if ev.err != nil {
		s.loadErr = ev.err
		s.buffered = nil
		s.logger.Warn("history fetch failed", "error", ev.err)
		s.publish()
		return
	}

	s.rec.LoadHistory(ev.messages)
	for _, m := range s.buffered {
		s.rec.InsertInbound(m)
	}
	s.logger.Debug("conversation live", "history", len(ev.messages), "buffered", len(s.buffered))
	s.buffered = nil
	s.state = StateLive
	s.debouncer.Trigger(s.id)
	s.publish()
}

func (s *Session) onInbound(m models.Message) {
	switch s.state {
	case StateLoading:
		if s.loadErr == nil {
			s.buffered = append(s.buffered, m)
		}
	case StateLive:
		changed := s.rec.InsertInbound(m)
		s.debouncer.Trigger(s.id)
		if changed {
			s.publish()
		} else {
			s.logger.Debug("duplicate push dropped", "message_id", m.ID)
		}
	}
}

func (s *Session) teardown() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.logger.Debug("unsubscribe failed", "error", err)
		}
		s.sub = nil
	}
	s.debouncer.Stop()
	s.rec.Reset()
	s.buffered = nil
	s.state = StateClosed
	s.publish()
	close(s.updates)
	s.logger.Debug("conversation closed")
}

func (s *Session) publish() {
	s.version++
	snap := Snapshot{
		ConversationID: s.id,
		State:          s.state,
		Messages:       s.rec.View(),
		Err:            s.loadErr,
		Version:        s.version,
	}

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}
