package convsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultMinSpacing  = 1500 * time.Millisecond
	DefaultSettleDelay = 300 * time.Millisecond
)

// ReadReceipts acknowledges that the user has read a conversation.
type ReadReceipts interface {
	MarkRead(ctx context.Context, conversationID int64) error
}

// Debouncer turns bursts of read triggers into at most one acknowledgement
// per window. A trigger within minSpacing of the last scheduled call is
// dropped; otherwise the acknowledgement is (re)scheduled settleDelay later.
//
// lastFire records when a call was scheduled, not when it ran, so a second
// trigger is rejected while the first is still waiting to fire.
type Debouncer struct {
	receipts    ReadReceipts
	clock       Clock
	logger      *slog.Logger
	minSpacing  time.Duration
	settleDelay time.Duration

	mu       sync.Mutex
	lastFire time.Time
	pending  Timer
	gen      uint64
	stopped  bool
	markers  map[int64]time.Time
}

type DebouncerOption func(*Debouncer)

func WithClock(c Clock) DebouncerOption {
	return func(d *Debouncer) { d.clock = c }
}

func WithSpacing(minSpacing, settleDelay time.Duration) DebouncerOption {
	return func(d *Debouncer) {
		d.minSpacing = minSpacing
		d.settleDelay = settleDelay
	}
}

func NewDebouncer(receipts ReadReceipts, logger *slog.Logger, opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{
		receipts:    receipts,
		clock:       RealClock(),
		logger:      logger,
		minSpacing:  DefaultMinSpacing,
		settleDelay: DefaultSettleDelay,
		markers:     make(map[int64]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger asks for conversationID to be acknowledged soon. It reports
// whether an acknowledgement was scheduled.
func (d *Debouncer) Trigger(conversationID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}

	now := d.clock.Now()
	if !d.lastFire.IsZero() && now.Sub(d.lastFire) < d.minSpacing {
		return false
	}
	d.lastFire = now

	if d.pending != nil {
		d.pending.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = d.clock.AfterFunc(d.settleDelay, func() {
		d.fire(gen, conversationID)
	})
	return true
}

func (d *Debouncer) fire(gen uint64, conversationID int64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	if err := d.receipts.MarkRead(context.Background(), conversationID); err != nil {
		d.logger.Debug("read receipt failed", "conversation_id", conversationID, "error", err)
		return
	}

	d.mu.Lock()
	d.markers[conversationID] = d.clock.Now()
	d.mu.Unlock()
}

// LastAcknowledged returns when conversationID was last acknowledged
// successfully, or the zero time.
func (d *Debouncer) LastAcknowledged(conversationID int64) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markers[conversationID]
}

// Stop cancels any scheduled acknowledgement and ignores later triggers.
// An acknowledgement already in flight is left to finish.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
