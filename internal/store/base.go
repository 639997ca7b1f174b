// Package store holds the client-side state containers: the session, the
// indicator cache and the alert rule list. Each store owns its slice of
// state and is safe for concurrent use.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	drepo "EconDash/internal/domain/repository"
	xhttp "EconDash/pkg/http"
	xlogger "EconDash/pkg/logger"
	"EconDash/pkg/metrics"
)

// ErrStaleResponse is returned when a newer call of the same kind was issued
// while this one was in flight; its result was discarded.
var ErrStaleResponse = errors.New("store: response superseded by a newer request")

var validate = validator.New()

// Option configures a store.
type Option func(*base)

// WithLogger sets the store logger.
func WithLogger(l *xlogger.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(b *base) {
		if m != nil {
			b.metrics = m
		}
	}
}

// OpState is a snapshot of one operation kind.
type OpState struct {
	Loading bool
	Err     error
	// Seq is the number of calls of this kind issued so far.
	Seq uint64
}

type opRecord struct {
	seq      uint64
	inflight int
	err      error
}

// opTracker keeps per-operation records plus the aggregate flags. Callers
// hold the store mutex.
type opTracker struct {
	inflight int
	ops      map[string]*opRecord
	lastErr  error
}

func (t *opTracker) record(op string) *opRecord {
	if t.ops == nil {
		t.ops = make(map[string]*opRecord)
	}
	r, ok := t.ops[op]
	if !ok {
		r = &opRecord{}
		t.ops[op] = r
	}
	return r
}

func (t *opTracker) begin(op string) uint64 {
	r := t.record(op)
	r.seq++
	r.inflight++
	t.inflight++
	return r.seq
}

func (t *opTracker) end(op string) {
	r := t.record(op)
	r.inflight--
	t.inflight--
}

func (t *opTracker) isLatest(op string, seq uint64) bool {
	return t.record(op).seq == seq
}

func (t *opTracker) fail(op string, err error) {
	t.record(op).err = err
	t.lastErr = err
}

func (t *opTracker) succeed(op string) {
	t.record(op).err = nil
}

func (t *opTracker) state(op string) OpState {
	r, ok := t.ops[op]
	if !ok {
		return OpState{}
	}
	return OpState{Loading: r.inflight > 0, Err: r.err, Seq: r.seq}
}

// base carries the locking, operation tracking and instrumentation shared by
// all stores.
type base struct {
	name    string
	mu      sync.RWMutex
	ops     opTracker
	logger  *xlogger.Logger
	metrics drepo.Metrics
}

func (b *base) init(name string, opts []Option) {
	b.name = name
	b.logger = xlogger.Nop()
	b.metrics = metrics.Noop{}
	for _, opt := range opts {
		opt(b)
	}
}

// run executes fetch outside the lock, then commit under it. When ordered is
// set, only the most recently issued call of op may commit; older ones are
// dropped. The in-flight count is always released, panics included.
func (b *base) run(op string, ordered bool, fetch func() error, commit func() error) (err error) {
	start := time.Now()

	b.mu.Lock()
	seq := b.ops.begin(op)
	b.mu.Unlock()

	released := false
	defer func() {
		if !released {
			b.mu.Lock()
			b.ops.end(op)
			b.mu.Unlock()
		}
	}()

	ferr := fetch()

	b.mu.Lock()
	b.ops.end(op)
	released = true
	stale := ordered && !b.ops.isLatest(op, seq)
	switch {
	case stale && ferr != nil:
		err = ferr
	case stale:
		err = ErrStaleResponse
	case ferr != nil:
		b.ops.fail(op, ferr)
		err = ferr
	default:
		if commit != nil {
			err = commit()
		}
		if err != nil {
			b.ops.fail(op, err)
		} else {
			b.ops.succeed(op)
		}
	}
	b.mu.Unlock()

	b.observe(op, err, time.Since(start))
	return err
}

func (b *base) observe(op string, err error, dur time.Duration) {
	result := "ok"
	switch {
	case errors.Is(err, ErrStaleResponse):
		result = "stale"
	case err != nil:
		result = "error"
	}
	b.metrics.RecordOperation(b.name, op, result)
	b.metrics.RecordLatency(b.name+"."+op, dur.Seconds())

	if err != nil && result != "stale" {
		b.metrics.RecordError(b.name + "." + op)
		b.logger.Warn("store operation failed",
			xlogger.String("store", b.name),
			xlogger.String("op", op),
			xlogger.Int("status", xhttp.StatusOf(err)),
			xlogger.Error(err),
		)
	}
}

// Loading reports whether any operation of the store is in flight.
func (b *base) Loading() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ops.inflight > 0
}

// Err returns the error recorded by the most recent failing operation of any
// kind. Completion order decides, not issue order: the last call to fail wins.
func (b *base) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ops.lastErr
}

// ErrMessage renders Err for display, or "" when there is none.
func (b *base) ErrMessage() string {
	return xhttp.Message(b.Err())
}

// ClearError resets the aggregate error slot.
func (b *base) ClearError() {
	b.mu.Lock()
	b.ops.lastErr = nil
	b.mu.Unlock()
}

// Op returns the state of a single operation kind.
func (b *base) Op(op string) OpState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ops.state(op)
}
