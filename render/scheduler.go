package render

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Clock is the time source used between steps.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sink receives the animation. Reveal returns false when the message is gone,
// which ends the job without calling Finish.
type Sink interface {
	Reveal(id int64, text string) bool
	Finish(id int64)
}

type Job struct {
	MessageID int64
	Text      string
}

type Outcome int

const (
	// Completed means Finish was called.
	Completed Outcome = iota
	// Canceled means the context ended or a newer job replaced this one.
	Canceled
	// Orphaned means the sink no longer had the message.
	Orphaned
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Canceled:
		return "canceled"
	case Orphaned:
		return "orphaned"
	default:
		return "unknown"
	}
}

// DefaultUnit is the duration of one delay unit.
const DefaultUnit = time.Millisecond

// Scheduler runs at most one animation at a time.
type Scheduler struct {
	clock  Clock
	unit   time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithUnit sets the duration of one delay unit. Zero disables delays.
func WithUnit(d time.Duration) Option {
	return func(s *Scheduler) { s.unit = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  realClock{},
		unit:   DefaultUnit,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

// Start cancels the running job, if any, and animates job in a new
// goroutine. The returned channel yields the outcome once.
func (s *Scheduler) Start(ctx context.Context, job Job, sink Sink) <-chan Outcome {
	ctx, gen := s.begin(ctx)
	done := make(chan Outcome, 1)
	go func() {
		done <- s.run(ctx, gen, job, sink)
	}()
	return done
}

// Animate is the blocking form of Start.
func (s *Scheduler) Animate(ctx context.Context, job Job, sink Sink) Outcome {
	ctx, gen := s.begin(ctx)
	return s.run(ctx, gen, job, sink)
}

// Stop cancels the running job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, s.gen
}

func (s *Scheduler) current(ctx context.Context, gen uint64) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Scheduler) end(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) run(ctx context.Context, gen uint64, job Job, sink Sink) Outcome {
	defer s.end(gen)

	m := NewMachine(job.Text)
	reveals := 0
	for {
		step := m.Next()
		if !s.current(ctx, gen) {
			s.logger.Debug("animation canceled", "message_id", job.MessageID, "reveals", reveals)
			return Canceled
		}
		switch step.State {
		case StateRevealing:
			if !sink.Reveal(job.MessageID, step.Text) {
				s.logger.Debug("animation target gone", "message_id", job.MessageID)
				return Orphaned
			}
			reveals++
		case StateDone:
			sink.Finish(job.MessageID)
			s.logger.Debug("animation done", "message_id", job.MessageID, "reveals", reveals)
			return Completed
		}
		if !s.wait(ctx, step.Delay) {
			return Canceled
		}
	}
}

func (s *Scheduler) wait(ctx context.Context, units int) bool {
	if units <= 0 || s.unit <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(time.Duration(units) * s.unit):
		return true
	}
}
