package transcript

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source is one live transcript feed. Listen blocks, delivering segments
// until the feed ends. A nil return means the feed closed normally; an error
// means it broke and may be worth restarting.
type Source interface {
	Listen(ctx context.Context, deliver func(segment string)) error
}

// Supervisor keeps a transcript source alive. When the source's Listen
// returns an error the supervisor waits and restarts it; the loop ends only
// on Stop, on context cancellation, on a clean source close, or once the
// source has failed maxFailures times in a row. A successful delivery resets
// the failure count.
type Supervisor struct {
	source      Source
	deliver     func(segment string)
	logger      *zap.Logger
	restartWait time.Duration
	maxFailures int

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRestartWait sets the pause between restarts.
func WithRestartWait(d time.Duration) Option {
	return func(s *Supervisor) { s.restartWait = d }
}

// WithMaxFailures sets the consecutive-failure ceiling.
func WithMaxFailures(n int) Option {
	return func(s *Supervisor) { s.maxFailures = n }
}

func NewSupervisor(source Source, deliver func(segment string), logger *zap.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor{
		source:      source,
		deliver:     deliver,
		logger:      logger,
		restartWait: 2 * time.Second,
		maxFailures: 5,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run supervises the source until a stop condition is met. It blocks; callers
// typically run it on its own goroutine and use Stop for shutdown.
func (s *Supervisor) Run(ctx context.Context) error {
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	failures := 0
	for {
		delivered := false
		err := s.source.Listen(ctx, func(segment string) {
			delivered = true
			s.deliver(segment)
		})

		if stopped(ctx, s.stop) {
			return nil
		}
		if err == nil {
			// Clean close, nothing to restart.
			return nil
		}

		if delivered {
			failures = 0
		}
		failures++
		s.logger.Warn("transcript source failed",
			zap.Int("consecutive_failures", failures),
			zap.Error(err))

		if failures >= s.maxFailures {
			return errors.New("transcript source keeps failing, giving up")
		}

		select {
		case <-time.After(s.restartWait):
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop ends supervision. It returns once the loop has fully exited, so the
// source is guaranteed not to deliver afterwards.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}
