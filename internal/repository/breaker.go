package repository

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	applogger "SignalGate/pkg/logger"
)

// BreakerSettings configures the sink circuit breakers.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Breaker trips after FailureThreshold consecutive failures and fails fast while open.
type Breaker struct{ cb *gobreaker.CircuitBreaker }

func NewBreaker(name string, s BreakerSettings, l *applogger.Logger) *Breaker {
	if l == nil {
		l = applogger.Nop()
	}
	threshold := s.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= threshold },
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Do runs fn through the breaker. gobreaker.ErrOpenState is returned while open.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) { return nil, fn() })
	return err
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// BreakerSink guards a SignalSink.
type BreakerSink struct {
	next domrepo.SignalSink
	b    *Breaker
}

func NewBreakerSink(next domrepo.SignalSink, b *Breaker) *BreakerSink {
	return &BreakerSink{next: next, b: b}
}

func (s *BreakerSink) SaveSignal(ctx context.Context, rec *models.SignalRecord) error {
	return s.b.Do(func() error { return s.next.SaveSignal(ctx, rec) })
}

func (s *BreakerSink) SaveRejection(ctx context.Context, rej *models.Rejection) error {
	return s.b.Do(func() error { return s.next.SaveRejection(ctx, rej) })
}

func (s *BreakerSink) SaveOutcome(ctx context.Context, id string, out *models.SignalOutcome) error {
	return s.b.Do(func() error { return s.next.SaveOutcome(ctx, id, out) })
}

// BreakerPublisher guards a SignalPublisher.
type BreakerPublisher struct {
	next domrepo.SignalPublisher
	b    *Breaker
}

func NewBreakerPublisher(next domrepo.SignalPublisher, b *Breaker) *BreakerPublisher {
	return &BreakerPublisher{next: next, b: b}
}

func (p *BreakerPublisher) PublishSignal(ctx context.Context, rec *models.SignalRecord) error {
	return p.b.Do(func() error { return p.next.PublishSignal(ctx, rec) })
}

func (p *BreakerPublisher) Close() error { return p.next.Close() }

var (
	_ domrepo.SignalSink      = (*BreakerSink)(nil)
	_ domrepo.SignalPublisher = (*BreakerPublisher)(nil)
)
