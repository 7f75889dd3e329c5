package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgkafka "SignalGate/pkg/kafka"
	applogger "SignalGate/pkg/logger"
)

// Component is a long-running part of the application.
type Component interface {
	Start() error
	Stop(ctx context.Context) error
}

// StateKeeper restores state before serving and persists it on the way out.
type StateKeeper interface {
	Restore(ctx context.Context) error
	PersistState(ctx context.Context) error
}

// Closer releases an infrastructure client at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	l               *applogger.Logger
	state           StateKeeper
	http            Component
	httpErrs        <-chan error
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	workers         []Component
	closers         []Closer
	shutdownTimeout time.Duration
}

// Option configures optional parts of App.
type Option func(*App)

// WithHTTP attaches the API server. errs, when non-nil, stops the app on a serve failure.
func WithHTTP(c Component, errs <-chan error) Option {
	return func(a *App) {
		a.http = c
		a.httpErrs = errs
	}
}

// WithConsumer attaches a Kafka consumer and the handlers it runs.
func WithConsumer(c *pkgkafka.Consumer, hs ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = hs
	}
}

// WithWorkers attaches background components started before the HTTP server.
func WithWorkers(cs ...Component) Option {
	return func(a *App) { a.workers = append(a.workers, cs...) }
}

// WithClosers registers clients closed in reverse order at shutdown.
func WithClosers(cs ...Closer) Option {
	return func(a *App) { a.closers = append(a.closers, cs...) }
}

// WithShutdownTimeout bounds the whole shutdown sequence.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) { a.shutdownTimeout = d }
}

// New creates a new App.
func New(l *applogger.Logger, state StateKeeper, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{l: l, state: state, shutdownTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done or the HTTP server fails.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err, ok := <-a.httpErrs:
		if ok && err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) start(ctx context.Context) error {
	if a.state != nil {
		if err := a.state.Restore(ctx); err != nil {
			// a cold start is still a valid start
			a.l.Warn("state restore failed", applogger.Error(err))
		}
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}

	for _, w := range a.workers {
		if err := w.Start(); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
	}

	if a.http != nil {
		if err := a.http.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	return nil
}

// shutdown stops intake first, then persists state, then closes clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	a.l.Info("shutting down")

	var errs []error
	if a.consumer != nil && len(a.handlers) > 0 {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.workers) - 1; i >= 0; i-- {
		if err := a.workers[i].Stop(ctx); err != nil {
			a.l.Warn("worker stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.http != nil {
		if err := a.http.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.state != nil {
		if err := a.state.PersistState(ctx); err != nil {
			a.l.Warn("state persist failed", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("client", c.Name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
