package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration
	// Interval clears failure counts while closed. Zero keeps them.
	Interval time.Duration
}

// CircuitBreakerProvider wraps a Provider with circuit breaker protection.
// Only call setup is guarded: once a stream is open, its errors reach the
// caller without tripping the breaker.
type CircuitBreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewCircuitBreakerProvider wraps inner with a circuit breaker.
func NewCircuitBreakerProvider(inner Provider, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerProvider {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "llm:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation is not a provider failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerProvider{inner: inner, breaker: cb, logger: logger}
}

// Name implements Provider.
func (p *CircuitBreakerProvider) Name() string { return p.inner.Name() }

// StreamChat implements Provider.
func (p *CircuitBreakerProvider) StreamChat(ctx context.Context, req openai.ChatCompletionRequest, opts RequestOptions) (ChunkStream, error) {
	var stream ChunkStream
	_, err := p.breaker.Execute(func() (any, error) {
		var err error
		stream, err = p.inner.StreamChat(ctx, req, opts)
		return nil, err
	})
	if err != nil {
		return nil, p.wrap(err)
	}
	return stream, nil
}

// ListModels implements Provider.
func (p *CircuitBreakerProvider) ListModels(ctx context.Context) ([]string, error) {
	var models []string
	_, err := p.breaker.Execute(func() (any, error) {
		var err error
		models, err = p.inner.ListModels(ctx)
		return nil, err
	})
	if err != nil {
		return nil, p.wrap(err)
	}
	return models, nil
}

// GenerateImage implements Provider.
func (p *CircuitBreakerProvider) GenerateImage(ctx context.Context, req ImageRequest) (ImagePayload, error) {
	var payload ImagePayload
	_, err := p.breaker.Execute(func() (any, error) {
		var err error
		payload, err = p.inner.GenerateImage(ctx, req)
		return nil, err
	})
	if err != nil {
		return ImagePayload{}, p.wrap(err)
	}
	return payload, nil
}

// State returns the current circuit breaker state for monitoring.
func (p *CircuitBreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

func (p *CircuitBreakerProvider) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("provider %q circuit open: %w", p.inner.Name(), err)
	}
	return err
}

var _ Provider = (*CircuitBreakerProvider)(nil)
