package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// ResilientProvider wraps a provider with a circuit breaker and a bulkhead.
// Failed calls are never retried; the user decides whether to try again.
type ResilientProvider struct {
	provider       Provider
	circuitBreaker circuitbreaker.CircuitBreaker[CompletionResponse]
	bulkhead       bulkhead.Bulkhead[CompletionResponse]
	logger         *slog.Logger
}

// ResilientConfig holds configuration for the resilient provider wrapper.
type ResilientConfig struct {
	EnableCircuitBreaker bool
	EnableBulkhead       bool

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration

	MaxConcurrent int
	QueueTimeout  time.Duration

	Logger *slog.Logger
}

// DefaultResilientConfig returns the defaults used by the server.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableBulkhead:       true,
		FailureThreshold:     3,
		OpenTimeout:          30 * time.Second,
		MaxConcurrent:        8,
		QueueTimeout:         10 * time.Second,
	}
}

// NewResilientProvider wraps a provider with resilience patterns using fortify.
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rp := &ResilientProvider{provider: provider, logger: logger}

	if cfg.EnableCircuitBreaker {
		threshold := cfg.FailureThreshold
		if threshold <= 0 {
			threshold = 3
		}
		timeout := cfg.OpenTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		rp.circuitBreaker = circuitbreaker.New[CompletionResponse](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     timeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= threshold
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state change",
					"provider", provider.Name(),
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 8
		}
		queueTimeout := cfg.QueueTimeout
		if queueTimeout <= 0 {
			queueTimeout = 10 * time.Second
		}
		rp.bulkhead = bulkhead.New[CompletionResponse](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  queueTimeout,
		})
	}

	return rp
}

func (p *ResilientProvider) Name() string {
	return p.provider.Name()
}

func (p *ResilientProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	operation := func(ctx context.Context) (CompletionResponse, error) {
		return p.provider.Complete(ctx, req)
	}

	if p.bulkhead != nil {
		inner := operation
		operation = func(ctx context.Context) (CompletionResponse, error) {
			return p.bulkhead.Execute(ctx, inner)
		}
	}

	if p.circuitBreaker != nil {
		return p.circuitBreaker.Execute(ctx, operation)
	}
	return operation(ctx)
}
