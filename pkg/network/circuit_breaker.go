package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

// ErrCircuitOpen is returned while the breaker rejects operations.
var ErrCircuitOpen = errors.New("circuit breaker open")

// NetworkService wraps client network operations with a circuit breaker
// so a dead server fails fast instead of stalling every command.
type NetworkService struct {
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NetworkOperation represents a function that performs a network operation.
type NetworkOperation func() error

// ServiceOption configures a NetworkService.
type ServiceOption func(*NetworkService)

// WithServiceLogger sets the logger for breaker state changes.
func WithServiceLogger(l *logging.Logger) ServiceOption {
	return func(ns *NetworkService) { ns.logger = l }
}

// WithRetryPolicy sets how often ExecuteWithRetry tries and the linear
// backoff step between attempts.
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) ServiceOption {
	return func(ns *NetworkService) {
		ns.maxRetries = maxRetries
		ns.baseDelay = baseDelay
	}
}

// NewNetworkService creates a NetworkService with its breaker configured
// from environment settings.
func NewNetworkService(envConfig *config.EnvironmentConfig, opts ...ServiceOption) *NetworkService {
	ns := &NetworkService{
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(ns)
	}
	if ns.logger == nil {
		ns.logger = logging.NewLogger()
	}

	maxFails := envConfig.CircuitBreakerMaxConsecutiveFails
	settings := gobreaker.Settings{
		Name:        "rocketsim-network",
		MaxRequests: envConfig.CircuitBreakerMaxRequests,
		Interval:    envConfig.CircuitBreakerInterval,
		Timeout:     envConfig.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ns.logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	ns.breaker = gobreaker.NewCircuitBreaker(settings)
	return ns
}

// Execute runs operation through the breaker. While the breaker is open
// the operation is not called and ErrCircuitOpen is returned.
func (ns *NetworkService) Execute(ctx context.Context, operation NetworkOperation) error {
	_, err := ns.breaker.Execute(func() (interface{}, error) {
		return nil, operation()
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	ns.logger.Debug(ctx, "network operation failed",
		"error", err.Error(),
		"state", ns.breaker.State().String(),
	)
	return err
}

// ExecuteWithRetry runs operation up to the configured number of times,
// waiting attempt*baseDelay between tries. It gives up early once the
// breaker opens or ctx is done.
func (ns *NetworkService) ExecuteWithRetry(ctx context.Context, operation NetworkOperation) error {
	var err error
	for attempt := 1; attempt <= ns.maxRetries; attempt++ {
		if err = ns.Execute(ctx, operation); err == nil {
			return nil
		}

		if errors.Is(err, ErrCircuitOpen) {
			ns.logger.Warn(ctx, "circuit breaker is open, skipping retries",
				"attempt", attempt,
				"max_retries", ns.maxRetries,
			)
			return err
		}
		if attempt == ns.maxRetries {
			break
		}

		delay := time.Duration(attempt) * ns.baseDelay
		ns.logger.Warn(ctx, "operation failed, retrying",
			"attempt", attempt,
			"max_retries", ns.maxRetries,
			"delay", delay.String(),
			"error", err.Error(),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", ns.maxRetries, err)
}

// GetState returns the current state of the circuit breaker.
func (ns *NetworkService) GetState() gobreaker.State {
	return ns.breaker.State()
}

// GetCounts returns the breaker's counts for the current interval.
func (ns *NetworkService) GetCounts() gobreaker.Counts {
	return ns.breaker.Counts()
}
