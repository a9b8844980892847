package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker rejects an execution.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings tunes a circuit breaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// Breaker wraps gobreaker with metrics and an optional fallback.
type Breaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker
	fallback FallbackFunc
}

// NewBreaker creates a circuit breaker from the given settings.
func NewBreaker(settings Settings, fallback FallbackFunc) *Breaker {
	name := nextBreakerName(settings.Name)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.SuccessThreshold,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			recordBreakerStateChange(name, from, to)
		},
	})
	recordBreakerState(name, cb.State())

	return &Breaker{name: name, cb: cb, fallback: fallback}
}

// Execute runs the operation through the breaker. When the breaker is
// open the fallback (if any) decides the result instead.
func (b *Breaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	recordBreakerRequest(b.name)

	result, err := b.cb.Execute(func() (interface{}, error) {
		return op(ctx)
	})
	if err == nil {
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		recordBreakerFallback(b.name)
		if b.fallback != nil {
			return b.fallback(ctx, ErrCircuitOpen)
		}
		return nil, ErrCircuitOpen
	}

	recordBreakerFailure(b.name)
	return nil, err
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
