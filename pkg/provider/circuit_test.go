package provider_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/provider"
)

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	t.Parallel()

	t.Run("closed to open after threshold", func(t *testing.T) {
		t.Parallel()

		cb := provider.NewCircuitBreaker(provider.BreakerConfig{
			FailureThreshold: 2,
			Cooldown:         100 * time.Millisecond,
		})

		assert.Equal(t, provider.CircuitClosed, cb.State())
		assert.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, provider.CircuitClosed, cb.State())
		assert.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, provider.CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})

	t.Run("success in closed resets failure count", func(t *testing.T) {
		t.Parallel()

		cb := provider.NewCircuitBreaker(provider.BreakerConfig{
			FailureThreshold: 2,
			Cooldown:         100 * time.Millisecond,
		})

		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()

		assert.Equal(t, provider.CircuitClosed, cb.State())
	})

	t.Run("open to half-open after cooldown", func(t *testing.T) {
		t.Parallel()

		cb := provider.NewCircuitBreaker(provider.BreakerConfig{
			FailureThreshold: 1,
			Cooldown:         50 * time.Millisecond,
		})

		cb.RecordFailure()
		assert.Equal(t, provider.CircuitOpen, cb.State())
		assert.False(t, cb.Allow())

		time.Sleep(60 * time.Millisecond)

		assert.True(t, cb.Allow())
		assert.Equal(t, provider.CircuitHalfOpen, cb.State())
	})

	t.Run("single half-open success closes and resets failures", func(t *testing.T) {
		t.Parallel()

		cb := provider.NewCircuitBreaker(provider.BreakerConfig{
			FailureThreshold: 3,
			Cooldown:         50 * time.Millisecond,
		})

		for range 3 {
			cb.RecordFailure()
		}
		assert.Equal(t, provider.CircuitOpen, cb.State())

		time.Sleep(60 * time.Millisecond)
		assert.True(t, cb.Allow())

		cb.RecordSuccess()
		assert.Equal(t, provider.CircuitClosed, cb.State())
		assert.Equal(t, 0, cb.Stats().ConsecutiveFailures)
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		t.Parallel()

		cb := provider.NewCircuitBreaker(provider.BreakerConfig{
			FailureThreshold: 1,
			Cooldown:         50 * time.Millisecond,
		})

		cb.RecordFailure()
		time.Sleep(60 * time.Millisecond)

		assert.True(t, cb.Allow())
		cb.RecordFailure()

		assert.Equal(t, provider.CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})
}

func TestCircuitBreaker_SingleTrialInHalfOpen(t *testing.T) {
	t.Parallel()

	cb := provider.NewCircuitBreaker(provider.BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         50 * time.Millisecond,
	})

	cb.RecordFailure()
	time.Sleep(60 * time.Millisecond)

	assert.True(t, cb.Allow(), "first caller gets the trial slot")
	assert.False(t, cb.Allow(), "second caller must wait for the trial to finish")
	assert.False(t, cb.Allow())

	cb.RecordSuccess()
	assert.Equal(t, provider.CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_NeutralReleasesHalfOpenTrial(t *testing.T) {
	t.Parallel()

	cb := provider.NewCircuitBreaker(provider.BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         50 * time.Millisecond,
		MaxCooldown:      time.Second,
	})

	cb.RecordFailure()
	time.Sleep(60 * time.Millisecond)

	assert.True(t, cb.Allow(), "first caller gets the trial slot")

	// The trial ended with a permanent request error: no verdict on the
	// provider, but the slot must come back or the breaker stays stuck
	// half-open with every Allow rejected.
	cb.RecordNeutral()
	assert.Equal(t, provider.CircuitHalfOpen, cb.State())
	assert.Equal(t, 50*time.Millisecond, cb.Stats().Cooldown, "neutral outcome must not grow the cooldown")

	assert.True(t, cb.Allow(), "freed slot admits a fresh trial")
	cb.RecordSuccess()
	assert.Equal(t, provider.CircuitClosed, cb.State())

	// Outside half-open a neutral outcome is a no-op.
	cb.RecordNeutral()
	assert.Equal(t, 0, cb.Stats().ConsecutiveFailures)
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_CooldownGrowth(t *testing.T) {
	t.Parallel()

	cb := provider.NewCircuitBreaker(provider.BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         50 * time.Millisecond,
		MaxCooldown:      80 * time.Millisecond,
	})

	cb.RecordFailure()
	assert.Equal(t, 50*time.Millisecond, cb.Stats().Cooldown)

	// Failed trial doubles the cooldown, capped at MaxCooldown.
	time.Sleep(60 * time.Millisecond)
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, 80*time.Millisecond, cb.Stats().Cooldown)

	// Not enough time for the longer cooldown.
	time.Sleep(60 * time.Millisecond)
	assert.False(t, cb.Allow())

	// Recovery resets the cooldown to its base value.
	time.Sleep(30 * time.Millisecond)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, provider.CircuitClosed, cb.State())
	assert.Equal(t, 50*time.Millisecond, cb.Stats().Cooldown)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := provider.NewCircuitBreaker(provider.BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Hour,
	})

	cb.RecordFailure()
	assert.False(t, cb.Allow())

	cb.Reset()
	assert.Equal(t, provider.CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cb := provider.NewCircuitBreaker(provider.BreakerConfig{
		FailureThreshold: 10,
		Cooldown:         100 * time.Millisecond,
	})

	const goroutines = 50
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				switch (id + j) % 3 {
				case 0:
					cb.Allow()
				case 1:
					cb.RecordSuccess()
				case 2:
					cb.RecordFailure()
				}
			}
		}(i)
	}
	wg.Wait()

	// The breaker must end in a coherent state regardless of interleaving.
	state := cb.State()
	assert.Contains(t, []provider.CircuitState{
		provider.CircuitClosed, provider.CircuitOpen, provider.CircuitHalfOpen,
	}, state)
}
