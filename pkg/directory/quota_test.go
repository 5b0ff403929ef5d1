package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWriteBudgetTake(t *testing.T) {
	now := time.Now()
	b := newWriteBudget(2, now)

	assert.NoError(t, b.take(now))
	assert.NoError(t, b.take(now))
	assert.ErrorIs(t, b.take(now), ErrWriteBudgetExhausted)
	assert.Equal(t, 0, b.remaining(now))
}

func TestWriteBudgetUnlimited(t *testing.T) {
	now := time.Now()
	b := newWriteBudget(0, now)

	for i := 0; i < 1000; i++ {
		assert.NoError(t, b.take(now))
	}
	assert.Equal(t, -1, b.remaining(now))
}

func TestWriteBudgetWindowReset(t *testing.T) {
	now := time.Now()
	b := newWriteBudget(1, now)

	assert.NoError(t, b.take(now))
	assert.ErrorIs(t, b.take(now.Add(23*time.Hour)), ErrWriteBudgetExhausted)

	// a full day after the window opened the budget refills
	later := now.Add(24 * time.Hour)
	assert.Equal(t, 1, b.remaining(later))
	assert.NoError(t, b.take(later))
	assert.ErrorIs(t, b.take(later), ErrWriteBudgetExhausted)
}
