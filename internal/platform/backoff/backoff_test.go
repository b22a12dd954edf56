package backoff

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{name: "zero base", base: 0, attempt: 3, want: 0},
		{name: "first attempt", base: 10 * time.Millisecond, attempt: 0, want: 10 * time.Millisecond},
		{name: "third attempt", base: 10 * time.Millisecond, attempt: 2, want: 40 * time.Millisecond},
		{name: "negative attempt", base: time.Second, attempt: -5, want: time.Second},
		{name: "saturates", base: time.Hour, attempt: 100, want: time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitterRange(t *testing.T) {
	assert.Zero(t, FullJitter(0))
	for i := 0; i < 100; i++ {
		d := ExponentialWithJitter(time.Millisecond, 3)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 8*time.Millisecond)
	}
}

func TestSleepWithContext(t *testing.T) {
	assert.NoError(t, SleepWithContext(context.Background(), 0))
	assert.NoError(t, SleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepWithContext(ctx, time.Minute)
	assert.True(t, errors.Is(err, context.Canceled))
}
