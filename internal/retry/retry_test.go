package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTimer fires immediately and records the requested delays.
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func newRecordingTimer() *recordingTimer {
	return &recordingTimer{c: make(chan time.Time, 1)}
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time { return t.c }

func (t *recordingTimer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

func newTestController(timer *recordingTimer) *Controller {
	return NewController(Default(), WithTimer(func() backoff.Timer { return timer }))
}

func TestController_ExhaustsAfterThreeAttempts(t *testing.T) {
	timer := newRecordingTimer()
	c := newTestController(timer)

	calls := 0
	boom := errors.New("503 service unavailable")
	err := c.Run(context.Background(), "search", func(ctx context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.Delays())

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, boom)
}

func TestController_SucceedsAfterFailure(t *testing.T) {
	timer := newRecordingTimer()
	c := newTestController(timer)

	calls := 0
	err := c.Run(context.Background(), "search", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("timeout")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, timer.Delays())
}

func TestController_FirstAttemptSuccessNoDelay(t *testing.T) {
	timer := newRecordingTimer()
	c := newTestController(timer)

	require.NoError(t, c.Run(context.Background(), "search", func(ctx context.Context) error { return nil }))
	assert.Empty(t, timer.Delays())
}

func TestController_SingleAttempt(t *testing.T) {
	timer := newRecordingTimer()
	c := NewController(Config{MaxAttempts: 1, BaseDelay: time.Second}, WithTimer(func() backoff.Timer { return timer }))

	calls := 0
	err := c.Run(context.Background(), "search", func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.Delays())
}

func TestLinearBackOff_Schedule(t *testing.T) {
	b := &linearBackOff{base: time.Second, max: 4}
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 3*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
}
