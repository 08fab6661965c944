package runloop

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runAsync(l *Loop) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run() }()
	return errCh
}

func TestDoExecutesOnLoop(t *testing.T) {
	t.Parallel()

	l := New()
	errCh := runAsync(l)

	var calls []int
	for i := range 5 {
		require.NoError(t, l.Do(func() { calls = append(calls, i) }))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, calls)

	l.RequestStop()
	require.NoError(t, <-errCh)
	<-l.Stopped()
}

func TestDoSerializesConcurrentCallers(t *testing.T) {
	t.Parallel()

	l := New()
	errCh := runAsync(l)

	var inFlight, maxInFlight, total atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				assert.NoError(t, l.Do(func() {
					n := inFlight.Add(1)
					if n > maxInFlight.Load() {
						maxInFlight.Store(n)
					}
					time.Sleep(100 * time.Microsecond)
					inFlight.Add(-1)
					total.Add(1)
				}))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, int32(80), total.Load())

	l.RequestStop()
	require.NoError(t, <-errCh)
}

func TestRequestStopIdempotent(t *testing.T) {
	t.Parallel()

	l := New()
	errCh := runAsync(l)

	l.RequestStop()
	l.RequestStop()
	require.NoError(t, <-errCh)
	l.RequestStop()

	select {
	case <-l.Stopped():
	default:
		t.Fatal("loop not reported as stopped")
	}
}

func TestRequestStopBeforeRun(t *testing.T) {
	t.Parallel()

	l := New()
	l.RequestStop()

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after an earlier stop request")
	}
}

func TestDoAfterStop(t *testing.T) {
	t.Parallel()

	l := New()
	errCh := runAsync(l)
	l.RequestStop()
	require.NoError(t, <-errCh)

	called := false
	err := l.Do(func() { called = true })
	require.ErrorIs(t, err, ErrLoopStopped)
	assert.False(t, called)
}

func TestDoUnblocksWhenStoppedBeforeRun(t *testing.T) {
	t.Parallel()

	l := New()
	result := make(chan error, 1)
	go func() { result <- l.Do(func() {}) }()

	l.RequestStop()
	require.ErrorIs(t, <-result, ErrLoopStopped)
}

func TestDoRecoversPanic(t *testing.T) {
	t.Parallel()

	l := New()
	errCh := runAsync(l)

	err := l.Do(func() { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	require.NoError(t, l.Do(func() {}), "loop survives a panicking task")

	l.RequestStop()
	require.NoError(t, <-errCh)
}

func TestRunOnlyOnce(t *testing.T) {
	t.Parallel()

	l := New()
	errCh := runAsync(l)
	require.NoError(t, l.Do(func() {}))

	require.ErrorIs(t, l.Run(), ErrLoopRunning)

	l.RequestStop()
	require.NoError(t, <-errCh)
}
