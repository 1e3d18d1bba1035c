package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapBacking struct {
	mu      sync.Mutex
	data    map[string]string
	loadErr error
	putErr  error
	stores  int
}

func newMapBacking() *mapBacking { return &mapBacking{data: map[string]string{}} }

func (m *mapBacking) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return "", false, m.loadErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapBacking) Store(_ context.Context, key, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = v
	return nil
}

func TestGetOrComputeMemoizes(t *testing.T) {
	c := New[string](nil)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for range 3 {
		v, err := c.GetOrCompute(ctx, "k", compute)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrComputeErrorsNotCached(t *testing.T) {
	c := New[string](nil)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.GetOrCompute(ctx, "k", func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	_, ok := c.Get("k")
	assert.False(t, ok)

	v, err := c.GetOrCompute(ctx, "k", func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGetOrComputeBacking(t *testing.T) {
	ctx := context.Background()
	b := newMapBacking()
	b.data["stored"] = "from backing"
	c := New[string](b)

	v, err := c.GetOrCompute(ctx, "stored", func(context.Context) (string, error) {
		t.Fatal("compute called for a backed key")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "from backing", v)
	_, ok := c.Get("stored")
	assert.True(t, ok, "backing hit should fill memory")

	v, err = c.GetOrCompute(ctx, "fresh", func(context.Context) (string, error) { return "computed", nil })
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, "computed", b.data["fresh"])
	assert.Equal(t, 1, b.stores)
}

func TestGetOrComputeBackingErrors(t *testing.T) {
	ctx := context.Background()

	b := newMapBacking()
	b.loadErr = errors.New("db down")
	_, err := New[string](b).GetOrCompute(ctx, "k", func(context.Context) (string, error) { return "x", nil })
	assert.ErrorContains(t, err, "db down")

	b = newMapBacking()
	b.putErr = errors.New("read-only")
	c := New[string](b)
	v, err := c.GetOrCompute(ctx, "k", func(context.Context) (string, error) { return "x", nil })
	assert.ErrorContains(t, err, "read-only")
	assert.Equal(t, "x", v, "value is still returned when the backing write fails")
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestGetOrComputeSingleflight(t *testing.T) {
	c := New[string](nil)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute(ctx, "k", compute)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	// Let the goroutines pile up behind the first compute.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestGetOrComputeSurvivesCallerCancel(t *testing.T) {
	c := New[string](nil)
	started, release := make(chan struct{}), make(chan struct{})
	var computeErr error
	compute := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		computeErr = ctx.Err()
		return "guide", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctx, "email-security", compute)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := c.GetOrCompute(context.Background(), "email-security", func(context.Context) (string, error) {
			return "", errors.New("computed twice")
		})
		second <- result{v, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "guide", got.v)
	assert.NoError(t, computeErr, "compute saw the first caller's cancellation")

	v, ok := c.Get("email-security")
	assert.True(t, ok)
	assert.Equal(t, "guide", v)
}

func TestInvalidate(t *testing.T) {
	c := New[int](nil)
	ctx := context.Background()
	n := 0
	compute := func(context.Context) (int, error) { n++; return n, nil }

	v, _ := c.GetOrCompute(ctx, "k", compute)
	assert.Equal(t, 1, v)
	c.Invalidate("k")
	v, _ = c.GetOrCompute(ctx, "k", compute)
	assert.Equal(t, 2, v)
}
