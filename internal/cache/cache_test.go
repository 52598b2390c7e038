package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	now := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0", c.Size())
	}
}

func TestLRUCachePurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("size after purge = %d", c.Size())
	}
	c.Set("a", 3)
	if v, _ := c.Get("a"); v != 3 {
		t.Errorf("a = %d after purge and set", v)
	}
}

func TestLoaderSharesConcurrentMisses(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := l.Get(context.Background(), "stores", load); err != nil || v != 42 {
				t.Errorf("Get = %d, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("load called %d times, want 1", n)
	}
	if v, err := l.Get(context.Background(), "stores", load); err != nil || v != 42 || calls.Load() != 1 {
		t.Errorf("cached Get = %d, %v, calls %d", v, err, calls.Load())
	}
}

func TestLoaderErrorsAreNotCached(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	boom := errors.New("boom")

	if _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Get after error = %d, %v", v, err)
	}
}

func TestLoaderInvalidate(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	n := 0
	load := func(context.Context) (int, error) { n++; return n, nil }

	l.Get(context.Background(), "k", load)
	l.Invalidate()
	if v, _ := l.Get(context.Background(), "k", load); v != 2 {
		t.Errorf("value after invalidate = %d, want 2", v)
	}
}

func TestLoaderDropsValueLoadedAcrossInvalidate(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	n := 0
	load := func(context.Context) (int, error) {
		n++
		if n == 1 {
			// An import lands while the first read is in flight.
			l.Invalidate()
		}
		return n, nil
	}

	if v, err := l.Get(context.Background(), "k", load); err != nil || v != 1 {
		t.Fatalf("first Get = %d, %v", v, err)
	}
	if v, err := l.Get(context.Background(), "k", load); err != nil || v != 2 {
		t.Fatalf("Get after racing invalidate = %d, %v, want fresh 2", v, err)
	}
	if v, _ := l.Get(context.Background(), "k", load); v != 2 {
		t.Errorf("fresh value not cached: got %d", v)
	}
}

func TestLoaderCallerCancellationDoesNotFailOthers(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](10, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr atomic.Value

	load := func(ctx context.Context) (int, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
		}
		return 42, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Get(ctx, "stores", load)
		firstErr <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		v, err := l.Get(context.Background(), "stores", load)
		if err != nil {
			t.Errorf("second Get: %v", err)
		}
		second <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
	}
	close(release)

	if v := <-second; v != 42 {
		t.Fatalf("second caller got %d, want 42", v)
	}
	if err := loadErr.Load(); err != nil {
		t.Fatalf("load saw cancelled context: %v", err)
	}
}
