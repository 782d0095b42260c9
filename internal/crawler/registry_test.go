package crawler

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

func TestVisitedRegistry(t *testing.T) {
	t.Parallel()

	t.Run("first mark wins", func(t *testing.T) {
		t.Parallel()

		r := NewVisitedRegistry()
		if !r.TryMark("http://example.com/") {
			t.Fatal("expected first TryMark to succeed")
		}
		if r.TryMark("http://example.com/") {
			t.Error("expected second TryMark to fail")
		}
		if !r.Contains("http://example.com/") {
			t.Error("expected URL to be contained")
		}
		if r.Contains("http://example.com/other") {
			t.Error("unexpected URL contained")
		}
		if r.Len() != 1 {
			t.Errorf("expected length 1, got %d", r.Len())
		}
	})

	t.Run("URLs returns a sorted snapshot", func(t *testing.T) {
		t.Parallel()

		r := NewVisitedRegistry()
		for _, u := range []string{"c", "a", "b"} {
			r.TryMark(u)
		}
		got := r.URLs()
		if !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Errorf("unexpected URLs: %v", got)
		}
		got[0] = "mutated"
		if !r.Contains("a") {
			t.Error("snapshot mutation leaked into registry")
		}
	})

	t.Run("exactly one concurrent caller wins per URL", func(t *testing.T) {
		t.Parallel()

		const (
			goroutines = 32
			urls       = 200
		)
		r := NewVisitedRegistry()
		var wins atomic.Int64
		var wg sync.WaitGroup
		for range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range urls {
					if r.TryMark(fmt.Sprintf("http://example.com/%d", i)) {
						wins.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		if wins.Load() != urls {
			t.Errorf("expected %d wins, got %d", urls, wins.Load())
		}
		if r.Len() != urls {
			t.Errorf("expected length %d, got %d", urls, r.Len())
		}
	})
}
