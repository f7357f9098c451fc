package premium

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCacheInterfaceImplemented(t *testing.T) {
	var _ ArtifactCache = (*InMemoryArtifactCache)(nil)
}

func TestCacheLoadsOnce(t *testing.T) {
	cache := NewInMemoryArtifactCache()
	set := &ArtifactSet{Version: "one"}

	if _, ok := cache.Get(); ok {
		t.Fatal("Get() on an empty cache reported a release")
	}

	var calls atomic.Int32
	load := func() (*ArtifactSet, error) {
		calls.Add(1)
		return set, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.GetOrLoad(load)
			if err != nil {
				t.Errorf("GetOrLoad() failed: %v", err)
				return
			}
			if got != set {
				t.Error("GetOrLoad() returned a different release")
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if got, ok := cache.Get(); !ok || got != set {
		t.Error("Get() after load did not return the release")
	}
	if !cache.IsValid() {
		t.Error("IsValid() = false after a successful load")
	}
}

func TestCacheFailureIsSticky(t *testing.T) {
	cache := NewInMemoryArtifactCache()
	boom := errors.New("corrupt bundle")

	if _, err := cache.GetOrLoad(func() (*ArtifactSet, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrLoad() error = %v, want %v", err, boom)
	}

	called := false
	_, err := cache.GetOrLoad(func() (*ArtifactSet, error) {
		called = true
		return &ArtifactSet{}, nil
	})
	if called {
		t.Error("loader ran again after a failed load")
	}
	if !errors.Is(err, boom) {
		t.Errorf("second GetOrLoad() error = %v, want %v", err, boom)
	}
	if cache.IsValid() {
		t.Error("IsValid() = true after a failed load")
	}
}

func TestCacheNilReleaseIsAnError(t *testing.T) {
	cache := NewInMemoryArtifactCache()

	_, err := cache.GetOrLoad(func() (*ArtifactSet, error) { return nil, nil })
	if !errors.Is(err, ErrArtifactLoad) {
		t.Errorf("GetOrLoad() error = %v, want ErrArtifactLoad", err)
	}
}
