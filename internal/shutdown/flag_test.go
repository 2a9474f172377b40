package shutdown

import (
	"sync"
	"testing"
)

// ///////////////////////////////////////////////
// Flag
// ///////////////////////////////////////////////

func TestFlagStartsUnset(t *testing.T) {
	f := NewFlag()
	if f.IsSet() {
		t.Fatal("new flag should be unset")
	}
	select {
	case <-f.Done():
		t.Fatal("Done closed before Set")
	default:
	}
}

func TestFlagSetIsMonotonic(t *testing.T) {
	f := NewFlag()

	if !f.Set() {
		t.Fatal("first Set should report the transition")
	}
	for i := 0; i < 3; i++ {
		if f.Set() {
			t.Fatalf("Set call %d reported a second transition", i+2)
		}
		if !f.IsSet() {
			t.Fatalf("flag reverted to false after Set call %d", i+2)
		}
	}

	select {
	case <-f.Done():
	default:
		t.Fatal("Done not closed after Set")
	}
}

func TestFlagConcurrentSet(t *testing.T) {
	f := NewFlag()
	const n = 32

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if f.Set() {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
			_ = f.IsSet()
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Errorf("transitions = %d, want exactly 1", transitions)
	}
	if !f.IsSet() {
		t.Error("flag should be set")
	}
}
