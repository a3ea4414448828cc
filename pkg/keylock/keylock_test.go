package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	kl := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("conv-1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	kl := New()

	unlockA := kl.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := kl.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
}

func TestKeyLock_ReusableAfterRelease(t *testing.T) {
	kl := New()

	kl.Lock("a")()
	done := make(chan struct{})
	go func() {
		kl.Lock("a")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("released key stayed locked")
	}
}

func TestKeyLock_BlocksUntilUnlock(t *testing.T) {
	kl := New()
	unlock := kl.Lock("a")

	acquired := make(chan struct{})
	go func() {
		kl.Lock("a")()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned while key was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired")
	}
}
