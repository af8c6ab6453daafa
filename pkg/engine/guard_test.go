package engine

import (
	"sync"
	"testing"
)

func TestOpGuardExclusion(t *testing.T) {
	g := newOpGuard()

	if !g.acquire(1) {
		t.Fatal("first acquire failed")
	}
	if g.acquire(1) {
		t.Fatal("second acquire succeeded while held")
	}
	// other orders are independent
	if !g.acquire(2) {
		t.Fatal("acquire of a different id failed")
	}

	g.release(1)
	if !g.acquire(1) {
		t.Fatal("acquire after release failed")
	}
}

func TestOpGuardConcurrent(t *testing.T) {
	g := newOpGuard()

	const attempts = 100
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if g.acquire(7) {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var n int
	for range wins {
		n++
	}
	if n != 1 {
		t.Errorf("winners = %d, want 1", n)
	}
}
