package session

import (
	"context"
	"sync"
	"time"
)

// broadcast wakes every waiter at once. Guarded by the owner's mutex.
type broadcast struct {
	ch chan struct{}
}

func newBroadcast() *broadcast { return &broadcast{ch: make(chan struct{})} }

func (b *broadcast) wait() <-chan struct{} { return b.ch }

func (b *broadcast) signal() {
	close(b.ch)
	b.ch = make(chan struct{})
}

// waitUntil blocks until cond holds, ctx ends or timeout elapses. mu must be
// held on entry and is held on return; cond is always evaluated under mu.
func waitUntil(ctx context.Context, mu *sync.Mutex, b *broadcast, timeout time.Duration, cond func() bool) bool {
	if cond() {
		return true
	}
	if timeout <= 0 {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for !cond() {
		ch := b.wait()
		mu.Unlock()
		select {
		case <-ch:
			mu.Lock()
		case <-timer.C:
			mu.Lock()
			return cond()
		case <-ctx.Done():
			mu.Lock()
			return cond()
		}
	}
	return true
}
