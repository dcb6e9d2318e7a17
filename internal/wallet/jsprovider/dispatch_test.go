package jsprovider

import (
	"sync"
	"testing"
	"time"
)

func TestDispatcherPreservesOrder(t *testing.T) {
	var d dispatcher
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	const n = 200
	for i := 0; i < n; i++ {
		d.push(func() {
			if i%50 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == n-1 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handlers did not finish")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != n {
		t.Fatalf("expected %d handlers, got %d", n, len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected handler %d at position %d, got %d", i, i, v)
		}
	}
}

func TestDispatcherPushFromHandlerDoesNotBlock(t *testing.T) {
	var d dispatcher
	done := make(chan struct{})
	d.push(func() {
		d.push(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("nested push never ran")
	}
}
