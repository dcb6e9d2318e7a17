package jsprovider

import "sync"

// dispatcher runs queued event handlers one at a time, in the order they were
// pushed, on a single goroutine. push never blocks, so it is safe to call
// from a JS callback while a handler is waiting on a Promise.
type dispatcher struct {
	once  sync.Once
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func (d *dispatcher) push(fn func()) {
	d.once.Do(func() {
		d.wake = make(chan struct{}, 1)
		go d.run()
	})
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	for range d.wake {
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			fn := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()
			fn()
		}
	}
}
