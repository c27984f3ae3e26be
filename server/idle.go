package server

import (
	"sync"
	"time"
)

// idleWatch closes expired after a full timeout with no API request, no
// progressing deployment and no open event stream.
type idleWatch struct {
	timeout time.Duration
	expired chan struct{}

	mu     sync.Mutex
	active int
	last   time.Time
	timer  *time.Timer
	closed bool
}

// newIdleWatch starts the quiet period now. A zero timeout never expires.
func newIdleWatch(timeout time.Duration) *idleWatch {
	w := &idleWatch{
		timeout: timeout,
		expired: make(chan struct{}),
		last:    time.Now(),
	}
	if timeout > 0 {
		w.timer = time.AfterFunc(timeout, w.check)
	}
	return w
}

// check expires the watch, or re-arms it for what is left of the quiet
// period. While work is held, release re-arms instead.
func (w *idleWatch) check() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.active > 0 {
		return
	}
	if rest := w.timeout - time.Since(w.last); rest > 0 {
		w.timer.Reset(rest)
		return
	}
	w.closed = true
	close(w.expired)
}

// touch records a request.
func (w *idleWatch) touch() {
	if w.timer == nil {
		return
	}
	w.mu.Lock()
	w.last = time.Now()
	w.mu.Unlock()
}

// hold keeps the watch from expiring until release is called. Release is
// safe to call more than once.
func (w *idleWatch) hold() (release func()) {
	if w.timer == nil {
		return func() {}
	}
	w.mu.Lock()
	w.active++
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			w.active--
			w.last = time.Now()
			if w.active == 0 && !w.closed {
				w.timer.Reset(w.timeout)
			}
		})
	}
}
