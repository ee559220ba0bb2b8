// ABOUTME: Bounded, time-windowed set of Matrix event IDs already handed to the conversation layer
// ABOUTME: Homeservers redeliver events after sync restarts; the window drops those repeats

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key  string
	seen time.Time
}

// Window remembers keys for a fixed duration, holding at most capacity of
// them. Expired keys are dropped lazily on each call, oldest first, so no
// background goroutine is needed.
type Window struct {
	mu       sync.Mutex
	index    map[string]*list.Element
	order    *list.List // oldest at front
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// New creates a Window. A capacity below 1 is treated as 1.
func New(ttl time.Duration, capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		index:    make(map[string]*list.Element),
		order:    list.New(),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Seen reports whether key was recorded within the window. A new key is
// recorded and false is returned; the check and the record are atomic.
// Repeats do not extend the window of the first delivery.
func (w *Window) Seen(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.expire(now)

	if _, ok := w.index[key]; ok {
		return true
	}

	if w.order.Len() >= w.capacity {
		w.drop(w.order.Front())
	}
	w.index[key] = w.order.PushBack(&entry{key: key, seen: now})
	return false
}

// Forget removes key so a later delivery is handled again. The bridge uses
// it when an event could not be processed.
func (w *Window) Forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if el, ok := w.index[key]; ok {
		w.drop(el)
	}
}

// Len returns the number of keys inside the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(w.now())
	return w.order.Len()
}

// expire drops entries older than the window. Must be called with mu held.
func (w *Window) expire(now time.Time) {
	for el := w.order.Front(); el != nil; el = w.order.Front() {
		if now.Sub(el.Value.(*entry).seen) < w.ttl {
			return
		}
		w.drop(el)
	}
}

func (w *Window) drop(el *list.Element) {
	if el == nil {
		return
	}
	e := w.order.Remove(el).(*entry)
	delete(w.index, e.key)
}
