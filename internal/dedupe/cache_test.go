// ABOUTME: Tests for the event ID window: repeats, expiry, capacity eviction and concurrent use

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWindow(ttl time.Duration, capacity int) (*Window, *clock) {
	c := &clock{t: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)}
	w := New(ttl, capacity)
	w.now = c.now
	return w, c
}

func TestWindow_FirstDeliveryIsNew(t *testing.T) {
	w, _ := newTestWindow(time.Minute, 10)

	assert.False(t, w.Seen("$event1"))
	assert.True(t, w.Seen("$event1"))
	assert.False(t, w.Seen("$event2"))
	assert.Equal(t, 2, w.Len())
}

func TestWindow_Expiry(t *testing.T) {
	w, c := newTestWindow(time.Minute, 10)

	w.Seen("$a")
	c.advance(30 * time.Second)
	w.Seen("$b")

	c.advance(30 * time.Second)
	assert.Equal(t, 1, w.Len(), "$a should have expired")
	assert.False(t, w.Seen("$a"))
	assert.True(t, w.Seen("$b"))
}

func TestWindow_RepeatDoesNotExtend(t *testing.T) {
	w, c := newTestWindow(time.Minute, 10)

	w.Seen("$a")
	c.advance(50 * time.Second)
	assert.True(t, w.Seen("$a"))
	c.advance(10 * time.Second)
	assert.False(t, w.Seen("$a"))
}

func TestWindow_CapacityEvictsOldest(t *testing.T) {
	w, _ := newTestWindow(time.Hour, 3)

	for _, k := range []string{"$1", "$2", "$3", "$4"} {
		assert.False(t, w.Seen(k))
	}
	assert.Equal(t, 3, w.Len())
	assert.False(t, w.Seen("$1"), "$1 was evicted")
	assert.True(t, w.Seen("$4"))
}

func TestWindow_Forget(t *testing.T) {
	w, _ := newTestWindow(time.Hour, 3)

	w.Seen("$a")
	w.Forget("$a")
	w.Forget("$missing")
	assert.False(t, w.Seen("$a"))
}

func TestWindow_ZeroCapacity(t *testing.T) {
	w := New(time.Hour, 0)
	assert.False(t, w.Seen("$a"))
	assert.True(t, w.Seen("$a"))
	assert.False(t, w.Seen("$b"))
	assert.Equal(t, 1, w.Len())
}

func TestWindow_ConcurrentDeliveriesHandledOnce(t *testing.T) {
	w := New(time.Hour, 1000)
	var fresh atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if !w.Seen(fmt.Sprintf("$event%d", j)) {
					fresh.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), fresh.Load())
}
