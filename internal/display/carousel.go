// Package display holds the presentation state of the site's rotating sections:
// the reviews slider and the mobile menu carousel.
package display

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	ErrIndexOutOfRange = errors.New("INDEX_OUT_OF_RANGE")
	ErrInvalidInterval = errors.New("INVALID_INTERVAL")
)

// DefaultInterval is the auto-advance period of the reviews slider.
const DefaultInterval = 5 * time.Second

// ChangeFunc is called after the current index changes.
type ChangeFunc[T any] func(index int, current T)

// Carousel owns a record list and a current index in [0, Len). An empty carousel
// has index 0 and no current record. It is safe for concurrent use.
type Carousel[T any] struct {
	mu        sync.Mutex
	records   []T
	index     int
	listeners []ChangeFunc[T]

	// loopMu serializes StartAutoAdvance and Stop; mu is never held while
	// waiting for the loop to exit.
	loopMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

func NewCarousel[T any](records []T) *Carousel[T] {
	return &Carousel[T]{records: slices.Clone(records)}
}

func (c *Carousel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func (c *Carousel[T]) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns the record at the current index; ok is false when empty.
func (c *Carousel[T]) Current() (current T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		return current, false
	}
	return c.records[c.index], true
}

// Records returns a copy of the list.
func (c *Carousel[T]) Records() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.records)
}

// Advance moves to the next record, wrapping to the first.
func (c *Carousel[T]) Advance() int {
	return c.move(1)
}

// Retreat moves to the previous record, wrapping to the last.
func (c *Carousel[T]) Retreat() int {
	return c.move(-1)
}

func (c *Carousel[T]) move(step int) int {
	c.mu.Lock()
	n := len(c.records)
	if n == 0 {
		c.mu.Unlock()
		return 0
	}
	c.index = ((c.index+step)%n + n) % n
	idx, cur, listeners := c.index, c.records[c.index], slices.Clone(c.listeners)
	c.mu.Unlock()

	notify(listeners, idx, cur)
	return idx
}

// Goto jumps to index i.
func (c *Carousel[T]) Goto(i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.records) {
		n := len(c.records)
		c.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, n)
	}
	c.index = i
	cur, listeners := c.records[i], slices.Clone(c.listeners)
	c.mu.Unlock()

	notify(listeners, i, cur)
	return nil
}

// Replace swaps in a new record list and resets the index to 0. Listeners are
// notified when the new list is not empty.
func (c *Carousel[T]) Replace(records []T) {
	c.mu.Lock()
	c.records = slices.Clone(records)
	c.index = 0
	if len(c.records) == 0 {
		c.mu.Unlock()
		return
	}
	cur, listeners := c.records[0], slices.Clone(c.listeners)
	c.mu.Unlock()

	notify(listeners, 0, cur)
}

// OnChange registers fn. Listeners run on the goroutine that moved the index.
func (c *Carousel[T]) OnChange(fn ChangeFunc[T]) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func notify[T any](listeners []ChangeFunc[T], idx int, cur T) {
	for _, fn := range listeners {
		fn(idx, cur)
	}
}

// StartAutoAdvance advances every interval until ctx is done or Stop is called.
// A running loop is stopped first, so the carousel has at most one.
func (c *Carousel[T]) StartAutoAdvance(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	c.stopLoop()

	stop := make(chan struct{})
	done := make(chan struct{})
	c.mu.Lock()
	c.stop, c.done = stop, done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				c.Advance()
			}
		}
	}()
	return nil
}

// Stop ends the auto-advance loop and waits for it to exit. It is a no-op when
// no loop runs.
func (c *Carousel[T]) Stop() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	c.stopLoop()
}

func (c *Carousel[T]) stopLoop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether an auto-advance loop is active.
func (c *Carousel[T]) Running() bool {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
