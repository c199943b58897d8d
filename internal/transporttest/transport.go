// Package transporttest provides an in-memory Transport and a fake
// Clock, used across the client and session test suites in place of a
// real serial link.
package transporttest

import (
	"fmt"
	"sync"
	"time"
)

// Transport is an in-memory byte pipe: bytes written via WriteAll are
// recorded for inspection, and bytes queued via Feed are what ReadByte
// drains from.
type Transport struct {
	mu      sync.Mutex
	written [][]byte
	inbound []byte
	closed  bool
}

// New returns an empty fake Transport.
func New() *Transport {
	return &Transport{}
}

// WriteAll records the written buffer.
func (t *Transport) WriteAll(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transporttest: write after close")
	}
	cp := append([]byte(nil), data...)
	t.written = append(t.written, cp)
	return nil
}

// ReadByte returns the next queued inbound byte, or ok=false if none is
// queued (the fake never actually blocks on deadline; callers that want
// to exercise timeout behavior should pair this with a fake Clock set to
// auto-advance, so a polling loop reaches its deadline).
func (t *Transport) ReadByte(deadline time.Time) (byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inbound) == 0 {
		return 0, false, nil
	}
	b := t.inbound[0]
	t.inbound = t.inbound[1:]
	return b, true, nil
}

// Feed appends bytes to the inbound queue, as if the target had sent
// them.
func (t *Transport) Feed(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound = append(t.inbound, data...)
}

// Written returns every buffer passed to WriteAll, in order.
func (t *Transport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}

// Close marks the transport closed; further writes fail.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Clock is a fake transport.Clock whose Now() advances only when told
// to (or, with AutoAdvance set, by a fixed step on every call), making
// receive-timeout tests deterministic and fast: a polling loop that
// checks Now() against a deadline on every iteration reaches that
// deadline in a bounded number of iterations with no real sleeping.
type Clock struct {
	mu          sync.Mutex
	now         time.Time
	autoAdvance time.Duration
}

// NewClock returns a fake Clock starting at an arbitrary fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// SetAutoAdvance makes every future Now() call advance the clock by d
// before returning the new value. Used to deterministically exercise
// timeout paths without real sleeps.
func (c *Clock) SetAutoAdvance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoAdvance = d
}

// Now returns the clock's current fake time, advancing it first if
// AutoAdvance has been set.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoAdvance > 0 {
		c.now = c.now.Add(c.autoAdvance)
	}
	return c.now
}

// Advance moves the fake clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
