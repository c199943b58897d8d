// Package transport defines the byte-oriented contract the Command
// Client drives a serial link through, and the clock abstraction used to
// make receive timeouts deterministic in tests.
package transport

import "time"

// Transport is a thin byte-oriented link: write everything or fail, and
// read one byte with a deadline, returning ok=false if nothing arrived
// in time. Implementations do not buffer or interpret frames; that is
// the Decoder's job.
type Transport interface {
	// WriteAll writes every byte of data or returns an error. Partial
	// writes are not a Transport-level concept; implementations retry
	// internally until the full buffer is written or an I/O error occurs.
	WriteAll(data []byte) error

	// ReadByte waits until deadline for one byte. It returns ok=false,
	// nil error if the deadline passed with nothing read. A non-nil
	// error indicates a lower-level I/O failure, not a timeout.
	ReadByte(deadline time.Time) (b byte, ok bool, err error)

	// Close releases the underlying link.
	Close() error
}

// Clock supplies the current time. Production code uses the real clock;
// tests use a fake one so timeout behavior is deterministic.
type Clock interface {
	Now() time.Time
}

// RealClock is a Clock backed by time.Now.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }
