// Package serialtransport adapts go.bug.st/serial to the transport
// package's Transport contract: 115200 bps, 8-N-1, with a 1-second
// per-read deadline as spec'd for the physical link.
package serialtransport

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.bug.st/serial"
)

const readTimeout = 1 * time.Second

// Transport is a real serial port opened for bootloader programming.
type Transport struct {
	port serial.Port
}

// Open opens devicePath at 115200-8N1. A bootloader USB-CDC port can
// take a few hundred milliseconds to enumerate right after a device
// reset, so the open itself is retried with bounded exponential backoff;
// this is connection setup, not a protocol-level retry, so it does not
// compete with the Command Client's no-retry policy.
func Open(devicePath string) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 3 * time.Second

	var port serial.Port
	err := backoff.Retry(func() error {
		p, openErr := serial.Open(devicePath, mode)
		if openErr != nil {
			return openErr
		}
		port = p
		return nil
	}, b)
	if err != nil {
		return nil, fmt.Errorf("serialtransport: open %s: %w", devicePath, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serialtransport: set read timeout: %w", err)
	}

	return &Transport{port: port}, nil
}

// WriteAll writes the full buffer to the port.
func (t *Transport) WriteAll(data []byte) error {
	written := 0
	for written < len(data) {
		n, err := t.port.Write(data[written:])
		if err != nil {
			return fmt.Errorf("serialtransport: write: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("serialtransport: write: no progress")
		}
		written += n
	}
	return nil
}

// ReadByte reads one byte, bounded by the port's fixed read timeout. The
// deadline parameter is honored best-effort: go.bug.st/serial exposes a
// single fixed per-call timeout rather than an arbitrary deadline, so
// callers asking for a deadline further out than readTimeout will simply
// be polled again by the Command Client's receive loop.
func (t *Transport) ReadByte(deadline time.Time) (byte, bool, error) {
	buf := make([]byte, 1)
	n, err := t.port.Read(buf)
	if err != nil {
		return 0, false, fmt.Errorf("serialtransport: read: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// Close releases the underlying port.
func (t *Transport) Close() error {
	return t.port.Close()
}

// ListPorts returns the names of detected serial ports, for the CLI's
// print-ports subcommand.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialtransport: list ports: %w", err)
	}
	return ports, nil
}
