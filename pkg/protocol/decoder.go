package protocol

import "fmt"

// ChecksumError is returned by Decoder.Step when a frame's trailing
// checksum byte does not match the running sum of its payload. The
// decoder is left in a poisoned state after this error: every further
// Step call returns the same error until Reset is called.
type ChecksumError struct {
	Command  byte
	Expected byte
	Got      byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("protocol: checksum mismatch for command 0x%02x: expected 0x%02x, got 0x%02x", e.Command, e.Expected, e.Got)
}

type decoderPhase int

const (
	phaseHeader decoderPhase = iota
	phaseCommand
	phaseLength
	phaseData
	phaseChecksum
)

// Decoder is a byte-at-a-time streaming frame decoder. It is not safe
// for concurrent use; a single Decoder belongs to one Command Client.
type Decoder struct {
	phase   decoderPhase
	window  [3]byte
	command byte
	length  int
	counter int
	data    []byte
	chksum  byte
	packet  Packet
	err     error
}

// NewDecoder returns a Decoder ready to consume bytes starting in the
// header-sync phase.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset clears a poisoned (errored) decoder back to its initial state so
// it can be reused for the next frame.
func (d *Decoder) Reset() {
	*d = Decoder{}
}

// Step feeds one byte to the decoder. It returns (true, nil) exactly
// when that byte completed a valid frame, retrievable via Packet. It
// returns a non-nil error on checksum mismatch; once errored, every
// subsequent Step call returns the same error without consuming bytes
// until Reset is called.
//
// Regardless of phase, every byte first updates the rolling 3-byte
// header window; whenever that window reads A5 A5 A5 the decoder
// (re)synchronizes to the start of a fresh frame, discarding whatever
// partial frame was in flight. This lets the stream recover from
// corruption or stray bytes by simply waiting for the next header.
func (d *Decoder) Step(b byte) (bool, error) {
	if d.err != nil {
		return false, d.err
	}

	d.window[0], d.window[1], d.window[2] = d.window[1], d.window[2], b
	if d.window == Header {
		d.phase = phaseCommand
		d.chksum = 0
		return false, nil
	}

	switch d.phase {
	case phaseHeader:
		// still waiting for a header match; byte already consumed above.

	case phaseCommand:
		d.command = b
		d.counter = 0
		d.phase = phaseLength

	case phaseLength:
		d.counter++
		if d.counter == 1 {
			d.length = int(b) << 8
		} else {
			d.length += int(b)
			d.counter = 0
			if d.length == 0 {
				d.data = nil
				d.phase = phaseChecksum
			} else {
				d.data = make([]byte, 0, d.length)
				d.phase = phaseData
			}
		}

	case phaseData:
		d.chksum += b
		d.data = append(d.data, b)
		if len(d.data) == d.length {
			d.phase = phaseChecksum
		}

	case phaseChecksum:
		d.phase = phaseHeader
		d.window = [3]byte{}
		if b != d.chksum {
			d.err = &ChecksumError{Command: d.command, Expected: d.chksum, Got: b}
			return false, d.err
		}
		d.packet = Packet{Command: d.command, Payload: d.data}
		return true, nil
	}

	return false, nil
}

// Packet returns the most recently completed frame. Its result is only
// meaningful immediately after a Step call returned (true, nil).
func (d *Decoder) Packet() Packet {
	return d.packet
}
