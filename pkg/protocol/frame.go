// Package protocol implements the bootloader's framed request/response
// wire format: a fixed 3-byte header, a command byte, a big-endian
// length, a payload, and a one-byte checksum over the payload.
package protocol

import "fmt"

// Header is the fixed 3-byte frame marker every packet starts with.
var Header = [3]byte{0xA5, 0xA5, 0xA5}

// MaxPayloadLength is the largest payload the 2-byte big-endian length
// field can represent.
const MaxPayloadLength = 0xFFFF

// Packet is an immutable command/payload pair, either outbound (built by
// Encode) or inbound (produced by the Decoder).
type Packet struct {
	Command byte
	Payload []byte
}

// Encode renders a command and payload into a full wire frame:
// header || command || len_hi || len_lo || payload || checksum, where
// checksum is the sum of the payload bytes mod 256. It never fails for
// payloads within MaxPayloadLength.
func Encode(command byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("protocol: payload length %d exceeds maximum %d", len(payload), MaxPayloadLength)
	}

	frame := make([]byte, 0, len(Header)+1+2+len(payload)+1)
	frame = append(frame, Header[:]...)
	frame = append(frame, command)
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)

	var chksum byte
	for _, b := range payload {
		chksum += b
	}
	frame = append(frame, chksum)

	return frame, nil
}
