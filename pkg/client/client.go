// Package client pairs each outbound bootloader command with its
// inbound acknowledgement: it encodes a request via the protocol codec,
// writes it to a Transport, and decodes the reply byte by byte until a
// complete frame arrives or a receive discipline gives up.
package client

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/serprog/serprog/pkg/protocol"
	"github.com/serprog/serprog/pkg/transport"
)

// DefaultPollTimeout is the configurable per-packet deadline for the
// Client's polled receive discipline.
const DefaultPollTimeout = 5 * time.Second

// pollBudget is the hard real-time cap on a single polled receive,
// regardless of the configured timeout: spec's receive loop is always
// bounded to roughly this much wall-clock time even when a longer
// timeout is configured.
const pollBudget = 3 * time.Second

// farFuture stands in for "no deadline" when calling ReadByte from the
// blocking receive discipline.
var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// Client owns a Decoder and a Transport for one programming session. It
// is not safe for concurrent use: requests and responses are paired
// strictly 1:1 in FIFO order.
type Client struct {
	transport transport.Transport
	clock     transport.Clock
	decoder   *protocol.Decoder
	timeout   time.Duration
}

// New returns a Client driving transport t, using clock for receive
// deadlines. The polled-receive timeout defaults to DefaultPollTimeout
// and can be changed with SetTimeout.
func New(t transport.Transport, clock transport.Clock) *Client {
	return &Client{
		transport: t,
		clock:     clock,
		decoder:   protocol.NewDecoder(),
		timeout:   DefaultPollTimeout,
	}
}

// SetTimeout overrides the default polled-receive timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// effectiveTimeout is the configured timeout capped by pollBudget.
func (c *Client) effectiveTimeout() time.Duration {
	if c.timeout < pollBudget {
		return c.timeout
	}
	return pollBudget
}

func (c *Client) send(command byte, payload []byte) error {
	frame, err := protocol.Encode(command, payload)
	if err != nil {
		return err
	}
	if err := c.transport.WriteAll(frame); err != nil {
		return &CommunicationError{Reason: "write failed", Err: err}
	}
	return nil
}

// receivePolled drives the decoder with a bounded real-time budget, as
// used by every command except the blocking ones (mass erase,
// external-to-internal boot copy).
func (c *Client) receivePolled() (protocol.Packet, error) {
	deadline := c.clock.Now().Add(c.effectiveTimeout())
	for {
		b, ok, err := c.transport.ReadByte(deadline)
		if err != nil {
			return protocol.Packet{}, &CommunicationError{Reason: "transport read failed", Err: err}
		}
		if ok {
			if pkt, done, derr := c.step(b); derr != nil {
				return protocol.Packet{}, derr
			} else if done {
				return pkt, nil
			}
			continue
		}
		if !c.clock.Now().Before(deadline) {
			return protocol.Packet{}, &CommunicationError{Reason: "timeout"}
		}
	}
}

// receiveBlocking drives the decoder with no timeout at all, for target
// operations known to take seconds; only a decoder error terminates it
// early.
func (c *Client) receiveBlocking() (protocol.Packet, error) {
	for {
		b, ok, err := c.transport.ReadByte(farFuture)
		if err != nil {
			return protocol.Packet{}, &CommunicationError{Reason: "transport read failed", Err: err}
		}
		if !ok {
			continue
		}
		if pkt, done, derr := c.step(b); derr != nil {
			return protocol.Packet{}, derr
		} else if done {
			return pkt, nil
		}
	}
}

func (c *Client) step(b byte) (protocol.Packet, bool, error) {
	done, err := c.decoder.Step(b)
	if err != nil {
		c.decoder.Reset()
		return protocol.Packet{}, false, &CommunicationError{Reason: "checksum failure", Err: err}
	}
	if done {
		return c.decoder.Packet(), true, nil
	}
	return protocol.Packet{}, false, nil
}

// sendThenReceive implements send_then_receive from spec §4.3: it
// returns ok=true iff the inbound command matches the outbound command
// and the response's status byte (first payload byte) is zero. extra
// is whatever payload follows the status byte. An unexpected inbound
// command or any lower-level failure is a CommunicationError; a
// nonzero status is simply ok=false, not an error.
func (c *Client) sendThenReceive(command byte, payload []byte, blocking bool) (ok bool, extra []byte, err error) {
	if err := c.send(command, payload); err != nil {
		return false, nil, err
	}

	var pkt protocol.Packet
	if blocking {
		pkt, err = c.receiveBlocking()
	} else {
		pkt, err = c.receivePolled()
	}
	if err != nil {
		return false, nil, err
	}

	if pkt.Command != command {
		return false, nil, &CommunicationError{
			Reason: fmt.Sprintf("unexpected response command 0x%02x for request 0x%02x", pkt.Command, command),
		}
	}
	if len(pkt.Payload) == 0 {
		return false, nil, nil
	}
	return pkt.Payload[0] == 0, pkt.Payload[1:], nil
}

// ChkProtocol probes the target's protocol version with an arbitrary
// payload, as the original source does with the literal bytes "test".
func (c *Client) ChkProtocol() (ok bool, protocolVersion byte, err error) {
	ok, extra, err := c.sendThenReceive(protocol.CmdChkProtocol, []byte("test"), false)
	if err != nil || !ok || len(extra) < 1 {
		return ok, 0, err
	}
	return ok, extra[0], nil
}

// ChkDevice asks the target which device id it is.
func (c *Client) ChkDevice() (ok bool, deviceID byte, err error) {
	ok, extra, err := c.sendThenReceive(protocol.CmdChkDevice, nil, false)
	if err != nil || !ok || len(extra) < 1 {
		return ok, 0, err
	}
	return ok, extra[0], nil
}

// ProgEnd tells the target to finish the programming session.
func (c *Client) ProgEnd() (ok bool, err error) {
	ok, _, err = c.sendThenReceive(protocol.CmdProgEnd, nil, false)
	return ok, err
}

// ProgExtFlashBoot tells the target to copy its staged external-flash
// image into internal flash. Blocking: this can take seconds.
func (c *Client) ProgExtFlashBoot() (ok bool, err error) {
	ok, _, err = c.sendThenReceive(protocol.CmdProgExtFlashBoot, nil, true)
	return ok, err
}

// FlashSetPageSize configures the target's internal flash page size.
func (c *Client) FlashSetPageSize(size uint32) (ok bool, err error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, size)
	ok, _, err = c.sendThenReceive(protocol.CmdFlashSetPageSize, payload, false)
	return ok, err
}

// FlashGetPageSize reads back the target's configured flash page size.
func (c *Client) FlashGetPageSize() (ok bool, size uint16, err error) {
	ok, extra, err := c.sendThenReceive(protocol.CmdFlashGetPageSize, nil, false)
	if err != nil || !ok || len(extra) < 2 {
		return ok, 0, err
	}
	return ok, binary.LittleEndian.Uint16(extra), nil
}

// FlashWrite writes one page of data at addr to internal flash.
func (c *Client) FlashWrite(addr uint32, data []byte) (ok bool, err error) {
	payload := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(payload, addr)
	copy(payload[4:], data)
	ok, _, err = c.sendThenReceive(protocol.CmdFlashWrite, payload, false)
	return ok, err
}

// FlashRead reads back the target's current flash contents.
func (c *Client) FlashRead() (ok bool, data []byte, err error) {
	return c.sendThenReceive(protocol.CmdFlashRead, nil, false)
}

// FlashEraseSector erases a single flash sector.
func (c *Client) FlashEraseSector(sector uint16) (ok bool, count uint32, err error) {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, sector)
	ok, extra, err := c.sendThenReceive(protocol.CmdFlashEraseSector, payload, false)
	if err != nil || !ok || len(extra) < 4 {
		return ok, 0, err
	}
	return ok, binary.LittleEndian.Uint32(extra), nil
}

// FlashEraseAll performs a mass erase of internal flash. Blocking: this
// can take seconds.
func (c *Client) FlashEraseAll() (ok bool, err error) {
	ok, _, err = c.sendThenReceive(protocol.CmdFlashEraseAll, nil, true)
	return ok, err
}

// EepromSetPageSize configures the target's EEPROM page size.
func (c *Client) EepromSetPageSize(size uint32) (ok bool, err error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, size)
	ok, _, err = c.sendThenReceive(protocol.CmdEepromSetPageSize, payload, false)
	return ok, err
}

// EepromGetPageSize reads back the target's configured EEPROM page size.
func (c *Client) EepromGetPageSize() (ok bool, size uint16, err error) {
	ok, extra, err := c.sendThenReceive(protocol.CmdEepromGetPageSize, nil, false)
	if err != nil || !ok || len(extra) < 2 {
		return ok, 0, err
	}
	return ok, binary.LittleEndian.Uint16(extra), nil
}

// EepromWrite writes one page of EEPROM data. The page data is sent
// as-is with no address prefix, matching original_source's
// cmd_eeprom_write.
func (c *Client) EepromWrite(pageData []byte) (ok bool, count uint32, err error) {
	ok, extra, err := c.sendThenReceive(protocol.CmdEepromWrite, pageData, false)
	if err != nil || !ok || len(extra) < 4 {
		return ok, 0, err
	}
	return ok, binary.LittleEndian.Uint32(extra), nil
}

// EepromRead reads back EEPROM contents.
func (c *Client) EepromRead() (ok bool, count uint32, err error) {
	ok, extra, err := c.sendThenReceive(protocol.CmdEepromRead, nil, false)
	if err != nil || !ok || len(extra) < 4 {
		return ok, 0, err
	}
	return ok, binary.LittleEndian.Uint32(extra), nil
}

// EepromErase erases a portion of EEPROM.
func (c *Client) EepromErase() (ok bool, count uint32, err error) {
	ok, extra, err := c.sendThenReceive(protocol.CmdEepromErase, nil, false)
	if err != nil || !ok || len(extra) < 4 {
		return ok, 0, err
	}
	return ok, binary.LittleEndian.Uint32(extra), nil
}

// EepromEraseAll erases all of EEPROM.
func (c *Client) EepromEraseAll() (ok bool, err error) {
	ok, _, err = c.sendThenReceive(protocol.CmdEepromEraseAll, nil, false)
	return ok, err
}

// ExtFlashFopen opens the staging file on external flash for writing.
func (c *Client) ExtFlashFopen() (ok bool, err error) {
	ok, _, err = c.sendThenReceive(protocol.CmdExtFlashFopen, []byte("fopen"), false)
	return ok, err
}

// ExtFlashClose closes the external flash staging file, stamping it
// with a 5-byte local timestamp: minute, hour, day, month, year-2000.
func (c *Client) ExtFlashClose(timestamp [5]byte) (ok bool, err error) {
	ok, _, err = c.sendThenReceive(protocol.CmdExtFlashClose, timestamp[:], false)
	return ok, err
}

// ExtFlashWrite writes one page of data at addr to external flash.
func (c *Client) ExtFlashWrite(addr uint32, data []byte) (ok bool, err error) {
	payload := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(payload, addr)
	copy(payload[4:], data)
	ok, _, err = c.sendThenReceive(protocol.CmdExtFlashWrite, payload, false)
	return ok, err
}
