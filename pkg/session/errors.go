package session

import "fmt"

// FlashIsNotIhexError wraps an ihex.FormatError with the path of the
// flash image that failed to parse.
type FlashIsNotIhexError struct {
	Path string
	Err  error
}

func (e *FlashIsNotIhexError) Error() string {
	return fmt.Sprintf("session: flash image %s is not a valid HEX file: %v", e.Path, e.Err)
}

func (e *FlashIsNotIhexError) Unwrap() error { return e.Err }

// EepromIsNotIhexError wraps an ihex.FormatError with the path of the
// EEPROM image that failed to parse.
type EepromIsNotIhexError struct {
	Path string
	Err  error
}

func (e *EepromIsNotIhexError) Error() string {
	return fmt.Sprintf("session: eeprom image %s is not a valid HEX file: %v", e.Path, e.Err)
}

func (e *EepromIsNotIhexError) Unwrap() error { return e.Err }

// FileNotFoundError reports a required image file missing at
// preparation time.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("session: file not found: %s", e.Path)
}

// CheckDeviceError reports a handshake mismatch between the requested
// device id and the one the target reported.
type CheckDeviceError struct {
	Requested uint8
	Detected  uint8
}

func (e *CheckDeviceError) Error() string {
	return fmt.Sprintf("session: requested device id %d but target reports %d", e.Requested, e.Detected)
}

// ProtocolMismatchError reports a CHK_PROTOCOL handshake that didn't
// return the one protocol version this client speaks.
type ProtocolMismatchError struct {
	Got uint8
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("session: target reports protocol version %d, want 1", e.Got)
}
