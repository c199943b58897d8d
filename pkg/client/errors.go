package client

import "fmt"

// CommunicationError covers every way a command/response exchange can
// fail below the Orchestrator's level: a decode timeout, a checksum
// failure, or a reply that answers the wrong command. The Client never
// retries; a CommunicationError aborts whatever the caller was doing.
type CommunicationError struct {
	Reason string
	Err    error
}

func (e *CommunicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client: communication error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("client: communication error: %s", e.Reason)
}

func (e *CommunicationError) Unwrap() error { return e.Err }
