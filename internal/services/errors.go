package services

import "fmt"

// SyncState tracks the per-key synchronization state machine:
// PENDING -> MAPPING_FAILED | DISPATCHED -> CONFIRMED | REJECTED | TRANSPORT_ERROR.
type SyncState string

const (
	StatePending        SyncState = "PENDING"
	StateMappingFailed  SyncState = "MAPPING_FAILED"
	StateDispatched     SyncState = "DISPATCHED"
	StateConfirmed      SyncState = "CONFIRMED"
	StateRejected       SyncState = "REJECTED"
	StateTransportError SyncState = "TRANSPORT_ERROR"
)

// SyncError classifies a failed synchronization attempt. All kinds leave the
// cache entry intact for a later retry.
type SyncError struct {
	State   SyncState
	Key     string
	Payload string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("synchronization of %s failed (%s): %v", e.Key, e.State, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
