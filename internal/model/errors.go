package model

import "fmt"

// StorageError wraps a failure of the engine's own reads or writes against
// the rule relation. It is fatal to the statement whose interception
// triggered it: running on with stale or partial rule data is worse than
// aborting.
type StorageError struct {
	Op  string // "probe", "read", "upsert", "clear", "provision"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("simula storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// UnknownActionError rejects a write naming an action the registry does
// not know. This is the only user-facing validation error; it surfaces at
// upsert time, never at dispatch time.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("invalid action: %q", e.Action)
}

// InjectedError is the recoverable abort produced by the "error" action.
// The current statement fails; the session stays usable.
type InjectedError struct{}

func (e *InjectedError) Error() string {
	return "simulation of ERROR by pg-simula"
}

// SessionKilledError is produced by the "fatal" action. The host must
// terminate the session irrecoverably; the statement does not complete.
type SessionKilledError struct{}

func (e *SessionKilledError) Error() string {
	return "simulation of FATAL by pg-simula"
}
