package sheets

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against transport failures.
var (
	ErrTimeout    = errors.New("callback transport timed out")
	ErrLoadFailed = errors.New("callback transport failed to load")
)

// NetworkError is a failure of the primary JSON transport: connection error,
// non-2xx status, or a body that is not JSON. It is always recovered by the
// callback transport.
type NetworkError struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("network error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("network error for %s: %s", e.URL, e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// TransportKind classifies callback transport failures.
type TransportKind int

const (
	// LoadFailed means the callback response could not be loaded at all.
	LoadFailed TransportKind = iota
	// Timeout means the callback was not invoked before the deadline.
	Timeout
)

func (k TransportKind) String() string {
	switch k {
	case LoadFailed:
		return "load failed"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// TransportError is a terminal failure of the callback transport.
type TransportError struct {
	Kind  TransportKind
	Token string
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("callback transport %s (%s): %v", e.Kind, e.Token, e.Cause)
	}
	return fmt.Sprintf("callback transport %s (%s)", e.Kind, e.Token)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match the ErrTimeout and ErrLoadFailed sentinels.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == Timeout
	case ErrLoadFailed:
		return e.Kind == LoadFailed
	}
	return false
}

// StoreError is an error reported by the store itself (unknown table,
// failed submission) or a response that breaks the store contract.
type StoreError struct {
	Table   string
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "store reported a failure"
	}
	if e.Cause != nil {
		return fmt.Sprintf("store error for %s: %s: %v", e.Table, msg, e.Cause)
	}
	return fmt.Sprintf("store error for %s: %s", e.Table, msg)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
