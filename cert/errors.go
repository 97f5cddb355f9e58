// Package cert implements an X.509 certificate model with construction,
// signing, verification and DER/PEM serialization.
// This file contains error types shared across the package.
package cert

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrAlgorithmNotSupported is returned when a signature or digest
	// algorithm is not supported.
	ErrAlgorithmNotSupported = errors.New("algorithm not supported")

	// ErrNotSigned is returned when an operation requires a signed certificate.
	ErrNotSigned = errors.New("certificate is not signed")

	// ErrUnknownKeyType is returned for key types the package cannot handle.
	ErrUnknownKeyType = errors.New("unknown key type")
)

// DecodeError reports malformed bytes inside an otherwise present
// certificate or extension structure. It is always surfaced to the caller,
// never silently replaced by a default value.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decode %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("failed to decode %s", e.What)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(what string, err error) *DecodeError {
	return &DecodeError{What: what, Err: err}
}

// PolicyError reports a disallowed algorithm/key combination, such as
// selecting an MD5 digest for a DSA key. It is raised at signing time
// before any signature bytes are produced.
type PolicyError struct {
	Message string
}

func (e *PolicyError) Error() string {
	return "signing policy violation: " + e.Message
}

// NewPolicyError creates a new PolicyError.
func NewPolicyError(format string, args ...interface{}) *PolicyError {
	return &PolicyError{Message: fmt.Sprintf(format, args...)}
}
