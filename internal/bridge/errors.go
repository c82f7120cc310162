package bridge

import (
	"context"
	"errors"

	dErrors "skimvault/pkg/domain-errors"
)

var (
	ErrUnknownAction    = errors.New("bridge: unknown action tag")
	ErrMalformedMessage = errors.New("bridge: malformed message")
	ErrInvalidProof     = errors.New("bridge: invalid provenance proof")
	ErrWrongDestination = errors.New("bridge: message addressed to another chain")
	ErrTransportClosed  = errors.New("bridge: transport closed")

	// ErrRejected is returned when a message the ledger already rejected is
	// delivered again.
	ErrRejected = errors.New("bridge: message was rejected")
)

// IsPermanent reports whether redelivering the message could ever succeed.
// Malformed or unauthenticated messages and domain rejections are permanent;
// storage and transport failures are not.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, ErrInvalidProof) ||
		errors.Is(err, ErrWrongDestination) ||
		errors.Is(err, ErrRejected) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if de, ok := dErrors.As(err); ok {
		return de.Code != dErrors.CodeInternal && de.Code != dErrors.CodeTimeout
	}
	return false
}
