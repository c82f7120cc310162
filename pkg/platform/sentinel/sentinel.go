package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the KV engine and the
// bridge plumbing return these (optionally wrapped) so services can translate
// them into domain errors.
//
//   - ErrNotFound: key or record does not exist
//   - ErrConflict: a write raced with another writer or violated uniqueness
//   - ErrAlreadyUsed: message id already applied (inbox replay)
//   - ErrInvalidState: ledger not in the right lifecycle state for the call
//   - ErrUnavailable: backend temporarily unavailable
//   - ErrReadOnly: a write was attempted inside a read transaction
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrReadOnly     = errors.New("read-only transaction")
)
