// Package gate holds the capability checks every privileged ledger operation
// goes through. Checks return coded domain errors so callers can tell a
// rejected call apart from a failed one.
package gate

import (
	"crypto/subtle"

	dErrors "skimvault/pkg/domain-errors"
)

// Identity is anything with a canonical string form (Principal, Address).
type Identity interface {
	~string
}

func equal[T Identity](a, b T) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Self allows a caller to act only on its own identity.
func Self[T Identity](caller, subject T) error {
	if caller == "" || !equal(caller, subject) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller may only act on its own account")
	}
	return nil
}

// Holder allows only the current holder of a singleton role (admin, remote
// manager). An unset role rejects everyone.
func Holder[T Identity](caller, holder T, role string) error {
	if holder == "" || caller == "" || !equal(caller, holder) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the "+role)
	}
	return nil
}

// AnyOf allows the caller if it matches any non-empty allowed identity.
func AnyOf[T Identity](caller T, allowed ...T) error {
	if caller != "" {
		for _, a := range allowed {
			if a != "" && equal(caller, a) {
				return nil
			}
		}
	}
	return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized for this operation")
}
