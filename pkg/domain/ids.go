package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcutil/bech32"

	dErrors "skimvault/pkg/domain-errors"
)

const maxPrincipalLength = 128

// DefaultAddressPrefix is the human readable part expected on vault-side addresses.
const DefaultAddressPrefix = "inj"

// Principal is an opaque account identity on the yield ledger.
// Principals are not comparable with vault-side Addresses.
type Principal string

// ParsePrincipal validates a principal at a trust boundary.
func ParsePrincipal(s string) (Principal, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	if len(s) > maxPrincipalLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be valid UTF-8")
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must not contain whitespace")
	}
	return Principal(s), nil
}

func (p Principal) String() string { return string(p) }

func (p Principal) IsZero() bool { return p == "" }

// Address is a validated bech32 account or contract address on the vault ledger.
type Address string

// ParseAddress validates a bech32 address with the given human readable part.
// The payload must decode to a 20 byte account or 32 byte contract address.
func ParseAddress(s, prefix string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidAddress, "address is required")
	}
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidAddress, "malformed address")
	}
	if hrp != prefix {
		return "", dErrors.New(dErrors.CodeInvalidAddress, "address prefix must be "+prefix)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidAddress, "malformed address payload")
	}
	if len(payload) != 20 && len(payload) != 32 {
		return "", dErrors.New(dErrors.CodeInvalidAddress, "address payload has invalid length")
	}
	// bech32 is case-insensitive but mixed case is rejected by Decode; store lowercase.
	return Address(strings.ToLower(s)), nil
}

func (a Address) String() string { return string(a) }

func (a Address) IsZero() bool { return a == "" }

// EncodeAddress builds a bech32 address from raw bytes. Used by tooling and tests.
func EncodeAddress(prefix string, payload []byte) (Address, error) {
	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	s, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", err
	}
	return Address(s), nil
}
