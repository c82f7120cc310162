// Package provenance signs and verifies bridge envelopes.
//
// A proof is an HS256 JWT whose registered claims bind the envelope to its
// route: iss is the source chain, sub the sending contract, aud the
// destination chain and jti the message id. A SHA3-256 digest of the
// envelope's signing bytes ties the token to the exact action carried.
//
// Proofs carry no expiry. A skim has already been realized on the vault by
// the time its envelope is relayed, so a late proof must still verify;
// replays are stopped by the receiving ledger's inbox, keyed by jti.
package provenance

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/sha3"

	"skimvault/internal/bridge"
)

// ClockSkew is how far in the future a proof's iat may lie.
const ClockSkew = time.Minute

type Claims struct {
	Digest string `json:"digest"`
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Digest returns the hex SHA3-256 of env's signing bytes.
func Digest(env bridge.Envelope) (string, error) {
	payload, err := env.SigningBytes()
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

type Signer struct {
	key []byte
	now func() time.Time
}

var _ bridge.Signer = (*Signer)(nil)

type Option func(*options)

type options struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func collect(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewSigner(key []byte, opts ...Option) (*Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	o := collect(opts)
	return &Signer{key: key, now: o.now}, nil
}

func (s *Signer) Sign(env bridge.Envelope) (string, error) {
	digest, err := Digest(env)
	if err != nil {
		return "", err
	}
	claims := Claims{
		Digest: digest,
		Action: string(env.Action.Tag()),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    string(env.Source),
			Subject:   env.Origin,
			Audience:  jwt.ClaimStrings{string(env.Destination)},
			ID:        env.ID.String(),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("provenance: sign %s: %w", env.ID, err)
	}
	return signed, nil
}

// Verifier accepts envelopes addressed to self whose source chain is trusted
// and whose origin is the contract registered for that chain.
type Verifier struct {
	key     []byte
	self    bridge.ChainID
	trusted map[bridge.ChainID]string
	now     func() time.Time
}

var _ bridge.Verifier = (*Verifier)(nil)

func NewVerifier(key []byte, self bridge.ChainID, trusted map[bridge.ChainID]string, opts ...Option) (*Verifier, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	if self == "" {
		return nil, fmt.Errorf("destination chain is required")
	}
	o := collect(opts)
	copied := make(map[bridge.ChainID]string, len(trusted))
	for chain, origin := range trusted {
		copied[chain] = origin
	}
	return &Verifier{key: key, self: self, trusted: copied, now: o.now}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", bridge.ErrInvalidProof, fmt.Sprintf(format, args...))
}

func (v *Verifier) Verify(env bridge.Envelope) error {
	if env.Destination != v.self {
		return fmt.Errorf("%w: %s", bridge.ErrWrongDestination, env.Destination)
	}
	origin, ok := v.trusted[env.Source]
	if !ok {
		return invalid("untrusted source chain %q", env.Source)
	}
	if origin != env.Origin {
		return invalid("origin %q is not the registered contract for %s", env.Origin, env.Source)
	}
	if env.Proof == "" {
		return invalid("missing proof")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(env.Proof, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(string(env.Source)),
		jwt.WithSubject(env.Origin),
		jwt.WithAudience(string(v.self)),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(ClockSkew),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return invalid("%v", err)
	}
	if claims.ID != env.ID.String() {
		return invalid("proof issued for message %s", claims.ID)
	}

	want, err := Digest(env)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(claims.Digest)) != 1 {
		return invalid("digest mismatch")
	}
	return nil
}
