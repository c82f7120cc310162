package vault

import (
	"encoding/json"
	"fmt"

	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
)

// Config names the contracts the vault talks to. It is replaced wholesale by
// the remote manager, never patched.
type Config struct {
	StableToken    domain.Address `json:"stable_token"`
	YieldToken     domain.Address `json:"yield_token"`
	Router         domain.Address `json:"router"`
	Gateway        domain.Address `json:"gateway"`
	RemoteLedgerID string         `json:"remote_ledger_id"`
	YieldCollector domain.Address `json:"yield_collector"`
}

// Validate checks every address against prefix and returns the canonical
// (lowercased) config.
func (c Config) Validate(prefix string) (Config, error) {
	out := c
	fields := []struct {
		name string
		dst  *domain.Address
	}{
		{"stable_token", &out.StableToken},
		{"yield_token", &out.YieldToken},
		{"router", &out.Router},
		{"gateway", &out.Gateway},
		{"yield_collector", &out.YieldCollector},
	}
	for _, f := range fields {
		a, err := domain.ParseAddress(f.dst.String(), prefix)
		if err != nil {
			return Config{}, dErrors.Wrap(err, dErrors.CodeInvalidAddress, fmt.Sprintf("%s: invalid address", f.name))
		}
		*f.dst = a
	}
	if out.RemoteLedgerID == "" {
		return Config{}, dErrors.New(dErrors.CodeValidation, "remote_ledger_id is required")
	}
	return out, nil
}

// decodeConfig reads a ReplaceConfig payload.
func decodeConfig(raw json.RawMessage, prefix string) (Config, error) {
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "replace_config payload is not a vault config")
	}
	return c.Validate(prefix)
}
