package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skimvault/pkg/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestEnvelopeWireFormat(t *testing.T) {
	env, err := NewEnvelope("injective", "icp", "inj1vault",
		ForwardDeposit{Recipient: "rrkah-fqaaa-aaaaa-aaaaq-cai", Amount: domain.NewAmount(250)}, testNow)
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "forward_deposit", fields["action_tag"])
	assert.Equal(t, "inj1vault", fields["origin"])
	assert.Equal(t, "250", fields["amount"])
	assert.Equal(t, "rrkah-fqaaa-aaaaa-aaaaq-cai", fields["recipient"])
	assert.NotContains(t, fields, "config")

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, env.Action, decoded.Action)
}

func TestEnvelopeDecodeRejects(t *testing.T) {
	t.Run("unknown tag", func(t *testing.T) {
		_, err := Decode([]byte(`{"id":"6f1c2f1e-7c1a-4b8e-9a53-4f0b7d3c2a10","action_tag":"mint","origin":"x","amount":"1"}`))
		assert.ErrorIs(t, err, ErrUnknownAction)
		assert.True(t, IsPermanent(err))
	})

	t.Run("zero forward deposit", func(t *testing.T) {
		_, err := Decode([]byte(`{"id":"6f1c2f1e-7c1a-4b8e-9a53-4f0b7d3c2a10","action_tag":"forward_deposit","origin":"x","amount":"0","recipient":"bob"}`))
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := Decode([]byte(`{"action_tag":"forward_skim","origin":"x","amount":"0","recipient":"bob"}`))
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Decode([]byte(`{`))
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})
}

func TestReplaceConfigCarriesOpaquePayload(t *testing.T) {
	env, err := NewEnvelope("icp", "injective", "ledger", ReplaceConfig{Config: json.RawMessage(`{"router":"inj1router"}`)}, testNow)
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	rc, ok := decoded.Action.(ReplaceConfig)
	require.True(t, ok)
	assert.JSONEq(t, `{"router":"inj1router"}`, string(rc.Config))

	_, err = NewEnvelope("icp", "injective", "ledger", ReplaceConfig{Config: json.RawMessage(`nope`)}, testNow)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestSigningBytesIgnoreProof(t *testing.T) {
	env, err := NewEnvelope("icp", "injective", "ledger", SkimYieldTrigger{Recipient: "alice"}, testNow)
	require.NoError(t, err)

	before, err := env.SigningBytes()
	require.NoError(t, err)
	env.Proof = "signed"
	after, err := env.SigningBytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	env.Action = SkimYieldTrigger{Recipient: "mallory"}
	changed, err := env.SigningBytes()
	require.NoError(t, err)
	assert.NotEqual(t, before, changed)
}

func TestNewAction(t *testing.T) {
	a, err := NewAction(TagForwardSkim, "collector", domain.NewAmount(9), nil)
	require.NoError(t, err)
	assert.Equal(t, ForwardSkim{Recipient: "collector"}, a)

	_, err = NewAction(TagReplaceConfig, "", domain.Zero, json.RawMessage(`not json`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = NewAction("burn", "x", domain.NewAmount(1), nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
}
