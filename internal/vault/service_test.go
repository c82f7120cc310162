package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"skimvault/internal/bridge"
	"skimvault/internal/kv"
	"skimvault/internal/swap"
	"skimvault/internal/vault/metrics"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
)

func addr(b byte) domain.Address {
	a, err := domain.EncodeAddress(domain.DefaultAddressPrefix, bytes.Repeat([]byte{b}, 20))
	if err != nil {
		panic(err)
	}
	return a
}

var (
	vaultAddr = addr(1)
	stable    = addr(2)
	yieldTok  = addr(3)
	router    = addr(4)
	gateway   = addr(5)
	collector = addr(6)
	manager   = addr(7)
	alice     = addr(8)
	bob       = addr(9)
	mallory   = addr(10)
)

func testConfig() Config {
	return Config{
		StableToken:    stable,
		YieldToken:     yieldTok,
		Router:         router,
		Gateway:        gateway,
		RemoteLedgerID: "rrkah-fqaaa-aaaaa-aaaaq-cai",
		YieldCollector: collector,
	}
}

// =============================================================================
// Vault Test Suite
// =============================================================================
// Justification for unit tests: the vault decides how much yield leaves the
// chain. Tests pin principal accounting, the yield formula, the hold-back of
// pending skims, role gating and that failed calls queue nothing.

type VaultSuite struct {
	suite.Suite
	store   *kv.MemoryStore
	market  *swap.Simulator
	service *Service
	ids     int
}

func TestVaultSuite(t *testing.T) {
	suite.Run(t, new(VaultSuite))
}

func (s *VaultSuite) SetupTest() {
	s.store = kv.NewMemoryStore()
	s.market = swap.NewSimulator(0)
	s.ids = 0
	var err error
	s.service, err = New(s.store, s.market,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithClock(func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }),
	)
	s.Require().NoError(err)
	s.service.newID = func() string {
		s.ids++
		return fmt.Sprintf("swap-%d", s.ids)
	}
	s.Require().NoError(s.service.Instantiate(context.Background(), InstantiateRequest{
		Self:          vaultAddr,
		Config:        testConfig(),
		RemoteManager: manager,
	}))
}

func (s *VaultSuite) pending() []bridge.Entry {
	entries, err := bridge.Pending(context.Background(), s.store, 100)
	s.Require().NoError(err)
	return entries
}

func (s *VaultSuite) conserved() {
	s.Require().NoError(s.service.CheckConservation(context.Background()))
}

// executeSwaps plays the relay's part for queued swap instructions.
func (s *VaultSuite) executeSwaps() {
	ctx := context.Background()
	for _, e := range s.pending() {
		if e.Kind != bridge.KindSwap {
			continue
		}
		var in swap.Instruction
		s.Require().NoError(json.Unmarshal(e.Payload, &in))
		res, err := s.market.Execute(ctx, in)
		s.Require().NoError(err)
		s.Require().NoError(s.service.SettleSwap(ctx, in, res))
		s.Require().NoError(bridge.MarkSent(ctx, s.store, e.Seq))
	}
}

// =============================================================================
// Instantiation
// =============================================================================

func (s *VaultSuite) TestInstantiate() {
	ctx := context.Background()

	s.Run("writes version and zero principal", func() {
		info, err := s.service.ContractVersion(ctx)
		s.Require().NoError(err)
		s.Equal(ContractInfo{Name: "skimvault_vault", Version: "1.0.0"}, info)

		total, err := s.service.TotalPrincipal(ctx)
		s.Require().NoError(err)
		s.True(total.IsZero())

		m, err := s.service.RemoteManager(ctx)
		s.Require().NoError(err)
		s.Equal(manager, m)
	})

	s.Run("second instantiation conflicts", func() {
		err := s.service.Instantiate(ctx, InstantiateRequest{Self: vaultAddr, Config: testConfig(), RemoteManager: manager})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects malformed addresses", func() {
		fresh, err := New(kv.NewMemoryStore(), s.market)
		s.Require().NoError(err)

		cfg := testConfig()
		cfg.YieldToken = "inj1notanaddress"
		err = fresh.Instantiate(ctx, InstantiateRequest{Self: vaultAddr, Config: cfg, RemoteManager: manager})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))

		cosmos, err := domain.EncodeAddress("cosmos", bytes.Repeat([]byte{1}, 20))
		s.Require().NoError(err)
		err = fresh.Instantiate(ctx, InstantiateRequest{Self: vaultAddr, Config: testConfig(), RemoteManager: cosmos})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))

		_, err = fresh.Config(ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "nothing was written")
	})

	s.Run("operations before instantiation fail", func() {
		fresh, err := New(kv.NewMemoryStore(), s.market)
		s.Require().NoError(err)
		_, err = fresh.Deposit(ctx, alice, domain.NewAmount(1))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Deposits
// =============================================================================

func (s *VaultSuite) TestDeposit() {
	ctx := context.Background()

	s.Run("records principal and queues a swap", func() {
		rc, err := s.service.Deposit(ctx, alice, domain.NewAmount(1_000))
		s.Require().NoError(err)
		s.Equal("deposit", rc.Action)
		amount, _ := rc.Attr("amount")
		s.Equal("1000", amount)

		s.Require().Len(rc.Messages, 1)
		in := rc.Messages[0].Swap
		s.Require().NotNil(in)
		s.Equal(swap.StableToYield, in.Direction)
		s.Equal(domain.NewAmount(1_000), in.Amount)
		s.Equal(stable.String(), in.OfferToken)
		s.Equal(yieldTok.String(), in.AskToken)
		s.Equal(vaultAddr.String(), in.Holder)
		s.Equal(router.String(), in.Router)

		s.Len(s.pending(), 1)
		s.conserved()
	})

	s.Run("accumulates per address", func() {
		_, err := s.service.Deposit(ctx, alice, domain.NewAmount(500))
		s.Require().NoError(err)
		_, err = s.service.Deposit(ctx, bob, domain.NewAmount(250))
		s.Require().NoError(err)

		p, err := s.service.Principal(ctx, alice)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(1_500), p)

		total, err := s.service.TotalPrincipal(ctx)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(1_750), total)
		s.conserved()
	})

	s.Run("zero amount queues nothing", func() {
		before := len(s.pending())
		_, err := s.service.Deposit(ctx, alice, domain.Zero)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Len(s.pending(), before)
	})

	s.Run("invalid depositor", func() {
		_, err := s.service.Deposit(ctx, "bob", domain.NewAmount(1))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	s.Run("unknown address holds nothing", func() {
		p, err := s.service.Principal(ctx, mallory)
		s.Require().NoError(err)
		s.True(p.IsZero())
	})
}

// =============================================================================
// Yield Skimming
// =============================================================================

func (s *VaultSuite) TestSkimYield() {
	ctx := context.Background()
	_, err := s.service.Deposit(ctx, alice, domain.NewAmount(1_000))
	s.Require().NoError(err)

	s.Run("no yield while the deposit swap is pending", func() {
		_, err := s.service.SkimYield(ctx, collector)
		s.True(dErrors.HasCode(err, dErrors.CodeNoYieldAvailable))
	})

	s.executeSwaps()

	s.Run("holdings equal to principal is no yield", func() {
		before := len(s.pending())
		_, err := s.service.SkimYield(ctx, collector)
		s.True(dErrors.HasCode(err, dErrors.CodeNoYieldAvailable))
		s.Len(s.pending(), before)
	})

	s.Require().NoError(s.market.Accrue(yieldTok.String(), vaultAddr.String(), domain.NewAmount(50)))

	s.Run("unauthorized caller", func() {
		_, err := s.service.SkimYield(ctx, mallory)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Empty(s.pending())
	})

	s.Run("skims the excess to the collector", func() {
		held, err := s.service.AssetBalance(ctx)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(1_050), held)

		rc, err := s.service.SkimYield(ctx, collector)
		s.Require().NoError(err)
		y, _ := rc.Attr("yield_amount")
		s.Equal("50", y)

		s.Require().Len(rc.Messages, 2)
		s.Equal(swap.YieldToStable, rc.Messages[0].Swap.Direction)
		s.Equal(domain.NewAmount(50), rc.Messages[0].Swap.Amount)

		env := rc.Messages[1].Bridge
		s.Require().NotNil(env)
		s.Equal(bridge.ChainID("icp"), env.Destination)
		s.Equal(vaultAddr.String(), env.Origin)
		s.Equal(bridge.ForwardDeposit{Recipient: collector.String(), Amount: domain.NewAmount(50)}, env.Action)

		pending, err := s.service.InFlight(ctx)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(50), pending)
	})

	s.Run("pending skim is not skimmed twice", func() {
		_, err := s.service.SkimYield(ctx, manager)
		s.True(dErrors.HasCode(err, dErrors.CodeNoYieldAvailable))
	})

	s.Run("settlement releases the hold-back", func() {
		s.executeSwaps()
		pending, err := s.service.InFlight(ctx)
		s.Require().NoError(err)
		s.True(pending.IsZero())

		held, err := s.service.AssetBalance(ctx)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(1_000), held)

		_, err = s.service.SkimYield(ctx, collector)
		s.True(dErrors.HasCode(err, dErrors.CodeNoYieldAvailable))
	})

	s.Run("principal is untouched", func() {
		total, err := s.service.TotalPrincipal(ctx)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(1_000), total)
		s.conserved()
	})
}

func (s *VaultSuite) TestSettleSwapIgnoresUnknown() {
	ctx := context.Background()
	in := swap.Instruction{ID: "never-queued", Direction: swap.YieldToStable}
	s.NoError(s.service.SettleSwap(ctx, in, swap.Result{}))
	s.NoError(s.service.SettleSwap(ctx, swap.Instruction{ID: "x", Direction: swap.StableToYield}, swap.Result{}))
}

// =============================================================================
// Remote Execution
// =============================================================================

func (s *VaultSuite) TestExecuteFromRemote() {
	ctx := context.Background()

	s.Run("only the remote manager", func() {
		_, err := s.service.ExecuteFromRemote(ctx, mallory, bridge.ForwardSkim{Recipient: "somebody"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("forward deposit credits the depositor", func() {
		rc, err := s.service.ExecuteFromRemote(ctx, manager,
			bridge.ForwardDeposit{Recipient: bob.String(), Amount: domain.NewAmount(300)})
		s.Require().NoError(err)
		s.Equal("deposit", rc.Action)

		p, err := s.service.Principal(ctx, bob)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(300), p)
		s.conserved()
	})

	s.Run("forward deposit with a foreign address", func() {
		_, err := s.service.ExecuteFromRemote(ctx, manager,
			bridge.ForwardDeposit{Recipient: "alice", Amount: domain.NewAmount(1)})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	s.Run("forward skim uses the explicit recipient", func() {
		s.executeSwaps()
		s.Require().NoError(s.market.Accrue(yieldTok.String(), vaultAddr.String(), domain.NewAmount(7)))

		rc, err := s.service.ExecuteFromRemote(ctx, manager, bridge.ForwardSkim{Recipient: "icp-principal"})
		s.Require().NoError(err)
		s.Equal(bridge.ForwardDeposit{Recipient: "icp-principal", Amount: domain.NewAmount(7)}, rc.Messages[1].Bridge.Action)
	})

	s.Run("replace config", func() {
		cfg := testConfig()
		cfg.YieldCollector = bob
		raw, err := json.Marshal(cfg)
		s.Require().NoError(err)

		_, err = s.service.ExecuteFromRemote(ctx, manager, bridge.ReplaceConfig{Config: raw})
		s.Require().NoError(err)
		got, err := s.service.Config(ctx)
		s.Require().NoError(err)
		s.Equal(bob, got.YieldCollector)
	})

	s.Run("replace config validates addresses", func() {
		_, err := s.service.ExecuteFromRemote(ctx, manager,
			bridge.ReplaceConfig{Config: json.RawMessage(`{"stable_token":"nope"}`)})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))

		got, err := s.service.Config(ctx)
		s.Require().NoError(err)
		s.Equal(bob, got.YieldCollector, "config unchanged")
	})

	s.Run("skim trigger is not a vault action", func() {
		_, err := s.service.ExecuteFromRemote(ctx, manager, bridge.SkimYieldTrigger{Recipient: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *VaultSuite) TestSetRemoteManager() {
	ctx := context.Background()

	s.Run("only the current manager", func() {
		err := s.service.SetRemoteManager(ctx, mallory, mallory)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rotates", func() {
		s.Require().NoError(s.service.SetRemoteManager(ctx, manager, bob))
		m, err := s.service.RemoteManager(ctx)
		s.Require().NoError(err)
		s.Equal(bob, m)

		err = s.service.SetRemoteManager(ctx, manager, manager)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "previous manager lost the role")
	})

	s.Run("rejects invalid address", func() {
		err := s.service.SetRemoteManager(ctx, bob, "not-bech32")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})
}

// TestConservationAcrossOperations interleaves every mutating operation and
// checks total principal after each.
func (s *VaultSuite) TestConservationAcrossOperations() {
	ctx := context.Background()
	depositors := []domain.Address{alice, bob, collector}
	for i := range 30 {
		who := depositors[i%len(depositors)]
		_, err := s.service.Deposit(ctx, who, domain.NewAmount(uint64(i*37+1)))
		s.Require().NoError(err)
		s.conserved()

		if i%5 == 4 {
			s.executeSwaps()
			s.Require().NoError(s.market.Accrue(yieldTok.String(), vaultAddr.String(), domain.NewAmount(uint64(i))))
			_, err := s.service.SkimYield(ctx, collector)
			s.Require().NoError(err)
			s.conserved()
		}
	}
}
