package httptransport

//go:generate mockgen -source=handlers_ledger.go -destination=mocks/ledger-mocks.go -package=mocks LedgerService

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skimvault/internal/bridge"
	"skimvault/internal/pricing"
	"skimvault/internal/yieldledger"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/httputil"
	"skimvault/pkg/requestcontext"
)

// LedgerService is the yield ledger as seen by HTTP callers.
type LedgerService interface {
	Deposit(ctx context.Context, caller domain.Principal, amount domain.Amount) (yieldledger.DepositResult, error)
	ConvertYield(ctx context.Context) (yieldledger.ConversionResult, error)
	ManualConversion(ctx context.Context, caller, principal domain.Principal, amount domain.Amount) (yieldledger.ManualConversionResult, error)
	EmergencyWithdraw(ctx context.Context, caller, principal domain.Principal) (yieldledger.WithdrawResult, error)
	Balance(ctx context.Context, principal domain.Principal) (yieldledger.BalanceView, error)
	ConvertedBalance(ctx context.Context, principal domain.Principal) (yieldledger.ConvertedView, error)
	Accumulator(ctx context.Context) (domain.Amount, error)
	TotalConverted(ctx context.Context) (domain.Amount, error)
	Config(ctx context.Context) (yieldledger.Config, error)
	Price(ctx context.Context) (pricing.Rate, error)
	SetConfig(ctx context.Context, caller domain.Principal, cfg yieldledger.Config) error
	SetPrice(ctx context.Context, caller domain.Principal, r pricing.Rate) error
	RotateAdmin(ctx context.Context, caller, next domain.Principal) error
	RequestSkim(ctx context.Context, caller, recipient domain.Principal) (bridge.Envelope, error)
}

var _ LedgerService = (*yieldledger.Service)(nil)

type LedgerHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

func NewLedgerHandler(ledger LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

// Register mounts the ledger routes. r must already require authentication.
func (h *LedgerHandler) Register(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Post("/deposit", h.handleDeposit)
		r.Post("/convert", h.handleConvert)
		r.Post("/convert/manual", h.handleManualConversion)
		r.Post("/withdraw/emergency", h.handleEmergencyWithdraw)

		r.Get("/balances/{principal}", h.handleBalance)
		r.Get("/me", h.handleMyBalance)
		r.Get("/converted/{principal}", h.handleConverted)
		r.Get("/accumulator", h.handleAccumulator)
		r.Get("/total-converted", h.handleTotalConverted)
		r.Get("/config", h.handleConfig)
		r.Get("/price", h.handlePrice)

		r.Put("/admin/config", h.handleSetConfig)
		r.Put("/admin/price", h.handleSetPrice)
		r.Post("/admin/rotate", h.handleRotateAdmin)
		r.Post("/admin/skim", h.handleRequestSkim)
	})
}

type amountRequest struct {
	Amount domain.Amount `json:"amount"`
}

func (r *amountRequest) Validate() error {
	if r.Amount.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}

// manualConversionRequest converts the caller's own balance when Principal
// is empty.
type manualConversionRequest struct {
	Principal string        `json:"principal,omitempty"`
	Amount    domain.Amount `json:"amount"`
}

func (r *manualConversionRequest) Validate() error {
	if r.Amount.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}

type withdrawRequest struct {
	Principal string `json:"principal,omitempty"`
}

type setPriceRequest struct {
	USDPerBTC uint64 `json:"usd_per_btc"`
}

func (r *setPriceRequest) Validate() error {
	if err := pricing.Rate(r.USDPerBTC).Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "usd_per_btc must be greater than zero")
	}
	return nil
}

type rotateRequest struct {
	Next string `json:"next"`
}

func (r *rotateRequest) Validate() error {
	if r.Next == "" {
		return dErrors.New(dErrors.CodeValidation, "next is required")
	}
	return nil
}

type skimRequest struct {
	Recipient string `json:"recipient,omitempty"`
}

type amountResponse struct {
	Amount domain.Amount `json:"amount"`
}

func (h *LedgerHandler) caller(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, err := domain.ParsePrincipal(requestcontext.Caller(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required"))
		return "", false
	}
	return p, true
}

// subject resolves an optional principal field, defaulting to the caller.
func subject(raw string, caller domain.Principal) (domain.Principal, error) {
	if raw == "" {
		return caller, nil
	}
	return domain.ParsePrincipal(raw)
}

func (h *LedgerHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	attrs := []any{"operation", op, "request_id", requestcontext.RequestID(ctx), "error", err}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "ledger operation failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "ledger operation rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func (h *LedgerHandler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[amountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.ledger.Deposit(ctx, caller, req.Amount)
	if err != nil {
		h.fail(w, r, "deposit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *LedgerHandler) handleConvert(w http.ResponseWriter, r *http.Request) {
	res, err := h.ledger.ConvertYield(r.Context())
	if err != nil {
		h.fail(w, r, "convert_yield", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *LedgerHandler) handleManualConversion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[manualConversionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	principal, err := subject(req.Principal, caller)
	if err != nil {
		h.fail(w, r, "manual_conversion", err)
		return
	}
	res, err := h.ledger.ManualConversion(ctx, caller, principal, req.Amount)
	if err != nil {
		h.fail(w, r, "manual_conversion", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *LedgerHandler) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[withdrawRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	principal, err := subject(req.Principal, caller)
	if err != nil {
		h.fail(w, r, "emergency_withdraw", err)
		return
	}
	res, err := h.ledger.EmergencyWithdraw(ctx, caller, principal)
	if err != nil {
		h.fail(w, r, "emergency_withdraw", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *LedgerHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	principal, err := domain.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		h.fail(w, r, "balance", err)
		return
	}
	h.writeBalance(w, r, principal)
}

func (h *LedgerHandler) handleMyBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.writeBalance(w, r, caller)
}

func (h *LedgerHandler) writeBalance(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	v, err := h.ledger.Balance(r.Context(), p)
	if err != nil {
		h.fail(w, r, "balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *LedgerHandler) handleConverted(w http.ResponseWriter, r *http.Request) {
	principal, err := domain.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		h.fail(w, r, "converted_balance", err)
		return
	}
	v, err := h.ledger.ConvertedBalance(r.Context(), principal)
	if err != nil {
		h.fail(w, r, "converted_balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *LedgerHandler) handleAccumulator(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.Accumulator(r.Context())
	if err != nil {
		h.fail(w, r, "accumulator", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: a})
}

func (h *LedgerHandler) handleTotalConverted(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.TotalConverted(r.Context())
	if err != nil {
		h.fail(w, r, "total_converted", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: a})
}

func (h *LedgerHandler) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.ledger.Config(r.Context())
	if err != nil {
		h.fail(w, r, "config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *LedgerHandler) handlePrice(w http.ResponseWriter, r *http.Request) {
	rt, err := h.ledger.Price(r.Context())
	if err != nil {
		h.fail(w, r, "price", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, setPriceRequest{USDPerBTC: uint64(rt)})
}

func (h *LedgerHandler) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	cfg, ok := httputil.DecodeAndPrepare[yieldledger.Config](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.ledger.SetConfig(ctx, caller, *cfg); err != nil {
		h.fail(w, r, "set_config", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[setPriceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.ledger.SetPrice(ctx, caller, pricing.Rate(req.USDPerBTC)); err != nil {
		h.fail(w, r, "set_price", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) handleRotateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[rotateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	next, err := domain.ParsePrincipal(req.Next)
	if err != nil {
		h.fail(w, r, "rotate_admin", err)
		return
	}
	if err := h.ledger.RotateAdmin(ctx, caller, next); err != nil {
		h.fail(w, r, "rotate_admin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) handleRequestSkim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[skimRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	var recipient domain.Principal
	if req.Recipient != "" {
		var err error
		if recipient, err = domain.ParsePrincipal(req.Recipient); err != nil {
			h.fail(w, r, "request_skim", err)
			return
		}
	}
	env, err := h.ledger.RequestSkim(ctx, caller, recipient)
	if err != nil {
		h.fail(w, r, "request_skim", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, env)
}
