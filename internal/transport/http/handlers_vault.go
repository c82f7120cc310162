package httptransport

//go:generate mockgen -source=handlers_vault.go -destination=mocks/vault-mocks.go -package=mocks VaultService

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skimvault/internal/bridge"
	"skimvault/internal/vault"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/httputil"
	"skimvault/pkg/requestcontext"
)

// VaultService is the vault as seen by HTTP callers.
type VaultService interface {
	Deposit(ctx context.Context, depositor domain.Address, amount domain.Amount) (vault.Receipt, error)
	SkimYield(ctx context.Context, caller domain.Address) (vault.Receipt, error)
	ExecuteFromRemote(ctx context.Context, caller domain.Address, action bridge.Action) (vault.Receipt, error)
	SetRemoteManager(ctx context.Context, caller, next domain.Address) error
	Config(ctx context.Context) (vault.Config, error)
	Principal(ctx context.Context, addr domain.Address) (domain.Amount, error)
	TotalPrincipal(ctx context.Context) (domain.Amount, error)
	AssetBalance(ctx context.Context) (domain.Amount, error)
	RemoteManager(ctx context.Context) (domain.Address, error)
	ContractVersion(ctx context.Context) (vault.ContractInfo, error)
}

var _ VaultService = (*vault.Service)(nil)

type VaultHandler struct {
	vault  VaultService
	logger *slog.Logger
}

func NewVaultHandler(v VaultService, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{vault: v, logger: logger}
}

// Register mounts the vault routes. r must already require authentication.
func (h *VaultHandler) Register(r chi.Router) {
	r.Route("/vault", func(r chi.Router) {
		r.Post("/deposit", h.handleDeposit)
		r.Post("/skim", h.handleSkim)
		r.Post("/remote", h.handleRemote)
		r.Post("/manager", h.handleSetManager)

		r.Get("/config", h.handleConfig)
		r.Get("/principal/{address}", h.handlePrincipal)
		r.Get("/total-principal", h.handleTotalPrincipal)
		r.Get("/asset-balance", h.handleAssetBalance)
		r.Get("/manager", h.handleManager)
		r.Get("/version", h.handleVersion)
	})
}

// remoteRequest is an action in the same flat form the bridge uses.
type remoteRequest struct {
	ActionTag bridge.ActionTag `json:"action_tag"`
	Recipient string           `json:"recipient,omitempty"`
	Amount    domain.Amount    `json:"amount"`
	Config    json.RawMessage  `json:"config,omitempty"`

	action bridge.Action
}

func (r *remoteRequest) Validate() error {
	a, err := bridge.NewAction(r.ActionTag, r.Recipient, r.Amount, r.Config)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}
	r.action = a
	return nil
}

type managerResponse struct {
	Manager domain.Address `json:"manager"`
}

// caller returns the authenticated identity as a vault address. Malformed
// identities are left to the service, which rejects them.
func (h *VaultHandler) caller(r *http.Request) domain.Address {
	return domain.Address(requestcontext.Caller(r.Context()))
}

func (h *VaultHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	attrs := []any{"operation", op, "request_id", requestcontext.RequestID(ctx), "error", err}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "vault operation failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "vault operation rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func (h *VaultHandler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[amountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rc, err := h.vault.Deposit(ctx, h.caller(r), req.Amount)
	if err != nil {
		h.fail(w, r, "deposit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rc)
}

func (h *VaultHandler) handleSkim(w http.ResponseWriter, r *http.Request) {
	rc, err := h.vault.SkimYield(r.Context(), h.caller(r))
	if err != nil {
		h.fail(w, r, "skim_yield", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rc)
}

func (h *VaultHandler) handleRemote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[remoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rc, err := h.vault.ExecuteFromRemote(ctx, h.caller(r), req.action)
	if err != nil {
		h.fail(w, r, "execute_from_remote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rc)
}

func (h *VaultHandler) handleSetManager(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[rotateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.vault.SetRemoteManager(ctx, h.caller(r), domain.Address(req.Next)); err != nil {
		h.fail(w, r, "set_remote_manager", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VaultHandler) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.vault.Config(r.Context())
	if err != nil {
		h.fail(w, r, "config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *VaultHandler) handlePrincipal(w http.ResponseWriter, r *http.Request) {
	a, err := h.vault.Principal(r.Context(), domain.Address(chi.URLParam(r, "address")))
	if err != nil {
		h.fail(w, r, "principal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: a})
}

func (h *VaultHandler) handleTotalPrincipal(w http.ResponseWriter, r *http.Request) {
	a, err := h.vault.TotalPrincipal(r.Context())
	if err != nil {
		h.fail(w, r, "total_principal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: a})
}

func (h *VaultHandler) handleAssetBalance(w http.ResponseWriter, r *http.Request) {
	a, err := h.vault.AssetBalance(r.Context())
	if err != nil {
		h.fail(w, r, "asset_balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: a})
}

func (h *VaultHandler) handleManager(w http.ResponseWriter, r *http.Request) {
	m, err := h.vault.RemoteManager(r.Context())
	if err != nil {
		h.fail(w, r, "remote_manager", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, managerResponse{Manager: m})
}

func (h *VaultHandler) handleVersion(w http.ResponseWriter, r *http.Request) {
	info, err := h.vault.ContractVersion(r.Context())
	if err != nil {
		h.fail(w, r, "contract_version", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}
