package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"skimvault/pkg/domain"
	"skimvault/pkg/platform/circuit"
)

// RouterClient posts swap instructions to an external router over JSON/HTTP.
// A circuit breaker stops calls while the router keeps failing.
type RouterClient struct {
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

var _ Executor = (*RouterClient)(nil)

type RouterOption func(*RouterClient)

func WithHTTPClient(c *http.Client) RouterOption {
	return func(r *RouterClient) { r.client = c }
}

func WithBreaker(b *circuit.Breaker) RouterOption {
	return func(r *RouterClient) { r.breaker = b }
}

func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *RouterClient) { r.logger = logger }
}

func NewRouterClient(baseURL string, timeout time.Duration, opts ...RouterOption) *RouterClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &RouterClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: circuit.New("swap-router"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type routerError struct {
	Error string `json:"error"`
}

func (r *RouterClient) Quote(ctx context.Context, in Instruction) (Quote, error) {
	if err := in.Validate(); err != nil {
		return Quote{}, err
	}
	var q Quote
	if err := r.post(ctx, "/quote", in, &q); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// Execute relies on the router deduplicating by instruction id.
func (r *RouterClient) Execute(ctx context.Context, in Instruction) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	if err := r.post(ctx, "/execute", in, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

type balanceRequest struct {
	Token  string `json:"token"`
	Holder string `json:"holder"`
}

type balanceResponse struct {
	Balance domain.Amount `json:"balance"`
}

// BalanceOf asks the router for holder's balance of token.
func (r *RouterClient) BalanceOf(ctx context.Context, token, holder string) (domain.Amount, error) {
	var out balanceResponse
	if err := r.post(ctx, "/balance", balanceRequest{Token: token, Holder: holder}, &out); err != nil {
		return domain.Amount{}, err
	}
	return out.Balance, nil
}

func (r *RouterClient) post(ctx context.Context, path string, body, out any) error {
	if !r.breaker.Allow() {
		return fmt.Errorf("%w: circuit open", ErrRouterUnavailable)
	}

	err := r.do(ctx, path, body, out)
	if err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "swap router circuit opened", "error", err)
		}
		return err
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "swap router circuit closed")
	}
	return nil
}

func (r *RouterClient) do(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("swap: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("swap: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRouterUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrRouterUnavailable, resp.StatusCode, string(msg))
	}
	if resp.StatusCode >= 300 {
		var rerr routerError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1024)).Decode(&rerr)
		if resp.StatusCode == http.StatusUnprocessableEntity {
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, rerr.Error)
		}
		return fmt.Errorf("%w: HTTP %d: %s", ErrInvalidInstruction, resp.StatusCode, rerr.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("swap: decode response: %w", err)
	}
	return nil
}
