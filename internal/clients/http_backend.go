package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trovapay/trova/internal/domain"
	"github.com/trovapay/trova/pkg/retrier"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = 500 * time.Millisecond
)

// HTTPBackend is the real Backend implementation over the trova HTTP API.
type HTTPBackend struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewHTTPBackend creates a client for the backend at baseURL. Every request
// carries a finite timeout; a submission that times out is reported as a
// failure, never left in flight.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retrier: retrier.New(
			retrier.WithMaxRetries(defaultMaxRetries),
			retrier.WithInitialInterval(defaultRetryDelay),
		),
	}
}

// submitTradeRequest mirrors the POST /api/trades body. The client-generated
// trade id is included so the backend can dedupe resubmissions explicitly.
type submitTradeRequest struct {
	TradeID        string             `json:"trade_id"`
	PayerID        string             `json:"payer_id"`
	PayeeID        string             `json:"payee_id"`
	Items          []domain.TradeItem `json:"items"`
	TotalValue     decimal.Decimal    `json:"total_value"`
	PayerSignature string             `json:"payer_signature"`
	PayeeSignature string             `json:"payee_signature"`
}

// SubmitTrade posts the trade to the backend. Transient transport errors
// are retried within the call; the final error is the caller's signal to
// mark the trade failed.
func (b *HTTPBackend) SubmitTrade(ctx context.Context, trade domain.Trade) error {
	body := submitTradeRequest{
		TradeID:        trade.ID,
		PayerID:        trade.Payer.ID,
		PayeeID:        trade.Payee.ID,
		Items:          trade.Items,
		TotalValue:     trade.TotalValue,
		PayerSignature: trade.PayerSignature,
		PayeeSignature: trade.PayeeSignature,
	}

	return b.retrier.Do(ctx, func(ctx context.Context) error {
		err := b.post(ctx, "/api/trades", body, nil)
		if errors.Is(err, ErrRejected) {
			// the backend refused the trade itself, resubmitting the same
			// request cannot succeed
			return retrier.Permanent(err)
		}
		return err
	})
}

// FetchItems loads the authoritative inventory of ownerID.
func (b *HTTPBackend) FetchItems(ctx context.Context, ownerID string) ([]domain.Item, error) {
	var items []domain.Item
	err := b.get(ctx, "/api/items/user/"+ownerID, &items)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch items for %s", ownerID)
	}
	return items, nil
}

type userRequest struct {
	Username string `json:"username"`
	PinHash  string `json:"pin_hash"`
}

type userResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// RegisterUser creates a backend account bound to the hashed PIN.
func (b *HTTPBackend) RegisterUser(ctx context.Context, username, pinHash string) (domain.Party, error) {
	var resp userResponse
	if err := b.post(ctx, "/api/users/register", userRequest{Username: username, PinHash: pinHash}, &resp); err != nil {
		return domain.Party{}, errors.Wrap(err, "register user")
	}
	return domain.Party{ID: resp.UserID, Name: resp.Username}, nil
}

// Login authenticates against the backend and returns the party identity.
func (b *HTTPBackend) Login(ctx context.Context, username, pinHash string) (domain.Party, error) {
	var resp userResponse
	if err := b.post(ctx, "/api/users/login", userRequest{Username: username, PinHash: pinHash}, &resp); err != nil {
		return domain.Party{}, errors.Wrap(err, "login")
	}
	return domain.Party{ID: resp.UserID, Name: resp.Username}, nil
}

type valuationResponse struct {
	Value decimal.Decimal `json:"value"`
}

// RequestValuation asks the backend for a value estimate of a described item.
func (b *HTTPBackend) RequestValuation(ctx context.Context, req ValuationRequest) (decimal.Decimal, error) {
	var resp valuationResponse
	if err := b.post(ctx, "/api/valuations/mock", req, &resp); err != nil {
		return decimal.Zero, errors.Wrap(err, "request valuation")
	}
	return domain.RoundCurrency(resp.Value), nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do(req, out)
}

func (b *HTTPBackend) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	return b.do(req, out)
}

func (b *HTTPBackend) do(req *http.Request, out any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return errors.Wrapf(ErrRejected, "%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(raw))
		}
		return fmt.Errorf("%s %s: unexpected status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}

func truncate(raw []byte) string {
	const limit = 256
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
