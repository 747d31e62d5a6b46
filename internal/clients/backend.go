// Package clients talks to the remote trova backend. The core depends only
// on the Backend interface; the HTTP and in-memory implementations are
// selected by configuration.
package clients

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trovapay/trova/internal/domain"
)

// ErrRejected is returned when the backend refuses a request outright
// (4xx). Retrying without changing the request will not help.
var ErrRejected = errors.New("rejected by backend")

// ValuationRequest describes an item for a value estimate.
type ValuationRequest struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Brand       string `json:"brand"`
	Condition   string `json:"condition"`
}

// Backend is the remote ledger contract the client relies on.
//
// SubmitTrade must be idempotent on trade id: a submission may succeed
// remotely while the response is lost, and the next sync pass will submit
// the same trade again.
type Backend interface {
	SubmitTrade(ctx context.Context, trade domain.Trade) error
	FetchItems(ctx context.Context, ownerID string) ([]domain.Item, error)
	RegisterUser(ctx context.Context, username, pinHash string) (domain.Party, error)
	Login(ctx context.Context, username, pinHash string) (domain.Party, error)
	RequestValuation(ctx context.Context, req ValuationRequest) (decimal.Decimal, error)
}
