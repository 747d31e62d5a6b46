package clients

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trovapay/trova/internal/domain"
)

// FakeBackend is the in-memory Backend used by tests and the mock run
// mode. It reproduces the remote ledger's observable behavior: submissions
// are idempotent on trade id and an accepted trade transfers item
// ownership.
type FakeBackend struct {
	mu       sync.Mutex
	items    map[string]domain.Item
	users    map[string]domain.Party // by username
	accepted map[string]struct{}     // trade ids already applied

	// FailTrade, when set, is consulted per submission; returning an error
	// simulates a backend/network failure for that trade.
	FailTrade func(trade domain.Trade) error
}

// NewFakeBackend creates an empty fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		items:    make(map[string]domain.Item),
		users:    make(map[string]domain.Party),
		accepted: make(map[string]struct{}),
	}
}

// SeedItems loads items into the fake backend's state.
func (f *FakeBackend) SeedItems(items ...domain.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.items[item.ID] = item
	}
}

// AcceptedCount returns how many distinct trades were applied.
func (f *FakeBackend) AcceptedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accepted)
}

// SubmitTrade applies the trade's ownership transfer exactly once per trade
// id. A resubmission of an accepted id succeeds without double-applying.
func (f *FakeBackend) SubmitTrade(ctx context.Context, trade domain.Trade) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, done := f.accepted[trade.ID]; done {
		return nil
	}

	if f.FailTrade != nil {
		if err := f.FailTrade(trade); err != nil {
			return err
		}
	}

	for _, ti := range trade.Items {
		item, ok := f.items[ti.ItemID]
		if !ok {
			return errors.Wrapf(ErrRejected, "unknown item %s", ti.ItemID)
		}

		if ti.SharePct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			item.OwnerID = ti.NewOwner
			f.items[ti.ItemID] = item
			continue
		}

		// partial transfer: shrink the source record, credit the payee
		// with a counterpart entry
		transferred := domain.RoundCurrency(ti.Value)
		item.Value = domain.RoundCurrency(item.Value.Sub(transferred))
		item.ShareRatio = item.ShareRatio.Mul(decimal.NewFromInt(1).Sub(ti.SharePct))
		f.items[ti.ItemID] = item

		counterpart := domain.Item{
			ID:         ti.ItemID + ":" + trade.ID,
			OwnerID:    ti.NewOwner,
			Label:      ti.ItemName,
			Value:      transferred,
			ShareRatio: ti.SharePct,
		}
		f.items[counterpart.ID] = counterpart
	}

	f.accepted[trade.ID] = struct{}{}
	return nil
}

// FetchItems returns the items owned by ownerID.
func (f *FakeBackend) FetchItems(ctx context.Context, ownerID string) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var owned []domain.Item
	for _, item := range f.items {
		if item.OwnerID == ownerID {
			owned = append(owned, item)
		}
	}
	return owned, nil
}

// RegisterUser creates a user keyed by username.
func (f *FakeBackend) RegisterUser(ctx context.Context, username, pinHash string) (domain.Party, error) {
	if err := ctx.Err(); err != nil {
		return domain.Party{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.users[username]; exists {
		return domain.Party{}, errors.Wrapf(ErrRejected, "username %s taken", username)
	}

	party := domain.Party{ID: uuid.New().String(), Name: username}
	f.users[username] = party
	return party, nil
}

// Login returns the registered party for username.
func (f *FakeBackend) Login(ctx context.Context, username, pinHash string) (domain.Party, error) {
	if err := ctx.Err(); err != nil {
		return domain.Party{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	party, ok := f.users[username]
	if !ok {
		return domain.Party{}, errors.Wrap(ErrRejected, "invalid credentials")
	}
	return party, nil
}

// fakeValuations mirrors the valuation table of the mock backend service.
var fakeValuations = map[string]map[string]float64{
	"clothing": {
		"_base":     25,
		"nike":      45,
		"adidas":    40,
		"patagonia": 80,
	},
	"electronics": {
		"_base": 120,
		"apple": 350,
		"sony":  180,
	},
	"accessories": {
		"_base":  30,
		"fossil": 60,
	},
}

var conditionMultipliers = map[string]float64{
	"new":      1.0,
	"like_new": 0.85,
	"good":     0.65,
	"fair":     0.4,
	"worn":     0.25,
}

// MockValuation estimates an item's value from the static table. Shared by
// the fake backend and the dev backend server.
func MockValuation(req ValuationRequest) (decimal.Decimal, error) {
	brands, ok := fakeValuations[strings.ToLower(req.Category)]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrRejected, "unknown category %s", req.Category)
	}

	base, ok := brands[strings.ToLower(req.Brand)]
	if !ok {
		base = brands["_base"]
	}

	mult, ok := conditionMultipliers[strings.ToLower(req.Condition)]
	if !ok {
		mult = conditionMultipliers["good"]
	}

	return domain.RoundCurrency(decimal.NewFromFloat(base * mult)), nil
}

// RequestValuation estimates an item's value from the static table.
func (f *FakeBackend) RequestValuation(ctx context.Context, req ValuationRequest) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return MockValuation(req)
}
