// Package projector applies the optimistic local effect of a settled trade
// to the cached inventory view.
package projector

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trovapay/trova/internal/clients"
	"github.com/trovapay/trova/internal/domain"
	"github.com/trovapay/trova/internal/storage/inventory"
)

// Projector mutates the cached inventory so the UI reflects a trade before
// sync confirms it. The projection is not authoritative: divergence from
// the backend is expected and self-heals on the next refresh.
type Projector struct {
	store *inventory.Store
	l     *zap.Logger
}

// New creates a projector over the cached inventory.
func New(store *inventory.Store, logger *zap.Logger) *Projector {
	return &Projector{store: store, l: logger}
}

var one = decimal.NewFromInt(1)

// ApplyLocally shrinks or removes each traded unit from the payer's view.
// A full-share transfer removes the unit; a partial one writes the residual
// back and credits the payee's view with a counterpart entry.
func (p *Projector) ApplyLocally(trade domain.Trade) error {
	for _, ti := range trade.Items {
		item, err := p.store.Get(ti.ItemID)
		if err != nil {
			if errors.Is(err, inventory.ErrItemNotFound) {
				// the view may have been refreshed out from under an older
				// trade; skip rather than fail settlement bookkeeping
				p.l.Warn("traded item missing from cached view",
					zap.String("item_id", ti.ItemID),
					zap.String("trade_id", trade.ID))
				continue
			}
			return err
		}

		if ti.SharePct.GreaterThanOrEqual(one) {
			p.store.Remove(ti.ItemID)
			continue
		}

		residualValue := domain.RoundCurrency(item.Value.Sub(ti.Value))
		residualRatio := item.ShareRatio.Mul(one.Sub(ti.SharePct))

		if residualValue.LessThan(domain.CurrencyEpsilon) || residualRatio.LessThanOrEqual(decimal.Zero) {
			// nothing of worth remains; drop the record instead of keeping
			// a zero entry
			p.store.Remove(ti.ItemID)
		} else {
			item.Value = residualValue
			item.ShareRatio = residualRatio
			p.store.Upsert(item)
		}

		// cross-account visibility is backend-mediated, but when the payee
		// is also cached locally the counterpart shows up immediately
		p.store.Upsert(domain.Item{
			ID:         ti.ItemID + ":" + trade.ID,
			OwnerID:    ti.NewOwner,
			Label:      ti.ItemName,
			Value:      domain.RoundCurrency(ti.Value),
			ShareRatio: ti.SharePct,
		})
	}

	return nil
}

// RefreshFromBackend replaces the cached view with the authoritative
// inventory of ownerID.
func (p *Projector) RefreshFromBackend(ctx context.Context, backend clients.Backend, ownerID string) error {
	items, err := backend.FetchItems(ctx, ownerID)
	if err != nil {
		return errors.Wrap(err, "refresh inventory")
	}

	p.store.SetAll(items)
	p.l.Info("inventory refreshed", zap.String("owner_id", ownerID), zap.Int("items", len(items)))
	return nil
}
