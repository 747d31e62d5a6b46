package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Item is a unit of value held by a party. ShareRatio tracks what fraction
// of the original unit this entry still represents; freshly deposited items
// start at 1 and shrink as partial transfers carve value out of them.
type Item struct {
	ID         string          `json:"item_id"`
	OwnerID    string          `json:"owner_id"`
	Label      string          `json:"item_name"`
	Value      decimal.Decimal `json:"value"`
	ShareRatio decimal.Decimal `json:"share_ratio"`
}

// NewItem builds a whole item owned by ownerID.
func NewItem(id, ownerID, label string, value decimal.Decimal) (Item, error) {
	item := Item{
		ID:         id,
		OwnerID:    ownerID,
		Label:      label,
		Value:      RoundCurrency(value),
		ShareRatio: decimal.NewFromInt(1),
	}
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Validate checks item invariants.
func (i *Item) Validate() error {
	if i.ID == "" {
		return errors.New("item id is required")
	}
	if i.OwnerID == "" {
		return errors.Errorf("item %s has no owner", i.ID)
	}
	if i.Value.IsNegative() {
		return errors.Errorf("item %s has negative value %s", i.ID, i.Value)
	}
	if i.ShareRatio.LessThanOrEqual(decimal.Zero) || i.ShareRatio.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Errorf("item %s has share ratio %s outside (0,1]", i.ID, i.ShareRatio)
	}
	return nil
}
