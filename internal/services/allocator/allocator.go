// Package allocator selects which inventory items (and what fraction of
// each) cover a spend amount.
package allocator

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trovapay/trova/internal/domain"
)

// Strategy fixes the order in which items are consumed. The two orders
// exist for different spend flows and are never switched implicitly.
type Strategy string

const (
	// SmallestFirst exhausts low-value items before touching larger ones,
	// so only the last item needed is fragmented. Default spend path.
	SmallestFirst Strategy = "smallest_first"
	// LargestFirst covers the amount with as few items as possible.
	// Used by the merchant quick-pay flow.
	LargestFirst Strategy = "largest_first"
)

// ErrUnknownStrategy is returned for a strategy value outside the two
// supported orders.
var ErrUnknownStrategy = errors.New("unknown allocation strategy")

var one = decimal.NewFromInt(1)

// Allocate covers target from the inventory snapshot, consuming items in
// strategy order. It is pure: the snapshot is not modified, and identical
// inputs yield identical allocations. Items without positive value are
// skipped. A nonzero Remaining means insufficient funds; the caller must
// not settle a partial trade.
func Allocate(inventory []domain.Item, target decimal.Decimal, strategy Strategy) (domain.Allocation, error) {
	if target.IsNegative() {
		return domain.Allocation{}, errors.Errorf("allocation target %s is negative", target)
	}

	candidates := make([]domain.Item, 0, len(inventory))
	for _, item := range inventory {
		if item.Value.IsPositive() {
			candidates = append(candidates, item)
		}
	}

	switch strategy {
	case SmallestFirst:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Value.LessThan(candidates[j].Value)
		})
	case LargestFirst:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Value.GreaterThan(candidates[j].Value)
		})
	default:
		return domain.Allocation{}, errors.Wrapf(ErrUnknownStrategy, "%q", strategy)
	}

	remaining := domain.RoundCurrency(target)
	parts := make([]domain.AllocationPart, 0, len(candidates))

	for _, item := range candidates {
		if !remaining.IsPositive() {
			break
		}

		amount := domain.RoundCurrency(decimal.Min(item.Value, remaining))
		if !amount.IsPositive() {
			continue
		}

		fraction := amount.Div(item.Value)
		if fraction.GreaterThan(one) {
			fraction = one
		}

		parts = append(parts, domain.AllocationPart{
			ItemID:   item.ID,
			Amount:   amount,
			Fraction: fraction,
		})
		remaining = domain.RoundCurrency(remaining.Sub(amount))
	}

	return domain.Allocation{Parts: parts, Remaining: remaining}, nil
}
