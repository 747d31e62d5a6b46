package domain

import "github.com/shopspring/decimal"

// AllocationPart records how much of a single item an allocation consumes.
type AllocationPart struct {
	ItemID string
	// Amount is the currency value consumed from the item.
	Amount decimal.Decimal
	// Fraction is Amount divided by the item's value, capped at 1.
	Fraction decimal.Decimal
}

// Allocation is the result of covering a target amount from an inventory
// snapshot. Remaining is nonzero when the inventory was insufficient.
type Allocation struct {
	Parts     []AllocationPart
	Remaining decimal.Decimal
}

// Total returns the sum of consumed amounts.
func (a *Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Parts {
		total = total.Add(a.Parts[i].Amount)
	}
	return RoundCurrency(total)
}

// Covered reports whether the target was fully covered. Remainders below
// currency epsilon count as covered.
func (a *Allocation) Covered() bool {
	return a.Remaining.LessThan(CurrencyEpsilon)
}
