package domain

import "github.com/shopspring/decimal"

// CurrencyPrecision is the number of decimal places carried by all
// monetary amounts.
const CurrencyPrecision = 2

// CurrencyEpsilon is the smallest representable monetary amount. Residuals
// below it are treated as zero.
var CurrencyEpsilon = decimal.New(1, -CurrencyPrecision)

// RoundCurrency rounds an amount to currency precision, half away from zero.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPrecision)
}
