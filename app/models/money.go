package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places every posted amount is rounded to.
const MoneyScale = 2

var hundred = decimal.NewFromInt(100)

// Percent returns base * pct / 100 rounded to MoneyScale.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred).Round(MoneyScale)
}
