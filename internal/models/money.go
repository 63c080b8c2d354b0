package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
)

// Money is an amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Code
}

// NewMoney is a convenience constructor.
func NewMoney(amount decimal.Decimal, code currency.Code) Money {
	return Money{Amount: amount, Currency: code}
}

// String formats the amount with two decimals, e.g. "USD 12.50".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(2))
}
