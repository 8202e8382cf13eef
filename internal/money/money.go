package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents) plus an ISO 4217
// currency code. All wire payloads carry amounts in this form.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New returns a Money value for the given minor-unit amount.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// IsZero reports whether the value is the zero Money.
func (m Money) IsZero() bool {
	return m.Amount == 0 && m.Currency == ""
}

// Units returns the amount in major currency units, e.g. 1050 cents -> 10.50.
func (m Money) Units() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(100))
}

// String formats the amount in major units, e.g. "10.50 EUR".
func (m Money) String() string {
	if m.Currency == "" {
		return m.Units().StringFixed(2)
	}
	return fmt.Sprintf("%s %s", m.Units().StringFixed(2), m.Currency)
}
