package money

import (
	"encoding/json"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestMoneyJSON(t *testing.T) {
	m := New(1050, "EUR")

	data, err := json.Marshal(m)
	check.Nil(t, err)
	check.Equal(t, `{"amount":1050,"currency":"EUR"}`, string(data))

	var back Money
	check.Nil(t, json.Unmarshal(data, &back))
	check.Equal(t, m, back)
}

func TestMoneyString(t *testing.T) {
	check.Equal(t, "10.50 EUR", New(1050, "EUR").String())
	check.Equal(t, "0.99 EUR", New(99, "EUR").String())
	check.Equal(t, "0.00 EUR", New(0, "EUR").String())
}

func TestMoneyUnits(t *testing.T) {
	check.Equal(t, "16.50", New(1650, "EUR").Units().StringFixed(2))
	check.True(t, Money{}.IsZero())
	check.False(t, New(0, "EUR").IsZero())
	check.False(t, New(1, "EUR").IsZero())
}
