package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidRate      = errors.New("money: rate must be between 0 and 10000 basis points")
)

// EUR is the only currency the lodging business bills in.
const EUR = "EUR"

// BasisPointsScale is 100 %.
const BasisPointsScale = 10000

// Money keeps amounts in integer cents so every value is already rounded to two decimals.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs Money validating the currency code.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and defaults.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Euros builds a whole-euro amount.
func Euros(units int64) Money {
	return Money{Amount: units * 100, Currency: EUR}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount * times, Currency: m.Currency}
}

// ApplyRate returns m scaled by bp basis points, rounded half away from zero to the cent.
func (m Money) ApplyRate(bp int64) (Money, error) {
	if bp < 0 || bp > BasisPointsScale {
		return Money{}, ErrInvalidRate
	}
	return Money{Amount: roundDiv(m.Amount*bp, BasisPointsScale), Currency: m.Currency}, nil
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Zero returns a zero amount in the same currency.
func (m Money) Zero() Money {
	return Money{Currency: m.Currency}
}

// String renders the amount with two decimals, e.g. "866.70".
func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

func roundDiv(num, den int64) int64 {
	if num < 0 {
		return -roundDiv(-num, den)
	}
	return (num + den/2) / den
}
