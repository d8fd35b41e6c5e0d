// Package types provides the value types shared across Depot.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Money is a monetary value in the smallest currency unit (paise for INR).
// Arithmetic is integer-only.
//
//	INR(245000)   = ₹2450.00
//	Rupees(1150)  = ₹1150.00
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit
	Currency string `json:"currency"` // ISO 4217 lowercase
}

// DefaultCurrency is the currency Depot prices in unless configured otherwise.
const DefaultCurrency = "inr"

// INR creates a Money value in Indian Rupees from paise.
func INR(paise int64) Money { return Money{Amount: paise, Currency: "inr"} }

// Rupees creates a Money value from whole rupees.
func Rupees(r int64) Money { return INR(r * 100) }

// Major creates a Money value from whole major units of currency.
func Major(units int64, currency string) Money {
	currency = strings.ToLower(currency)
	return Money{Amount: units * unitDivisor(currency), Currency: currency}
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal reports whether both values have the same amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// GreaterThan panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount > other.Amount
}

// FormatMajor returns the major unit string without symbol: "2450.00".
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return strconv.FormatInt(m.Amount, 10)
	}

	divisor := unitDivisor(m.Currency)
	abs := m.Amount
	sign := ""
	if abs < 0 {
		abs = -abs
		sign = "-"
	}

	format := fmt.Sprintf("%%s%%d.%%0%dd", decimals)
	return fmt.Sprintf(format, sign, abs/divisor, abs%divisor)
}

// FormatPlain drops the fractional part when it is zero: "2450" rather than
// "2450.00". This is the form amounts take in a customer's payment history.
func (m Money) FormatPlain() string {
	divisor := unitDivisor(m.Currency)
	if m.Amount%divisor == 0 {
		return strconv.FormatInt(m.Amount/divisor, 10)
	}
	return m.FormatMajor()
}

// String returns a human-readable string with currency symbol: "₹2450.00".
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// ParseMajor parses a decimal major-unit string ("2450", "2450.5") into Money.
func ParseMajor(s, currency string) (Money, error) {
	currency = strings.ToLower(currency)
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("money: parse %q: empty amount", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}

	amount := units * unitDivisor(currency)
	if hasFrac {
		decimals := currencyDecimals(currency)
		if len(frac) > decimals {
			return Money{}, fmt.Errorf("money: parse %q: too many decimal places", s)
		}
		frac += strings.Repeat("0", decimals-len(frac))
		minor, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
		}
		if strings.HasPrefix(whole, "-") {
			minor = -minor
		}
		amount += minor
	}

	return Money{Amount: amount, Currency: currency}, nil
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. The display field is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = raw.Amount
	m.Currency = strings.ToLower(raw.Currency)
	return nil
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

func currencySymbol(currency string) string {
	symbols := map[string]string{
		"inr": "₹",
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"npr": "Rs ",
		"lkr": "Rs ",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

func currencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "vnd", "idr":
		return 0
	}
	return 2
}

func unitDivisor(currency string) int64 {
	d := int64(1)
	for i := 0; i < currencyDecimals(currency); i++ {
		d *= 10
	}
	return d
}

// Sum adds the values, which must share one currency. An empty call returns
// zero in DefaultCurrency.
func Sum(values ...Money) Money {
	if len(values) == 0 {
		return Zero(DefaultCurrency)
	}

	result := values[0]
	for _, v := range values[1:] {
		result = result.Add(v)
	}
	return result
}
