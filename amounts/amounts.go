package amounts

import (
	"fmt"
)

var ErrCurrencyMismatch = fmt.Errorf("currency mismatch")

// Amounts is a monetary total in a single currency, split into a base
// amount and named additional amounts (tip, tax, cashback, ...). All values
// are in minor units. Once published into a response an Amounts value is
// never mutated; derived values are produced through a Modifier.
type Amounts struct {
	BaseAmount        int64            `json:"base_amount"`
	AdditionalAmounts map[string]int64 `json:"additional_amounts,omitempty"`
	Currency          string           `json:"currency"`
	OriginalCurrency  string           `json:"original_currency,omitempty"`
	ExchangeRate      float64          `json:"exchange_rate,omitempty"`
}

// New returns an Amounts with the given base amount and currency and no
// additional amounts. A negative base is clamped to zero.
func New(baseAmount int64, currency string) Amounts {
	if baseAmount < 0 {
		baseAmount = 0
	}
	return Amounts{
		BaseAmount: baseAmount,
		Currency:   currency,
	}
}

// Total returns the base amount plus all additional amounts.
func (a Amounts) Total() int64 {
	return a.BaseAmount + a.AdditionalTotal()
}

// AdditionalTotal returns the sum of all additional amounts.
func (a Amounts) AdditionalTotal() int64 {
	var total int64
	for _, v := range a.AdditionalAmounts {
		total += v
	}
	return total
}

// Additional returns the named additional amount, zero if not present.
func (a Amounts) Additional(name string) int64 {
	return a.AdditionalAmounts[name]
}

// HasAdditional reports whether the named additional amount is present.
func (a Amounts) HasAdditional(name string) bool {
	_, ok := a.AdditionalAmounts[name]
	return ok
}

// IsZero reports whether the total amount is zero.
func (a Amounts) IsZero() bool {
	return a.Total() == 0
}

func (a Amounts) clone() Amounts {
	out := a
	if a.AdditionalAmounts != nil {
		out.AdditionalAmounts = make(map[string]int64, len(a.AdditionalAmounts))
		for k, v := range a.AdditionalAmounts {
			out.AdditionalAmounts[k] = v
		}
	}
	return out
}

// Add returns a + b component-wise. Both operands must share one currency.
func Add(a, b Amounts) (Amounts, error) {
	if a.Currency != b.Currency {
		return Amounts{}, fmt.Errorf("adding %s to %s: %w", b.Currency, a.Currency, ErrCurrencyMismatch)
	}

	out := a.clone()
	out.BaseAmount += b.BaseAmount
	for name, v := range b.AdditionalAmounts {
		if out.AdditionalAmounts == nil {
			out.AdditionalAmounts = make(map[string]int64, len(b.AdditionalAmounts))
		}
		out.AdditionalAmounts[name] += v
	}

	return out, nil
}

// Subtract returns a - b component-wise, with every component floor-clamped
// at zero. Components present only in b are ignored. Both operands must
// share one currency.
func Subtract(a, b Amounts) (Amounts, error) {
	if a.Currency != b.Currency {
		return Amounts{}, fmt.Errorf("subtracting %s from %s: %w", b.Currency, a.Currency, ErrCurrencyMismatch)
	}

	out := a.clone()
	out.BaseAmount -= b.BaseAmount
	if out.BaseAmount < 0 {
		out.BaseAmount = 0
	}
	for name := range out.AdditionalAmounts {
		v := out.AdditionalAmounts[name] - b.AdditionalAmounts[name]
		if v < 0 {
			v = 0
		}
		out.AdditionalAmounts[name] = v
	}

	return out, nil
}
