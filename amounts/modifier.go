package amounts

import (
	"fmt"
	"math"
)

var ErrInvalidReduction = fmt.Errorf("would reduce amount")

// Modifier builds a derived Amounts value. Updates that would make an
// amount negative are ignored rather than rejected; reducing an existing
// additional amount requires an explicit flag. Currency only ever changes
// through ChangeCurrency.
type Modifier struct {
	base             int64
	additional       map[string]int64
	currency         string
	originalCurrency string
	exchangeRate     float64
}

// NewModifier returns a Modifier starting from a zero amount in the given
// currency.
func NewModifier(currency string) *Modifier {
	return &Modifier{
		additional: make(map[string]int64),
		currency:   currency,
	}
}

// ModifierFrom returns a Modifier seeded with a copy of the given Amounts.
func ModifierFrom(a Amounts) *Modifier {
	m := &Modifier{
		base:             a.BaseAmount,
		additional:       make(map[string]int64, len(a.AdditionalAmounts)),
		currency:         a.Currency,
		originalCurrency: a.OriginalCurrency,
		exchangeRate:     a.ExchangeRate,
	}
	for k, v := range a.AdditionalAmounts {
		m.additional[k] = v
	}
	return m
}

// UpdateBaseAmount replaces the base amount. Negative values are ignored.
func (m *Modifier) UpdateBaseAmount(newBase int64) *Modifier {
	if newBase >= 0 {
		m.base = newBase
	}
	return m
}

// OffsetBaseAmount adds delta (which may be negative) to the base amount,
// floor-clamping the result at zero.
func (m *Modifier) OffsetBaseAmount(delta int64) *Modifier {
	m.base += delta
	if m.base < 0 {
		m.base = 0
	}
	return m
}

// SetAdditionalAmount sets a named additional amount. Negative values are
// ignored. Replacing an existing amount with a smaller one fails unless
// allowReduction is set.
func (m *Modifier) SetAdditionalAmount(name string, value int64, allowReduction bool) error {
	if value < 0 {
		return nil
	}
	if existing, ok := m.additional[name]; ok && value < existing && !allowReduction {
		return fmt.Errorf("setting %s to %d from %d: %w", name, value, existing, ErrInvalidReduction)
	}
	m.additional[name] = value
	return nil
}

// ChangeCurrency converts every component to newCurrency by multiplying it
// with rate, rounding half-up to the nearest minor unit. The original
// currency is recorded on the first conversion only.
func (m *Modifier) ChangeCurrency(newCurrency string, rate float64) *Modifier {
	if m.originalCurrency == "" {
		m.originalCurrency = m.currency
	}
	m.base = convert(m.base, rate)
	for name, v := range m.additional {
		m.additional[name] = convert(v, rate)
	}
	m.currency = newCurrency
	m.exchangeRate = rate
	return m
}

// Build returns an immutable snapshot of the current state. The Modifier
// remains usable afterwards.
func (m *Modifier) Build() Amounts {
	out := Amounts{
		BaseAmount:       m.base,
		Currency:         m.currency,
		OriginalCurrency: m.originalCurrency,
		ExchangeRate:     m.exchangeRate,
	}
	if len(m.additional) > 0 {
		out.AdditionalAmounts = make(map[string]int64, len(m.additional))
		for k, v := range m.additional {
			out.AdditionalAmounts[k] = v
		}
	}
	return out
}

func convert(v int64, rate float64) int64 {
	return int64(math.Floor(float64(v)*rate + 0.5))
}
