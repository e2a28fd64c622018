package payments

import (
	"github.com/google/uuid"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/basket"
)

// Payment is the top-level customer transaction request before any
// splitting. Merchant capability identifiers (payment methods, currencies)
// are treated as opaque strings supplied by the config layer.
type Payment struct {
	ID             string            `json:"id"`
	Amounts        amounts.Amounts   `json:"amounts"`
	Basket         *basket.Basket    `json:"basket,omitempty"`
	PaymentMethods []string          `json:"payment_methods,omitempty"`
	CardRequired   bool              `json:"card_required,omitempty"`
	References     map[string]string `json:"references,omitempty"`
}

// NewPayment returns a Payment for the given amounts with a generated id.
func NewPayment(a amounts.Amounts) Payment {
	return Payment{
		ID:      uuid.New().String(),
		Amounts: a,
	}
}

// NewPaymentWithBasket returns a Payment whose amounts are derived from the
// basket total.
func NewPaymentWithBasket(b *basket.Basket) Payment {
	return Payment{
		ID:      uuid.New().String(),
		Amounts: amounts.New(b.TotalValue(), b.Currency()),
		Basket:  b,
	}
}
