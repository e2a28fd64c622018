// Package split assists a split-capable participant in carving the next
// sub-payment out of what remains of a payment, by amount or by basket,
// without re-charging items already paid for by earlier split legs.
package split

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/basket"
	"github.com/alovak/paymentflow/payments"
)

var ErrUnsupportedOperation = fmt.Errorf("unsupported operation")

// BasketHelper reconciles the source basket of a split payment against the
// legs executed so far. The remaining basket starts as the full source
// basket and loses the items of every fully satisfied prior leg; the next
// split basket collects what the current leg intends to charge.
type BasketHelper struct {
	request    *payments.SplitRequest
	remaining  *basket.Basket
	nextSplit  *basket.Basket
	retainZero bool
}

// NewBasketHelperFromSplitRequest builds a helper for the given split
// request. The payment must carry a basket. With retainZeroQuantity, lines
// fully paid by earlier legs stay in the remaining basket at quantity zero
// so a payer-facing surface can still show them.
func NewBasketHelperFromSplitRequest(req *payments.SplitRequest, retainZeroQuantity bool) (*BasketHelper, error) {
	source := req.SourcePayment.Basket
	if source == nil || len(source.Items) == 0 {
		return nil, fmt.Errorf("split payment has no basket: %w", ErrUnsupportedOperation)
	}

	remaining := source.Clone()
	for _, t := range req.Transactions {
		// TODO: what if a leg is only partially fulfilled - for now it is
		// skipped entirely and its items count as unpaid.
		if !t.FullySatisfied() {
			continue
		}
		for _, b := range t.Baskets {
			for _, item := range b.Items {
				remaining.RemoveItems(item, retainZeroQuantity)
			}
		}
	}

	return &BasketHelper{
		request:    req,
		remaining:  remaining,
		nextSplit:  &basket.Basket{ID: uuid.New().String()},
		retainZero: retainZeroQuantity,
	}, nil
}

// TransferItemsToNextSplit moves unit quantities from the remaining basket
// into the next split basket. Transfers clamp to what is actually left of
// each line; the line always stays in the remaining basket, possibly at
// quantity zero, so the shape of the original basket stays auditable.
func (h *BasketHelper) TransferItemsToNextSplit(items ...basket.Item) error {
	for _, item := range items {
		current, ok := h.remaining.ItemByID(item.ID)
		if !ok {
			continue
		}
		units := item.Quantity
		if units > current.Quantity {
			units = current.Quantity
		}
		if units <= 0 {
			continue
		}
		h.remaining.RemoveItems(item.WithQuantity(units), true)
		if err := h.nextSplit.AddItems(current.WithQuantity(units)); err != nil {
			return fmt.Errorf("transferring %q to next split: %w", item.Label, err)
		}
	}
	return nil
}

// RemainingBasket returns the basket of items not yet paid for.
func (h *BasketHelper) RemainingBasket() *basket.Basket {
	return h.remaining
}

// NextSplitBasket returns the basket accumulated for the current leg.
func (h *BasketHelper) NextSplitBasket() *basket.Basket {
	return h.nextSplit
}

// NextSplitAmounts returns the amounts the next split basket is worth.
func (h *BasketHelper) NextSplitAmounts() amounts.Amounts {
	currency := h.nextSplit.Currency()
	if currency == "" {
		currency = h.request.TotalAmounts.Currency
	}
	return amounts.New(h.nextSplit.TotalValue(), currency)
}

// ClampToRemaining carves a next sub-payment by amount rather than by
// basket: the requested amounts are reduced component-wise so the leg can
// never charge more than what remains of the split request.
func ClampToRemaining(req *payments.SplitRequest, requested amounts.Amounts) (amounts.Amounts, error) {
	remaining := req.RemainingAmounts()
	if requested.Currency != remaining.Currency {
		return amounts.Amounts{}, fmt.Errorf("requesting %s from %s split: %w",
			requested.Currency, remaining.Currency, amounts.ErrCurrencyMismatch)
	}

	m := amounts.ModifierFrom(requested)
	if requested.BaseAmount > remaining.BaseAmount {
		m.UpdateBaseAmount(remaining.BaseAmount)
	}
	for name, v := range requested.AdditionalAmounts {
		if max := remaining.Additional(name); v > max {
			if err := m.SetAdditionalAmount(name, max, true); err != nil {
				return amounts.Amounts{}, err
			}
		}
	}
	return m.Build(), nil
}
