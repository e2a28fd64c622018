package basket

import (
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrCurrencyMismatch = fmt.Errorf("currency mismatch")
	ErrNegativeQuantity = fmt.Errorf("negative quantity")
)

// Item is one line of a basket. Identity is the ID: two items with the same
// ID represent the same logical line, and quantity is the unit of
// reconciliation. Amount is the unit price in minor units.
type Item struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

// NewItem returns an Item with a generated id.
func NewItem(label string, amount int64, currency string, quantity int) Item {
	return Item{
		ID:       uuid.New().String(),
		Label:    label,
		Amount:   amount,
		Currency: currency,
		Quantity: quantity,
	}
}

// TotalValue returns unit price times quantity.
func (i Item) TotalValue() int64 {
	return i.Amount * int64(i.Quantity)
}

// WithQuantity returns a copy of the item with the given quantity.
func (i Item) WithQuantity(quantity int) Item {
	i.Quantity = quantity
	return i
}

// Basket is an ordered sequence of items. Slice order is display order.
type Basket struct {
	ID    string `json:"id"`
	Items []Item `json:"items"`
}

// New returns a basket with a generated id containing the given items.
// Items with equal ids are merged.
func New(items ...Item) (*Basket, error) {
	b := &Basket{ID: uuid.New().String()}
	if err := b.AddItems(items...); err != nil {
		return nil, err
	}
	return b, nil
}

// AddItems appends items to the basket. An item whose id matches an
// existing line merges into it by summing quantities. All items in a basket
// must share one currency.
func (b *Basket) AddItems(items ...Item) error {
	for _, item := range items {
		if item.Quantity < 0 {
			return fmt.Errorf("adding %q with quantity %d: %w", item.Label, item.Quantity, ErrNegativeQuantity)
		}
		if len(b.Items) > 0 && item.Currency != b.Items[0].Currency {
			return fmt.Errorf("adding %q in %s to basket in %s: %w",
				item.Label, item.Currency, b.Items[0].Currency, ErrCurrencyMismatch)
		}
		if idx := b.indexOf(item.ID); idx >= 0 {
			b.Items[idx].Quantity += item.Quantity
		} else {
			b.Items = append(b.Items, item)
		}
	}
	return nil
}

// AddOneOf adds a single unit of the given item.
func (b *Basket) AddOneOf(item Item) error {
	return b.AddItems(item.WithQuantity(1))
}

// RemoveOneOf removes a single unit of the given item. With retainIfZero a
// line that reaches zero stays in the basket as a zero-quantity placeholder,
// otherwise it is deleted.
func (b *Basket) RemoveOneOf(item Item, retainIfZero bool) {
	b.RemoveItems(item.WithQuantity(1), retainIfZero)
}

// RemoveItems removes up to item.Quantity units of the matching line.
// Removing more units than present clamps the line at zero; a removal with
// a negative quantity is a bad request and removes nothing.
func (b *Basket) RemoveItems(item Item, retainIfZero bool) {
	if item.Quantity < 0 {
		return
	}
	idx := b.indexOf(item.ID)
	if idx < 0 {
		return
	}
	b.Items[idx].Quantity -= item.Quantity
	if b.Items[idx].Quantity > 0 {
		return
	}
	b.Items[idx].Quantity = 0
	if !retainIfZero {
		b.Items = append(b.Items[:idx], b.Items[idx+1:]...)
	}
}

// ItemByID returns the line with the given id.
func (b *Basket) ItemByID(id string) (Item, bool) {
	if idx := b.indexOf(id); idx >= 0 {
		return b.Items[idx], true
	}
	return Item{}, false
}

// TotalValue returns the sum of unit price times quantity over all lines.
func (b *Basket) TotalValue() int64 {
	var total int64
	for _, item := range b.Items {
		total += item.TotalValue()
	}
	return total
}

// TotalUnits returns the total unit count over all lines.
func (b *Basket) TotalUnits() int {
	var units int
	for _, item := range b.Items {
		units += item.Quantity
	}
	return units
}

// HasItems reports whether any line has a non-zero quantity.
func (b *Basket) HasItems() bool {
	for _, item := range b.Items {
		if item.Quantity > 0 {
			return true
		}
	}
	return false
}

// Currency returns the currency of the basket, empty for an empty basket.
func (b *Basket) Currency() string {
	if len(b.Items) == 0 {
		return ""
	}
	return b.Items[0].Currency
}

// Clone returns a deep copy of the basket with the same id.
func (b *Basket) Clone() *Basket {
	out := &Basket{ID: b.ID, Items: make([]Item, len(b.Items))}
	copy(out.Items, b.Items)
	return out
}

func (b *Basket) indexOf(id string) int {
	for i, item := range b.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
