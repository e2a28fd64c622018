package basket

import "github.com/google/uuid"

// SplitInHalf divides the basket into two by unit count. Walking lines in
// display order, the first basket receives exactly totalUnits/2 units
// (rounded down); a multi-unit line crossing the boundary is split across
// the two baskets. The walk is order-stable, so identical input always
// produces the same division.
func (b *Basket) SplitInHalf() (*Basket, *Basket) {
	first := &Basket{ID: uuid.New().String()}
	second := &Basket{ID: uuid.New().String()}

	target := b.TotalUnits() / 2
	taken := 0
	for _, item := range b.Items {
		if item.Quantity == 0 {
			continue
		}
		toFirst := item.Quantity
		if taken+toFirst > target {
			toFirst = target - taken
		}
		if toFirst > 0 {
			first.Items = append(first.Items, item.WithQuantity(toFirst))
			taken += toFirst
		}
		if rest := item.Quantity - toFirst; rest > 0 {
			second.Items = append(second.Items, item.WithQuantity(rest))
		}
	}

	return first, second
}
