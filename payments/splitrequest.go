package payments

import (
	"fmt"

	"github.com/alovak/paymentflow/amounts"
)

// SplitRequest tracks the division of one payment into sub-transactions.
// It is created when the split stage is entered and lives until the owning
// payment flow terminates. Transactions accumulate monotonically, one per
// completed split leg; history is never edited, which makes the ledger safe
// to read from any stage without locking.
type SplitRequest struct {
	SourcePayment Payment         `json:"source_payment"`
	TotalAmounts  amounts.Amounts `json:"total_amounts"`
	Transactions  []*Transaction  `json:"transactions,omitempty"`
}

// NewSplitRequest returns a SplitRequest for the given payment.
func NewSplitRequest(p Payment) *SplitRequest {
	return &SplitRequest{
		SourcePayment: p,
		TotalAmounts:  p.Amounts,
	}
}

// AddTransaction appends a completed split leg. A leg requested in a
// different currency than the split total is rejected before committing.
func (s *SplitRequest) AddTransaction(t *Transaction) error {
	if t.RequestedAmounts.Currency != s.TotalAmounts.Currency {
		return fmt.Errorf("leg requested %s against %s split: %w",
			t.RequestedAmounts.Currency, s.TotalAmounts.Currency, amounts.ErrCurrencyMismatch)
	}
	s.Transactions = append(s.Transactions, t)
	return nil
}

// IsFirstSplit reports whether no split leg has executed yet.
func (s *SplitRequest) IsFirstSplit() bool {
	return len(s.Transactions) == 0
}

// ProcessedAmounts sums the processed amounts over all transactions.
func (s *SplitRequest) ProcessedAmounts() amounts.Amounts {
	processed := amounts.New(0, s.TotalAmounts.Currency)
	for _, t := range s.Transactions {
		sum, err := amounts.Add(processed, t.ProcessedAmounts())
		if err != nil {
			continue
		}
		processed = sum
	}
	return processed
}

// RemainingAmounts returns the total amounts minus everything processed so
// far, each component floor-clamped at zero.
func (s *SplitRequest) RemainingAmounts() amounts.Amounts {
	remaining, err := amounts.Subtract(s.TotalAmounts, s.ProcessedAmounts())
	if err != nil {
		return s.TotalAmounts
	}
	return remaining
}

// LastTransaction returns the most recent split leg, nil when none exist.
func (s *SplitRequest) LastTransaction() *Transaction {
	if len(s.Transactions) == 0 {
		return nil
	}
	return s.Transactions[len(s.Transactions)-1]
}
