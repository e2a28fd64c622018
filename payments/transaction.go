package payments

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/basket"
)

// Outcome is the result of one transaction response.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeDeclined Outcome = "DECLINED"
	OutcomeFailed   Outcome = "FAILED"
)

// TransactionResponse is one result delivered for a transaction. A
// transaction can collect several of these over its lifetime (partial
// approvals, retries).
type TransactionResponse struct {
	ID               string            `json:"id"`
	Outcome          Outcome           `json:"outcome"`
	Method           string            `json:"method,omitempty"`
	AmountsProcessed amounts.Amounts   `json:"amounts_processed"`
	References       map[string]string `json:"references,omitempty"`
}

// NewApprovedResponse returns an APPROVED response for the given processed
// amounts and payment method.
func NewApprovedResponse(processed amounts.Amounts, method string) TransactionResponse {
	return TransactionResponse{
		ID:               uuid.New().String(),
		Outcome:          OutcomeApproved,
		Method:           method,
		AmountsProcessed: processed,
	}
}

// Transaction is one attempt to collect all or part of a payment's amount.
// Responses only ever accumulate; processed and remaining amounts are
// derived fresh from the response list so the two can never diverge.
type Transaction struct {
	ID               string                `json:"id"`
	RequestedAmounts amounts.Amounts       `json:"requested_amounts"`
	Baskets          []basket.Basket       `json:"baskets,omitempty"`
	Responses        []TransactionResponse `json:"responses,omitempty"`
}

// NewTransaction returns a Transaction for the requested amounts and the
// baskets associated with this attempt.
func NewTransaction(requested amounts.Amounts, baskets ...basket.Basket) *Transaction {
	return &Transaction{
		ID:               uuid.New().String(),
		RequestedAmounts: requested,
		Baskets:          baskets,
	}
}

// AddResponse appends a response. Prior responses are never replaced. A
// response whose processed amounts are in a different currency than the
// requested amounts is rejected before anything is committed, so the ledger
// never carries money it cannot reconcile.
func (t *Transaction) AddResponse(r TransactionResponse) error {
	if r.AmountsProcessed.Currency != t.RequestedAmounts.Currency {
		return fmt.Errorf("response processed %s against %s transaction: %w",
			r.AmountsProcessed.Currency, t.RequestedAmounts.Currency, amounts.ErrCurrencyMismatch)
	}
	t.Responses = append(t.Responses, r)
	return nil
}

// ProcessedAmounts sums the processed amounts of all APPROVED responses.
func (t *Transaction) ProcessedAmounts() amounts.Amounts {
	processed := amounts.New(0, t.RequestedAmounts.Currency)
	for _, r := range t.Responses {
		if r.Outcome != OutcomeApproved {
			continue
		}
		sum, err := amounts.Add(processed, r.AmountsProcessed)
		if err != nil {
			continue
		}
		processed = sum
	}
	return processed
}

// RemainingAmounts returns requested minus processed, each component
// floor-clamped at zero.
func (t *Transaction) RemainingAmounts() amounts.Amounts {
	remaining, err := amounts.Subtract(t.RequestedAmounts, t.ProcessedAmounts())
	if err != nil {
		return t.RequestedAmounts
	}
	return remaining
}

// FullySatisfied reports whether the approved responses cover the full
// requested amount.
func (t *Transaction) FullySatisfied() bool {
	return t.RemainingAmounts().IsZero() && !t.RequestedAmounts.IsZero()
}
