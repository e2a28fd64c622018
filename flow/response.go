package flow

import (
	"fmt"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/basket"
)

var ErrInvalidResponse = fmt.Errorf("invalid flow response")

// PaidAmounts declares amounts already collected by the participant through
// a specific payment method.
type PaidAmounts struct {
	Amounts amounts.Amounts `json:"amounts"`
	Method  string          `json:"method"`
}

// BasketModification declares changes to an existing basket of the request.
type BasketModification struct {
	BasketID string        `json:"basket_id"`
	Items    []basket.Item `json:"items"`
	PaidBy   *PaidAmounts  `json:"paid_by,omitempty"`
}

// FlowResponse is the mutation contract a stage participant builds up: the
// set of changes it wants applied to the shared request state. An empty
// response means "skip". The response is validated before it is allowed to
// leave the participant.
type FlowResponse struct {
	UpdatedRequestAmounts *amounts.Amounts    `json:"updated_request_amounts,omitempty"`
	AdditionalBasket      *basket.Basket      `json:"additional_basket,omitempty"`
	ModifiedBasket        *BasketModification `json:"modified_basket,omitempty"`
	AmountsPaid           *PaidAmounts        `json:"amounts_paid,omitempty"`
	CancelTransaction     bool                `json:"cancel_transaction,omitempty"`
	References            map[string]string   `json:"references,omitempty"`
	RequestedDataKeys     []string            `json:"requested_data_keys,omitempty"`
}

// NewFlowResponse returns an empty response.
func NewFlowResponse() *FlowResponse {
	return &FlowResponse{}
}

// SetUpdatedRequestAmounts declares new request amounts.
func (r *FlowResponse) SetUpdatedRequestAmounts(a amounts.Amounts) *FlowResponse {
	r.UpdatedRequestAmounts = &a
	return r
}

// SetAdditionalBasket attaches a basket to add to the request.
func (r *FlowResponse) SetAdditionalBasket(b *basket.Basket) *FlowResponse {
	r.AdditionalBasket = b
	return r
}

// SetAmountsPaid declares amounts the participant has already collected.
func (r *FlowResponse) SetAmountsPaid(a amounts.Amounts, method string) *FlowResponse {
	r.AmountsPaid = &PaidAmounts{Amounts: a, Method: method}
	return r
}

// ModifyBasket declares item changes to an existing basket, optionally paid
// for by a method.
func (r *FlowResponse) ModifyBasket(basketID string, items []basket.Item, paidBy *PaidAmounts) *FlowResponse {
	r.ModifiedBasket = &BasketModification{BasketID: basketID, Items: items, PaidBy: paidBy}
	return r
}

// SetCancelTransaction requests cancellation of the transaction. Only legal
// from stages for which Stage.CanCancel holds; checked when the response is
// sent.
func (r *FlowResponse) SetCancelTransaction(cancel bool) *FlowResponse {
	r.CancelTransaction = cancel
	return r
}

// AddReference records an opaque key/value pass-through for downstream
// stages. Unknown keys are preserved untouched.
func (r *FlowResponse) AddReference(key, value string) *FlowResponse {
	if r.References == nil {
		r.References = make(map[string]string)
	}
	r.References[key] = value
	return r
}

// RequestData asks the orchestrator for the named data keys.
func (r *FlowResponse) RequestData(keys ...string) *FlowResponse {
	r.RequestedDataKeys = append(r.RequestedDataKeys, keys...)
	return r
}

// Validate checks the response invariants. When both updated request
// amounts and amounts paid are set, both must share one currency and the
// paid total must not exceed the updated total.
func (r *FlowResponse) Validate() error {
	if r.UpdatedRequestAmounts == nil || r.AmountsPaid == nil {
		return nil
	}
	updated := *r.UpdatedRequestAmounts
	paid := r.AmountsPaid.Amounts
	if updated.Currency != paid.Currency {
		return fmt.Errorf("%w: amounts paid in %s but updated request amounts in %s: %w",
			ErrInvalidResponse, paid.Currency, updated.Currency, amounts.ErrCurrencyMismatch)
	}
	if paid.Total() > updated.Total() {
		return fmt.Errorf("%w: amounts paid %d exceed updated request amounts %d",
			ErrInvalidResponse, paid.Total(), updated.Total())
	}
	return nil
}
