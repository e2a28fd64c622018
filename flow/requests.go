package flow

import (
	"github.com/alovak/paymentflow/internal/card"
	"github.com/alovak/paymentflow/payments"
)

// PaymentStageRequest is the payload of the PRE_FLOW, PRE_TRANSACTION,
// POST_TRANSACTION and POST_FLOW stages: the current shared request state.
type PaymentStageRequest struct {
	Payment payments.Payment `json:"payment"`
}

// SplitStageRequest is the payload of each SPLIT invocation: the payment
// plus the ledger of split legs executed so far.
type SplitStageRequest struct {
	SplitRequest payments.SplitRequest `json:"split_request"`
}

// CardReadingStageRequest is the payload of PAYMENT_CARD_READING and
// POST_CARD_READING. Card is nil until card data has been attached.
type CardReadingStageRequest struct {
	Payment payments.Payment `json:"payment"`
	Card    *card.Card       `json:"card,omitempty"`
}

// TransactionStageRequest is the payload of TRANSACTION_PROCESSING: the
// transaction to collect, with card data when a card was read.
type TransactionStageRequest struct {
	Transaction payments.Transaction `json:"transaction"`
	Card        *card.Card           `json:"card,omitempty"`
}

// GenericRequest is the payload of the GENERIC stage: an ad-hoc request
// (reversal, tokenisation, receipt printing) identified by type, with
// opaque data passed through untouched.
type GenericRequest struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data,omitempty"`
}

// GenericResponse is the result of a GENERIC stage invocation.
type GenericResponse struct {
	Outcome string            `json:"outcome"`
	Data    map[string]string `json:"data,omitempty"`
}

// StatusUpdateRequest is the payload of the fire-and-forget STATUS_UPDATE
// stage. No response is expected.
type StatusUpdateRequest struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data,omitempty"`
}
