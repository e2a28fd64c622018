// Package flow implements the stage state machine of a payment flow: the
// fixed set of stages, the per-stage mutation contract (FlowResponse), the
// session rules for a single stage invocation and the dispatcher that routes
// an inbound request payload to the registered stage handler.
package flow

import "fmt"

var ErrUnknownStage = fmt.Errorf("unknown stage")

// Stage is one named step of the flow state machine. For a standard payment
// the stages execute in the order listed below; SPLIT may repeat once per
// split leg. GENERIC and STATUS_UPDATE sit outside the chain.
type Stage string

const (
	StagePreFlow               Stage = "PRE_FLOW"
	StageSplit                 Stage = "SPLIT"
	StagePreTransaction        Stage = "PRE_TRANSACTION"
	StagePaymentCardReading    Stage = "PAYMENT_CARD_READING"
	StagePostCardReading       Stage = "POST_CARD_READING"
	StageTransactionProcessing Stage = "TRANSACTION_PROCESSING"
	StagePostTransaction       Stage = "POST_TRANSACTION"
	StagePostFlow              Stage = "POST_FLOW"
	StageGeneric               Stage = "GENERIC"
	StageStatusUpdate          Stage = "STATUS_UPDATE"
)

var stages = map[string]Stage{
	string(StagePreFlow):               StagePreFlow,
	string(StageSplit):                 StageSplit,
	string(StagePreTransaction):        StagePreTransaction,
	string(StagePaymentCardReading):    StagePaymentCardReading,
	string(StagePostCardReading):       StagePostCardReading,
	string(StageTransactionProcessing): StageTransactionProcessing,
	string(StagePostTransaction):       StagePostTransaction,
	string(StagePostFlow):              StagePostFlow,
	string(StageGeneric):               StageGeneric,
	string(StageStatusUpdate):          StageStatusUpdate,
}

// StageFromName maps a wire name to a Stage.
func StageFromName(name string) (Stage, error) {
	stage, ok := stages[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownStage)
	}
	return stage, nil
}

// CanCancel reports whether a participant may request transaction
// cancellation from this stage. Cancellation is only legal before the
// transaction is processed: during SPLIT and the pre-transaction stages up
// to and including card reading.
func (s Stage) CanCancel() bool {
	switch s {
	case StageSplit, StagePreTransaction, StagePaymentCardReading, StagePostCardReading:
		return true
	}
	return false
}

// ExpectsResponse reports whether a stage invocation must produce a
// terminal response. STATUS_UPDATE notifications are fire-and-forget.
func (s Stage) ExpectsResponse() bool {
	return s != StageStatusUpdate
}
