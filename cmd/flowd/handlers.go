package main

import (
	"context"
	"strconv"

	"golang.org/x/exp/slog"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/flow"
	"github.com/alovak/paymentflow/split"
)

// registerHandlers wires the sample stage handlers. They demonstrate the
// library surface a real flow app would use; each declares its changes
// through the stage session and nothing else.
func registerHandlers(d *flow.Dispatcher, logger *slog.Logger) {
	flow.Register(d, flow.StagePreFlow, func(ctx context.Context, sess *flow.Session, req *flow.PaymentStageRequest) error {
		// Nothing to adjust before the flow starts.
		return sess.SendResponse(flow.NewFlowResponse())
	})

	flow.Register(d, flow.StageSplit, func(ctx context.Context, sess *flow.Session, req *flow.SplitStageRequest) error {
		splitReq := &req.SplitRequest

		remaining := splitReq.RemainingAmounts()
		if remaining.IsZero() {
			sess.AddAuditEntry(flow.AuditInfo, "nothing left to split")
			return sess.SendResponse(flow.NewFlowResponse())
		}

		resp := flow.NewFlowResponse()

		if splitReq.SourcePayment.Basket != nil {
			helper, err := split.NewBasketHelperFromSplitRequest(splitReq, true)
			if err != nil {
				return err
			}
			first, _ := helper.RemainingBasket().SplitInHalf()
			if err := helper.TransferItemsToNextSplit(first.Items...); err != nil {
				return err
			}
			resp.SetAdditionalBasket(helper.NextSplitBasket())
			resp.SetUpdatedRequestAmounts(helper.NextSplitAmounts())
			return sess.SendResponse(resp)
		}

		// No basket: carve half of what remains by amount.
		half := amounts.New(remaining.Total()/2, remaining.Currency)
		next, err := split.ClampToRemaining(splitReq, half)
		if err != nil {
			return err
		}
		resp.SetUpdatedRequestAmounts(next)
		return sess.SendResponse(resp)
	})

	flow.Register(d, flow.StagePostCardReading, func(ctx context.Context, sess *flow.Session, req *flow.CardReadingStageRequest) error {
		if req.Card != nil {
			sess.AddAuditEntry(flow.AuditInfo, "card read: "+req.Card.MaskedPAN)
		}
		return sess.SendResponse(flow.NewFlowResponse())
	})

	flow.Register(d, flow.StageGeneric, func(ctx context.Context, sess *flow.Session, req *flow.GenericRequest) error {
		switch req.Type {
		case "REVERSAL", "TOKENISATION", "RECEIPT_PRINT":
			return sess.SendResponse(&flow.GenericResponse{Outcome: "SUCCESS", Data: req.Data})
		}
		return sess.SendResponse(&flow.GenericResponse{Outcome: "UNSUPPORTED"})
	})

	flow.Register(d, flow.StagePostTransaction, func(ctx context.Context, sess *flow.Session, req *flow.TransactionStageRequest) error {
		processed := req.Transaction.ProcessedAmounts()
		sess.AddAuditEntry(flow.AuditInfo, "transaction observed")

		resp := flow.NewFlowResponse()
		resp.AddReference("processedTotal", amountString(processed))
		return sess.SendResponse(resp)
	})

	flow.Register(d, flow.StageStatusUpdate, func(ctx context.Context, sess *flow.Session, req *flow.StatusUpdateRequest) error {
		logger.Info("status update", slog.String("type", req.Type))
		return nil
	})
}

func amountString(a amounts.Amounts) string {
	return a.Currency + ":" + strconv.FormatInt(a.Total(), 10)
}
