package payments_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/payments"
)

func TestTransaction_ProcessedAndRemaining(t *testing.T) {
	tx := payments.NewTransaction(amounts.New(1000, "GBP"))

	require.Equal(t, int64(0), tx.ProcessedAmounts().Total())
	require.Equal(t, int64(1000), tx.RemainingAmounts().Total())
	require.False(t, tx.FullySatisfied())

	tx.AddResponse(payments.NewApprovedResponse(amounts.New(400, "GBP"), "card"))
	require.Equal(t, int64(400), tx.ProcessedAmounts().Total())
	require.Equal(t, int64(600), tx.RemainingAmounts().Total())

	// declined responses never count towards processed amounts
	tx.AddResponse(payments.TransactionResponse{
		Outcome:          payments.OutcomeDeclined,
		AmountsProcessed: amounts.New(600, "GBP"),
	})
	require.Equal(t, int64(400), tx.ProcessedAmounts().Total())

	tx.AddResponse(payments.NewApprovedResponse(amounts.New(600, "GBP"), "cash"))
	require.Equal(t, int64(1000), tx.ProcessedAmounts().Total())
	require.True(t, tx.RemainingAmounts().IsZero())
	require.True(t, tx.FullySatisfied())
	require.Len(t, tx.Responses, 3)
}

func TestTransaction_AddResponseCurrencyMismatchRejected(t *testing.T) {
	tx := payments.NewTransaction(amounts.New(1000, "GBP"))

	err := tx.AddResponse(payments.NewApprovedResponse(amounts.New(1000, "EUR"), "card"))
	require.ErrorIs(t, err, amounts.ErrCurrencyMismatch)

	// nothing committed: the approved money neither vanishes from the
	// ledger nor leaves the full amount open to a re-charge
	require.Empty(t, tx.Responses)
	require.Equal(t, int64(0), tx.ProcessedAmounts().Total())
	require.Equal(t, int64(1000), tx.RemainingAmounts().Total())
	require.False(t, tx.FullySatisfied())
}

func TestSplitRequest_AddTransactionCurrencyMismatchRejected(t *testing.T) {
	req := payments.NewSplitRequest(payments.NewPayment(amounts.New(1000, "GBP")))

	err := req.AddTransaction(payments.NewTransaction(amounts.New(500, "EUR")))
	require.ErrorIs(t, err, amounts.ErrCurrencyMismatch)

	require.True(t, req.IsFirstSplit())
	require.Equal(t, int64(1000), req.RemainingAmounts().Total())
}

func TestTransaction_RemainingClampedAtZero(t *testing.T) {
	tx := payments.NewTransaction(amounts.New(500, "GBP"))
	tx.AddResponse(payments.NewApprovedResponse(amounts.New(700, "GBP"), "card"))

	require.True(t, tx.RemainingAmounts().IsZero())
}

func TestSplitRequest_TwoFullyApprovedLegs(t *testing.T) {
	req := payments.NewSplitRequest(payments.NewPayment(amounts.New(1000, "GBP")))
	require.True(t, req.IsFirstSplit())

	for i := 0; i < 2; i++ {
		tx := payments.NewTransaction(amounts.New(500, "GBP"))
		tx.AddResponse(payments.NewApprovedResponse(amounts.New(500, "GBP"), "card"))
		req.AddTransaction(tx)
	}

	require.False(t, req.IsFirstSplit())
	require.Equal(t, int64(1000), req.ProcessedAmounts().Total())
	require.True(t, req.RemainingAmounts().IsZero())
	require.Equal(t, "GBP", req.RemainingAmounts().Currency)
}

func TestSplitRequest_TwoLegsNoBasket(t *testing.T) {
	// leg 1 approves 500 of a 1000 GBP payment
	req := payments.NewSplitRequest(payments.NewPayment(amounts.New(1000, "GBP")))

	leg1 := payments.NewTransaction(amounts.New(500, "GBP"))
	leg1.AddResponse(payments.NewApprovedResponse(amounts.New(500, "GBP"), "card"))
	req.AddTransaction(leg1)

	remaining := req.RemainingAmounts()
	require.Equal(t, int64(500), remaining.Total())

	// leg 2 requests exactly what remains and fully approves
	leg2 := payments.NewTransaction(remaining)
	leg2.AddResponse(payments.NewApprovedResponse(remaining, "card"))
	req.AddTransaction(leg2)

	require.True(t, req.RemainingAmounts().IsZero())
	require.Same(t, leg2, req.LastTransaction())
}

func TestSplitRequest_PartialLegCountsPartially(t *testing.T) {
	req := payments.NewSplitRequest(payments.NewPayment(amounts.New(1000, "GBP")))

	leg := payments.NewTransaction(amounts.New(600, "GBP"))
	leg.AddResponse(payments.NewApprovedResponse(amounts.New(200, "GBP"), "card"))
	req.AddTransaction(leg)

	require.Equal(t, int64(200), req.ProcessedAmounts().Total())
	require.Equal(t, int64(800), req.RemainingAmounts().Total())
}
