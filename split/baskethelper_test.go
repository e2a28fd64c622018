package split_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/basket"
	"github.com/alovak/paymentflow/payments"
	"github.com/alovak/paymentflow/split"
)

func gbpItem(id, label string, amount int64, quantity int) basket.Item {
	return basket.Item{ID: id, Label: label, Amount: amount, Currency: "GBP", Quantity: quantity}
}

func basketPayment(t *testing.T, items ...basket.Item) payments.Payment {
	t.Helper()
	b, err := basket.New(items...)
	require.NoError(t, err)
	return payments.NewPaymentWithBasket(b)
}

func TestNewBasketHelper_NoBasket(t *testing.T) {
	req := payments.NewSplitRequest(payments.NewPayment(amounts.New(1000, "GBP")))

	_, err := split.NewBasketHelperFromSplitRequest(req, false)
	require.ErrorIs(t, err, split.ErrUnsupportedOperation)
}

func TestNewBasketHelper_FirstSplitSeesFullBasket(t *testing.T) {
	req := payments.NewSplitRequest(basketPayment(t,
		gbpItem("a", "coffee", 250, 4),
		gbpItem("b", "cake", 400, 1),
	))

	helper, err := split.NewBasketHelperFromSplitRequest(req, false)
	require.NoError(t, err)

	require.Equal(t, int64(1400), helper.RemainingBasket().TotalValue())
	require.Equal(t, 5, helper.RemainingBasket().TotalUnits())
	require.False(t, helper.NextSplitBasket().HasItems())
}

func TestNewBasketHelper_SubtractsFullySatisfiedLegs(t *testing.T) {
	req := payments.NewSplitRequest(basketPayment(t,
		gbpItem("a", "coffee", 250, 4),
		gbpItem("b", "cake", 400, 1),
	))

	legBasket, err := basket.New(gbpItem("a", "coffee", 250, 2))
	require.NoError(t, err)
	leg := payments.NewTransaction(amounts.New(500, "GBP"), *legBasket)
	leg.AddResponse(payments.NewApprovedResponse(amounts.New(500, "GBP"), "card"))
	req.AddTransaction(leg)

	helper, err := split.NewBasketHelperFromSplitRequest(req, true)
	require.NoError(t, err)

	remaining := helper.RemainingBasket()
	got, ok := remaining.ItemByID("a")
	require.True(t, ok)
	require.Equal(t, 2, got.Quantity)
	require.Equal(t, int64(900), remaining.TotalValue())
}

func TestNewBasketHelper_IgnoresPartiallySatisfiedLegs(t *testing.T) {
	req := payments.NewSplitRequest(basketPayment(t, gbpItem("a", "coffee", 250, 4)))

	legBasket, err := basket.New(gbpItem("a", "coffee", 250, 2))
	require.NoError(t, err)
	leg := payments.NewTransaction(amounts.New(500, "GBP"), *legBasket)
	leg.AddResponse(payments.NewApprovedResponse(amounts.New(100, "GBP"), "card"))
	req.AddTransaction(leg)

	helper, err := split.NewBasketHelperFromSplitRequest(req, false)
	require.NoError(t, err)

	// the partial leg's items still count as unpaid
	require.Equal(t, 4, helper.RemainingBasket().TotalUnits())
}

func TestNewBasketHelper_RetainZeroQuantity(t *testing.T) {
	req := payments.NewSplitRequest(basketPayment(t, gbpItem("a", "coffee", 250, 2)))

	legBasket, err := basket.New(gbpItem("a", "coffee", 250, 2))
	require.NoError(t, err)
	leg := payments.NewTransaction(amounts.New(500, "GBP"), *legBasket)
	leg.AddResponse(payments.NewApprovedResponse(amounts.New(500, "GBP"), "card"))
	req.AddTransaction(leg)

	retained, err := split.NewBasketHelperFromSplitRequest(req, true)
	require.NoError(t, err)
	got, ok := retained.RemainingBasket().ItemByID("a")
	require.True(t, ok)
	require.Equal(t, 0, got.Quantity)

	dropped, err := split.NewBasketHelperFromSplitRequest(req, false)
	require.NoError(t, err)
	_, ok = dropped.RemainingBasket().ItemByID("a")
	require.False(t, ok)
}

func TestNextSplitBasketHasOwnIdentity(t *testing.T) {
	req := payments.NewSplitRequest(basketPayment(t, gbpItem("a", "coffee", 250, 2)))

	helper, err := split.NewBasketHelperFromSplitRequest(req, false)
	require.NoError(t, err)

	// remaining mirrors the source basket; the next split is a new basket
	require.Equal(t, req.SourcePayment.Basket.ID, helper.RemainingBasket().ID)
	require.NotEmpty(t, helper.NextSplitBasket().ID)
	require.NotEqual(t, helper.RemainingBasket().ID, helper.NextSplitBasket().ID)
}

func TestTransferItemsToNextSplit(t *testing.T) {
	req := payments.NewSplitRequest(basketPayment(t,
		gbpItem("a", "coffee", 250, 4),
		gbpItem("b", "cake", 400, 1),
	))

	helper, err := split.NewBasketHelperFromSplitRequest(req, false)
	require.NoError(t, err)

	// transfer more coffee than remains: clamps to 4, never deletes the line
	require.NoError(t, helper.TransferItemsToNextSplit(gbpItem("a", "coffee", 250, 9)))

	remaining, ok := helper.RemainingBasket().ItemByID("a")
	require.True(t, ok, "transferred line must stay in remaining for auditability")
	require.Equal(t, 0, remaining.Quantity)

	next, ok := helper.NextSplitBasket().ItemByID("a")
	require.True(t, ok)
	require.Equal(t, 4, next.Quantity)
	require.Equal(t, amounts.New(1000, "GBP"), helper.NextSplitAmounts())

	// unknown lines are skipped
	require.NoError(t, helper.TransferItemsToNextSplit(gbpItem("zzz", "ghost", 1, 1)))
	require.Equal(t, 4, helper.NextSplitBasket().TotalUnits())
}

func TestClampToRemaining(t *testing.T) {
	req := payments.NewSplitRequest(payments.NewPayment(amounts.New(1000, "GBP")))

	leg := payments.NewTransaction(amounts.New(700, "GBP"))
	leg.AddResponse(payments.NewApprovedResponse(amounts.New(700, "GBP"), "card"))
	req.AddTransaction(leg)

	clamped, err := split.ClampToRemaining(req, amounts.New(500, "GBP"))
	require.NoError(t, err)
	require.Equal(t, int64(300), clamped.Total())

	// requests within the remaining amount pass through unchanged
	clamped, err = split.ClampToRemaining(req, amounts.New(200, "GBP"))
	require.NoError(t, err)
	require.Equal(t, int64(200), clamped.Total())

	_, err = split.ClampToRemaining(req, amounts.New(200, "EUR"))
	require.ErrorIs(t, err, amounts.ErrCurrencyMismatch)
}
