package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatusHappyPath(t *testing.T) {
	steps := []struct {
		event Event
		want  Status
	}{
		{EventCheckoutStarted, StatusAwaitingPayment},
		{EventPaymentProcessing, StatusPaymentProcessing},
		{EventPaymentSucceeded, StatusPaymentConfirmed},
		{EventInfluencerAccept, StatusInProgress},
		{EventDeliverySubmitted, StatusDelivered},
		{EventBuyerConfirm, StatusConfirmed},
	}

	current := StatusCreated
	for _, step := range steps {
		next, err := NextStatus(current, step.event)
		assert.NoError(t, err, "event %s from %s", step.event, current)
		assert.Equal(t, step.want, next)
		current = next
	}
	assert.True(t, current.Terminal())
}

func TestNextStatusRejectsUnknownEdges(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
	}{
		{StatusCreated, EventPaymentSucceeded},
		{StatusConfirmed, EventBuyerConfirm},
		{StatusCanceled, EventInfluencerAccept},
		{StatusDelivered, EventDeliverySubmitted},
		{StatusInProgress, EventBuyerConfirm},
		{StatusDisputed, EventAutoConfirm},
		{StatusAwaitingPayment, EventDisputeOpen},
	}
	for _, tc := range cases {
		_, err := NextStatus(tc.from, tc.event)
		assert.ErrorIs(t, err, ErrInvalidTransition, "event %s from %s", tc.event, tc.from)
	}
}

func TestPaymentFailedRecovers(t *testing.T) {
	next, err := NextStatus(StatusPaymentFailed, EventPaymentSucceeded)
	assert.NoError(t, err)
	assert.Equal(t, StatusPaymentConfirmed, next)
}

func TestDisputeReopenFromResolved(t *testing.T) {
	for _, from := range []Status{StatusResolvedBuyer, StatusResolvedInfluencer} {
		next, err := NextStatus(from, EventDisputeOpen)
		assert.NoError(t, err)
		assert.Equal(t, StatusDisputed, next)
	}
}

func TestOnHoldOutcomes(t *testing.T) {
	// The buyer may cancel a held order; confirming requires a delivery.
	next, err := NextStatus(StatusOnHold, EventBuyerCancelOnHold)
	assert.NoError(t, err)
	assert.Equal(t, StatusCanceled, next)

	_, err = NextStatus(StatusOnHold, EventBuyerConfirm)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// A late delivery lifts the hold.
	next, err = NextStatus(StatusOnHold, EventDeliverySubmitted)
	assert.NoError(t, err)
	assert.Equal(t, StatusDelivered, next)

	next, err = NextStatus(next, EventBuyerConfirm)
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, next)
}

func TestSettles(t *testing.T) {
	assert.True(t, StatusConfirmed.Settles())
	assert.True(t, StatusAutoConfirmed.Settles())
	assert.True(t, StatusResolvedInfluencer.Settles())
	assert.False(t, StatusResolvedBuyer.Settles())
	assert.False(t, StatusDelivered.Settles())
}

func TestDisputable(t *testing.T) {
	assert.True(t, StatusDelivered.Disputable())
	assert.True(t, StatusOnHold.Disputable())
	assert.False(t, StatusInProgress.Disputable())
	assert.False(t, StatusConfirmed.Disputable())
}

func TestComputeTotal(t *testing.T) {
	order := Order{BasePrice: 10000, ServiceFeePct: 20, TaxPct: 5}
	assert.Equal(t, int64(2000), order.ServiceCut())
	assert.Equal(t, int64(600), order.BuyerTax())
	assert.Equal(t, int64(12600), order.ComputeTotal())

	discount := int64(600)
	order.Discount = &discount
	assert.Equal(t, int64(12000), order.ComputeTotal())
}
