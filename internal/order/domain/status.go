package domain

// Status is the order's lifecycle state.
type Status string

const (
	StatusCreated            Status = "created"
	StatusAwaitingPayment    Status = "awaiting_payment"
	StatusPaymentProcessing  Status = "payment_processing"
	StatusPaymentFailed      Status = "payment_failed"
	StatusPaymentConfirmed   Status = "payment_confirmed"
	StatusInProgress         Status = "in_progress"
	StatusDelivered          Status = "delivered"
	StatusOnHold             Status = "on_hold"
	StatusConfirmed          Status = "confirmed"
	StatusAutoConfirmed      Status = "auto_confirmed"
	StatusDisputed           Status = "disputed"
	StatusResolvedBuyer      Status = "resolved_buyer"
	StatusResolvedInfluencer Status = "resolved_influencer"
	StatusCanceled           Status = "canceled"
)

// Event drives a status transition.
type Event string

const (
	EventCheckoutStarted    Event = "checkout_started"
	EventPaymentProcessing  Event = "payment_processing"
	EventPaymentSucceeded   Event = "payment_succeeded"
	EventPaymentFailed      Event = "payment_failed"
	EventInfluencerAccept   Event = "influencer_accept"
	EventInfluencerReject   Event = "influencer_reject"
	EventDeliverySubmitted  Event = "delivery_submitted"
	EventBuyerConfirm       Event = "buyer_confirm"
	EventAutoConfirm        Event = "auto_confirm"
	EventHoldOverdue        Event = "hold_overdue"
	EventBuyerCancelOnHold  Event = "buyer_cancel_on_hold"
	EventDisputeOpen        Event = "dispute_open"
	EventDisputeBuyerWins   Event = "dispute_buyer_wins"
	EventDisputeInfluencerW Event = "dispute_influencer_wins"
)

// transitions enumerates every legal edge. Anything absent is rejected with
// ErrInvalidTransition.
var transitions = map[Event]map[Status]Status{
	EventCheckoutStarted: {
		StatusCreated: StatusAwaitingPayment,
	},
	EventPaymentProcessing: {
		StatusAwaitingPayment: StatusPaymentProcessing,
	},
	EventPaymentSucceeded: {
		StatusAwaitingPayment:   StatusPaymentConfirmed,
		StatusPaymentProcessing: StatusPaymentConfirmed,
		StatusPaymentFailed:     StatusPaymentConfirmed,
	},
	EventPaymentFailed: {
		StatusAwaitingPayment:   StatusPaymentFailed,
		StatusPaymentProcessing: StatusPaymentFailed,
	},
	EventInfluencerAccept: {
		StatusPaymentConfirmed: StatusInProgress,
	},
	EventInfluencerReject: {
		StatusPaymentConfirmed: StatusCanceled,
	},
	EventDeliverySubmitted: {
		StatusInProgress: StatusDelivered,
		StatusOnHold:     StatusDelivered,
	},
	EventBuyerConfirm: {
		StatusDelivered: StatusConfirmed,
	},
	EventAutoConfirm: {
		StatusDelivered: StatusAutoConfirmed,
	},
	EventHoldOverdue: {
		StatusPaymentConfirmed: StatusOnHold,
		StatusInProgress:       StatusOnHold,
	},
	EventBuyerCancelOnHold: {
		StatusOnHold: StatusCanceled,
	},
	EventDisputeOpen: {
		StatusDelivered:          StatusDisputed,
		StatusOnHold:             StatusDisputed,
		StatusResolvedBuyer:      StatusDisputed,
		StatusResolvedInfluencer: StatusDisputed,
	},
	EventDisputeBuyerWins: {
		StatusDisputed: StatusResolvedBuyer,
	},
	EventDisputeInfluencerW: {
		StatusDisputed: StatusResolvedInfluencer,
	},
}

// NextStatus computes the status after applying event, or ErrInvalidTransition
// when no edge exists.
func NextStatus(current Status, event Event) (Status, error) {
	edges, ok := transitions[event]
	if !ok {
		return "", ErrInvalidTransition
	}
	next, ok := edges[current]
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}

// Terminal reports whether no event can ever move the order again.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusAutoConfirmed, StatusCanceled:
		return true
	}
	return false
}

// Disputable reports whether the buyer may open (or reopen) a dispute.
// The window runs post-delivery until final confirmation; resolved orders
// may be reopened.
func (s Status) Disputable() bool {
	_, err := NextStatus(s, EventDisputeOpen)
	return err == nil
}

// Settles reports whether entering this status entitles the influencer to
// funds, triggering payout and invoice derivation.
func (s Status) Settles() bool {
	switch s {
	case StatusConfirmed, StatusAutoConfirmed, StatusResolvedInfluencer:
		return true
	}
	return false
}
