package domain

import "errors"

var (
	ErrNotFound          = errors.New("order_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidBuyer      = errors.New("invalid_buyer")
	ErrInvalidInfluencer = errors.New("invalid_influencer")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidDelivery   = errors.New("invalid_delivery_date")
	ErrInvalidItems      = errors.New("invalid_items")
	ErrNotParticipant    = errors.New("not_a_participant")
	ErrInvalidID         = errors.New("invalid_id")
)
