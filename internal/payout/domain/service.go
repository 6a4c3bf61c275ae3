package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// SubmitInvoice groups the influencer's eligible payouts (created
	// before the start of the current month) into one payout invoice
	// backed by the uploaded document.
	SubmitInvoice(ctx context.Context, actorID snowflake.ID, documentRef string) (PayoutInvoice, error)

	GetInvoice(ctx context.Context, actorID, id snowflake.ID) (PayoutInvoice, error)

	// Claim assigns the invoice to a reviewer before a decision.
	Claim(ctx context.Context, actorID, id snowflake.ID) (PayoutInvoice, error)

	// Accept transfers the funds and marks every grouped payout paid. A
	// transfer failure leaves the invoice claimed and retryable.
	Accept(ctx context.Context, actorID, id snowflake.ID) (PayoutInvoice, error)

	// Reject returns the grouped payouts to the eligible pool.
	Reject(ctx context.Context, actorID, id snowflake.ID) (PayoutInvoice, error)

	// Receipt renders the PDF statement for a decided invoice.
	Receipt(ctx context.Context, actorID, id snowflake.ID) ([]byte, error)
}

// ReceiptRenderer renders the payout invoice PDF.
type ReceiptRenderer interface {
	RenderPayoutInvoice(invoice PayoutInvoice, payouts []*Payout) ([]byte, error)
}
