// Package pdf renders payout invoice statements.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	payoutdomain "github.com/influmarkt/influmarkt/internal/payout/domain"
)

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) RenderPayoutInvoice(invoice payoutdomain.PayoutInvoice, payouts []*payoutdomain.Payout) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Payout Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice: "+invoice.ID.String(), props.Text{Top: 0}),
			text.New("Influencer: "+invoice.InfluencerID.String(), props.Text{Top: 4}),
			text.New("Status: "+string(invoice.Status), props.Text{Top: 8}),
			text.New("Date: "+invoice.CreatedAt.Format("2006-01-02"), props.Text{Top: 12}),
		),
		col.New(6),
	)

	m.AddRow(8,
		text.NewCol(4, "Order", props.Text{Style: fontstyle.Bold}),
		text.NewCol(3, "Value", props.Text{Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Tax %", props.Text{Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(3, "Tax", props.Text{Style: fontstyle.Bold, Align: align.Right}),
	)

	for _, payout := range payouts {
		m.AddRows(row.New(6).Add(
			text.NewCol(4, payout.OrderID.String()),
			text.NewCol(3, cents(payout.Value), props.Text{Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d", payout.TaxPct), props.Text{Align: align.Right}),
			text.NewCol(3, cents(payout.TaxValue), props.Text{Align: align.Right}),
		))
	}

	m.AddRow(12,
		col.New(7),
		text.NewCol(5, "Total due: "+cents(invoice.InvoiceValue), props.Text{
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   4,
		}),
	)

	return generate(m)
}

func generate(m core.Maroto) ([]byte, error) {
	document, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return document.GetBytes(), nil
}

func cents(v int64) string {
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}
