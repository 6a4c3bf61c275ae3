package pdf

import (
	payoutdomain "github.com/influmarkt/influmarkt/internal/payout/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(newRenderer),
)

func newRenderer() payoutdomain.ReceiptRenderer {
	return New()
}
