package providers

import (
	"github.com/influmarkt/influmarkt/internal/providers/email"
	"github.com/influmarkt/influmarkt/internal/providers/payment"
	"github.com/influmarkt/influmarkt/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	payment.Module,
	pdf.Module,
)
