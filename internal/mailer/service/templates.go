package service

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/influmarkt/influmarkt/internal/mailer/domain"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
)

//go:embed all:templates
var templatesFS embed.FS

// emailCopy holds the per-action, per-locale wording. Body strings are
// templates over the mail params.
type emailCopy struct {
	Subject  string
	Heading  string
	Body     string
	CTALabel string
}

// copyTable is the action dispatch table. An action missing here cannot be
// emailed; callers get ErrUnknownAction.
var copyTable = map[string]map[profiledomain.Locale]emailCopy{
	orderdomain.ActionOrderPaid: {
		profiledomain.LocaleEN: {
			Subject:  "You have a new order",
			Heading:  "You have a new order",
			Body:     "Payment for order {{.order_id}} was confirmed. Review the request and accept or reject it before the deadline of {{.deadline}}.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "Tem uma nova encomenda",
			Heading:  "Tem uma nova encomenda",
			Body:     "O pagamento da encomenda {{.order_id}} foi confirmado. Reveja o pedido e aceite ou rejeite antes do prazo de {{.deadline}}.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionOrderPaymentFailed: {
		profiledomain.LocaleEN: {
			Subject:  "Your payment failed",
			Heading:  "We could not process your payment",
			Body:     "The payment for order {{.order_id}} failed. Please try again with a different payment method.",
			CTALabel: "Retry payment",
		},
		profiledomain.LocalePT: {
			Subject:  "O seu pagamento falhou",
			Heading:  "Não conseguimos processar o seu pagamento",
			Body:     "O pagamento da encomenda {{.order_id}} falhou. Tente novamente com outro método de pagamento.",
			CTALabel: "Tentar novamente",
		},
	},
	orderdomain.ActionOrderAccepted: {
		profiledomain.LocaleEN: {
			Subject:  "Your order was accepted",
			Heading:  "Your order was accepted",
			Body:     "The influencer accepted order {{.order_id}} and will deliver by {{.deadline}}.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "A sua encomenda foi aceite",
			Heading:  "A sua encomenda foi aceite",
			Body:     "O influencer aceitou a encomenda {{.order_id}} e vai entregar até {{.deadline}}.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionOrderRejected: {
		profiledomain.LocaleEN: {
			Subject:  "Your order was rejected",
			Heading:  "Your order was rejected",
			Body:     "The influencer rejected order {{.order_id}}. Your payment will be refunded.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "A sua encomenda foi rejeitada",
			Heading:  "A sua encomenda foi rejeitada",
			Body:     "O influencer rejeitou a encomenda {{.order_id}}. O seu pagamento será reembolsado.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionOrderDelivered: {
		profiledomain.LocaleEN: {
			Subject:  "Your order was delivered",
			Heading:  "Your order was delivered",
			Body:     "Order {{.order_id}} was marked as delivered. Please confirm the delivery, or open a dispute if something is wrong.",
			CTALabel: "Confirm delivery",
		},
		profiledomain.LocalePT: {
			Subject:  "A sua encomenda foi entregue",
			Heading:  "A sua encomenda foi entregue",
			Body:     "A encomenda {{.order_id}} foi marcada como entregue. Confirme a entrega ou abra uma disputa se algo estiver errado.",
			CTALabel: "Confirmar entrega",
		},
	},
	orderdomain.ActionOrderConfirmed: {
		profiledomain.LocaleEN: {
			Subject:  "Order confirmed",
			Heading:  "The buyer confirmed your delivery",
			Body:     "Order {{.order_id}} is complete. Your payout was recorded and will be included in your next payout invoice.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "Encomenda confirmada",
			Heading:  "O comprador confirmou a sua entrega",
			Body:     "A encomenda {{.order_id}} está concluída. O seu pagamento foi registado e será incluído na sua próxima fatura de pagamentos.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionOrderAutoConfirmed: {
		profiledomain.LocaleEN: {
			Subject:  "Order confirmed by the platform",
			Heading:  "We confirmed this order on the buyer's behalf",
			Body:     "Order {{.order_id}} was delivered and the confirmation window expired, so the platform confirmed it automatically.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "Encomenda confirmada pela plataforma",
			Heading:  "Confirmámos esta encomenda em nome do comprador",
			Body:     "A encomenda {{.order_id}} foi entregue e o prazo de confirmação expirou, por isso a plataforma confirmou-a automaticamente.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionOrderOnHold: {
		profiledomain.LocaleEN: {
			Subject:  "Order on hold",
			Heading:  "This order is on hold",
			Body:     "Order {{.order_id}} was not delivered by {{.deadline}} and is now paused pending the buyer's decision.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "Encomenda em espera",
			Heading:  "Esta encomenda está em espera",
			Body:     "A encomenda {{.order_id}} não foi entregue até {{.deadline}} e está agora pausada a aguardar a decisão do comprador.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionOrderCanceled: {
		profiledomain.LocaleEN: {
			Subject:  "Order canceled",
			Heading:  "This order was canceled",
			Body:     "Order {{.order_id}} was canceled by the buyer.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "Encomenda cancelada",
			Heading:  "Esta encomenda foi cancelada",
			Body:     "A encomenda {{.order_id}} foi cancelada pelo comprador.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionOrderDeliveryReminder: {
		profiledomain.LocaleEN: {
			Subject:  "Delivery due tomorrow",
			Heading:  "Delivery is due tomorrow",
			Body:     "The delivery for order {{.order_id}} is due on {{.deadline}}.",
			CTALabel: "View order",
		},
		profiledomain.LocalePT: {
			Subject:  "Entrega amanhã",
			Heading:  "A entrega é amanhã",
			Body:     "A entrega da encomenda {{.order_id}} está prevista para {{.deadline}}.",
			CTALabel: "Ver encomenda",
		},
	},
	orderdomain.ActionDisputeOpened: {
		profiledomain.LocaleEN: {
			Subject:  "A dispute was opened",
			Heading:  "A dispute was opened",
			Body:     "A dispute was opened on order {{.order_id}}: {{.message}}",
			CTALabel: "Review dispute",
		},
		profiledomain.LocalePT: {
			Subject:  "Foi aberta uma disputa",
			Heading:  "Foi aberta uma disputa",
			Body:     "Foi aberta uma disputa na encomenda {{.order_id}}: {{.message}}",
			CTALabel: "Rever disputa",
		},
	},
	orderdomain.ActionDisputeWon: {
		profiledomain.LocaleEN: {
			Subject:  "Dispute resolved in your favor",
			Heading:  "The dispute was resolved in your favor",
			Body:     "Our team reviewed the dispute on order {{.order_id}} and decided in your favor: {{.decision}}",
			CTALabel: "View resolution",
		},
		profiledomain.LocalePT: {
			Subject:  "Disputa resolvida a seu favor",
			Heading:  "A disputa foi resolvida a seu favor",
			Body:     "A nossa equipa analisou a disputa na encomenda {{.order_id}} e decidiu a seu favor: {{.decision}}",
			CTALabel: "Ver resolução",
		},
	},
	orderdomain.ActionDisputeLost: {
		profiledomain.LocaleEN: {
			Subject:  "Dispute resolution",
			Heading:  "The dispute was resolved against you",
			Body:     "Our team reviewed the dispute on order {{.order_id}} and decided against you: {{.decision}}",
			CTALabel: "View resolution",
		},
		profiledomain.LocalePT: {
			Subject:  "Resolução da disputa",
			Heading:  "A disputa foi resolvida contra si",
			Body:     "A nossa equipa analisou a disputa na encomenda {{.order_id}} e decidiu contra si: {{.decision}}",
			CTALabel: "Ver resolução",
		},
	},
}

var layouts = map[profiledomain.Locale]*htmltemplate.Template{
	profiledomain.LocaleEN: htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/layout_en.html")),
	profiledomain.LocalePT: htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/layout_pt.html")),
}

type renderData struct {
	Subject  string
	Heading  string
	Body     string
	CTAURL   string
	CTALabel string
}

// render produces the subject and HTML body for an action in a locale.
func render(action string, locale profiledomain.Locale, params map[string]string) (string, string, error) {
	locales, ok := copyTable[action]
	if !ok {
		return "", "", domain.ErrUnknownAction
	}
	if !locale.Valid() {
		locale = profiledomain.LocaleEN
	}
	text, ok := locales[locale]
	if !ok {
		text = locales[profiledomain.LocaleEN]
	}

	body, err := expand(text.Body, params)
	if err != nil {
		return "", "", err
	}

	data := renderData{
		Subject:  text.Subject,
		Heading:  text.Heading,
		Body:     body,
		CTAURL:   params["order_url"],
		CTALabel: text.CTALabel,
	}

	var buf bytes.Buffer
	if err := layouts[locale].Execute(&buf, data); err != nil {
		return "", "", err
	}
	return text.Subject, buf.String(), nil
}

func expand(body string, params map[string]string) (string, error) {
	tmpl, err := texttemplate.New("body").Option("missingkey=zero").Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}
