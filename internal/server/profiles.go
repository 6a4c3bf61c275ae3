package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
)

// Profiles are provisioned by the platform's account system; these
// endpoints exist for bootstrap and internal tooling.
func (s *Server) CreateProfile(c *gin.Context) {
	var body struct {
		Kind            string `json:"kind"`
		Name            string `json:"name"`
		Email           string `json:"email"`
		Locale          string `json:"locale"`
		BillingName     string `json:"billing_name"`
		BillingEmail    string `json:"billing_email"`
		BillingTIN      string `json:"billing_tin"`
		PayoutAccountID string `json:"payout_account_id"`
		TaxExempt       bool   `json:"tax_exempt"`
		CountryTaxPct   int64  `json:"country_tax_pct"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	kind := profiledomain.Kind(strings.TrimSpace(body.Kind))
	switch kind {
	case profiledomain.KindBrand, profiledomain.KindInfluencer, profiledomain.KindSolver:
	default:
		AbortWithError(c, profiledomain.ErrInvalidKind)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		AbortWithError(c, profiledomain.ErrInvalidName)
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		AbortWithError(c, profiledomain.ErrInvalidEmail)
		return
	}
	locale := profiledomain.Locale(strings.TrimSpace(body.Locale))
	if locale == "" {
		locale = profiledomain.LocaleEN
	}
	if !locale.Valid() {
		AbortWithError(c, profiledomain.ErrInvalidLocale)
		return
	}

	now := s.clock.Now().UTC()
	profile := profiledomain.Profile{
		ID:              s.genID.Generate(),
		Kind:            kind,
		Name:            strings.TrimSpace(body.Name),
		Email:           strings.TrimSpace(body.Email),
		Locale:          locale,
		BillingName:     body.BillingName,
		BillingEmail:    body.BillingEmail,
		BillingTIN:      body.BillingTIN,
		PayoutAccountID: body.PayoutAccountID,
		TaxExempt:       body.TaxExempt,
		CountryTaxPct:   body.CountryTaxPct,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.profileRepo.Insert(c.Request.Context(), s.db, &profile); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": profile})
}

func (s *Server) GetProfile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.profileRepo.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if profile == nil {
		AbortWithError(c, profiledomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}
