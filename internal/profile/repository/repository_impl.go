package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/profile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, profile *domain.Profile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO profiles (id, kind, name, email, locale, emails_disabled,
		                       billing_name, billing_email, billing_tin,
		                       payout_account_id, tax_exempt, country_tax_pct,
		                       created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.Kind,
		profile.Name,
		profile.Email,
		profile.Locale,
		profile.EmailsDisabled,
		profile.BillingName,
		profile.BillingEmail,
		profile.BillingTIN,
		profile.PayoutAccountID,
		profile.TaxExempt,
		profile.CountryTaxPct,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT id, kind, name, email, locale, emails_disabled,
		        billing_name, billing_email, billing_tin,
		        payout_account_id, tax_exempt, country_tax_pct,
		        created_at, updated_at
		 FROM profiles WHERE id = ?`,
		id,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, profile *domain.Profile) error {
	return db.WithContext(ctx).Exec(
		`UPDATE profiles
		 SET name = ?, email = ?, locale = ?, emails_disabled = ?,
		     billing_name = ?, billing_email = ?, billing_tin = ?,
		     payout_account_id = ?, tax_exempt = ?, country_tax_pct = ?,
		     updated_at = ?
		 WHERE id = ?`,
		profile.Name,
		profile.Email,
		profile.Locale,
		profile.EmailsDisabled,
		profile.BillingName,
		profile.BillingEmail,
		profile.BillingTIN,
		profile.PayoutAccountID,
		profile.TaxExempt,
		profile.CountryTaxPct,
		profile.UpdatedAt,
		profile.ID,
	).Error
}
