package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, profile *Profile) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Profile, error)
	Update(ctx context.Context, db *gorm.DB, profile *Profile) error
}

var (
	ErrNotFound      = errors.New("profile_not_found")
	ErrInvalidKind   = errors.New("invalid_profile_kind")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidLocale = errors.New("invalid_locale")
)
