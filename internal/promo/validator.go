package promo

import (
	"time"

	"promo-engine/internal/model"

	"github.com/rs/zerolog"
)

// validator implements Validator.
type validator struct {
	logger zerolog.Logger
}

// NewValidator creates a new promo code validator.
func NewValidator(logger zerolog.Logger) Validator {
	return &validator{
		logger: logger.With().Str("component", "promo-validator").Logger(),
	}
}

// Validate checks that the code exists and that now lies inside its window.
func (v *validator) Validate(catalog *model.Catalog, code string, now time.Time) (*model.PromoCode, error) {
	if model.NormalizeCode(code) == "" {
		return nil, model.ErrMissingCode
	}

	var found *model.PromoCode
	if catalog != nil {
		found = catalog.Lookup(code)
	}
	if found == nil {
		v.logger.Debug().Str("promo_code", code).Msg("promo code not found")
		return nil, model.ErrPromoNotFound
	}

	if !found.InWindow(now) {
		v.logger.Debug().
			Str("promo_code", found.Code).
			Str("valid_from", found.ValidFrom.String()).
			Str("valid_until", found.ValidUntil.String()).
			Msg("promo code outside validity window")
		return nil, model.ErrPromoExpired
	}

	return found.Clone(), nil
}
