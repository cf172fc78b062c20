package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"promo-engine/internal/docstore"
	"promo-engine/internal/model"

	"github.com/rs/zerolog"
)

// settingsRepository implements SettingsRepository on a document store.
type settingsRepository struct {
	store    docstore.Store
	defaults model.CommissionSplit
	logger   zerolog.Logger
}

// NewSettingsRepository creates a settings repository that falls back to defaults.
func NewSettingsRepository(store docstore.Store, defaults model.CommissionSplit, logger zerolog.Logger) SettingsRepository {
	return &settingsRepository{
		store:    store,
		defaults: defaults,
		logger:   logger.With().Str("repository", "settings").Logger(),
	}
}

// Get reads the settings document. Missing or out-of-range settings use the defaults.
func (r *settingsRepository) Get(ctx context.Context) (model.CommissionSplit, error) {
	doc, err := r.store.Get(ctx, KeyCommissionSettings)
	if errors.Is(err, docstore.ErrNotFound) {
		return r.defaults, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read commission settings")
		return model.CommissionSplit{}, fmt.Errorf("failed to read commission settings: %w", err)
	}

	var split model.CommissionSplit
	if err := json.Unmarshal(doc.Value, &split); err != nil {
		r.logger.Error().Err(err).Msg("failed to decode commission settings")
		return model.CommissionSplit{}, fmt.Errorf("%w: failed to decode commission settings: %v", ErrCorruptDocument, err)
	}

	if !split.Valid() {
		r.logger.Warn().
			Float64("total_percent", split.TotalPercent).
			Float64("early_percent", split.EarlyPercent).
			Msg("stored commission settings out of range, using defaults")
		return r.defaults, nil
	}

	return split, nil
}

// Save overwrites the settings document.
func (r *settingsRepository) Save(ctx context.Context, split model.CommissionSplit) error {
	if !split.Valid() {
		return fmt.Errorf("invalid commission split: total %.2f, early %.2f", split.TotalPercent, split.EarlyPercent)
	}

	value, err := json.Marshal(split)
	if err != nil {
		return fmt.Errorf("failed to encode commission settings: %w", err)
	}

	version := ""
	doc, err := r.store.Get(ctx, KeyCommissionSettings)
	switch {
	case err == nil:
		version = doc.Version
	case !errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("failed to read commission settings: %w", err)
	}

	if _, err := r.store.PutIfVersion(ctx, KeyCommissionSettings, value, version); err != nil {
		r.logger.Error().Err(err).Msg("failed to write commission settings")
		return fmt.Errorf("failed to write commission settings: %w", err)
	}

	r.logger.Info().
		Float64("total_percent", split.TotalPercent).
		Float64("early_percent", split.EarlyPercent).
		Msg("commission settings saved")

	return nil
}
