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

// catalogRepository implements CatalogRepository on a document store.
type catalogRepository struct {
	store  docstore.Store
	logger zerolog.Logger
}

// NewCatalogRepository creates a catalog repository backed by store.
func NewCatalogRepository(store docstore.Store, logger zerolog.Logger) CatalogRepository {
	return &catalogRepository{
		store:  store,
		logger: logger.With().Str("repository", "catalog").Logger(),
	}
}

// Load reads and decodes the catalog document.
func (r *catalogRepository) Load(ctx context.Context) (*model.Catalog, string, error) {
	doc, err := r.store.Get(ctx, KeyPromoCodes)
	if errors.Is(err, docstore.ErrNotFound) {
		r.logger.Debug().Msg("catalog not found, starting empty")
		return &model.Catalog{PromoCodes: []*model.PromoCode{}}, "", nil
	}
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read catalog")
		return nil, "", fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog model.Catalog
	if err := json.Unmarshal(doc.Value, &catalog); err != nil {
		r.logger.Error().Err(err).Str("version", doc.Version).Msg("failed to decode catalog")
		return nil, "", fmt.Errorf("%w: failed to decode catalog: %v", ErrCorruptDocument, err)
	}
	if catalog.PromoCodes == nil {
		catalog.PromoCodes = []*model.PromoCode{}
	}

	return &catalog, doc.Version, nil
}

// Save encodes and conditionally writes the catalog document.
func (r *catalogRepository) Save(ctx context.Context, catalog *model.Catalog, version string) (string, error) {
	value, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog: %w", err)
	}

	next, err := r.store.PutIfVersion(ctx, KeyPromoCodes, value, version)
	if errors.Is(err, docstore.ErrVersionConflict) {
		r.logger.Debug().Str("version", version).Msg("catalog version conflict")
		return "", err
	}
	if err != nil {
		r.logger.Error().Err(err).Str("version", version).Msg("failed to write catalog")
		return "", fmt.Errorf("failed to write catalog: %w", err)
	}

	r.logger.Debug().
		Str("version", next).
		Int("codes", len(catalog.PromoCodes)).
		Msg("catalog saved")

	return next, nil
}
