package repository

import (
	"context"
	"errors"

	"promo-engine/internal/model"
)

// Document keys shared with the rest of the application.
const (
	KeyPromoCodes         = "promoCodes"
	KeyReferrals          = "referrals"
	KeyCommissionSettings = "commissionSettings"
)

// ErrDuplicateRecord is returned when a ledger record with the same id already exists.
var ErrDuplicateRecord = errors.New("commission record already exists")

// ErrCorruptDocument is returned when a stored document cannot be decoded. The
// decode cause is flattened to text so domain sentinels raised while decoding
// never reach callers as caller errors.
var ErrCorruptDocument = errors.New("stored document is corrupt")

// CatalogRepository defines the interface for promo catalog access.
type CatalogRepository interface {
	// Load reads the catalog and the version it was read at. A catalog that has
	// never been written is returned empty with an empty version.
	Load(ctx context.Context) (*model.Catalog, string, error)

	// Save writes the catalog if it is still at version and returns the new version.
	// A stale version yields docstore.ErrVersionConflict.
	Save(ctx context.Context, catalog *model.Catalog, version string) (string, error)
}

// LedgerRepository defines the interface for the append-only commission ledger.
type LedgerRepository interface {
	// Append adds record to the ledger. Existing records are never modified.
	Append(ctx context.Context, record model.CommissionRecord) error

	// List returns every record in insertion order.
	List(ctx context.Context) ([]model.CommissionRecord, error)
}

// SettingsRepository defines the interface for business-wide commission settings.
type SettingsRepository interface {
	// Get returns the stored split, or the configured default when none is stored.
	Get(ctx context.Context) (model.CommissionSplit, error)

	// Save replaces the stored split.
	Save(ctx context.Context, split model.CommissionSplit) error
}
