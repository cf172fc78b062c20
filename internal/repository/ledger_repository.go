package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"promo-engine/internal/docstore"
	"promo-engine/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const ledgerMaxRetries = 10

// ledgerRepository implements LedgerRepository on a document store.
type ledgerRepository struct {
	store  docstore.Store
	logger zerolog.Logger
}

// NewLedgerRepository creates a ledger repository backed by store.
func NewLedgerRepository(store docstore.Store, logger zerolog.Logger) LedgerRepository {
	return &ledgerRepository{
		store:  store,
		logger: logger.With().Str("repository", "ledger").Logger(),
	}
}

// Append adds record with a compare-and-swap loop on the ledger document.
// Only version conflicts are retried.
func (r *ledgerRepository) Append(ctx context.Context, record model.CommissionRecord) error {
	attempts := 0
	op := func() error {
		attempts++

		ledger, version, err := r.load(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		for _, existing := range ledger.Referrals {
			if existing.ID == record.ID {
				return backoff.Permanent(fmt.Errorf("%w: %s", ErrDuplicateRecord, record.ID))
			}
		}
		ledger.Referrals = append(ledger.Referrals, record)

		value, err := json.MarshalIndent(ledger, "", "  ")
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to encode ledger: %w", err))
		}

		_, err = r.store.PutIfVersion(ctx, KeyReferrals, value, version)
		if errors.Is(err, docstore.ErrVersionConflict) {
			return err
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to write ledger: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newConflictBackOff(), ledgerMaxRetries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		r.logger.Error().
			Err(err).
			Str("record_id", record.ID.String()).
			Str("promo_code", record.PromoCode).
			Int("attempts", attempts).
			Msg("failed to append commission record")
		return err
	}

	r.logger.Debug().
		Str("record_id", record.ID.String()).
		Str("promo_code", record.PromoCode).
		Float64("commission", record.CommissionAmount).
		Int("attempts", attempts).
		Msg("commission record appended")

	return nil
}

// List returns all records.
func (r *ledgerRepository) List(ctx context.Context) ([]model.CommissionRecord, error) {
	ledger, _, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Referrals, nil
}

func (r *ledgerRepository) load(ctx context.Context) (*model.Ledger, string, error) {
	doc, err := r.store.Get(ctx, KeyReferrals)
	if errors.Is(err, docstore.ErrNotFound) {
		return &model.Ledger{Referrals: []model.CommissionRecord{}}, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read ledger: %w", err)
	}

	var ledger model.Ledger
	if err := json.Unmarshal(doc.Value, &ledger); err != nil {
		r.logger.Error().Err(err).Str("version", doc.Version).Msg("failed to decode ledger")
		return nil, "", fmt.Errorf("%w: failed to decode ledger: %v", ErrCorruptDocument, err)
	}
	if ledger.Referrals == nil {
		ledger.Referrals = []model.CommissionRecord{}
	}
	return &ledger, doc.Version, nil
}

// newConflictBackOff is a short exponential backoff suited to in-process CAS retries.
func newConflictBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}
