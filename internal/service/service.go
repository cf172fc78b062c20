package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promo-engine/internal/docstore"
	"promo-engine/internal/model"
	"promo-engine/internal/notify"

	"github.com/cenkalti/backoff/v4"
)

// PromoService defines operations on promo codes.
type PromoService interface {
	// Redeem consumes a code for one checkout. Business rejections are final;
	// Conflict and StorageUnavailable may be retried by the client.
	Redeem(ctx context.Context, req *model.RedemptionRequest) (*model.RedemptionResponse, error)

	// Validate quotes a code without changing any state.
	Validate(ctx context.Context, req *model.ValidateRequest) (*model.ValidateResponse, error)

	// Get returns the sanitized view of a code.
	Get(ctx context.Context, code string) (*model.PromoCodeView, error)

	// Create adds a new code to the catalog.
	Create(ctx context.Context, req *model.CreatePromoRequest) (*model.PromoCodeView, error)
}

// Dispatcher hands committed notifications to delivery.
type Dispatcher interface {
	Dispatch(msgs ...notify.Message)
}

// Options tunes concurrency control of the promo service.
type Options struct {
	// Strategy is "optimistic" or "lock". With "lock" every redemption also
	// holds an in-process lock on its code for the whole read-decide-write.
	Strategy string

	// MaxRetries bounds how often a version conflict is retried.
	MaxRetries int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// storageError marks err as a storage failure while keeping it inspectable.
func storageError(err error) error {
	return fmt.Errorf("%w: %w", model.ErrStorageUnavailable, err)
}

// classify maps an error from a store round trip to what callers see.
func classify(err error) error {
	var domainErr *model.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, docstore.ErrVersionConflict):
		return model.ErrConflict
	default:
		return storageError(err)
	}
}

// permanent stops a retry loop on anything other than a version conflict.
func permanent(err error) error {
	if err == nil || errors.Is(err, docstore.ErrVersionConflict) {
		return err
	}
	return backoff.Permanent(err)
}

func newRetryPolicy(ctx context.Context, maxRetries int) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}
