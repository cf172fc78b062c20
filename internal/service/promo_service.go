package service

import (
	"context"
	"errors"
	"time"

	"promo-engine/internal/config"
	"promo-engine/internal/docstore"
	"promo-engine/internal/model"
	"promo-engine/internal/promo"
	"promo-engine/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// promoService implements PromoService.
type promoService struct {
	catalog    repository.CatalogRepository
	ledger     repository.LedgerRepository
	settings   repository.SettingsRepository
	validator  promo.Validator
	processor  promo.Processor
	dispatcher Dispatcher
	locks      *promo.KeyLock
	maxRetries int
	now        func() time.Time
	logger     zerolog.Logger
}

// NewPromoService creates a new promo service.
func NewPromoService(
	catalog repository.CatalogRepository,
	ledger repository.LedgerRepository,
	settings repository.SettingsRepository,
	validator promo.Validator,
	processor promo.Processor,
	dispatcher Dispatcher,
	opts Options,
	logger zerolog.Logger,
) PromoService {
	s := &promoService{
		catalog:    catalog,
		ledger:     ledger,
		settings:   settings,
		validator:  validator,
		processor:  processor,
		dispatcher: dispatcher,
		maxRetries: opts.MaxRetries,
		now:        opts.Now,
		logger:     logger.With().Str("service", "promo").Logger(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Strategy == config.StrategyLock {
		s.locks = promo.NewKeyLock()
	}
	return s
}

// Redeem runs validate, redeem and commit under compare-and-swap, then records
// the commission and hands notifications to the dispatcher.
func (s *promoService) Redeem(ctx context.Context, req *model.RedemptionRequest) (*model.RedemptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// A redemption that reached the store must finish even if the caller leaves.
	ctx = context.WithoutCancel(ctx)

	if s.locks != nil {
		unlock := s.locks.Lock(req.Code)
		defer unlock()
	}

	rc := req.Context()
	now := s.now()

	var (
		split    *model.CommissionSplit
		code     *model.PromoCode
		outcome  *promo.Outcome
		attempts int
	)

	op := func() error {
		attempts++

		catalog, version, err := s.catalog.Load(ctx)
		if err != nil {
			return permanent(err)
		}

		found, err := s.validator.Validate(catalog, req.Code, now)
		if err != nil {
			return permanent(err)
		}

		opts := promo.RedeemOptions{Now: now}
		if found.Kind() == model.KindSalonReferral {
			if split == nil {
				current, err := s.settings.Get(ctx)
				if err != nil {
					return permanent(err)
				}
				split = &current
			}
			opts.Commission = *split
		}

		result, err := s.processor.Redeem(found, rc, opts)
		if err != nil {
			return permanent(err)
		}

		catalog.PromoCodes[catalog.Find(found.Code)] = found
		if _, err := s.catalog.Save(ctx, catalog, version); err != nil {
			if errors.Is(err, docstore.ErrVersionConflict) {
				s.logger.Debug().
					Str("promo_code", found.Code).
					Int("attempt", attempts).
					Err(err).
					Msg("catalog write conflict, retrying")
			}
			return permanent(err)
		}

		code, outcome = found, result
		return nil
	}

	if err := backoff.Retry(op, newRetryPolicy(ctx, s.maxRetries)); err != nil {
		err = classify(err)
		s.logRejection(req.Code, attempts, err)
		return nil, err
	}

	if outcome.Commission != nil {
		if err := s.ledger.Append(ctx, *outcome.Commission); err != nil && !s.commissionRecorded(ctx, outcome.Commission) {
			s.logger.Error().
				Err(err).
				Str("promo_code", code.Code).
				Str("record_id", outcome.Commission.ID.String()).
				Msg("failed to record commission, reverting redemption")
			s.compensate(ctx, code.Code, outcome)
			return nil, storageError(err)
		}
	}

	s.dispatcher.Dispatch(outcome.Notifications...)

	s.logger.Info().
		Str("promo_code", code.Code).
		Str("role", string(outcome.Role)).
		Float64("discount", outcome.Discount).
		Float64("commission", outcome.CommissionAmount).
		Int("attempts", attempts).
		Msg("promo code redeemed")

	return &model.RedemptionResponse{
		Success:               true,
		FriendRedeemed:        outcome.Role == promo.RoleFriend,
		ReferrerRedeemed:      outcome.Role == promo.RoleReferrer,
		SalonRedeemed:         outcome.Role == promo.RoleSalon,
		DiscountApplied:       outcome.Discount,
		FinalPrice:            outcome.FinalPrice,
		SalonCommissionAmount: outcome.CommissionAmount,
		PromoCode:             code.View(),
	}, nil
}

// commissionRecorded reports whether a failed append still left the record in the
// ledger, as happens when the write commits but the acknowledgement is lost.
// An unreadable ledger counts as not recorded.
func (s *promoService) commissionRecorded(ctx context.Context, record *model.CommissionRecord) bool {
	records, err := s.ledger.List(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("record_id", record.ID.String()).
			Msg("failed to read ledger after append failure")
		return false
	}

	for _, existing := range records {
		if existing.ID == record.ID {
			s.logger.Warn().
				Str("promo_code", record.PromoCode).
				Str("record_id", record.ID.String()).
				Msg("commission append reported failure but record is present, keeping redemption")
			return true
		}
	}
	return false
}

// compensate reverts a committed redemption whose commission could not be recorded.
func (s *promoService) compensate(ctx context.Context, code string, outcome *promo.Outcome) {
	attempts := 0
	op := func() error {
		attempts++

		catalog, version, err := s.catalog.Load(ctx)
		if err != nil {
			return permanent(err)
		}
		current := catalog.Lookup(code)
		if current == nil {
			return backoff.Permanent(model.ErrPromoNotFound)
		}

		s.processor.Revert(current, outcome)
		_, err = s.catalog.Save(ctx, catalog, version)
		return permanent(err)
	}

	if err := backoff.Retry(op, newRetryPolicy(ctx, s.maxRetries)); err != nil {
		s.logger.Error().
			Err(err).
			Str("promo_code", code).
			Int("attempts", attempts).
			Msg("failed to revert redemption, counters need manual repair")
		return
	}

	s.logger.Warn().
		Str("promo_code", code).
		Int("attempts", attempts).
		Msg("redemption reverted after ledger failure")
}

func (s *promoService) logRejection(code string, attempts int, err error) {
	event := s.logger.Info()
	if isTransient(err) {
		event = s.logger.Error()
	}
	event.
		Err(err).
		Str("promo_code", code).
		Int("attempts", attempts).
		Msg("redemption failed")
}

// Validate quotes the discount of a code for an optional price.
func (s *promoService) Validate(ctx context.Context, req *model.ValidateRequest) (*model.ValidateResponse, error) {
	if model.NormalizeCode(req.Code) == "" {
		return nil, model.ErrMissingCode
	}
	if req.OriginalPrice != nil && *req.OriginalPrice < 0 {
		return nil, model.ErrInvalidPrice
	}

	catalog, _, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, classify(err)
	}

	code, err := s.validator.Validate(catalog, req.Code, s.now())
	if err != nil {
		return nil, err
	}
	if !code.Active {
		return nil, model.ErrPromoInactive
	}
	if !promo.MeetsMinimum(code, req.OriginalPrice) {
		return nil, model.ErrMinPurchaseNotMet
	}

	resp := &model.ValidateResponse{
		Valid:     true,
		PromoCode: code.View(),
	}
	if req.OriginalPrice != nil {
		resp.DiscountApplied = promo.Discount(code, *req.OriginalPrice)
	}

	s.logger.Debug().
		Str("promo_code", code.Code).
		Float64("discount", resp.DiscountApplied).
		Msg("promo code validated")

	return resp, nil
}

// Get returns the sanitized view of a code regardless of its window.
func (s *promoService) Get(ctx context.Context, code string) (*model.PromoCodeView, error) {
	if model.NormalizeCode(code) == "" {
		return nil, model.ErrMissingCode
	}

	catalog, _, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, classify(err)
	}

	found := catalog.Lookup(code)
	if found == nil {
		return nil, model.ErrPromoNotFound
	}

	view := found.View()
	return &view, nil
}

// Create appends a new code to the catalog under compare-and-swap.
func (s *promoService) Create(ctx context.Context, req *model.CreatePromoRequest) (*model.PromoCodeView, error) {
	code, err := req.Build(s.now().UTC())
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	op := func() error {
		catalog, version, err := s.catalog.Load(ctx)
		if err != nil {
			return permanent(err)
		}
		if catalog.Find(code.Code) >= 0 {
			return backoff.Permanent(model.ErrPromoExists)
		}

		catalog.PromoCodes = append(catalog.PromoCodes, code)
		_, err = s.catalog.Save(ctx, catalog, version)
		return permanent(err)
	}

	if err := backoff.Retry(op, newRetryPolicy(ctx, s.maxRetries)); err != nil {
		err = classify(err)
		s.logger.Warn().Err(err).Str("promo_code", code.Code).Msg("failed to create promo code")
		return nil, err
	}

	s.logger.Info().
		Str("promo_code", code.Code).
		Str("kind", string(code.Kind())).
		Msg("promo code created")

	view := code.View()
	return &view, nil
}

func isTransient(err error) bool {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind == model.KindTransient
	}
	return true
}
