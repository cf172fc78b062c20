// Command seed writes a sample promo catalog into the configured document store.
//
// The catalog is only written when none exists yet. With -force the sample codes
// missing from an existing catalog are added; codes already present keep their
// counters, so the commission ledger stays consistent with them.
// Usage:
//
//	STORE_BACKEND=sqlite go run ./cmd/seed [-force] [-settings]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"promo-engine/internal/config"
	"promo-engine/internal/docstore"
	"promo-engine/internal/model"
	"promo-engine/internal/repository"

	"github.com/rs/zerolog"
)

// options controls a seed run.
type options struct {
	// Merge adds missing sample codes to an existing catalog.
	Merge bool
	// WriteSettings stores Split as the business-wide commission split.
	WriteSettings bool
	Split         model.CommissionSplit
	Now           time.Time
}

func main() {
	force := flag.Bool("force", false, "add missing sample codes to an existing catalog")
	settings := flag.Bool("settings", false, "also store the configured commission split")
	flag.Parse()

	cfg, err := config.LoadStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := docstore.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open document store: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, store, options{
		Merge:         *force,
		WriteSettings: *settings,
		Split: model.CommissionSplit{
			TotalPercent: cfg.Commission.TotalPercent,
			EarlyPercent: cfg.Commission.EarlyPercent,
		},
		Now: time.Now().UTC(),
	}, logger)
	store.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, store docstore.Store, opts options, logger zerolog.Logger) error {
	if err := seedCatalog(ctx, repository.NewCatalogRepository(store, logger), opts, logger); err != nil {
		return err
	}

	if opts.WriteSettings {
		if err := repository.NewSettingsRepository(store, opts.Split, logger).Save(ctx, opts.Split); err != nil {
			return err
		}
	}

	return summarize(ctx, store, opts.Split, logger)
}

func seedCatalog(ctx context.Context, catalogRepo repository.CatalogRepository, opts options, logger zerolog.Logger) error {
	existing, version, err := catalogRepo.Load(ctx)
	if err != nil {
		return err
	}
	if version != "" && !opts.Merge {
		logger.Info().
			Int("codes", len(existing.PromoCodes)).
			Msg("catalog already present, use -force to add missing sample codes")
		return nil
	}

	added, err := mergeSample(existing, sampleCatalog(opts.Now))
	if err != nil {
		return err
	}
	if len(added) == 0 {
		logger.Info().Int("codes", len(existing.PromoCodes)).Msg("catalog already holds every sample code")
		return nil
	}

	if _, err := catalogRepo.Save(ctx, existing, version); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	logger.Info().
		Strs("added", added).
		Int("codes", len(existing.PromoCodes)).
		Bool("merged", version != "").
		Msg("sample catalog written")

	return nil
}

// mergeSample appends the sample codes missing from catalog and returns their
// codes. Codes already in catalog are left untouched.
func mergeSample(catalog, sample *model.Catalog) ([]string, error) {
	var added []string
	for _, p := range sample.PromoCodes {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("sample code %s is invalid: %w", p.Code, err)
		}
		if catalog.Lookup(p.Code) != nil {
			continue
		}
		catalog.PromoCodes = append(catalog.PromoCodes, p)
		added = append(added, p.Code)
	}
	return added, nil
}

// summarize logs what the store currently holds.
func summarize(ctx context.Context, store docstore.Store, defaults model.CommissionSplit, logger zerolog.Logger) error {
	split, err := repository.NewSettingsRepository(store, defaults, logger).Get(ctx)
	if err != nil {
		return err
	}

	records, err := repository.NewLedgerRepository(store, logger).List(ctx)
	if err != nil {
		return err
	}

	var total float64
	for _, r := range records {
		total += r.CommissionAmount
	}

	logger.Info().
		Float64("commission_total_percent", split.TotalPercent).
		Float64("commission_early_percent", split.EarlyPercent).
		Int("commission_records", len(records)).
		Float64("commission_owed", total).
		Msg("store summary")

	return nil
}

func sampleCatalog(now time.Time) *model.Catalog {
	year := now.Year()

	return &model.Catalog{PromoCodes: []*model.PromoCode{
		{
			Code:          "SAVE10",
			Description:   "10% off any booking",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 10,
			MaxDiscount:   model.FloatPtr(50),
			ValidFrom:     model.NewDay(year, time.January, 1),
			ValidUntil:    model.NewDay(year, time.December, 31),
			UsageLimit:    model.IntPtr(100),
			Active:        true,
			UsedByEmails:  []string{},
			Variant:       model.Standard{},
			CreatedAt:     now,
		},
		{
			Code:          "WELCOME15",
			Description:   "15 off a first booking over 60",
			DiscountType:  model.DiscountFixed,
			DiscountValue: 15,
			MinPurchase:   model.FloatPtr(60),
			Active:        true,
			UsedByEmails:  []string{},
			Variant:       model.Standard{},
			CreatedAt:     now,
		},
		{
			Code:          "REF-ANNA",
			Description:   "Referral from Anna",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 15,
			Active:        true,
			UsedByEmails:  []string{},
			Variant: &model.Referral{
				ReferrerEmail:       "anna@example.com",
				FriendUsesRemaining: 1,
			},
			CreatedAt: now,
		},
		{
			Code:          "SALON-LUX",
			Description:   "Lux Hair partner code",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 10,
			Active:        true,
			UsedByEmails:  []string{},
			Variant: &model.SalonReferral{
				SalonName:             "Lux Hair",
				SalonEmail:            "owner@lux.example",
				SalonUsageLimit:       model.IntPtr(50),
				ClientDiscountPercent: 10,
			},
			CreatedAt: now,
		},
	}}
}
