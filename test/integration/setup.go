package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"promo-engine/internal/database"
	"promo-engine/internal/docstore"
	"promo-engine/internal/handler"
	"promo-engine/internal/model"
	"promo-engine/internal/notify"
	"promo-engine/internal/promo"
	"promo-engine/internal/repository"
	"promo-engine/internal/router"
	"promo-engine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key"

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	Store     docstore.Store
}

// SetupTestDB creates a PostgreSQL test container, applies migrations and
// wraps the pool in a document store.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.MigratePostgres(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		Store:     docstore.WithTimeout(docstore.NewPostgresStore(pool, zerolog.Nop()), 5*time.Second),
	}
}

// CleanupDB removes every stored document.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "DELETE FROM documents"); err != nil {
		t.Logf("failed to clean documents: %v", err)
	}
}

// SeedCatalog writes the test catalog: a standard code with a usage limit of 2,
// a referral code and a salon code with a salon limit of 2.
func SeedCatalog(t *testing.T, store docstore.Store) {
	t.Helper()

	catalog := &model.Catalog{PromoCodes: []*model.PromoCode{
		{
			Code:          "SAVE10",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 10,
			UsageLimit:    model.IntPtr(2),
			Active:        true,
			Variant:       model.Standard{},
		},
		{
			Code:          "REF1",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 15,
			Active:        true,
			Variant:       &model.Referral{ReferrerEmail: "alice@x.com", FriendUsesRemaining: 1},
		},
		{
			Code:          "SALON1",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 10,
			Active:        true,
			Variant: &model.SalonReferral{
				SalonName:       "Lux",
				SalonEmail:      "owner@lux.com",
				SalonUsageLimit: model.IntPtr(2),
			},
		},
	}}

	repo := repository.NewCatalogRepository(store, zerolog.Nop())
	if _, err := repo.Save(context.Background(), catalog, ""); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
}

// Outbox captures dispatched notifications.
type Outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *Outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *Outbox) Messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.msgs...)
}

// TestServer is the full HTTP stack over a store.
type TestServer struct {
	Handler    http.Handler
	Outbox     *Outbox
	Dispatcher *notify.Dispatcher
	Ledger     repository.LedgerRepository
}

// Drain waits for queued notifications.
func (s *TestServer) Drain(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Dispatcher.Close(ctx); err != nil {
		t.Fatalf("failed to drain notifications: %v", err)
	}
}

// NewTestServer wires repositories, service, handler and router the way cmd/api does.
func NewTestServer(t *testing.T, store docstore.Store, strategy string) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	outbox := &Outbox{}

	catalogRepo := repository.NewCatalogRepository(store, logger)
	ledgerRepo := repository.NewLedgerRepository(store, logger)
	settingsRepo := repository.NewSettingsRepository(store, model.CommissionSplit{TotalPercent: 20, EarlyPercent: 10}, logger)

	dispatcher := notify.NewDispatcher(outbox, 2, time.Second, logger)
	t.Cleanup(func() { dispatcher.Close(context.Background()) })

	promoService := service.NewPromoService(
		catalogRepo,
		ledgerRepo,
		settingsRepo,
		promo.NewValidator(logger),
		promo.NewProcessor(logger),
		dispatcher,
		service.Options{Strategy: strategy, MaxRetries: 100},
		logger,
	)

	return &TestServer{
		Handler:    router.New(handler.NewPromoHandler(promoService, logger), testAPIKey, logger),
		Outbox:     outbox,
		Dispatcher: dispatcher,
		Ledger:     ledgerRepo,
	}
}
