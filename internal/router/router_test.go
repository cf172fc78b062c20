package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"promo-engine/internal/docstore"
	"promo-engine/internal/handler"
	"promo-engine/internal/middleware"
	"promo-engine/internal/model"
	"promo-engine/internal/notify"
	"promo-engine/internal/promo"
	"promo-engine/internal/repository"
	"promo-engine/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	store := docstore.NewMemoryStore()

	catalog := &model.Catalog{PromoCodes: []*model.PromoCode{{
		Code:          "SAVE10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		Active:        true,
		Variant:       model.Standard{},
	}}}
	_, err := repository.NewCatalogRepository(store, logger).Save(context.Background(), catalog, "")
	require.NoError(t, err)

	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(logger), 1, 0, logger)
	t.Cleanup(func() { dispatcher.Close(context.Background()) })

	svc := service.NewPromoService(
		repository.NewCatalogRepository(store, logger),
		repository.NewLedgerRepository(store, logger),
		repository.NewSettingsRepository(store, model.CommissionSplit{TotalPercent: 20, EarlyPercent: 10}, logger),
		promo.NewValidator(logger),
		promo.NewProcessor(logger),
		dispatcher,
		service.Options{MaxRetries: 3},
		logger,
	)

	return New(handler.NewPromoHandler(svc, logger), "secret", logger)
}

func TestRouter_Routes(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		auth   bool
		status int
	}{
		{"health without key", http.MethodGet, "/health", "", false, http.StatusOK},
		{"get without key", http.MethodGet, "/api/promo-codes/SAVE10", "", false, http.StatusUnauthorized},
		{"get", http.MethodGet, "/api/promo-codes/save10", "", true, http.StatusOK},
		{"get unknown", http.MethodGet, "/api/promo-codes/NOPE", "", true, http.StatusNotFound},
		{"validate", http.MethodPost, "/api/promo-codes/validate", `{"code":"SAVE10","originalPrice":20}`, true, http.StatusOK},
		{"redeem", http.MethodPost, "/api/promo-codes/redeem", `{"code":"SAVE10","redeemerEmail":"a@x.com"}`, true, http.StatusOK},
		{"create", http.MethodPost, "/api/promo-codes", `{"code":"NEW","discountType":"fixed","discountValue":5,"active":true}`, true, http.StatusCreated},
		{"unknown route", http.MethodGet, "/api/orders", "", true, http.StatusNotFound},
		{"wrong method", http.MethodGet, "/api/promo-codes/redeem/x", "", true, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth {
				req.Header.Set("X-API-Key", "secret")
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_PropagatesRequestID(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/promo-codes/NOPE", nil)
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"correlationId":"req-123"`)
}
