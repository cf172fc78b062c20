package promo

import (
	"testing"
	"time"

	"promo-engine/internal/model"
	"promo-engine/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	testSplit = model.CommissionSplit{TotalPercent: 20, EarlyPercent: 10}
)

func testOpts() RedeemOptions {
	return RedeemOptions{Now: testNow, Commission: testSplit}
}

func redeemer(email string) model.RedemptionContext {
	return model.RedemptionContext{RedeemerEmail: email}
}

func standardCode(limit *int) *model.PromoCode {
	return &model.PromoCode{
		Code:          "SAVE10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		UsageLimit:    limit,
		Active:        true,
		Variant:       model.Standard{},
	}
}

func referralCode(friendUses int, reward bool) *model.PromoCode {
	return &model.PromoCode{
		Code:          "REF-ANNA",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 10,
		Active:        true,
		Variant: &model.Referral{
			ReferrerEmail:           "Anna@Example.com",
			ReferrerRewardAvailable: reward,
			FriendUsesRemaining:     friendUses,
		},
	}
}

func salonCode(salonLimit, usageLimit *int) *model.PromoCode {
	return &model.PromoCode{
		Code:          "SALON-LUX",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		UsageLimit:    usageLimit,
		Active:        true,
		Variant: &model.SalonReferral{
			SalonName:       "Lux Hair",
			SalonEmail:      "owner@lux.example",
			SalonUsageLimit: salonLimit,
		},
	}
}

func TestProcessor_Standard_SingleUse(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := standardCode(model.IntPtr(1))

	outcome, err := p.Redeem(code, redeemer("a@x.com"), testOpts())
	require.NoError(t, err)
	assert.Equal(t, RoleStandard, outcome.Role)
	assert.True(t, outcome.Deactivated)
	assert.Equal(t, 1, code.UsedCount)
	assert.False(t, code.Active)
	assert.Equal(t, []string{"a@x.com"}, code.UsedByEmails)
	assert.Empty(t, outcome.Notifications)

	_, err = p.Redeem(code, redeemer("b@x.com"), testOpts())
	assert.ErrorIs(t, err, model.ErrPromoInactive)
	assert.Equal(t, 1, code.UsedCount)
}

func TestProcessor_Standard_SameEmailMayRepeat(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := standardCode(model.IntPtr(3))

	for i := 0; i < 3; i++ {
		_, err := p.Redeem(code, redeemer("A@x.com "), testOpts())
		require.NoError(t, err)
	}

	assert.Equal(t, 3, code.UsedCount)
	assert.Equal(t, []string{"a@x.com"}, code.UsedByEmails)
	assert.False(t, code.Active)
}

func TestProcessor_Standard_LimitReachedButActive(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := standardCode(model.IntPtr(2))
	code.UsedCount = 2
	before := code.Clone()

	_, err := p.Redeem(code, redeemer("a@x.com"), testOpts())
	assert.ErrorIs(t, err, model.ErrPromoInactive)
	assert.Equal(t, before, code)
}

func TestProcessor_Standard_Pricing(t *testing.T) {
	p := NewProcessor(zerolog.Nop())

	t.Run("final price derived", func(t *testing.T) {
		code := standardCode(nil)
		rc := redeemer("a@x.com")
		rc.OriginalPrice = model.FloatPtr(200)

		outcome, err := p.Redeem(code, rc, testOpts())
		require.NoError(t, err)
		assert.Equal(t, 20.0, outcome.Discount)
		require.NotNil(t, outcome.FinalPrice)
		assert.Equal(t, 180.0, *outcome.FinalPrice)
	})

	t.Run("final price supplied", func(t *testing.T) {
		code := standardCode(nil)
		rc := redeemer("a@x.com")
		rc.OriginalPrice = model.FloatPtr(200)
		rc.FinalPrice = model.FloatPtr(175)

		outcome, err := p.Redeem(code, rc, testOpts())
		require.NoError(t, err)
		assert.Equal(t, 175.0, *outcome.FinalPrice)
	})

	t.Run("no price", func(t *testing.T) {
		code := standardCode(nil)

		outcome, err := p.Redeem(code, redeemer("a@x.com"), testOpts())
		require.NoError(t, err)
		assert.Equal(t, 0.0, outcome.Discount)
		assert.Nil(t, outcome.FinalPrice)
	})

	t.Run("below minimum", func(t *testing.T) {
		code := standardCode(nil)
		code.MinPurchase = model.FloatPtr(50)
		before := code.Clone()
		rc := redeemer("a@x.com")
		rc.OriginalPrice = model.FloatPtr(40)

		_, err := p.Redeem(code, rc, testOpts())
		assert.ErrorIs(t, err, model.ErrMinPurchaseNotMet)
		assert.Equal(t, before, code)
	})
}

func TestProcessor_MissingEmail(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := standardCode(nil)

	_, err := p.Redeem(code, redeemer("   "), testOpts())
	assert.ErrorIs(t, err, model.ErrMissingEmail)
	assert.Equal(t, 0, code.UsedCount)
}

func TestProcessor_Referral_Scenario(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := referralCode(1, false)
	ref := code.Variant.(*model.Referral)

	outcome, err := p.Redeem(code, redeemer("friend@x.com"), testOpts())
	require.NoError(t, err)
	assert.Equal(t, RoleFriend, outcome.Role)
	assert.Equal(t, 0, ref.FriendUsesRemaining)
	assert.True(t, ref.ReferrerRewardAvailable)
	require.Len(t, outcome.Notifications, 1)
	assert.Equal(t, notify.KindReferralRewardReady, outcome.Notifications[0].Kind)
	assert.Equal(t, "anna@example.com", outcome.Notifications[0].To)

	outcome, err = p.Redeem(code, redeemer("ANNA@example.com"), testOpts())
	require.NoError(t, err)
	assert.Equal(t, RoleReferrer, outcome.Role)
	assert.False(t, ref.ReferrerRewardAvailable)
	assert.Empty(t, outcome.Notifications)

	_, err = p.Redeem(code, redeemer("anna@example.com"), testOpts())
	assert.ErrorIs(t, err, model.ErrRewardNotAvailable)

	assert.Equal(t, 2, code.UsedCount)
	assert.True(t, code.Active)
	assert.ElementsMatch(t, []string{"friend@x.com", "anna@example.com"}, code.UsedByEmails)
}

func TestProcessor_Referral_FriendExhausted(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := referralCode(0, true)
	before := code.Clone()

	_, err := p.Redeem(code, redeemer("friend@x.com"), testOpts())
	assert.ErrorIs(t, err, model.ErrAlreadyUsed)
	assert.Equal(t, before, code)
}

func TestProcessor_Referral_Disabled(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := referralCode(3, true)
	code.Active = false

	_, err := p.Redeem(code, redeemer("friend@x.com"), testOpts())
	assert.ErrorIs(t, err, model.ErrPromoInactive)
}

func TestProcessor_Salon_Scenario(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := salonCode(model.IntPtr(2), nil)
	salon := code.Variant.(*model.SalonReferral)

	rc := model.RedemptionContext{
		RedeemerEmail:   "Client@x.com",
		OriginalPrice:   model.FloatPtr(1000),
		ClientName:      "Mia",
		Service:         "Balayage",
		BookingID:       "bk-1",
		AppointmentDate: "2026-03-20",
		AppointmentTime: "14:30",
	}

	outcome, err := p.Redeem(code, rc, testOpts())
	require.NoError(t, err)
	assert.Equal(t, RoleSalon, outcome.Role)
	assert.Equal(t, 200.0, outcome.CommissionAmount)
	assert.Equal(t, 200.0, salon.CommissionTotal)
	assert.Equal(t, 1, salon.SalonUsedCount)
	assert.Equal(t, 1, code.UsedCount)
	assert.True(t, code.Active)

	rec := outcome.Commission
	require.NotNil(t, rec)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "SALON-LUX", rec.PromoCode)
	assert.Equal(t, "client@x.com", rec.ClientEmail)
	assert.Equal(t, "bk-1", rec.BookingID)
	assert.Equal(t, 1000.0, rec.OriginalPrice)
	assert.Equal(t, 100.0, rec.DiscountApplied)
	assert.Equal(t, 900.0, rec.FinalPrice)
	assert.Equal(t, 200.0, rec.CommissionAmount)
	assert.Equal(t, 100.0, rec.CommissionEarlyAmount)
	assert.Equal(t, 100.0, rec.CommissionFinalAmount)
	assert.Equal(t, 10.0, rec.CommissionFinalPercent)
	assert.Equal(t, model.PayoutPending, rec.CommissionEarlyStatus)
	assert.Equal(t, model.PayoutPending, rec.CommissionFinalStatus)
	assert.Nil(t, rec.CommissionEarlyPaidAt)
	assert.Nil(t, rec.CommissionFinalPaidAt)
	assert.Equal(t, testNow, rec.CreatedAt)

	require.Len(t, outcome.Notifications, 1)
	msg := outcome.Notifications[0]
	assert.Equal(t, notify.KindSalonReferralUsed, msg.Kind)
	assert.Equal(t, "owner@lux.example", msg.To)
	assert.Equal(t, "1 of 2 redeemed", msg.Vars["usageSummary"])
	assert.Equal(t, "200", msg.Vars["commissionAmount"])
	assert.Equal(t, "Balayage", msg.Vars["service"])

	outcome, err = p.Redeem(code, rc, testOpts())
	require.NoError(t, err)
	assert.Equal(t, 2, salon.SalonUsedCount)
	assert.Equal(t, 400.0, salon.CommissionTotal)
	assert.False(t, code.Active)
	assert.True(t, outcome.Deactivated)
	assert.Equal(t, "2 of 2 redeemed", outcome.Notifications[0].Vars["usageSummary"])
}

func TestProcessor_Salon_Rejections(t *testing.T) {
	p := NewProcessor(zerolog.Nop())

	tests := []struct {
		name    string
		code    func() *model.PromoCode
		wantErr error
	}{
		{
			name: "inactive",
			code: func() *model.PromoCode {
				c := salonCode(nil, nil)
				c.Active = false
				return c
			},
			wantErr: model.ErrPromoInactive,
		},
		{
			name: "salon limit reached",
			code: func() *model.PromoCode {
				c := salonCode(model.IntPtr(2), nil)
				c.Variant.(*model.SalonReferral).SalonUsedCount = 2
				return c
			},
			wantErr: model.ErrSalonLimitReached,
		},
		{
			name: "usage limit reached",
			code: func() *model.PromoCode {
				c := salonCode(nil, model.IntPtr(1))
				c.UsedCount = 1
				return c
			},
			wantErr: model.ErrPromoInactive,
		},
		{
			name: "salon limit checked before usage limit",
			code: func() *model.PromoCode {
				c := salonCode(model.IntPtr(1), model.IntPtr(1))
				c.UsedCount = 1
				c.Variant.(*model.SalonReferral).SalonUsedCount = 1
				return c
			},
			wantErr: model.ErrSalonLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := tt.code()
			before := code.Clone()

			_, err := p.Redeem(code, redeemer("client@x.com"), testOpts())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, code)
		})
	}
}

func TestProcessor_Salon_NoPrice(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := salonCode(nil, nil)

	outcome, err := p.Redeem(code, redeemer("client@x.com"), testOpts())
	require.NoError(t, err)
	assert.Equal(t, 0.0, outcome.CommissionAmount)
	require.NotNil(t, outcome.Commission)
	assert.Equal(t, 0.0, outcome.Commission.CommissionAmount)
	assert.Equal(t, "1 redeemed", outcome.Notifications[0].Vars["usageSummary"])
}

func TestProcessor_Salon_UsageLimitDeactivates(t *testing.T) {
	p := NewProcessor(zerolog.Nop())
	code := salonCode(nil, model.IntPtr(1))

	outcome, err := p.Redeem(code, redeemer("client@x.com"), testOpts())
	require.NoError(t, err)
	assert.True(t, outcome.Deactivated)
	assert.False(t, code.Active)
}

func TestProcessor_Revert(t *testing.T) {
	p := NewProcessor(zerolog.Nop())

	t.Run("standard", func(t *testing.T) {
		code := standardCode(model.IntPtr(1))
		before := code.Clone()

		outcome, err := p.Redeem(code, redeemer("a@x.com"), testOpts())
		require.NoError(t, err)

		p.Revert(code, outcome)
		assert.Equal(t, before.UsedCount, code.UsedCount)
		assert.True(t, code.Active)
		assert.Empty(t, code.UsedByEmails)
	})

	t.Run("friend", func(t *testing.T) {
		code := referralCode(2, false)
		before := code.Clone()

		outcome, err := p.Redeem(code, redeemer("friend@x.com"), testOpts())
		require.NoError(t, err)

		p.Revert(code, outcome)
		assert.Equal(t, before.Variant, code.Variant)
		assert.Equal(t, 0, code.UsedCount)
	})

	t.Run("referrer", func(t *testing.T) {
		code := referralCode(0, true)

		outcome, err := p.Redeem(code, redeemer("anna@example.com"), testOpts())
		require.NoError(t, err)

		p.Revert(code, outcome)
		assert.True(t, code.Variant.(*model.Referral).ReferrerRewardAvailable)
	})

	t.Run("salon", func(t *testing.T) {
		code := salonCode(model.IntPtr(1), nil)
		code.UsedByEmails = []string{"earlier@x.com"}
		rc := redeemer("client@x.com")
		rc.OriginalPrice = model.FloatPtr(125)

		outcome, err := p.Redeem(code, rc, testOpts())
		require.NoError(t, err)
		require.False(t, code.Active)

		p.Revert(code, outcome)
		salon := code.Variant.(*model.SalonReferral)
		assert.Equal(t, 0, salon.SalonUsedCount)
		assert.Equal(t, 0.0, salon.CommissionTotal)
		assert.True(t, code.Active)
		assert.Equal(t, []string{"earlier@x.com"}, code.UsedByEmails)
	})

	t.Run("nil outcome", func(t *testing.T) {
		code := standardCode(nil)
		p.Revert(code, nil)
		assert.Equal(t, 0, code.UsedCount)
	})
}

func TestUsageSummary(t *testing.T) {
	assert.Equal(t, "3 of 5 redeemed", UsageSummary(&model.SalonReferral{SalonUsedCount: 3, SalonUsageLimit: model.IntPtr(5)}))
	assert.Equal(t, "7 redeemed", UsageSummary(&model.SalonReferral{SalonUsedCount: 7}))
}
