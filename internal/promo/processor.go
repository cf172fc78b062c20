package promo

import (
	"fmt"
	"strconv"

	"promo-engine/internal/model"
	"promo-engine/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// processor implements Processor.
type processor struct {
	newID  func() uuid.UUID
	logger zerolog.Logger
}

// NewProcessor creates a new redemption processor.
func NewProcessor(logger zerolog.Logger) Processor {
	return &processor{
		newID:  uuid.New,
		logger: logger.With().Str("component", "promo-processor").Logger(),
	}
}

// Redeem applies one redemption. Eligibility is checked in full before anything
// on code is changed.
func (p *processor) Redeem(code *model.PromoCode, rc model.RedemptionContext, opts RedeemOptions) (*Outcome, error) {
	email := model.NormalizeEmail(rc.RedeemerEmail)
	if email == "" {
		return nil, model.ErrMissingEmail
	}

	var (
		outcome *Outcome
		err     error
	)
	switch v := code.Variant.(type) {
	case nil, model.Standard:
		err = p.checkStandard(code)
	case *model.Referral:
		err = p.checkReferral(code, v, email)
	case *model.SalonReferral:
		err = p.checkSalon(code, v)
	default:
		err = model.ErrInvalidVariant
	}
	if err != nil {
		p.logger.Info().
			Str("promo_code", code.Code).
			Str("kind", string(code.Kind())).
			Err(err).
			Msg("redemption rejected")
		return nil, err
	}

	if !MeetsMinimum(code, rc.OriginalPrice) {
		return nil, model.ErrMinPurchaseNotMet
	}

	outcome = &Outcome{Redeemer: email}
	if rc.OriginalPrice != nil {
		outcome.Discount = Discount(code, *rc.OriginalPrice)
		final := FinalPrice(*rc.OriginalPrice, outcome.Discount)
		outcome.FinalPrice = &final
	}
	if rc.FinalPrice != nil {
		final := *rc.FinalPrice
		outcome.FinalPrice = &final
	}

	switch v := code.Variant.(type) {
	case *model.Referral:
		p.applyReferral(code, v, outcome)
	case *model.SalonReferral:
		p.applySalon(code, v, rc, opts, outcome)
	default:
		p.applyStandard(code, outcome)
	}
	outcome.EmailAdded = code.AddUsedBy(email)

	p.logger.Debug().
		Str("promo_code", code.Code).
		Str("role", string(outcome.Role)).
		Float64("discount", outcome.Discount).
		Bool("deactivated", outcome.Deactivated).
		Msg("redemption applied")

	return outcome, nil
}

func (p *processor) checkStandard(code *model.PromoCode) error {
	if !code.Active || code.UsageLimitReached() {
		return model.ErrPromoInactive
	}
	return nil
}

func (p *processor) checkReferral(code *model.PromoCode, v *model.Referral, email string) error {
	if !code.Active {
		return model.ErrPromoInactive
	}
	if email == model.NormalizeEmail(v.ReferrerEmail) {
		if !v.ReferrerRewardAvailable {
			return model.ErrRewardNotAvailable
		}
		return nil
	}
	if v.FriendUsesRemaining <= 0 {
		return model.ErrAlreadyUsed
	}
	return nil
}

func (p *processor) checkSalon(code *model.PromoCode, v *model.SalonReferral) error {
	if !code.Active {
		return model.ErrPromoInactive
	}
	if v.SalonUsageLimit != nil && v.SalonUsedCount >= *v.SalonUsageLimit {
		return model.ErrSalonLimitReached
	}
	if code.UsageLimitReached() {
		return model.ErrPromoInactive
	}
	return nil
}

func (p *processor) applyStandard(code *model.PromoCode, outcome *Outcome) {
	outcome.Role = RoleStandard
	code.UsedCount++
	if code.UsageLimitReached() {
		code.Active = false
		outcome.Deactivated = true
	}
}

func (p *processor) applyReferral(code *model.PromoCode, v *model.Referral, outcome *Outcome) {
	code.UsedCount++
	outcome.prevRewardAvailable = v.ReferrerRewardAvailable

	if outcome.Redeemer == model.NormalizeEmail(v.ReferrerEmail) {
		outcome.Role = RoleReferrer
		v.ReferrerRewardAvailable = false
		return
	}

	outcome.Role = RoleFriend
	v.FriendUsesRemaining--
	v.ReferrerRewardAvailable = true
	outcome.Notifications = append(outcome.Notifications, notify.Message{
		Kind: notify.KindReferralRewardReady,
		To:   model.NormalizeEmail(v.ReferrerEmail),
		Vars: map[string]string{
			"code": code.Code,
		},
	})
}

func (p *processor) applySalon(code *model.PromoCode, v *model.SalonReferral, rc model.RedemptionContext, opts RedeemOptions, outcome *Outcome) {
	outcome.Role = RoleSalon
	code.UsedCount++
	v.SalonUsedCount++

	var total, early, final, price float64
	if rc.OriginalPrice != nil {
		price = *rc.OriginalPrice
		total, early, final = SplitCommission(price, opts.Commission)
	}
	outcome.CommissionAmount = total
	v.CommissionTotal = addMoney(v.CommissionTotal, total)

	salonLimitReached := v.SalonUsageLimit != nil && v.SalonUsedCount >= *v.SalonUsageLimit
	if salonLimitReached || code.UsageLimitReached() {
		code.Active = false
		outcome.Deactivated = true
	}

	finalPrice := price
	if outcome.FinalPrice != nil {
		finalPrice = *outcome.FinalPrice
	}
	outcome.Commission = &model.CommissionRecord{
		ID:                     p.newID(),
		PromoCode:              code.Code,
		SalonName:              v.SalonName,
		SalonEmail:             model.NormalizeEmail(v.SalonEmail),
		ClientEmail:            outcome.Redeemer,
		ClientName:             rc.ClientName,
		Service:                rc.Service,
		BookingID:              rc.BookingID,
		AppointmentDate:        rc.AppointmentDate,
		AppointmentTime:        rc.AppointmentTime,
		OriginalPrice:          price,
		FinalPrice:             finalPrice,
		DiscountApplied:        outcome.Discount,
		CommissionPercent:      opts.Commission.TotalPercent,
		CommissionEarlyPercent: opts.Commission.EarlyPercent,
		CommissionFinalPercent: opts.Commission.FinalPercent(),
		CommissionAmount:       total,
		CommissionEarlyAmount:  early,
		CommissionFinalAmount:  final,
		CommissionEarlyStatus:  model.PayoutPending,
		CommissionFinalStatus:  model.PayoutPending,
		Status:                 model.PayoutPending,
		CreatedAt:              opts.Now.UTC(),
	}

	outcome.Notifications = append(outcome.Notifications, notify.Message{
		Kind: notify.KindSalonReferralUsed,
		To:   model.NormalizeEmail(v.SalonEmail),
		Vars: map[string]string{
			"salonName":        v.SalonName,
			"clientName":       rc.ClientName,
			"clientEmail":      outcome.Redeemer,
			"service":          rc.Service,
			"bookingId":        rc.BookingID,
			"appointmentDate":  rc.AppointmentDate,
			"appointmentTime":  rc.AppointmentTime,
			"usageSummary":     UsageSummary(v),
			"commissionAmount": strconv.FormatFloat(total, 'f', -1, 64),
		},
	})
}

// UsageSummary describes how often a salon code has been redeemed.
func UsageSummary(v *model.SalonReferral) string {
	if v.SalonUsageLimit != nil {
		return fmt.Sprintf("%d of %d redeemed", v.SalonUsedCount, *v.SalonUsageLimit)
	}
	return fmt.Sprintf("%d redeemed", v.SalonUsedCount)
}

// Revert undoes outcome on code. It is used when a committed redemption could
// not be completed downstream, so code is the freshly loaded stored copy.
func (p *processor) Revert(code *model.PromoCode, outcome *Outcome) {
	if outcome == nil {
		return
	}

	if code.UsedCount > 0 {
		code.UsedCount--
	}
	if outcome.Deactivated {
		code.Active = true
	}
	if outcome.EmailAdded {
		code.RemoveUsedBy(outcome.Redeemer)
	}

	switch v := code.Variant.(type) {
	case *model.Referral:
		switch outcome.Role {
		case RoleReferrer:
			v.ReferrerRewardAvailable = true
		case RoleFriend:
			v.FriendUsesRemaining++
			v.ReferrerRewardAvailable = outcome.prevRewardAvailable
		}
	case *model.SalonReferral:
		if v.SalonUsedCount > 0 {
			v.SalonUsedCount--
		}
		v.CommissionTotal = subMoney(v.CommissionTotal, outcome.CommissionAmount)
		if v.CommissionTotal < 0 {
			v.CommissionTotal = 0
		}
	}

	p.logger.Warn().
		Str("promo_code", code.Code).
		Str("role", string(outcome.Role)).
		Msg("redemption reverted")
}
