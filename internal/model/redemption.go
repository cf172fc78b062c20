package model

import "time"

// RedemptionRequest is the payload presented at checkout.
type RedemptionRequest struct {
	Code            string   `json:"code"`
	RedeemerEmail   string   `json:"redeemerEmail"`
	OriginalPrice   *float64 `json:"originalPrice,omitempty"`
	FinalPrice      *float64 `json:"finalPrice,omitempty"`
	ClientName      string   `json:"clientName,omitempty"`
	Service         string   `json:"service,omitempty"`
	BookingID       string   `json:"bookingId,omitempty"`
	AppointmentDate string   `json:"appointmentDate,omitempty"`
	AppointmentTime string   `json:"appointmentTime,omitempty"`
}

// Validate checks the request for input errors.
func (r *RedemptionRequest) Validate() error {
	if NormalizeCode(r.Code) == "" {
		return ErrMissingCode
	}
	if NormalizeEmail(r.RedeemerEmail) == "" {
		return ErrMissingEmail
	}
	if (r.OriginalPrice != nil && *r.OriginalPrice < 0) || (r.FinalPrice != nil && *r.FinalPrice < 0) {
		return ErrInvalidPrice
	}
	return nil
}

// Context returns the redemption context handed to the processor.
func (r *RedemptionRequest) Context() RedemptionContext {
	return RedemptionContext{
		RedeemerEmail:   NormalizeEmail(r.RedeemerEmail),
		OriginalPrice:   r.OriginalPrice,
		FinalPrice:      r.FinalPrice,
		ClientName:      r.ClientName,
		Service:         r.Service,
		BookingID:       r.BookingID,
		AppointmentDate: r.AppointmentDate,
		AppointmentTime: r.AppointmentTime,
	}
}

// RedemptionContext describes who redeems a code and for what booking.
type RedemptionContext struct {
	RedeemerEmail   string
	OriginalPrice   *float64
	FinalPrice      *float64
	ClientName      string
	Service         string
	BookingID       string
	AppointmentDate string
	AppointmentTime string
}

// ValidateRequest asks whether a code could be applied to a price, without redeeming it.
type ValidateRequest struct {
	Code          string   `json:"code"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
}

// ValidateResponse is the read-only quote for a code.
type ValidateResponse struct {
	Valid           bool          `json:"valid"`
	DiscountApplied float64       `json:"discountApplied"`
	PromoCode       PromoCodeView `json:"promoCode"`
}

// RedemptionResponse is returned to the checkout flow on success.
type RedemptionResponse struct {
	Success               bool          `json:"success"`
	FriendRedeemed        bool          `json:"friendRedeemed"`
	ReferrerRedeemed      bool          `json:"referrerRedeemed"`
	SalonRedeemed         bool          `json:"salonRedeemed"`
	DiscountApplied       float64       `json:"discountApplied"`
	FinalPrice            *float64      `json:"finalPrice,omitempty"`
	SalonCommissionAmount float64       `json:"salonCommissionAmount"`
	PromoCode             PromoCodeView `json:"promoCode"`
}

// PromoCodeView is the sanitized representation of a code. It never exposes
// redeemer emails, owner emails or commission totals.
type PromoCodeView struct {
	Code                  string       `json:"code"`
	Description           string       `json:"description,omitempty"`
	Kind                  VariantKind  `json:"kind"`
	DiscountType          DiscountType `json:"discountType"`
	DiscountValue         float64      `json:"discountValue"`
	MinPurchase           *float64     `json:"minPurchase,omitempty"`
	MaxDiscount           *float64     `json:"maxDiscount,omitempty"`
	ValidFrom             Date         `json:"validFrom"`
	ValidUntil            Date         `json:"validUntil"`
	UsageLimit            *int         `json:"usageLimit,omitempty"`
	UsedCount             int          `json:"usedCount"`
	Active                bool         `json:"active"`
	FriendUsesRemaining   *int         `json:"friendUsesRemaining,omitempty"`
	SalonName             string       `json:"salonName,omitempty"`
	SalonUsageLimit       *int         `json:"salonUsageLimit,omitempty"`
	SalonUsedCount        *int         `json:"salonUsedCount,omitempty"`
	ClientDiscountPercent float64      `json:"clientDiscountPercent,omitempty"`
}

// View returns the sanitized representation of the code.
func (p *PromoCode) View() PromoCodeView {
	v := PromoCodeView{
		Code:          p.Code,
		Description:   p.Description,
		Kind:          p.Kind(),
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
		MinPurchase:   cloneFloat(p.MinPurchase),
		MaxDiscount:   cloneFloat(p.MaxDiscount),
		ValidFrom:     p.ValidFrom,
		ValidUntil:    p.ValidUntil,
		UsageLimit:    cloneInt(p.UsageLimit),
		UsedCount:     p.UsedCount,
		Active:        p.Active,
	}
	switch variant := p.Variant.(type) {
	case *Referral:
		v.FriendUsesRemaining = IntPtr(variant.FriendUsesRemaining)
	case *SalonReferral:
		v.SalonName = variant.SalonName
		v.SalonUsageLimit = cloneInt(variant.SalonUsageLimit)
		v.SalonUsedCount = IntPtr(variant.SalonUsedCount)
		v.ClientDiscountPercent = variant.ClientDiscountPercent
	}
	return v
}

// CreatePromoRequest is the admin payload for adding a code to the catalog.
// It uses the same flat layout as the stored document.
type CreatePromoRequest struct {
	PromoCode
}

// Build normalizes the request into a new catalog entry.
func (r *CreatePromoRequest) Build(now time.Time) (*PromoCode, error) {
	p := r.PromoCode.Clone()
	p.Code = NormalizeCode(p.Code)
	if p.Variant == nil {
		p.Variant = Standard{}
	}
	p.UsedCount = 0
	p.UsedByEmails = []string{}
	if s, ok := p.Variant.(*SalonReferral); ok {
		s.SalonUsedCount = 0
		s.CommissionTotal = 0
		s.CommissionPaid = 0
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
