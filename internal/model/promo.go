package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DiscountType is how a code's discount value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// VariantKind names the variant of a promo code.
type VariantKind string

const (
	KindStandard      VariantKind = "standard"
	KindReferral      VariantKind = "referral"
	KindSalonReferral VariantKind = "salon_referral"
)

// Variant is the variant-specific state of a promo code. It is sealed: the only
// implementations are Standard, *Referral and *SalonReferral.
type Variant interface {
	Kind() VariantKind
	clone() Variant
}

// Standard is a plain discount code.
type Standard struct{}

func (Standard) Kind() VariantKind { return KindStandard }
func (Standard) clone() Variant    { return Standard{} }

// Referral is a code owned by a referrer and shared with friends.
type Referral struct {
	ReferrerEmail           string
	ReferrerRewardAvailable bool
	FriendUsesRemaining     int
}

func (*Referral) Kind() VariantKind { return KindReferral }
func (r *Referral) clone() Variant {
	c := *r
	return &c
}

// SalonReferral is a partner code that earns the salon a commission per use.
type SalonReferral struct {
	SalonName             string
	SalonEmail            string
	SalonUsageLimit       *int
	SalonUsedCount        int
	CommissionTotal       float64
	CommissionPaid        float64
	ClientDiscountPercent float64
}

func (*SalonReferral) Kind() VariantKind { return KindSalonReferral }
func (s *SalonReferral) clone() Variant {
	c := *s
	c.SalonUsageLimit = cloneInt(s.SalonUsageLimit)
	return &c
}

// PromoCode is one row of the promo catalog. Code is compared case-insensitively.
type PromoCode struct {
	Code          string
	Description   string
	DiscountType  DiscountType
	DiscountValue float64
	MinPurchase   *float64
	MaxDiscount   *float64
	ValidFrom     Date
	ValidUntil    Date
	UsageLimit    *int
	UsedCount     int
	Active        bool
	UsedByEmails  []string
	Variant       Variant
	CreatedAt     time.Time
}

// NormalizeCode returns the comparison key for a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail returns the comparison key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Matches reports whether the code matches the presented string, ignoring case.
func (p *PromoCode) Matches(code string) bool {
	return NormalizeCode(p.Code) == NormalizeCode(code)
}

// InWindow reports whether now lies within the inclusive validity window.
// Unset bounds are open.
func (p *PromoCode) InWindow(now time.Time) bool {
	if !p.ValidFrom.IsZero() && now.Before(p.ValidFrom.Start()) {
		return false
	}
	if !p.ValidUntil.IsZero() && now.After(p.ValidUntil.End()) {
		return false
	}
	return true
}

// UsageLimitReached reports whether the global usage limit is set and reached.
func (p *PromoCode) UsageLimitReached() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}

// HasUsedBy reports whether the normalized email has redeemed this code before.
func (p *PromoCode) HasUsedBy(email string) bool {
	email = NormalizeEmail(email)
	for _, e := range p.UsedByEmails {
		if e == email {
			return true
		}
	}
	return false
}

// AddUsedBy records the email with set semantics. It returns true when the email was new.
func (p *PromoCode) AddUsedBy(email string) bool {
	email = NormalizeEmail(email)
	if email == "" || p.HasUsedBy(email) {
		return false
	}
	p.UsedByEmails = append(p.UsedByEmails, email)
	return true
}

// RemoveUsedBy drops the email from the set.
func (p *PromoCode) RemoveUsedBy(email string) {
	email = NormalizeEmail(email)
	out := p.UsedByEmails[:0]
	for _, e := range p.UsedByEmails {
		if e != email {
			out = append(out, e)
		}
	}
	p.UsedByEmails = out
}

// Clone returns a deep copy.
func (p *PromoCode) Clone() *PromoCode {
	c := *p
	c.MinPurchase = cloneFloat(p.MinPurchase)
	c.MaxDiscount = cloneFloat(p.MaxDiscount)
	c.UsageLimit = cloneInt(p.UsageLimit)
	c.UsedByEmails = append([]string(nil), p.UsedByEmails...)
	if p.Variant != nil {
		c.Variant = p.Variant.clone()
	}
	return &c
}

// Kind returns the variant kind, treating a nil variant as standard.
func (p *PromoCode) Kind() VariantKind {
	if p.Variant == nil {
		return KindStandard
	}
	return p.Variant.Kind()
}

// Validate checks the static definition of a code.
func (p *PromoCode) Validate() error {
	if NormalizeCode(p.Code) == "" {
		return ErrMissingCode
	}
	if !p.DiscountType.Valid() {
		return ErrInvalidDiscountType
	}
	if p.DiscountValue < 0 {
		return fmt.Errorf("%w: discount value must not be negative", ErrInvalidPromo)
	}
	if p.DiscountType == DiscountPercentage && p.DiscountValue > 100 {
		return fmt.Errorf("%w: percentage discount must not exceed 100", ErrInvalidPromo)
	}
	if p.UsageLimit != nil && *p.UsageLimit < 1 {
		return fmt.Errorf("%w: usage limit must be at least 1", ErrInvalidPromo)
	}
	if !p.ValidFrom.IsZero() && !p.ValidUntil.IsZero() && p.ValidUntil.End().Before(p.ValidFrom.Start()) {
		return fmt.Errorf("%w: validUntil is before validFrom", ErrInvalidPromo)
	}
	switch v := p.Variant.(type) {
	case nil, Standard:
	case *Referral:
		if NormalizeEmail(v.ReferrerEmail) == "" {
			return fmt.Errorf("%w: referral code needs a referrer email", ErrInvalidPromo)
		}
		if v.FriendUsesRemaining < 0 {
			return fmt.Errorf("%w: friend uses must not be negative", ErrInvalidPromo)
		}
	case *SalonReferral:
		if NormalizeEmail(v.SalonEmail) == "" {
			return fmt.Errorf("%w: salon code needs a salon email", ErrInvalidPromo)
		}
		if v.SalonUsageLimit != nil && *v.SalonUsageLimit < 1 {
			return fmt.Errorf("%w: salon usage limit must be at least 1", ErrInvalidPromo)
		}
		if v.ClientDiscountPercent < 0 || v.ClientDiscountPercent > 100 {
			return fmt.Errorf("%w: client discount percent must be between 0 and 100", ErrInvalidPromo)
		}
	default:
		return ErrInvalidVariant
	}
	return nil
}

// promoCodeJSON is the flat document layout shared with the rest of the application.
type promoCodeJSON struct {
	Code          string       `json:"code"`
	Description   string       `json:"description,omitempty"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	MinPurchase   *float64     `json:"minPurchase,omitempty"`
	MaxDiscount   *float64     `json:"maxDiscount"`
	ValidFrom     Date         `json:"validFrom"`
	ValidUntil    Date         `json:"validUntil"`
	UsageLimit    *int         `json:"usageLimit"`
	UsedCount     int          `json:"usedCount"`
	Active        bool         `json:"active"`
	UsedByEmails  []string     `json:"usedByEmails"`
	CreatedAt     *time.Time   `json:"createdAt,omitempty"`

	IsReferral              bool   `json:"isReferral,omitempty"`
	ReferrerEmail           string `json:"referrerEmail,omitempty"`
	ReferrerRewardAvailable bool   `json:"referrerRewardAvailable,omitempty"`
	FriendUsesRemaining     int    `json:"friendUsesRemaining,omitempty"`

	IsSalonReferral       bool    `json:"isSalonReferral,omitempty"`
	SalonName             string  `json:"salonName,omitempty"`
	SalonEmail            string  `json:"salonEmail,omitempty"`
	SalonUsageLimit       *int    `json:"salonUsageLimit,omitempty"`
	SalonUsedCount        int     `json:"salonUsedCount,omitempty"`
	CommissionTotal       float64 `json:"commissionTotal,omitempty"`
	CommissionPaid        float64 `json:"commissionPaid,omitempty"`
	ClientDiscountPercent float64 `json:"clientDiscountPercent,omitempty"`
}

// MarshalJSON flattens the variant into the isReferral / isSalonReferral layout.
func (p PromoCode) MarshalJSON() ([]byte, error) {
	w := promoCodeJSON{
		Code:          p.Code,
		Description:   p.Description,
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
		MinPurchase:   p.MinPurchase,
		MaxDiscount:   p.MaxDiscount,
		ValidFrom:     p.ValidFrom,
		ValidUntil:    p.ValidUntil,
		UsageLimit:    p.UsageLimit,
		UsedCount:     p.UsedCount,
		Active:        p.Active,
		UsedByEmails:  p.UsedByEmails,
	}
	if w.UsedByEmails == nil {
		w.UsedByEmails = []string{}
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		w.CreatedAt = &t
	}

	switch v := p.Variant.(type) {
	case nil, Standard:
	case *Referral:
		w.IsReferral = true
		w.ReferrerEmail = v.ReferrerEmail
		w.ReferrerRewardAvailable = v.ReferrerRewardAvailable
		w.FriendUsesRemaining = v.FriendUsesRemaining
	case *SalonReferral:
		w.IsSalonReferral = true
		w.SalonName = v.SalonName
		w.SalonEmail = v.SalonEmail
		w.SalonUsageLimit = v.SalonUsageLimit
		w.SalonUsedCount = v.SalonUsedCount
		w.CommissionTotal = v.CommissionTotal
		w.CommissionPaid = v.CommissionPaid
		w.ClientDiscountPercent = v.ClientDiscountPercent
	default:
		return nil, ErrInvalidVariant
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the variant from the flat flags. Both flags set is an error.
func (p *PromoCode) UnmarshalJSON(data []byte) error {
	var w promoCodeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.IsReferral && w.IsSalonReferral {
		return fmt.Errorf("promo code %q: %w", w.Code, ErrInvalidVariant)
	}

	*p = PromoCode{
		Code:          w.Code,
		Description:   w.Description,
		DiscountType:  w.DiscountType,
		DiscountValue: w.DiscountValue,
		MinPurchase:   w.MinPurchase,
		MaxDiscount:   w.MaxDiscount,
		ValidFrom:     w.ValidFrom,
		ValidUntil:    w.ValidUntil,
		UsageLimit:    w.UsageLimit,
		UsedCount:     w.UsedCount,
		Active:        w.Active,
		UsedByEmails:  w.UsedByEmails,
		Variant:       Standard{},
	}
	if w.CreatedAt != nil {
		p.CreatedAt = *w.CreatedAt
	}

	switch {
	case w.IsReferral:
		p.Variant = &Referral{
			ReferrerEmail:           w.ReferrerEmail,
			ReferrerRewardAvailable: w.ReferrerRewardAvailable,
			FriendUsesRemaining:     w.FriendUsesRemaining,
		}
	case w.IsSalonReferral:
		p.Variant = &SalonReferral{
			SalonName:             w.SalonName,
			SalonEmail:            w.SalonEmail,
			SalonUsageLimit:       w.SalonUsageLimit,
			SalonUsedCount:        w.SalonUsedCount,
			CommissionTotal:       w.CommissionTotal,
			CommissionPaid:        w.CommissionPaid,
			ClientDiscountPercent: w.ClientDiscountPercent,
		}
	}
	return nil
}

// Catalog is the persisted promo code collection.
type Catalog struct {
	PromoCodes []*PromoCode `json:"promoCodes"`
}

// Find returns the index of the code, ignoring case, or -1.
func (c *Catalog) Find(code string) int {
	key := NormalizeCode(code)
	if key == "" {
		return -1
	}
	for i, p := range c.PromoCodes {
		if NormalizeCode(p.Code) == key {
			return i
		}
	}
	return -1
}

// Lookup returns the code, ignoring case, or nil.
func (c *Catalog) Lookup(code string) *PromoCode {
	if i := c.Find(code); i >= 0 {
		return c.PromoCodes[i]
	}
	return nil
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
