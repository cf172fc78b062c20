// Package promo holds the redemption rules for promo, referral and salon-referral codes.
// Everything here is pure: it reads and mutates in-memory values and leaves
// persistence and delivery to the service layer.
package promo

import (
	"time"

	"promo-engine/internal/model"
	"promo-engine/internal/notify"
)

// Validator defines the interface for read-only promo code lookup.
type Validator interface {
	// Validate finds the code in the catalog, ignoring case, and checks its
	// validity window. It does not reject inactive or exhausted codes; the
	// processor decides that per variant. The returned code is a copy.
	Validate(catalog *model.Catalog, code string, now time.Time) (*model.PromoCode, error)
}

// Processor defines the interface for applying a redemption to a code.
type Processor interface {
	// Redeem applies the variant-specific transition to code in place. On
	// rejection code is left untouched.
	Redeem(code *model.PromoCode, rc model.RedemptionContext, opts RedeemOptions) (*Outcome, error)

	// Revert undoes the counter changes of a previous outcome on code.
	Revert(code *model.PromoCode, outcome *Outcome)
}

// RedeemOptions carries the inputs the processor does not own.
type RedeemOptions struct {
	Now        time.Time
	Commission model.CommissionSplit
}

// Role is the redemption path taken.
type Role string

const (
	RoleStandard Role = "standard"
	RoleFriend   Role = "friend"
	RoleReferrer Role = "referrer"
	RoleSalon    Role = "salon"
)

// Outcome describes a successful redemption.
type Outcome struct {
	Role             Role
	Discount         float64
	FinalPrice       *float64
	CommissionAmount float64

	// Commission is set for salon-referral redemptions.
	Commission *model.CommissionRecord

	// Notifications are sent only after the redemption is committed.
	Notifications []notify.Message

	Deactivated bool
	EmailAdded  bool
	Redeemer    string

	prevRewardAvailable bool
}
