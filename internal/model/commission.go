package model

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus is the state of one commission payout part.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
)

// CommissionRecord is the immutable ledger entry written for each salon-referral redemption.
// Payout status fields are only moved to paid by the payout reconciliation process.
type CommissionRecord struct {
	ID              uuid.UUID `json:"id"`
	PromoCode       string    `json:"promoCode"`
	SalonName       string    `json:"salonName"`
	SalonEmail      string    `json:"salonEmail"`
	ClientEmail     string    `json:"clientEmail"`
	ClientName      string    `json:"clientName,omitempty"`
	Service         string    `json:"service,omitempty"`
	BookingID       string    `json:"bookingId,omitempty"`
	AppointmentDate string    `json:"appointmentDate,omitempty"`
	AppointmentTime string    `json:"appointmentTime,omitempty"`

	OriginalPrice   float64 `json:"originalPrice"`
	FinalPrice      float64 `json:"finalPrice"`
	DiscountApplied float64 `json:"discountApplied"`

	CommissionPercent      float64 `json:"commissionPercent"`
	CommissionEarlyPercent float64 `json:"commissionEarlyPercent"`
	CommissionFinalPercent float64 `json:"commissionFinalPercent"`
	CommissionAmount       float64 `json:"commissionAmount"`
	CommissionEarlyAmount  float64 `json:"commissionEarlyAmount"`
	CommissionFinalAmount  float64 `json:"commissionFinalAmount"`

	CommissionEarlyStatus PayoutStatus `json:"commissionEarlyStatus"`
	CommissionFinalStatus PayoutStatus `json:"commissionFinalStatus"`
	CommissionEarlyPaidAt *time.Time   `json:"commissionEarlyPaidAt"`
	CommissionFinalPaidAt *time.Time   `json:"commissionFinalPaidAt"`

	Status    PayoutStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Ledger is the persisted commission record collection.
type Ledger struct {
	Referrals []CommissionRecord `json:"referrals"`
}

// CommissionSplit is the business-wide commission configuration.
// EarlyPercent is the part of TotalPercent paid out early; the rest is paid at final settlement.
type CommissionSplit struct {
	TotalPercent float64 `json:"totalPercent"`
	EarlyPercent float64 `json:"earlyPercent"`
}

// FinalPercent is the part of the commission paid at final settlement.
func (s CommissionSplit) FinalPercent() float64 {
	return s.TotalPercent - s.EarlyPercent
}

// Valid reports whether the split is usable.
func (s CommissionSplit) Valid() bool {
	return s.TotalPercent >= 0 && s.TotalPercent <= 100 &&
		s.EarlyPercent >= 0 && s.EarlyPercent <= s.TotalPercent
}
