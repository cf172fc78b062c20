package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingCode         = "MISSING_CODE"
	ErrCodeMissingEmail        = "MISSING_EMAIL"
	ErrCodeInvalidPrice        = "INVALID_PRICE"
	ErrCodeInvalidPromo        = "INVALID_PROMO_CODE"
	ErrCodePromoNotFound       = "PROMO_NOT_FOUND"
	ErrCodePromoExists         = "PROMO_EXISTS"
	ErrCodePromoExpired        = "PROMO_EXPIRED"
	ErrCodePromoInactive       = "PROMO_INACTIVE"
	ErrCodeRewardNotAvailable  = "REWARD_NOT_AVAILABLE"
	ErrCodeAlreadyUsed         = "ALREADY_USED"
	ErrCodeSalonLimitReached   = "SALON_LIMIT_REACHED"
	ErrCodeMinPurchaseNotMet   = "MIN_PURCHASE_NOT_MET"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInvalidVariant      = "INVALID_VARIANT"
	ErrCodeInvalidDiscountType = "INVALID_DISCOUNT_TYPE"
)

// ErrorKind groups domain errors by how callers are expected to react.
type ErrorKind int

const (
	// KindInput is a malformed or incomplete request.
	KindInput ErrorKind = iota
	// KindNotFound means the presented code does not exist.
	KindNotFound
	// KindRejected is a final business-rule rejection; never retried.
	KindRejected
	// KindExists is a create of a code that is already in the catalog.
	KindExists
	// KindTransient may succeed if the client retries later.
	KindTransient
)

// DomainError is a business or input error that is safe to show to the end user.
type DomainError struct {
	Code    string
	Message string
	Kind    ErrorKind
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, kind ErrorKind) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Input errors
var (
	ErrMissingCode         = NewDomainError(ErrCodeMissingCode, "Promo code is required", KindInput)
	ErrMissingEmail        = NewDomainError(ErrCodeMissingEmail, "Redeemer email is required", KindInput)
	ErrInvalidPrice        = NewDomainError(ErrCodeInvalidPrice, "Prices must not be negative", KindInput)
	ErrInvalidVariant      = NewDomainError(ErrCodeInvalidVariant, "A promo code cannot be both a referral and a salon referral", KindInput)
	ErrInvalidDiscountType = NewDomainError(ErrCodeInvalidDiscountType, "Discount type must be percentage or fixed", KindInput)
	ErrInvalidPromo        = NewDomainError(ErrCodeInvalidPromo, "Promo code definition is invalid", KindInput)
)

// Business-rule rejections
var (
	ErrPromoNotFound      = NewDomainError(ErrCodePromoNotFound, "Promo code not found", KindNotFound)
	ErrPromoExists        = NewDomainError(ErrCodePromoExists, "Promo code already exists", KindExists)
	ErrPromoExpired       = NewDomainError(ErrCodePromoExpired, "Promo code is not valid at this time", KindRejected)
	ErrPromoInactive      = NewDomainError(ErrCodePromoInactive, "Promo code is no longer active", KindRejected)
	ErrRewardNotAvailable = NewDomainError(ErrCodeRewardNotAvailable, "No referral reward is available yet. A friend must use your code first", KindRejected)
	ErrAlreadyUsed        = NewDomainError(ErrCodeAlreadyUsed, "This referral code has already been used", KindRejected)
	ErrSalonLimitReached  = NewDomainError(ErrCodeSalonLimitReached, "This salon code has reached its usage limit", KindRejected)
	ErrMinPurchaseNotMet  = NewDomainError(ErrCodeMinPurchaseNotMet, "Order total is below the minimum purchase for this code", KindRejected)
)

// Transient errors
var (
	ErrConflict           = NewDomainError(ErrCodeConflict, "Promo code is busy, please try again", KindTransient)
	ErrStorageUnavailable = NewDomainError(ErrCodeStorageUnavailable, "Promo storage is temporarily unavailable", KindTransient)
)
