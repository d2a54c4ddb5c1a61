package errors

import "errors"

var (
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownJobKind    = errors.New("unknown job kind")

	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidDiscount    = errors.New("invalid discount")
	ErrDiscountExhausted  = errors.New("discount exhausted")
	ErrInsufficientPoints = errors.New("insufficient points")
)

var business = []error{
	ErrNotFound,
	ErrInvalidRequest,
	ErrInsufficientStock,
	ErrInvalidDiscount,
	ErrDiscountExhausted,
	ErrInsufficientPoints,
}

// IsBusiness reports whether err is a deterministic checkout rejection.
// Such failures are never retried: the same input fails the same way.
func IsBusiness(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range business {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Code returns a stable machine readable code for business failures.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrInvalidDiscount):
		return "INVALID_DISCOUNT"
	case errors.Is(err, ErrDiscountExhausted):
		return "DISCOUNT_EXHAUSTED"
	case errors.Is(err, ErrInsufficientPoints):
		return "INSUFFICIENT_POINTS"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidRequest):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	default:
		return "INTERNAL"
	}
}
