package services

import (
	"errors"
	"fmt"
)

// Domain errors recovered at the handler boundary and turned into structured
// failure responses.
var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrPriceNotSet        = errors.New("course price has not been set")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrOrderNotFound      = errors.New("gateway order not found")
	ErrAlreadyEnrolled    = errors.New("user is already enrolled in this course")
	ErrInvalidTransition  = errors.New("illegal enrollment state transition")
	ErrCourseIncomplete   = errors.New("course lessons are not fully completed")
	ErrEmptyCart          = errors.New("cart has no unpaid items")
)

// CouponErrorKind enumerates the coupon validation failures, ordered the way
// validation runs (first failing check wins).
type CouponErrorKind string

const (
	CouponNotFound    CouponErrorKind = "not_found"
	CouponInactive    CouponErrorKind = "inactive"
	CouponLimitUsage  CouponErrorKind = "usage_limit_reached"
	CouponOutOfWindow CouponErrorKind = "out_of_window"
	CouponAlreadyUsed CouponErrorKind = "already_used"
)

// CouponError is the typed failure returned by the coupon ledger
type CouponError struct {
	Kind CouponErrorKind
	Code string
}

func (e *CouponError) Error() string {
	switch e.Kind {
	case CouponNotFound:
		return fmt.Sprintf("coupon %q not found", e.Code)
	case CouponInactive:
		return fmt.Sprintf("coupon %q is not active", e.Code)
	case CouponLimitUsage:
		return fmt.Sprintf("coupon %q usage limit reached", e.Code)
	case CouponOutOfWindow:
		return fmt.Sprintf("coupon %q is outside its validity window", e.Code)
	case CouponAlreadyUsed:
		return fmt.Sprintf("coupon %q already used for this course", e.Code)
	}
	return fmt.Sprintf("coupon %q rejected", e.Code)
}

// AsCouponError unwraps err into a *CouponError if it is one
func AsCouponError(err error) (*CouponError, bool) {
	var ce *CouponError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
