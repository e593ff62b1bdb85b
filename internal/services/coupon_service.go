package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

// couponZone fixes the time zone used to expand the coupon validity window to
// day granularity, so a coupon valid "until the 5th" works through the whole
// 5th regardless of server locale.
var couponZone = time.FixedZone("WIB", 7*60*60)

// CouponService is the redemption ledger. The unique (user, course, coupon)
// index on coupon_usages is the authoritative double-spend guard; the checks
// in ApplyCoupon are pre-flight only.
type CouponService struct {
	db *gorm.DB
}

func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{db: db}
}

// PreviewCoupon runs the full validation chain without recording a usage.
// Checkout previews use this to show the would-be discount.
func (s *CouponService) PreviewCoupon(ctx context.Context, userID, courseID uint, code string, now time.Time) (*models.Coupon, error) {
	coupon, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, coupon, userID, courseID, now); err != nil {
		return nil, err
	}
	return coupon, nil
}

// ApplyCoupon validates the coupon and records at-most-once usage per
// (user, course, coupon). Validation is ordered; the first failing check wins.
func (s *CouponService) ApplyCoupon(ctx context.Context, userID, courseID uint, code string, now time.Time) (*models.CouponUsage, error) {
	coupon, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, coupon, userID, courseID, now); err != nil {
		return nil, err
	}

	usage := models.CouponUsage{
		UserID:   userID,
		CourseID: courseID,
		CouponID: coupon.ID,
		UsedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&usage).Error; err != nil {
		// Two concurrent requests can both pass the pre-flight check; the
		// unique triple catches the loser here.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &CouponError{Kind: CouponAlreadyUsed, Code: code}
		}
		return nil, err
	}
	usage.Coupon = *coupon
	return &usage, nil
}

// RecordedUsage returns the usage already logged for a (user, course) pair,
// or nil when none exists. Checkout reuses it in displayed totals.
func (s *CouponService) RecordedUsage(ctx context.Context, userID, courseID uint) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	err := s.db.WithContext(ctx).
		Preload("Coupon").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&usage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

// UsedCount derives how many times a coupon has been redeemed
func (s *CouponService) UsedCount(ctx context.Context, couponID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Count(&count).Error
	return count, err
}

func (s *CouponService) findByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &CouponError{Kind: CouponNotFound, Code: code}
		}
		return nil, err
	}
	return &coupon, nil
}

func (s *CouponService) validate(ctx context.Context, coupon *models.Coupon, userID, courseID uint, now time.Time) error {
	if !coupon.IsActive {
		return &CouponError{Kind: CouponInactive, Code: coupon.Code}
	}

	if coupon.MaxUsage != nil {
		used, err := s.UsedCount(ctx, coupon.ID)
		if err != nil {
			return err
		}
		if used >= *coupon.MaxUsage {
			return &CouponError{Kind: CouponLimitUsage, Code: coupon.Code}
		}
	}

	if !couponWindowContains(coupon, now) {
		return &CouponError{Kind: CouponOutOfWindow, Code: coupon.Code}
	}

	var existing models.CouponUsage
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND coupon_id = ?", userID, courseID, coupon.ID).
		First(&existing).Error
	if err == nil {
		return &CouponError{Kind: CouponAlreadyUsed, Code: coupon.Code}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// couponWindowContains checks [start_at, end_at] inclusive at day granularity:
// the window opens at the start of start_at's day and closes at the end of
// end_at's day in the fixed zone. A nil bound is open on that side.
func couponWindowContains(coupon *models.Coupon, now time.Time) bool {
	if coupon.StartAt != nil {
		if now.Before(startOfDay(*coupon.StartAt)) {
			return false
		}
	}
	if coupon.EndAt != nil {
		if !now.Before(startOfDay(*coupon.EndAt).AddDate(0, 0, 1)) {
			return false
		}
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	local := t.In(couponZone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, couponZone)
}
