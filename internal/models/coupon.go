package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon is an admin-managed discount code. UsedCount is derived from the
// coupon_usages ledger and never stored authoritatively.
type Coupon struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Code     string       `gorm:"type:varchar(100);uniqueIndex" json:"code"`
	Type     DiscountType `gorm:"type:varchar(20)" json:"type"`
	Value    int64        `json:"value"`
	StartAt  *time.Time   `json:"start_at"`
	EndAt    *time.Time   `json:"end_at"`
	// no default tag: GORM drops zero-valued fields carrying one on Create,
	// which would store an inactive coupon as active
	IsActive bool         `json:"is_active"`
	MaxUsage *int64       `json:"max_usage"`

	// Relationships
	Usages []CouponUsage `gorm:"foreignKey:CouponID" json:"usages,omitempty"`
}

// CouponUsage marks one redemption of a coupon for a (user, course) pair.
// The composite unique index is the authoritative double-spend guard; the
// ledger's pre-flight check is only a convenience.
type CouponUsage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   uint      `gorm:"uniqueIndex:idx_coupon_usage_triple" json:"user_id"`
	CourseID uint      `gorm:"uniqueIndex:idx_coupon_usage_triple" json:"course_id"`
	CouponID uint      `gorm:"uniqueIndex:idx_coupon_usage_triple" json:"coupon_id"`
	UsedAt   time.Time `json:"used_at"`

	// Relationships
	Coupon Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
