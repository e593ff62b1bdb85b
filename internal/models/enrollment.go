package models

import (
	"time"

	"gorm.io/gorm"
)

// AccessStatus is the enrollment lifecycle. Inactive means the line item has
// not been covered by a paid session yet; it is stored explicitly so that
// "never checked out" and "checkout abandoned" stay distinguishable.
type AccessStatus string

const (
	AccessStatusInactive  AccessStatus = "inactive"
	AccessStatusActive    AccessStatus = "active"
	AccessStatusCompleted AccessStatus = "completed"
	AccessStatusCancelled AccessStatus = "cancelled"
)

// PaymentType records how an enrollment was settled
type PaymentType string

const (
	PaymentTypeFree     PaymentType = "free"
	PaymentTypeMidtrans PaymentType = "midtrans"
)

// CourseEnrollment is a user's right to access a course, tracked from checkout
// through payment to completion. Price is a snapshot of the amount charged at
// checkout time and is never recomputed. A user holds at most one row per
// course; the composite unique index enforces that across retried checkouts.
type CourseEnrollment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID   uint `gorm:"uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID uint `gorm:"uniqueIndex:idx_enrollment_user_course" json:"course_id"`

	CheckoutSessionID *uint        `gorm:"index" json:"checkout_session_id"`
	Price             int64        `json:"price"`
	CouponID          *uint        `json:"coupon_id"`
	PaymentType       PaymentType  `gorm:"type:varchar(20)" json:"payment_type"`
	AccessStatus      AccessStatus `gorm:"type:varchar(20);default:'inactive'" json:"access_status"`

	EnrolledAt time.Time  `json:"enrolled_at"`
	ExpiredAt  *time.Time `json:"expired_at"`
	PaidAt     *time.Time `json:"paid_at"`

	// Relationships
	User            User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course          Course           `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	CheckoutSession *CheckoutSession `gorm:"foreignKey:CheckoutSessionID" json:"checkout_session,omitempty"`
	Coupon          *Coupon          `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
}
