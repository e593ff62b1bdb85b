package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentGateway identifies which gateway a session was created against
type PaymentGateway string

const (
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
)

// CheckoutType discriminates single-item from multi-item sessions
type CheckoutType string

const (
	CheckoutTypeCart   CheckoutType = "cart"
	CheckoutTypeBuyNow CheckoutType = "buy_now"
)

// PaymentStatus is the lifecycle of a checkout session. Paid and expired are
// terminal; once reached, later gateway events for the same order are ignored.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusExpired PaymentStatus = "expired"
)

// IsTerminal reports whether the status can no longer change
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExpired
}

// CheckoutSession groups one or more enrollment line items paid for together
// in a single gateway transaction.
type CheckoutSession struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID        uint          `gorm:"index" json:"user_id"`
	CheckoutType  CheckoutType  `gorm:"type:varchar(20);not null" json:"checkout_type"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`

	// Gateway correlation. GatewayOrderID is the key inbound webhook events
	// are matched on.
	GatewayOrderID           string `gorm:"type:varchar(100);uniqueIndex" json:"gateway_order_id"`
	GatewayTransactionID     string `gorm:"type:varchar(100)" json:"gateway_transaction_id"`
	GatewayTransactionStatus string `gorm:"type:varchar(50)" json:"gateway_transaction_status"`
	GatewayFraudStatus       string `gorm:"type:varchar(50)" json:"gateway_fraud_status"`

	SnapToken   string     `gorm:"type:varchar(255)" json:"snap_token"`
	RedirectURL string     `gorm:"type:varchar(512)" json:"redirect_url"`
	PaidAt      *time.Time `json:"paid_at"`

	// Relationships
	User  User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []CourseEnrollment `gorm:"foreignKey:CheckoutSessionID" json:"items,omitempty"`
}
