package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentCallbackHistory keeps every raw gateway notification for audit,
// including ones that reference unknown order ids.
type PaymentCallbackHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PaymentGateway PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	GatewayOrderID string          `gorm:"type:varchar(100);index" json:"gateway_order_id"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata"`
}
