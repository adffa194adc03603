package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// Order is the fulfillment-side view of a marketplace order. Once it reaches a
// terminal status only audit metadata may change.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID        uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	PayeeID           *uuid.UUID              `gorm:"column:payee_id;type:uuid;index"`
	FulfillmentMethod enums.FulfillmentMethod `gorm:"column:fulfillment_method;type:text;not null"`
	Status            enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'pending'"`
	SubtotalCents     int64                   `gorm:"column:subtotal_cents;not null"`
	FeesCents         int64                   `gorm:"column:fees_cents;not null;default:0"`
	TaxCents          int64                   `gorm:"column:tax_cents;not null;default:0"`
	TotalCents        int64                   `gorm:"column:total_cents;not null"`
	FulfilledAt       *time.Time              `gorm:"column:fulfilled_at"`
	CancelledAt       *time.Time              `gorm:"column:cancelled_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
