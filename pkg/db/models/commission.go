package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// Commission is the earned-but-unpaid amount owed to a payee for one fulfilled
// order. Exactly one commission exists per order (unique order_id). A non-nil
// PayoutID means the commission is claimed by that payout.
type Commission struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null;unique"`
	PayeeID          uuid.UUID              `gorm:"column:payee_id;type:uuid;not null;index"`
	OrderAmountCents int64                  `gorm:"column:order_amount_cents;not null"`
	Rate             decimal.Decimal        `gorm:"column:rate;type:numeric(6,4);not null"`
	GrossCents       int64                  `gorm:"column:gross_cents;not null"`
	PlatformFeeCents int64                  `gorm:"column:platform_fee_cents;not null"`
	NetCents         int64                  `gorm:"column:net_cents;not null"`
	Status           enums.CommissionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PayoutID         *uuid.UUID             `gorm:"column:payout_id;type:uuid;index"`
	FulfilledAt      time.Time              `gorm:"column:fulfilled_at;not null;index"`
	ApprovedAt       *time.Time             `gorm:"column:approved_at"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	Notes            *string                `gorm:"column:notes"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
