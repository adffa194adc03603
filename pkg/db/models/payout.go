package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// Payout batches one or more approved commissions into a single transfer to a
// payee's verified destination.
type Payout struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PayeeID            uuid.UUID          `gorm:"column:payee_id;type:uuid;not null;index"`
	DestinationID      uuid.UUID          `gorm:"column:destination_id;type:uuid;not null"`
	GrossCents         int64              `gorm:"column:gross_cents;not null"`
	ProcessingFeeCents int64              `gorm:"column:processing_fee_cents;not null"`
	NetCents           int64              `gorm:"column:net_cents;not null"`
	Status             enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	RequestedAt        time.Time          `gorm:"column:requested_at;not null;index"`
	ScheduledAt        time.Time          `gorm:"column:scheduled_at;not null;index"`
	ProcessedAt        *time.Time         `gorm:"column:processed_at"`
	CompletedAt        *time.Time         `gorm:"column:completed_at"`
	FailureReason      *string            `gorm:"column:failure_reason"`
	TransferReference  *string            `gorm:"column:transfer_reference"`
	Commissions        []Commission       `gorm:"foreignKey:PayoutID"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
