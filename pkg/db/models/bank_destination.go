package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// BankDestination is an external account that can receive payouts. At most one
// destination per payee carries the primary flag; only verified destinations
// are eligible payout targets.
type BankDestination struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PayeeID    uuid.UUID               `gorm:"column:payee_id;type:uuid;not null;index"`
	Label      string                  `gorm:"column:label;not null"`
	Status     enums.DestinationStatus `gorm:"column:status;type:text;not null;default:'unverified'"`
	IsPrimary  bool                    `gorm:"column:is_primary;not null;default:false"`
	VerifiedAt *time.Time              `gorm:"column:verified_at"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
