package models

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalLimit overrides the platform base caps for a single payee. Absent a
// row, the configured defaults apply. Risk tightening happens on top of these
// values and can only lower them.
type WithdrawalLimit struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PayeeID           uuid.UUID `gorm:"column:payee_id;type:uuid;not null;unique"`
	DailyLimitCents   int64     `gorm:"column:daily_limit_cents;not null"`
	WeeklyLimitCents  int64     `gorm:"column:weekly_limit_cents;not null"`
	MonthlyLimitCents int64     `gorm:"column:monthly_limit_cents;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
