package model

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmationModel is the GORM-specific struct for the
// 'store_confirmations' table: one row per store the user ever accepted.
type ConfirmationModel struct {
	StoreID     uuid.UUID `gorm:"type:uuid;primary_key"`
	ConfirmedAt time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (ConfirmationModel) TableName() string {
	return "store_confirmations"
}
