package api

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	congregationStatusPending  = "pending"
	congregationStatusApproved = "approved"
)

// Congregation is the tenant boundary: it owns sessions, territory maps, and
// role assignments. New registrations wait in pending until approved.
type Congregation struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string            `json:"name" gorm:"type:text;not null"`
	ContactEmail string            `json:"contact_email" gorm:"type:text;not null"`
	Status       string            `json:"status" gorm:"type:text;not null"`
	Settings     datatypes.JSONMap `json:"settings,omitempty" gorm:"type:jsonb"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TerritoryMap names one printable map a congregation works, referenced from
// sessions by number.
type TerritoryMap struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CongregationID uuid.UUID `json:"congregation_id" gorm:"type:uuid;not null"`
	MapNumber      int       `json:"map_number" gorm:"not null"`
	Description    string    `json:"description" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Address is one "not at home" record captured during a session. Owned by the
// session: ending a session stops new writes, deleting it cascades.
type Address struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SessionID   uuid.UUID `json:"session_id" db:"session_id"`
	BlockNumber string    `json:"block_number" db:"block_number"`
	Address     string    `json:"address" db:"address"`
	Latitude    *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64  `json:"longitude,omitempty" db:"longitude"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
