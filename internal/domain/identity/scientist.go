package identity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Scientist mirrors the host platform's user record. Authentication lives in
// the host platform; this table only anchors foreign keys and audit actors.
type Scientist struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FirstName string         `gorm:"column:first_name" json:"first_name"`
	LastName  string         `gorm:"column:last_name" json:"last_name"`
	ORCID     string         `gorm:"column:orcid" json:"orcid,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Scientist) TableName() string { return "scientist" }
