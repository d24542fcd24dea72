package works

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Work groups the append-only history of versions for one unit of research
// content.
type Work struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Work) TableName() string { return "work" }

// WorkVersion is one draft or published version of a work. Title, authors,
// date and DOI are denormalized from the metadata document on publish so
// listings never parse jsonb. Draft flips false exactly once, on confirm;
// after that the version is immutable and corrections go through cloning.
type WorkVersion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"work_id"`
	Title         string         `gorm:"column:title" json:"title"`
	Description   string         `gorm:"column:description" json:"description"`
	Authors       datatypes.JSON `gorm:"column:authors;type:jsonb" json:"authors"`
	DatePublished *time.Time     `gorm:"column:date_published" json:"date_published,omitempty"`
	DOI           string         `gorm:"column:doi;index" json:"doi,omitempty"`
	StorageKey    string         `gorm:"column:storage_key;not null" json:"storage_key"`
	CDNRecordID   string         `gorm:"column:cdn_record_id" json:"cdn_record_id,omitempty"`
	Draft         bool           `gorm:"column:draft;not null;default:true;index" json:"draft"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	LockVersion   int            `gorm:"column:lock_version;not null;default:0" json:"-"`
	CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WorkVersion) TableName() string { return "work_version" }
