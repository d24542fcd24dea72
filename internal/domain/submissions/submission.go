package submissions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission groups the ordered history of submission versions for one work
// lineage at one destination site (currently only "pmc").
type Submission struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"work_id"`
	Site          string         `gorm:"column:site;not null;index" json:"site"`
	DatePublished *time.Time     `gorm:"column:date_published" json:"date_published,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Submission) TableName() string { return "submission" }

const SitePMC = "pmc"

// SubmissionVersion is one attempt to deposit a work version at the
// destination. Its metadata document records submission-side state such as
// the inbound email message history; it is distinct from the work version's
// content metadata. At most one DRAFT version exists per submission.
type SubmissionVersion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"submission_id"`
	WorkVersionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"work_version_id"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	SubmittedByID *uuid.UUID     `gorm:"type:uuid;column:submitted_by_id" json:"submitted_by_id,omitempty"`
	DatePublished *time.Time     `gorm:"column:date_published" json:"date_published,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SubmissionVersion) TableName() string { return "submission_version" }
