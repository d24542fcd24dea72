package audit

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActivityStatusChange           = "status_change"
	ActivityNewSubmission          = "new_submission"
	ActivityWorkVersionAdded       = "work_version_added"
	ActivitySubmissionVersionAdded = "submission_version_added"
)

// Activity is an append-only audit record. Rows are never updated or
// deleted; the status-transition timeline for a submission version is
// reconstructed by reading them in created_at order.
type Activity struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Type                string     `gorm:"column:type;not null;index" json:"type"`
	Status              string     `gorm:"column:status" json:"status,omitempty"`
	ScientistID         *uuid.UUID `gorm:"type:uuid;column:scientist_id;index" json:"scientist_id,omitempty"`
	WorkID              *uuid.UUID `gorm:"type:uuid;column:work_id;index" json:"work_id,omitempty"`
	WorkVersionID       *uuid.UUID `gorm:"type:uuid;column:work_version_id;index" json:"work_version_id,omitempty"`
	SubmissionID        *uuid.UUID `gorm:"type:uuid;column:submission_id;index" json:"submission_id,omitempty"`
	SubmissionVersionID *uuid.UUID `gorm:"type:uuid;column:submission_version_id;index" json:"submission_version_id,omitempty"`
	CreatedAt           time.Time  `gorm:"not null;default:now();index" json:"created_at"`
}

func (Activity) TableName() string { return "activity" }
