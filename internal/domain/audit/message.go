package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MessageStatusPending = "pending"
	MessageStatusSuccess = "success"
	MessageStatusError   = "error"
	MessageStatusPartial = "partial"
	MessageStatusIgnored = "ignored"
	MessageStatusBounced = "bounced"
)

// Message records one inbound asynchronous event, typically a parsed email
// notification from the deposit destination. The row is updated in place as
// processing completes and is never deleted.
type Message struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Source     string         `gorm:"column:source;not null;index" json:"source"`
	Subject    string         `gorm:"column:subject" json:"subject,omitempty"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Result     datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	ReceivedAt time.Time      `gorm:"column:received_at;not null" json:"received_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Message) TableName() string { return "message" }
