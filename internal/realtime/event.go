// Package realtime defines the outbound event shape pushed to the host
// platform's operational messaging channel. Delivery is fire-and-forget;
// nothing in the deposit workflow depends on an event arriving.
package realtime

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventStatusChanged       = "pmc.status_changed"
	EventSubmissionConfirmed = "pmc.submission_confirmed"
	EventVersionCloned       = "pmc.version_cloned"
)

type Event struct {
	Type                string         `json:"type"`
	Message             string         `json:"message,omitempty"`
	ScientistID         uuid.UUID      `json:"scientist_id,omitempty"`
	WorkVersionID       uuid.UUID      `json:"work_version_id,omitempty"`
	SubmissionVersionID uuid.UUID      `json:"submission_version_id,omitempty"`
	Status              string         `json:"status,omitempty"`
	Timestamp           time.Time      `json:"timestamp"`
	Meta                map[string]any `json:"meta,omitempty"`
}
