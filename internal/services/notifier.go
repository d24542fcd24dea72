package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sciencecms/pmc-backend/internal/observability"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
	"github.com/sciencecms/pmc-backend/internal/realtime"
	"github.com/sciencecms/pmc-backend/internal/realtime/bus"
)

// PMCNotifier pushes deposit lifecycle events to the host platform's
// messaging channel. All methods are fire-and-forget: failures are logged
// and never propagated into the calling write path.
type PMCNotifier interface {
	StatusChanged(scientistID, workVersionID, submissionVersionID uuid.UUID, fromStatus, toStatus, message string)
	SubmissionConfirmed(scientistID, workVersionID, submissionVersionID uuid.UUID)
	VersionCloned(scientistID, newWorkVersionID, newSubmissionVersionID uuid.UUID)
}

type pmcNotifier struct {
	log     *logger.Logger
	bus     bus.Bus
	metrics *observability.Metrics
}

func NewPMCNotifier(baseLog *logger.Logger, b bus.Bus, metrics *observability.Metrics) PMCNotifier {
	var log *logger.Logger
	if baseLog != nil {
		log = baseLog.With("service", "PMCNotifier")
	}
	return &pmcNotifier{log: log, bus: b, metrics: metrics}
}

func (n *pmcNotifier) emit(evt realtime.Event) {
	if n == nil || n.bus == nil {
		return
	}
	evt.Timestamp = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, evt); err != nil {
		n.metrics.IncNotification(evt.Type, "error")
		if n.log != nil {
			n.log.Warn("notification publish failed", "error", err, "event", evt.Type)
		}
		return
	}
	n.metrics.IncNotification(evt.Type, "ok")
}

func (n *pmcNotifier) StatusChanged(scientistID, workVersionID, submissionVersionID uuid.UUID, fromStatus, toStatus, message string) {
	if n == nil {
		return
	}
	n.emit(realtime.Event{
		Type:                realtime.EventStatusChanged,
		Message:             message,
		ScientistID:         scientistID,
		WorkVersionID:       workVersionID,
		SubmissionVersionID: submissionVersionID,
		Status:              toStatus,
		Meta:                map[string]any{"from_status": fromStatus},
	})
}

func (n *pmcNotifier) SubmissionConfirmed(scientistID, workVersionID, submissionVersionID uuid.UUID) {
	if n == nil {
		return
	}
	n.emit(realtime.Event{
		Type:                realtime.EventSubmissionConfirmed,
		ScientistID:         scientistID,
		WorkVersionID:       workVersionID,
		SubmissionVersionID: submissionVersionID,
		Status:              "PENDING",
	})
}

func (n *pmcNotifier) VersionCloned(scientistID, newWorkVersionID, newSubmissionVersionID uuid.UUID) {
	if n == nil {
		return
	}
	n.emit(realtime.Event{
		Type:                realtime.EventVersionCloned,
		ScientistID:         scientistID,
		WorkVersionID:       newWorkVersionID,
		SubmissionVersionID: newSubmissionVersionID,
		Status:              "DRAFT",
	})
}
