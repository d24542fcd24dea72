package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
	"github.com/sciencecms/pmc-backend/internal/data/repos"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

// StatusEvent is one point on a submission version's status timeline.
type StatusEvent struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

type ActivityService interface {
	// GetForSubmissionVersion returns the status timeline in chronological
	// order, reconstructed from the append-only activity trail.
	GetForSubmissionVersion(ctx context.Context, submissionVersionID uuid.UUID) ([]StatusEvent, error)
}

type activityService struct {
	log        *logger.Logger
	activities repos.ActivityRepo
}

func NewActivityService(baseLog *logger.Logger, activities repos.ActivityRepo) ActivityService {
	return &activityService{
		log:        baseLog.With("service", "ActivityService"),
		activities: activities,
	}
}

func (s *activityService) GetForSubmissionVersion(ctx context.Context, submissionVersionID uuid.UUID) ([]StatusEvent, error) {
	const op = "getActivitiesForSubmissionVersion"
	if submissionVersionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing submission_version_id", nil)
	}
	acts, err := s.activities.ListForSubmissionVersion(dbctx.Context{Ctx: ctx}, submissionVersionID)
	if err != nil {
		s.log.Warn("list activities failed", "error", err, "submission_version_id", submissionVersionID)
		return nil, err
	}
	events := make([]StatusEvent, 0, len(acts))
	for _, a := range acts {
		if a == nil || a.Status == "" {
			continue
		}
		events = append(events, StatusEvent{Status: a.Status, Date: a.CreatedAt})
	}
	return events, nil
}
