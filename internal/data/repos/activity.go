package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

// ActivityRepo is append-only: activities are never updated or deleted.
type ActivityRepo interface {
	Create(dbc dbctx.Context, activities []*types.Activity) ([]*types.Activity, error)
	// ListForSubmissionVersion returns the audit trail in chronological
	// order (created_at asc).
	ListForSubmissionVersion(dbc dbctx.Context, submissionVersionID uuid.UUID) ([]*types.Activity, error)
	ListForWork(dbc dbctx.Context, workID uuid.UUID) ([]*types.Activity, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityRepo"),
	}
}

func (r *activityRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *activityRepo) Create(dbc dbctx.Context, activities []*types.Activity) ([]*types.Activity, error) {
	if len(activities) == 0 {
		return []*types.Activity{}, nil
	}
	if err := r.base(dbc).Create(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepo) ListForSubmissionVersion(dbc dbctx.Context, submissionVersionID uuid.UUID) ([]*types.Activity, error) {
	var out []*types.Activity
	if submissionVersionID == uuid.Nil {
		return out, nil
	}
	err := r.base(dbc).
		Where("submission_version_id = ?", submissionVersionID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) ListForWork(dbc dbctx.Context, workID uuid.UUID) ([]*types.Activity, error) {
	var out []*types.Activity
	if workID == uuid.Nil {
		return out, nil
	}
	err := r.base(dbc).
		Where("work_id = ?", workID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
