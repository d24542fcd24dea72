package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

type SubmissionRepo interface {
	Create(dbc dbctx.Context, subs []*types.Submission) ([]*types.Submission, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Submission, error)
	GetByWorkAndSite(dbc dbctx.Context, workID uuid.UUID, site string) (*types.Submission, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return &submissionRepo{
		db:  db,
		log: baseLog.With("repo", "SubmissionRepo"),
	}
}

func (r *submissionRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *submissionRepo) Create(dbc dbctx.Context, subs []*types.Submission) ([]*types.Submission, error) {
	if len(subs) == 0 {
		return []*types.Submission{}, nil
	}
	if err := r.base(dbc).Create(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *submissionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Submission, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var sub types.Submission
	err := r.base(dbc).Where("id = ?", id).Limit(1).Find(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == uuid.Nil {
		return nil, nil
	}
	return &sub, nil
}

func (r *submissionRepo) GetByWorkAndSite(dbc dbctx.Context, workID uuid.UUID, site string) (*types.Submission, error) {
	if workID == uuid.Nil || site == "" {
		return nil, nil
	}
	var sub types.Submission
	err := r.base(dbc).
		Where("work_id = ? AND site = ?", workID, site).
		Limit(1).
		Find(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == uuid.Nil {
		return nil, nil
	}
	return &sub, nil
}

func (r *submissionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.base(dbc).
		Model(&types.Submission{}).
		Where("id = ?", id).
		Updates(updates).Error
}
