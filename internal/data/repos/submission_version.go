package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

type SubmissionVersionRepo interface {
	Create(dbc dbctx.Context, versions []*types.SubmissionVersion) ([]*types.SubmissionVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SubmissionVersion, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.SubmissionVersion, error)
	// ListByWorkVersionAndSite returns the submission versions attached to
	// a work version at one destination site, oldest first.
	ListByWorkVersionAndSite(dbc dbctx.Context, workVersionID uuid.UUID, site string) ([]*types.SubmissionVersion, error)
	// LockByWorkVersionAndSite is the same read under FOR UPDATE, for
	// transition flows that gate on current status.
	LockByWorkVersionAndSite(dbc dbctx.Context, workVersionID uuid.UUID, site string) ([]*types.SubmissionVersion, error)
	CountBySubmissionAndStatus(dbc dbctx.Context, submissionID uuid.UUID, status string) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type submissionVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionVersionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionVersionRepo {
	return &submissionVersionRepo{
		db:  db,
		log: baseLog.With("repo", "SubmissionVersionRepo"),
	}
}

func (r *submissionVersionRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *submissionVersionRepo) Create(dbc dbctx.Context, versions []*types.SubmissionVersion) ([]*types.SubmissionVersion, error) {
	if len(versions) == 0 {
		return []*types.SubmissionVersion{}, nil
	}
	if err := r.base(dbc).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *submissionVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SubmissionVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var sv types.SubmissionVersion
	err := r.base(dbc).Where("id = ?", id).Limit(1).Find(&sv).Error
	if err != nil {
		return nil, err
	}
	if sv.ID == uuid.Nil {
		return nil, nil
	}
	return &sv, nil
}

func (r *submissionVersionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.SubmissionVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var sv types.SubmissionVersion
	err := r.base(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&sv).Error
	if err != nil {
		return nil, err
	}
	if sv.ID == uuid.Nil {
		return nil, nil
	}
	return &sv, nil
}

func (r *submissionVersionRepo) ListByWorkVersionAndSite(dbc dbctx.Context, workVersionID uuid.UUID, site string) ([]*types.SubmissionVersion, error) {
	return r.listByWorkVersionAndSite(dbc, workVersionID, site, false)
}

func (r *submissionVersionRepo) LockByWorkVersionAndSite(dbc dbctx.Context, workVersionID uuid.UUID, site string) ([]*types.SubmissionVersion, error) {
	return r.listByWorkVersionAndSite(dbc, workVersionID, site, true)
}

func (r *submissionVersionRepo) listByWorkVersionAndSite(dbc dbctx.Context, workVersionID uuid.UUID, site string, forUpdate bool) ([]*types.SubmissionVersion, error) {
	var out []*types.SubmissionVersion
	if workVersionID == uuid.Nil || site == "" {
		return out, nil
	}
	q := r.base(dbc).
		Joins("JOIN submission ON submission.id = submission_version.submission_id").
		Where("submission_version.work_version_id = ? AND submission.site = ?", workVersionID, site).
		Order("submission_version.created_at ASC")
	if forUpdate {
		// Lock only submission_version rows; the join side stays free.
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "submission_version"}})
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *submissionVersionRepo) CountBySubmissionAndStatus(dbc dbctx.Context, submissionID uuid.UUID, status string) (int64, error) {
	if submissionID == uuid.Nil {
		return 0, nil
	}
	var n int64
	err := r.base(dbc).
		Model(&types.SubmissionVersion{}).
		Where("submission_id = ? AND status = ?", submissionID, status).
		Count(&n).Error
	return n, err
}

func (r *submissionVersionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.base(dbc).
		Model(&types.SubmissionVersion{}).
		Where("id = ?", id).
		Updates(updates).Error
}
