package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

type WorkVersionRepo interface {
	Create(dbc dbctx.Context, versions []*types.WorkVersion) ([]*types.WorkVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkVersion, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkVersion, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type workVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkVersionRepo(db *gorm.DB, baseLog *logger.Logger) WorkVersionRepo {
	return &workVersionRepo{
		db:  db,
		log: baseLog.With("repo", "WorkVersionRepo"),
	}
}

func (r *workVersionRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *workVersionRepo) Create(dbc dbctx.Context, versions []*types.WorkVersion) ([]*types.WorkVersion, error) {
	if len(versions) == 0 {
		return []*types.WorkVersion{}, nil
	}
	if err := r.base(dbc).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *workVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var wv types.WorkVersion
	err := r.base(dbc).Where("id = ?", id).Limit(1).Find(&wv).Error
	if err != nil {
		return nil, err
	}
	if wv.ID == uuid.Nil {
		return nil, nil
	}
	return &wv, nil
}

func (r *workVersionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var wv types.WorkVersion
	err := r.base(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&wv).Error
	if err != nil {
		return nil, err
	}
	if wv.ID == uuid.Nil {
		return nil, nil
	}
	return &wv, nil
}

func (r *workVersionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.base(dbc).
		Model(&types.WorkVersion{}).
		Where("id = ?", id).
		Updates(updates).Error
}

