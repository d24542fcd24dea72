package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

type ScientistRepo interface {
	Create(dbc dbctx.Context, scientists []*types.Scientist) ([]*types.Scientist, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Scientist, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Scientist, error)
}

type scientistRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScientistRepo(db *gorm.DB, baseLog *logger.Logger) ScientistRepo {
	return &scientistRepo{
		db:  db,
		log: baseLog.With("repo", "ScientistRepo"),
	}
}

func (r *scientistRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *scientistRepo) Create(dbc dbctx.Context, scientists []*types.Scientist) ([]*types.Scientist, error) {
	if len(scientists) == 0 {
		return []*types.Scientist{}, nil
	}
	if err := r.base(dbc).Create(&scientists).Error; err != nil {
		return nil, err
	}
	return scientists, nil
}

func (r *scientistRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Scientist, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var sci types.Scientist
	err := r.base(dbc).Where("id = ?", id).Limit(1).Find(&sci).Error
	if err != nil {
		return nil, err
	}
	if sci.ID == uuid.Nil {
		return nil, nil
	}
	return &sci, nil
}

func (r *scientistRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Scientist, error) {
	if email == "" {
		return nil, nil
	}
	var sci types.Scientist
	err := r.base(dbc).Where("email = ?", email).Limit(1).Find(&sci).Error
	if err != nil {
		return nil, err
	}
	if sci.ID == uuid.Nil {
		return nil, nil
	}
	return &sci, nil
}
