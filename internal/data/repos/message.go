package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

// MessageRepo stores inbound event records. Rows are updated in place as
// processing completes, never deleted.
type MessageRepo interface {
	Create(dbc dbctx.Context, messages []*types.Message) ([]*types.Message, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{
		db:  db,
		log: baseLog.With("repo", "MessageRepo"),
	}
}

func (r *messageRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *messageRepo) Create(dbc dbctx.Context, messages []*types.Message) ([]*types.Message, error) {
	if len(messages) == 0 {
		return []*types.Message{}, nil
	}
	if err := r.base(dbc).Create(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var msg types.Message
	err := r.base(dbc).Where("id = ?", id).Limit(1).Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

func (r *messageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.base(dbc).
		Model(&types.Message{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *messageRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Message, error) {
	var out []*types.Message
	if status == "" {
		return out, nil
	}
	q := r.base(dbc).
		Where("status = ?", status).
		Order("received_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
