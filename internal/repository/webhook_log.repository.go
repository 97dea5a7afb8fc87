package repository

import (
	"context"
	"errors"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/pkg/pg"
	"gorm.io/gorm"
)

type WebhookLogRepository struct {
	*pg.DB
}

func NewWebhookLogRepository(db *pg.DB) *WebhookLogRepository {
	return &WebhookLogRepository{
		db,
	}
}

func (r *WebhookLogRepository) Create(ctx context.Context, wl *model.WebhookLog) (*model.WebhookLog, error) {
	entity := toWebhookLogEntity(wl)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toWebhookLogModel(entity), nil
}

// Finalize moves a log entry from received to its terminal state. The entry
// is frozen after this call; it only ever transitions out of "received".
func (r *WebhookLogRepository) Finalize(ctx context.Context, id int64, status model.WebhookLogStatus, errMsg string) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&WebhookLogEntity{}).
		Where("id = ? AND status = ?", id, string(model.WebhookLogReceived)).
		Updates(map[string]any{
			"status":        string(status),
			"error_message": errMsg,
			"processed_at":  time.Now(),
		}).Error
}

func (r *WebhookLogRepository) GetByID(ctx context.Context, id int64) (*model.WebhookLog, error) {
	var entity WebhookLogEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toWebhookLogModel(&entity), nil
}

// CountByStatus reports how many log entries sit in the given state, used by
// monitoring and tests.
func (r *WebhookLogRepository) CountByStatus(ctx context.Context, status model.WebhookLogStatus) (int64, error) {
	var n int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&WebhookLogEntity{}).
		Where("status = ?", string(status)).
		Count(&n).Error
	return n, err
}
