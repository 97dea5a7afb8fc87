package repository

import (
	"context"
	"errors"

	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderStatusRepository struct {
	*pg.DB
}

func NewOrderStatusRepository(db *pg.DB) *OrderStatusRepository {
	return &OrderStatusRepository{
		db,
	}
}

func (r *OrderStatusRepository) Create(ctx context.Context, status *model.OrderStatus) (*model.OrderStatus, error) {
	entity := toOrderStatusEntity(status)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toOrderStatusModel(entity), nil
}

// Upsert replaces the status row for the given collect_id wholesale. The
// unique index on collect_id makes this a single atomic statement, so
// concurrent webhooks resolve to last-write-wins at the store.
func (r *OrderStatusRepository) Upsert(ctx context.Context, status *model.OrderStatus) (*model.OrderStatus, error) {
	entity := toOrderStatusEntity(status)
	entity.ID = 0

	err := r.Write(ctx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "collect_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"order_amount",
			"transaction_amount",
			"payment_mode",
			"payment_details",
			"bank_reference",
			"payment_message",
			"status",
			"error_message",
			"payment_time",
			"updated_at",
		}),
	}).Create(entity).Error
	if err != nil {
		return nil, err
	}

	return r.GetByCollectID(ctx, status.CollectID)
}

func (r *OrderStatusRepository) GetByCollectID(ctx context.Context, collectID int64) (*model.OrderStatus, error) {
	var entity OrderStatusEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "collect_id = ?", collectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toOrderStatusModel(&entity), nil
}

// MarkCreationFailed tags the seeded status row of an order whose gateway
// handoff failed, so the row is not left looking like a live pending payment.
func (r *OrderStatusRepository) MarkCreationFailed(ctx context.Context, collectID int64, errMsg string) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&OrderStatusEntity{}).
		Where("collect_id = ?", collectID).
		Updates(map[string]any{
			"status":        string(model.PaymentStatusCreationFailed),
			"error_message": errMsg,
		}).Error
}
