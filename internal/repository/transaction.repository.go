package repository

import (
	"context"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/pkg/pg"
	"gorm.io/gorm"
)

// transactionRow is the scan target for the joined order/status projection.
type transactionRow struct {
	CollectID         int64             `gorm:"column:collect_id"`
	SchoolID          string            `gorm:"column:school_id"`
	Gateway           string            `gorm:"column:gateway"`
	OrderAmount       *float64          `gorm:"column:order_amount"`
	TransactionAmount *float64          `gorm:"column:transaction_amount"`
	Status            *string           `gorm:"column:status"`
	CustomOrderID     string            `gorm:"column:custom_order_id"`
	StudentInfo       model.StudentInfo `gorm:"column:student_info"`
	PaymentMode       *string           `gorm:"column:payment_mode"`
	PaymentTime       *time.Time        `gorm:"column:payment_time"`
	PaymentMessage    *string           `gorm:"column:payment_message"`
	CreatedAt         time.Time         `gorm:"column:created_at"`
}

// transactionSortColumns whitelists sort keys: projected field name to SQL
// column. Anything else falls back to creation order.
var transactionSortColumns = map[string]string{
	"collect_id":         "o.id",
	"school_id":          "o.school_id",
	"gateway":            "o.gateway_name",
	"order_amount":       "os.order_amount",
	"transaction_amount": "os.transaction_amount",
	"status":             "os.status",
	"custom_order_id":    "o.custom_order_id",
	"student_info":       "o.student_info",
	"payment_mode":       "os.payment_mode",
	"payment_time":       "os.payment_time",
	"payment_message":    "os.payment_message",
	"createdAt":          "o.created_at",
	"created_at":         "o.created_at",
}

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

// List answers "page N of transactions matching f, sorted by S" over orders
// outer-joined with order_statuses. Orders that have not received a webhook
// yet still appear, with their status columns null. The total count runs over
// the same filtered set, so pagination metadata stays exact.
func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	query := r.buildTransactionQuery(ctx)

	// Apply filters
	if f.SchoolID != "" {
		query = query.Where("o.school_id = ?", f.SchoolID)
	}
	if f.Status != "" {
		query = query.Where("os.status = ?", f.Status)
	}
	if f.PaymentMode != "" {
		query = query.Where("os.payment_mode = ?", f.PaymentMode)
	}
	if f.StartDate != nil {
		query = query.Where("os.payment_time >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		query = query.Where("os.payment_time <= ?", *f.EndDate)
	}

	// Count total over the same filtered set
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply ordering
	column, ok := transactionSortColumns[f.SortBy]
	if !ok {
		column = "o.created_at"
	}
	order := column + " DESC"
	if f.SortOrder == model.SortAsc {
		order = column + " ASC"
	}
	query = query.Order(order)

	// Apply pagination
	offset := (f.Page - 1) * f.Limit
	query = query.Limit(f.Limit).Offset(offset)

	var rows []*transactionRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return toTransactionModels(rows), total, nil
}

func (r *TransactionRepository) buildTransactionQuery(ctx context.Context) *gorm.DB {
	return r.Read(ctx).WithContext(ctx).
		Table("orders AS o").
		Select(`
            o.id                  AS collect_id,
            o.school_id           AS school_id,
            o.gateway_name        AS gateway,
            os.order_amount       AS order_amount,
            os.transaction_amount AS transaction_amount,
            os.status             AS status,
            o.custom_order_id     AS custom_order_id,
            o.student_info        AS student_info,
            os.payment_mode       AS payment_mode,
            os.payment_time       AS payment_time,
            os.payment_message    AS payment_message,
            o.created_at          AS created_at
        `).
		Joins("LEFT JOIN order_statuses AS os ON os.collect_id = o.id")
}

func toTransactionModels(rows []*transactionRow) []*model.Transaction {
	models := make([]*model.Transaction, len(rows))
	for i, row := range rows {
		models[i] = &model.Transaction{
			CollectID:         row.CollectID,
			SchoolID:          row.SchoolID,
			Gateway:           row.Gateway,
			OrderAmount:       row.OrderAmount,
			TransactionAmount: row.TransactionAmount,
			Status:            row.Status,
			CustomOrderID:     row.CustomOrderID,
			StudentInfo:       row.StudentInfo,
			PaymentMode:       row.PaymentMode,
			PaymentTime:       row.PaymentTime,
			PaymentMessage:    row.PaymentMessage,
			CreatedAt:         row.CreatedAt,
		}
	}
	return models
}
