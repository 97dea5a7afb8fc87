package repository

import (
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
)

type OrderStatusEntity struct {
	ID                int64      `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	CollectID         int64      `db:"collect_id"         gorm:"column:collect_id;not null;uniqueIndex"`
	OrderAmount       float64    `db:"order_amount"       gorm:"column:order_amount;not null"`
	TransactionAmount float64    `db:"transaction_amount" gorm:"column:transaction_amount;not null"`
	PaymentMode       string     `db:"payment_mode"       gorm:"column:payment_mode;not null"`
	PaymentDetails    string     `db:"payment_details"    gorm:"column:payment_details"`
	BankReference     string     `db:"bank_reference"     gorm:"column:bank_reference"`
	PaymentMessage    string     `db:"payment_message"    gorm:"column:payment_message"`
	Status            string     `db:"status"             gorm:"column:status;not null;index"`
	ErrorMessage      string     `db:"error_message"      gorm:"column:error_message"`
	PaymentTime       *time.Time `db:"payment_time"       gorm:"column:payment_time"`
	CreatedAt         time.Time  `db:"created_at"         gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `db:"updated_at"         gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderStatusEntity) TableName() string {
	return "order_statuses"
}

func toOrderStatusEntity(m *model.OrderStatus) *OrderStatusEntity {
	if m == nil {
		return nil
	}
	return &OrderStatusEntity{
		ID:                m.ID,
		CollectID:         m.CollectID,
		OrderAmount:       m.OrderAmount,
		TransactionAmount: m.TransactionAmount,
		PaymentMode:       m.PaymentMode,
		PaymentDetails:    m.PaymentDetails,
		BankReference:     m.BankReference,
		PaymentMessage:    m.PaymentMessage,
		Status:            string(m.Status),
		ErrorMessage:      m.ErrorMessage,
		PaymentTime:       m.PaymentTime,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toOrderStatusModel(e *OrderStatusEntity) *model.OrderStatus {
	if e == nil {
		return nil
	}
	return &model.OrderStatus{
		ID:                e.ID,
		CollectID:         e.CollectID,
		OrderAmount:       e.OrderAmount,
		TransactionAmount: e.TransactionAmount,
		PaymentMode:       e.PaymentMode,
		PaymentDetails:    e.PaymentDetails,
		BankReference:     e.BankReference,
		PaymentMessage:    e.PaymentMessage,
		Status:            model.PaymentStatus(e.Status),
		ErrorMessage:      e.ErrorMessage,
		PaymentTime:       e.PaymentTime,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}
