package repository

import (
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
)

type OrderEntity struct {
	ID            int64             `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	SchoolID      string            `db:"school_id"       gorm:"column:school_id;not null;index"`
	TrusteeID     string            `db:"trustee_id"      gorm:"column:trustee_id"`
	StudentInfo   model.StudentInfo `db:"student_info"    gorm:"column:student_info;type:text;not null"`
	GatewayName   string            `db:"gateway_name"    gorm:"column:gateway_name;not null"`
	CustomOrderID string            `db:"custom_order_id" gorm:"column:custom_order_id;not null;uniqueIndex"`
	CreatedAt     time.Time         `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderEntity) TableName() string {
	return "orders"
}

func toOrderEntity(m *model.Order) *OrderEntity {
	if m == nil {
		return nil
	}
	return &OrderEntity{
		ID:            m.ID,
		SchoolID:      m.SchoolID,
		TrusteeID:     m.TrusteeID,
		StudentInfo:   m.StudentInfo,
		GatewayName:   m.GatewayName,
		CustomOrderID: m.CustomOrderID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toOrderModel(e *OrderEntity) *model.Order {
	if e == nil {
		return nil
	}
	return &model.Order{
		ID:            e.ID,
		SchoolID:      e.SchoolID,
		TrusteeID:     e.TrusteeID,
		StudentInfo:   e.StudentInfo,
		GatewayName:   e.GatewayName,
		CustomOrderID: e.CustomOrderID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
