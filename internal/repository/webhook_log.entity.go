package repository

import (
	"encoding/json"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
)

type WebhookLogEntity struct {
	ID           int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	EventType    string    `db:"event_type"    gorm:"column:event_type;not null;index"`
	Payload      string    `db:"payload"       gorm:"column:payload;type:text;not null"`
	Status       string    `db:"status"        gorm:"column:status;not null;index"`
	ProcessedAt  time.Time `db:"processed_at"  gorm:"column:processed_at;index:,sort:desc"`
	ErrorMessage string    `db:"error_message" gorm:"column:error_message"`
	CreatedAt    time.Time `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (WebhookLogEntity) TableName() string {
	return "webhook_logs"
}

func toWebhookLogEntity(m *model.WebhookLog) *WebhookLogEntity {
	if m == nil {
		return nil
	}
	return &WebhookLogEntity{
		ID:           m.ID,
		EventType:    m.EventType,
		Payload:      string(m.Payload),
		Status:       string(m.Status),
		ProcessedAt:  m.ProcessedAt,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
	}
}

func toWebhookLogModel(e *WebhookLogEntity) *model.WebhookLog {
	if e == nil {
		return nil
	}
	return &model.WebhookLog{
		ID:           e.ID,
		EventType:    e.EventType,
		Payload:      json.RawMessage(e.Payload),
		Status:       model.WebhookLogStatus(e.Status),
		ProcessedAt:  e.ProcessedAt,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
	}
}
