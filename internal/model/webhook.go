package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// WebhookLogStatus tracks the lifecycle of one inbound notification.
type WebhookLogStatus string

const (
	WebhookLogReceived  WebhookLogStatus = "received"
	WebhookLogProcessed WebhookLogStatus = "processed"
	WebhookLogFailed    WebhookLogStatus = "failed"
)

// WebhookLog is one row of the append-only audit trail. Every inbound webhook
// call produces exactly one entry, found order or not. The entry is finalized
// once, at the end of the same handling call, and never revised after that.
type WebhookLog struct {
	ID           int64            `json:"id"`
	EventType    string           `json:"event_type"`
	Payload      json.RawMessage  `json:"payload"`
	Status       WebhookLogStatus `json:"status"`
	ProcessedAt  time.Time        `json:"processed_at"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// WebhookOrderInfo carries the gateway's view of one order. The payemnt_details
// and Payment_message tags reproduce the gateway's wire format exactly; they
// are normalized to sane names everywhere past this struct.
type WebhookOrderInfo struct {
	OrderID           string  `json:"order_id"`
	OrderAmount       float64 `json:"order_amount"`
	TransactionAmount float64 `json:"transaction_amount"`
	Gateway           string  `json:"gateway"`
	BankReference     string  `json:"bank_reference"`
	Status            string  `json:"status"`
	PaymentMode       string  `json:"payment_mode"`
	PaymentDetails    string  `json:"payemnt_details"`
	PaymentMessage    string  `json:"Payment_message"`
	PaymentTime       string  `json:"payment_time"`
	ErrorMessage      string  `json:"error_message"`
}

// WebhookPayload is the full notification body.
type WebhookPayload struct {
	Status    int              `json:"status"`
	OrderInfo WebhookOrderInfo `json:"order_info"`
}

var webhookStatuses = map[string]PaymentStatus{
	string(PaymentStatusPending): PaymentStatusPending,
	string(PaymentStatusSuccess): PaymentStatusSuccess,
	string(PaymentStatusFailed):  PaymentStatusFailed,
}

// Validate checks the payload against the fixed schema before any of it is
// applied to a store. Missing or out-of-range fields fail here rather than
// propagating half-formed data.
func (p WebhookPayload) Validate() error {
	if p.OrderInfo.OrderID == "" {
		return errors.New("order_info.order_id is required")
	}
	if _, ok := webhookStatuses[p.OrderInfo.Status]; !ok {
		return fmt.Errorf("order_info.status %q is not one of pending, success, failed", p.OrderInfo.Status)
	}
	if p.OrderInfo.OrderAmount < 0 {
		return errors.New("order_info.order_amount must not be negative")
	}
	if p.OrderInfo.TransactionAmount < 0 {
		return errors.New("order_info.transaction_amount must not be negative")
	}
	if p.OrderInfo.PaymentTime != "" {
		if _, err := ParseWebhookTime(p.OrderInfo.PaymentTime); err != nil {
			return fmt.Errorf("order_info.payment_time: %w", err)
		}
	}
	return nil
}

// PaymentStatus returns the validated settlement status carried by the payload.
func (p WebhookPayload) PaymentStatus() PaymentStatus {
	return webhookStatuses[p.OrderInfo.Status]
}

// ParseWebhookTime accepts the timestamp formats the gateway is known to send.
func ParseWebhookTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
