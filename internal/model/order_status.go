package model

import "time"

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"

	// PaymentStatusCreationFailed marks orders whose gateway handoff failed,
	// so they are distinguishable from orders still awaiting a webhook.
	PaymentStatusCreationFailed PaymentStatus = "creation_failed"
)

// OrderStatus is the current financial state of an order, keyed 1:1 by
// collect_id and replaced wholesale by each accepted webhook. History lives in
// the webhook audit log, not here.
type OrderStatus struct {
	ID                int64         `json:"id"`
	CollectID         int64         `json:"collect_id"`
	OrderAmount       float64       `json:"order_amount"`
	TransactionAmount float64       `json:"transaction_amount"`
	PaymentMode       string        `json:"payment_mode"`
	PaymentDetails    string        `json:"payment_details"`
	BankReference     string        `json:"bank_reference"`
	PaymentMessage    string        `json:"payment_message"`
	Status            PaymentStatus `json:"status"`
	ErrorMessage      string        `json:"error_message"`
	PaymentTime       *time.Time    `json:"payment_time"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
