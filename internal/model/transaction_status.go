package model

import "time"

// TransactionStatus is the merged Order + latest OrderStatus view returned by
// the status lookup. Status-side fields default to pending/zero/empty when the
// order has no status row yet.
type TransactionStatus struct {
	ID                int64         `json:"id"`
	CustomOrderID     string        `json:"custom_order_id"`
	SchoolID          string        `json:"school_id"`
	TrusteeID         string        `json:"trustee_id"`
	StudentInfo       StudentInfo   `json:"student_info"`
	GatewayName       string        `json:"gateway_name"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	OrderAmount       float64       `json:"order_amount"`
	TransactionAmount float64       `json:"transaction_amount"`
	PaymentMode       string        `json:"payment_mode"`
	PaymentDetails    string        `json:"payment_details"`
	BankReference     string        `json:"bank_reference"`
	PaymentMessage    string        `json:"payment_message"`
	Status            PaymentStatus `json:"status"`
	ErrorMessage      string        `json:"error_message"`
	PaymentTime       time.Time     `json:"payment_time"`
}
