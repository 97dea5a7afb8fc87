package model

import "time"

// Sort order values accepted by the transaction query.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// TransactionFilter controls the joined order/status query. Date bounds are
// calendar days, inclusive on both ends.
type TransactionFilter struct {
	Page        int
	Limit       int
	Status      string
	PaymentMode string
	StartDate   *time.Time
	EndDate     *time.Time
	SortBy      string // projected field name, default createdAt
	SortOrder   string // asc | desc, default desc
	SchoolID    string // optional school scope
}

// Transaction is the stable projection over Order joined with OrderStatus.
// Status-side fields are pointers so orders that have not seen a webhook yet
// serialize their status columns as null.
type Transaction struct {
	CollectID         int64       `json:"collect_id"`
	SchoolID          string      `json:"school_id"`
	Gateway           string      `json:"gateway"`
	OrderAmount       *float64    `json:"order_amount"`
	TransactionAmount *float64    `json:"transaction_amount"`
	Status            *string     `json:"status"`
	CustomOrderID     string      `json:"custom_order_id"`
	StudentInfo       StudentInfo `json:"student_info"`
	PaymentMode       *string     `json:"payment_mode"`
	PaymentTime       *time.Time  `json:"payment_time"`
	PaymentMessage    *string     `json:"payment_message"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// Pagination is the metadata block returned with every transaction page.
type Pagination struct {
	CurrentPage    int   `json:"current_page"`
	TotalPages     int   `json:"total_pages"`
	TotalRecords   int64 `json:"total_records"`
	RecordsPerPage int   `json:"records_per_page"`
}
