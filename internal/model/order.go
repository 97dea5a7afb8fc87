package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StudentInfo is the structured payload attached to an order. The core stores
// it verbatim and never interprets the fields.
type StudentInfo struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Value serializes the payload for storage as JSON text, portable across
// postgres and sqlite.
func (s StudentInfo) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StudentInfo) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = StudentInfo{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("cannot scan %T into StudentInfo", src)
}

// Order is one payment attempt. Created once, never mutated afterwards.
type Order struct {
	ID            int64       `json:"id"`
	SchoolID      string      `json:"school_id"`
	TrusteeID     string      `json:"trustee_id"`
	StudentInfo   StudentInfo `json:"student_info"`
	GatewayName   string      `json:"gateway_name"`
	CustomOrderID string      `json:"custom_order_id"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// PaymentCreateRequest is the input for opening a payment order.
type PaymentCreateRequest struct {
	Amount      float64
	StudentInfo StudentInfo
	CallbackURL string
	TrusteeID   string
}

func (p PaymentCreateRequest) Validate() error {
	if p.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if p.StudentInfo.Name == "" {
		return errors.New("student name is required")
	}
	if p.StudentInfo.ID == "" {
		return errors.New("student id is required")
	}
	if p.StudentInfo.Email == "" {
		return errors.New("student email is required")
	}
	return nil
}
