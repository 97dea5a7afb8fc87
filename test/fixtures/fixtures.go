package fixtures

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
)

var (
	TestStudent1 = model.StudentInfo{
		Name:  "Alice Johnson",
		ID:    "STU001",
		Email: "alice@example.com",
	}

	TestStudent2 = model.StudentInfo{
		Name:  "Bob Smith",
		ID:    "STU002",
		Email: "bob@example.com",
	}
)

func NewTestOrder(schoolID, customOrderID string) *model.Order {
	return &model.Order{
		SchoolID:      schoolID,
		TrusteeID:     "trustee-1",
		StudentInfo:   TestStudent1,
		GatewayName:   "Edviron",
		CustomOrderID: customOrderID,
		CreatedAt:     time.Now(),
	}
}

func NewTestPaymentCreateRequest(amount float64) model.PaymentCreateRequest {
	return model.PaymentCreateRequest{
		Amount:      amount,
		StudentInfo: TestStudent1,
	}
}

func PaymentCreateRequestZeroAmount() model.PaymentCreateRequest {
	req := NewTestPaymentCreateRequest(0)
	return req
}

func PaymentCreateRequestMissingStudent() model.PaymentCreateRequest {
	return model.PaymentCreateRequest{Amount: 100}
}

func NewTestOrderStatus(collectID int64, status model.PaymentStatus, amount float64) *model.OrderStatus {
	paymentTime := time.Now()
	return &model.OrderStatus{
		CollectID:         collectID,
		OrderAmount:       amount,
		TransactionAmount: amount,
		PaymentMode:       "upi",
		Status:            status,
		PaymentTime:       &paymentTime,
	}
}

// NewWebhookBody builds a notification in the gateway's wire format, with its
// misspelled field names.
func NewWebhookBody(orderID string, status string, amount float64) json.RawMessage {
	body := fmt.Sprintf(`{
		"status": 200,
		"order_info": {
			"order_id": %q,
			"order_amount": %g,
			"transaction_amount": %g,
			"gateway": "MockPG",
			"bank_reference": "BNK0001",
			"status": %q,
			"payment_mode": "upi",
			"payemnt_details": "success@upi",
			"Payment_message": "payment %s",
			"payment_time": %q,
			"error_message": ""
		}
	}`, orderID, amount, amount, status, status, time.Now().UTC().Format(time.RFC3339))
	return json.RawMessage(body)
}

var MalformedWebhookBodies = []json.RawMessage{
	json.RawMessage(`{not json`),
	json.RawMessage(`{"status":200}`),
	json.RawMessage(`{"status":200,"order_info":{"order_id":"ORD_x","status":"exploded"}}`),
	json.RawMessage(`{"status":200,"order_info":{"order_id":"ORD_x","status":"success","order_amount":-5}}`),
}

func TransactionFilterDefaults() model.TransactionFilter {
	return model.TransactionFilter{
		Page:  1,
		Limit: 10,
	}
}

func TransactionFilterBySchool(schoolID string) model.TransactionFilter {
	f := TransactionFilterDefaults()
	f.SchoolID = schoolID
	return f
}

func TransactionFilterByDateRange(start, end time.Time) model.TransactionFilter {
	f := TransactionFilterDefaults()
	f.StartDate = &start
	f.EndDate = &end
	return f
}
