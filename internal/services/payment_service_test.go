package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gateway "github.com/schoolpay/payment-gateway/internal/gateways"
	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByCustomOrderID(ctx context.Context, customOrderID string) (*model.Order, error) {
	args := m.Called(ctx, customOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

type MockOrderStatusRepository struct {
	mock.Mock
}

func (m *MockOrderStatusRepository) Create(ctx context.Context, status *model.OrderStatus) (*model.OrderStatus, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderStatus), args.Error(1)
}

func (m *MockOrderStatusRepository) Upsert(ctx context.Context, status *model.OrderStatus) (*model.OrderStatus, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderStatus), args.Error(1)
}

func (m *MockOrderStatusRepository) GetByCollectID(ctx context.Context, collectID int64) (*model.OrderStatus, error) {
	args := m.Called(ctx, collectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderStatus), args.Error(1)
}

func (m *MockOrderStatusRepository) MarkCreationFailed(ctx context.Context, collectID int64, errMsg string) error {
	args := m.Called(ctx, collectID, errMsg)
	return args.Error(0)
}

type MockWebhookLogRepository struct {
	mock.Mock
}

func (m *MockWebhookLogRepository) Create(ctx context.Context, wl *model.WebhookLog) (*model.WebhookLog, error) {
	args := m.Called(ctx, wl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookLog), args.Error(1)
}

func (m *MockWebhookLogRepository) Finalize(ctx context.Context, id int64, status model.WebhookLogStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateCollectRequest(ctx context.Context, amount float64, callbackURL string) (*gateway.CollectResponse, error) {
	args := m.Called(ctx, amount, callbackURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CollectResponse), args.Error(1)
}

func newTestPaymentService(orderRepo *MockOrderRepository, statusRepo *MockOrderStatusRepository, webhookRepo *MockWebhookLogRepository, client *MockGatewayClient) *PaymentService {
	return NewPaymentService(PaymentConfig{
		SchoolID:           "school-1",
		GatewayName:        "Edviron",
		DefaultTrusteeID:   "trustee-1",
		DefaultCallbackURL: "https://example.com/webhook",
	}, orderRepo, statusRepo, webhookRepo, client, nil)
}

func validCreateRequest() model.PaymentCreateRequest {
	return model.PaymentCreateRequest{
		Amount: 500,
		StudentInfo: model.StudentInfo{
			Name:  "Alice",
			ID:    "STU001",
			Email: "alice@example.com",
		},
	}
}

func TestPaymentService_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		client := new(MockGatewayClient)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, client)

		orderRepo.On("Create", ctx, mock.AnythingOfType("*model.Order")).
			Run(func(args mock.Arguments) {
				order := args.Get(1).(*model.Order)
				assert.Equal(t, "school-1", order.SchoolID)
				assert.Equal(t, "trustee-1", order.TrusteeID)
				assert.Equal(t, "Edviron", order.GatewayName)
				assert.True(t, strings.HasPrefix(order.CustomOrderID, "ORD_"))
			}).
			Return(&model.Order{ID: 42, SchoolID: "school-1", CustomOrderID: "ORD_1_aaaaaaaaa"}, nil)

		statusRepo.On("Create", ctx, mock.AnythingOfType("*model.OrderStatus")).
			Run(func(args mock.Arguments) {
				status := args.Get(1).(*model.OrderStatus)
				assert.Equal(t, int64(42), status.CollectID)
				assert.Equal(t, 500.0, status.OrderAmount)
				assert.Equal(t, 500.0, status.TransactionAmount)
				assert.Equal(t, model.PaymentStatusPending, status.Status)
				assert.Equal(t, "pending", status.PaymentMode)
			}).
			Return(&model.OrderStatus{ID: 1, CollectID: 42}, nil)

		client.On("CreateCollectRequest", ctx, 500.0, "https://example.com/webhook").
			Return(&gateway.CollectResponse{
				CollectRequestID:  "cr-123",
				CollectRequestURL: "https://pg.example.com/pay/cr-123",
				Raw:               json.RawMessage(`{"collect_request_id":"cr-123"}`),
			}, nil)

		res, err := svc.CreatePayment(ctx, validCreateRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(42), res.Order.ID)
		assert.Equal(t, 500.0, res.Amount)
		assert.Equal(t, "cr-123", res.CollectRequestID)
		assert.Equal(t, "https://pg.example.com/pay/cr-123", res.PaymentURL)
		assert.JSONEq(t, `{"collect_request_id":"cr-123"}`, string(res.GatewayResponse))

		orderRepo.AssertExpectations(t)
		statusRepo.AssertExpectations(t)
		client.AssertExpectations(t)
	})

	t.Run("invalid request never touches the stores", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		client := new(MockGatewayClient)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, client)

		req := validCreateRequest()
		req.Amount = 0

		_, err := svc.CreatePayment(ctx, req)
		assert.Error(t, err)
		orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		client.AssertNotCalled(t, "CreateCollectRequest", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway failure marks the order creation_failed", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		client := new(MockGatewayClient)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, client)

		orderRepo.On("Create", ctx, mock.Anything).
			Return(&model.Order{ID: 7, CustomOrderID: "ORD_1_bbbbbbbbb"}, nil)
		statusRepo.On("Create", ctx, mock.Anything).
			Return(&model.OrderStatus{ID: 2, CollectID: 7}, nil)
		client.On("CreateCollectRequest", ctx, 500.0, "https://example.com/webhook").
			Return(nil, errors.New("connection refused"))
		statusRepo.On("MarkCreationFailed", ctx, int64(7), "connection refused").
			Return(nil)

		_, err := svc.CreatePayment(ctx, validCreateRequest())
		var creationErr *PaymentCreationError
		require.ErrorAs(t, err, &creationErr)

		statusRepo.AssertExpectations(t)
	})
}

func validWebhookBody(orderID string) json.RawMessage {
	payload := map[string]any{
		"status": 200,
		"order_info": map[string]any{
			"order_id":           orderID,
			"order_amount":       500,
			"transaction_amount": 495,
			"gateway":            "MockPG",
			"bank_reference":     "BNK123",
			"status":             "success",
			"payment_mode":       "upi",
			"payemnt_details":    "success@upi",
			"Payment_message":    "payment success",
			"payment_time":       "2026-08-30T10:00:00Z",
			"error_message":      "",
		},
	}
	b, _ := json.Marshal(payload)
	return b
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("successful webhook replaces the status", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, new(MockGatewayClient))

		webhookRepo.On("Create", ctx, mock.AnythingOfType("*model.WebhookLog")).
			Return(&model.WebhookLog{ID: 11, Status: model.WebhookLogReceived}, nil)
		orderRepo.On("GetByCustomOrderID", ctx, "ORD_1_ccccccccc").
			Return(&model.Order{ID: 42, CustomOrderID: "ORD_1_ccccccccc"}, nil)
		statusRepo.On("Upsert", ctx, mock.AnythingOfType("*model.OrderStatus")).
			Run(func(args mock.Arguments) {
				status := args.Get(1).(*model.OrderStatus)
				assert.Equal(t, int64(42), status.CollectID)
				assert.Equal(t, model.PaymentStatusSuccess, status.Status)
				assert.Equal(t, 495.0, status.TransactionAmount)
				assert.Equal(t, "success@upi", status.PaymentDetails)
				assert.Equal(t, "payment success", status.PaymentMessage)
				require.NotNil(t, status.PaymentTime)
				assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), status.PaymentTime.UTC())
			}).
			Return(&model.OrderStatus{ID: 3, CollectID: 42, Status: model.PaymentStatusSuccess}, nil)
		webhookRepo.On("Finalize", ctx, int64(11), model.WebhookLogProcessed, "").
			Return(nil)

		res, err := svc.HandleWebhook(ctx, validWebhookBody("ORD_1_ccccccccc"))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, model.PaymentStatusSuccess, res.UpdatedStatus.Status)

		webhookRepo.AssertExpectations(t)
		statusRepo.AssertExpectations(t)
	})

	t.Run("unknown order is logged and acknowledged", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, new(MockGatewayClient))

		webhookRepo.On("Create", ctx, mock.Anything).
			Return(&model.WebhookLog{ID: 12, Status: model.WebhookLogReceived}, nil)
		orderRepo.On("GetByCustomOrderID", ctx, "ORD_unknown_x").
			Return(nil, repository.ErrNotFound)
		webhookRepo.On("Finalize", ctx, int64(12), model.WebhookLogFailed, "Order not found").
			Return(nil)

		res, err := svc.HandleWebhook(ctx, validWebhookBody("ORD_unknown_x"))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Order not found", res.Message)
		assert.Equal(t, "ORD_unknown_x", res.OrderID)

		statusRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		webhookRepo.AssertExpectations(t)
	})

	t.Run("malformed payload is logged as failed", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, new(MockGatewayClient))

		webhookRepo.On("Create", ctx, mock.Anything).
			Return(&model.WebhookLog{ID: 13, Status: model.WebhookLogReceived}, nil)
		webhookRepo.On("Finalize", ctx, int64(13), model.WebhookLogFailed, mock.AnythingOfType("string")).
			Return(nil)

		res, err := svc.HandleWebhook(ctx, json.RawMessage(`{not json`))
		require.NoError(t, err)
		assert.False(t, res.Success)

		orderRepo.AssertNotCalled(t, "GetByCustomOrderID", mock.Anything, mock.Anything)
		webhookRepo.AssertExpectations(t)
	})

	t.Run("status upsert failure is acknowledged, not raised", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, new(MockGatewayClient))

		webhookRepo.On("Create", ctx, mock.Anything).
			Return(&model.WebhookLog{ID: 15, Status: model.WebhookLogReceived}, nil)
		orderRepo.On("GetByCustomOrderID", ctx, "ORD_1_ddddddddd").
			Return(&model.Order{ID: 43, CustomOrderID: "ORD_1_ddddddddd"}, nil)
		statusRepo.On("Upsert", ctx, mock.AnythingOfType("*model.OrderStatus")).
			Return(nil, errors.New("db down"))
		webhookRepo.On("Finalize", ctx, int64(15), model.WebhookLogFailed, "db down").
			Return(nil)

		res, err := svc.HandleWebhook(ctx, validWebhookBody("ORD_1_ddddddddd"))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "Webhook processing failed")
		assert.Equal(t, "ORD_1_ddddddddd", res.OrderID)

		webhookRepo.AssertExpectations(t)
	})

	t.Run("order lookup failure is acknowledged, not raised", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, new(MockGatewayClient))

		webhookRepo.On("Create", ctx, mock.Anything).
			Return(&model.WebhookLog{ID: 16, Status: model.WebhookLogReceived}, nil)
		orderRepo.On("GetByCustomOrderID", ctx, "ORD_1_eeeeeeeee").
			Return(nil, errors.New("connection reset"))
		webhookRepo.On("Finalize", ctx, int64(16), model.WebhookLogFailed, "connection reset").
			Return(nil)

		res, err := svc.HandleWebhook(ctx, validWebhookBody("ORD_1_eeeeeeeee"))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "Webhook processing failed")

		statusRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		webhookRepo.AssertExpectations(t)
	})

	t.Run("invalid status value fails validation", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		webhookRepo := new(MockWebhookLogRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, webhookRepo, new(MockGatewayClient))

		webhookRepo.On("Create", ctx, mock.Anything).
			Return(&model.WebhookLog{ID: 14, Status: model.WebhookLogReceived}, nil)
		webhookRepo.On("Finalize", ctx, int64(14), model.WebhookLogFailed, mock.AnythingOfType("string")).
			Return(nil)

		body := json.RawMessage(`{"status":200,"order_info":{"order_id":"ORD_1_x","status":"exploded"}}`)
		res, err := svc.HandleWebhook(ctx, body)
		require.NoError(t, err)
		assert.False(t, res.Success)

		orderRepo.AssertNotCalled(t, "GetByCustomOrderID", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_GetTransactionStatus(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	t.Run("numeric identifier resolves by primary id", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, new(MockWebhookLogRepository), new(MockGatewayClient))

		paymentTime := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		orderRepo.On("GetByID", ctx, int64(42)).
			Return(&model.Order{ID: 42, CustomOrderID: "ORD_1_ddddddddd", CreatedAt: createdAt}, nil)
		statusRepo.On("GetByCollectID", ctx, int64(42)).
			Return(&model.OrderStatus{
				CollectID:         42,
				OrderAmount:       500,
				TransactionAmount: 495,
				PaymentMode:       "upi",
				Status:            model.PaymentStatusSuccess,
				PaymentTime:       &paymentTime,
			}, nil)

		res, err := svc.GetTransactionStatus(ctx, "42")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, model.PaymentStatusSuccess, res.Transaction.Status)
		assert.Equal(t, paymentTime, res.Transaction.PaymentTime)
	})

	t.Run("custom identifier falls back to custom order id", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, new(MockWebhookLogRepository), new(MockGatewayClient))

		orderRepo.On("GetByCustomOrderID", ctx, "ORD_1_eeeeeeeee").
			Return(&model.Order{ID: 43, CustomOrderID: "ORD_1_eeeeeeeee", CreatedAt: createdAt}, nil)
		statusRepo.On("GetByCollectID", ctx, int64(43)).
			Return(nil, repository.ErrNotFound)

		res, err := svc.GetTransactionStatus(ctx, "ORD_1_eeeeeeeee")
		require.NoError(t, err)
		assert.True(t, res.Found)

		orderRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("status-less order gets pending defaults", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, new(MockWebhookLogRepository), new(MockGatewayClient))

		orderRepo.On("GetByID", ctx, int64(44)).
			Return(&model.Order{ID: 44, CustomOrderID: "ORD_1_fffffffff", CreatedAt: createdAt}, nil)
		statusRepo.On("GetByCollectID", ctx, int64(44)).
			Return(nil, repository.ErrNotFound)

		res, err := svc.GetTransactionStatus(ctx, "44")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, model.PaymentStatusPending, res.Transaction.Status)
		assert.Equal(t, "pending", res.Transaction.PaymentMode)
		assert.Zero(t, res.Transaction.OrderAmount)
		assert.Equal(t, createdAt, res.Transaction.PaymentTime)
	})

	t.Run("numeric miss falls through to custom id", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		statusRepo := new(MockOrderStatusRepository)
		svc := newTestPaymentService(orderRepo, statusRepo, new(MockWebhookLogRepository), new(MockGatewayClient))

		orderRepo.On("GetByID", ctx, int64(12345)).
			Return(nil, repository.ErrNotFound)
		orderRepo.On("GetByCustomOrderID", ctx, "12345").
			Return(nil, repository.ErrNotFound)

		res, err := svc.GetTransactionStatus(ctx, "12345")
		require.NoError(t, err)
		assert.False(t, res.Found)
		assert.Equal(t, "12345", res.TransactionID)
	})
}

func TestGenerateCustomOrderID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateCustomOrderID()
		assert.True(t, strings.HasPrefix(id, "ORD_"))
		parts := strings.Split(id, "_")
		require.Len(t, parts, 3)
		assert.Len(t, parts[2], 9)
		assert.False(t, seen[id], "generated ids should not repeat")
		seen[id] = true
	}
}
