package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/schoolpay/payment-gateway/internal/cache"
	gateway "github.com/schoolpay/payment-gateway/internal/gateways"
	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/internal/repository"
	"github.com/schoolpay/payment-gateway/pkg/logger"
	"github.com/schoolpay/payment-gateway/pkg/prom"
)

// PaymentCreationError reports a failed gateway handoff, carrying the
// upstream detail. The order rows written before the call stay in place,
// marked creation_failed.
type PaymentCreationError struct {
	Err error
}

func (e *PaymentCreationError) Error() string {
	return fmt.Sprintf("payment creation failed: %v", e.Err)
}

func (e *PaymentCreationError) Unwrap() error { return e.Err }

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByCustomOrderID(ctx context.Context, customOrderID string) (*model.Order, error)
}

type OrderStatusRepository interface {
	Create(ctx context.Context, status *model.OrderStatus) (*model.OrderStatus, error)
	Upsert(ctx context.Context, status *model.OrderStatus) (*model.OrderStatus, error)
	GetByCollectID(ctx context.Context, collectID int64) (*model.OrderStatus, error)
	MarkCreationFailed(ctx context.Context, collectID int64, errMsg string) error
}

type WebhookLogRepository interface {
	Create(ctx context.Context, wl *model.WebhookLog) (*model.WebhookLog, error)
	Finalize(ctx context.Context, id int64, status model.WebhookLogStatus, errMsg string) error
}

type GatewayClient interface {
	CreateCollectRequest(ctx context.Context, amount float64, callbackURL string) (*gateway.CollectResponse, error)
}

// PaymentConfig carries the school identity the service stamps on every
// order. Constructed once at startup from the loaded configuration.
type PaymentConfig struct {
	SchoolID           string
	GatewayName        string
	DefaultTrusteeID   string
	DefaultCallbackURL string
}

type PaymentService struct {
	cfg         PaymentConfig
	orderRepo   OrderRepository
	statusRepo  OrderStatusRepository
	webhookRepo WebhookLogRepository
	client      GatewayClient
	statusCache *cache.StatusCache
}

func NewPaymentService(cfg PaymentConfig, orderRepo OrderRepository, statusRepo OrderStatusRepository, webhookRepo WebhookLogRepository, client GatewayClient, statusCache *cache.StatusCache) *PaymentService {
	return &PaymentService{
		cfg:         cfg,
		orderRepo:   orderRepo,
		statusRepo:  statusRepo,
		webhookRepo: webhookRepo,
		client:      client,
		statusCache: statusCache,
	}
}

// PaymentCreateResult is everything the caller needs to redirect the payer:
// the persisted order, plus the gateway's response verbatim.
type PaymentCreateResult struct {
	Order            *model.Order
	Amount           float64
	GatewayResponse  json.RawMessage
	PaymentURL       string
	CollectRequestID string
}

// CreatePayment opens an order, seeds its pending status and hands off to the
// gateway. The rows are written before the gateway call; if the call fails
// they are kept and marked creation_failed rather than silently orphaned.
func (s *PaymentService) CreatePayment(ctx context.Context, p model.PaymentCreateRequest) (*PaymentCreateResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	trusteeID := p.TrusteeID
	if trusteeID == "" {
		trusteeID = s.cfg.DefaultTrusteeID
	}
	callbackURL := p.CallbackURL
	if callbackURL == "" {
		callbackURL = s.cfg.DefaultCallbackURL
	}

	order := &model.Order{
		SchoolID:      s.cfg.SchoolID,
		TrusteeID:     trusteeID,
		StudentInfo:   p.StudentInfo,
		GatewayName:   s.cfg.GatewayName,
		CustomOrderID: generateCustomOrderID(),
	}

	order, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	now := time.Now()
	_, err = s.statusRepo.Create(ctx, &model.OrderStatus{
		CollectID:         order.ID,
		OrderAmount:       p.Amount,
		TransactionAmount: p.Amount,
		PaymentMode:       "pending",
		PaymentDetails:    "Payment initiated",
		PaymentMessage:    "Payment in progress",
		Status:            model.PaymentStatusPending,
		PaymentTime:       &now,
	})
	if err != nil {
		return nil, fmt.Errorf("seed order status: %w", err)
	}

	res, err := s.client.CreateCollectRequest(ctx, p.Amount, callbackURL)
	if err != nil {
		logger.Error("gateway handoff failed",
			"custom_order_id", order.CustomOrderID,
			"error", err)
		if markErr := s.statusRepo.MarkCreationFailed(ctx, order.ID, err.Error()); markErr != nil {
			logger.Error("failed to mark order creation_failed",
				"custom_order_id", order.CustomOrderID,
				"error", markErr)
		}
		prom.IncPaymentCreated("failed")
		return nil, &PaymentCreationError{Err: err}
	}

	prom.IncPaymentCreated("success")
	logger.Info("payment created",
		"order_id", order.ID,
		"custom_order_id", order.CustomOrderID,
		"collect_request_id", res.CollectRequestID)

	return &PaymentCreateResult{
		Order:            order,
		Amount:           p.Amount,
		GatewayResponse:  res.Raw,
		PaymentURL:       res.CollectRequestURL,
		CollectRequestID: res.CollectRequestID,
	}, nil
}

// WebhookResult is the acknowledgment shape for webhook ingestion. Absence of
// the referenced order is a reported outcome here, not an error.
type WebhookResult struct {
	Success       bool
	Message       string
	OrderID       string
	Order         *model.Order
	UpdatedStatus *model.OrderStatus
}

// HandleWebhook applies one gateway notification. The raw payload is logged
// before anything else so the evidence survives a crash mid-processing; the
// log entry is finalized to processed or failed at the end of this call.
func (s *PaymentService) HandleWebhook(ctx context.Context, raw json.RawMessage) (*WebhookResult, error) {
	start := time.Now()

	wl, err := s.webhookRepo.Create(ctx, &model.WebhookLog{
		EventType:   "payment_update",
		Payload:     raw,
		Status:      model.WebhookLogReceived,
		ProcessedAt: start,
	})
	if err != nil {
		prom.IncWebhookProcessed("failed")
		logger.Error("failed to persist webhook log", "error", err)
		return &WebhookResult{
			Success: false,
			Message: "Webhook processing failed: " + err.Error(),
		}, nil
	}

	var payload model.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.finalizeLog(ctx, wl.ID, model.WebhookLogFailed, "malformed payload: "+err.Error())
		prom.IncWebhookProcessed("failed")
		return &WebhookResult{
			Success: false,
			Message: "Invalid webhook payload",
		}, nil
	}
	if err := payload.Validate(); err != nil {
		s.finalizeLog(ctx, wl.ID, model.WebhookLogFailed, err.Error())
		prom.IncWebhookProcessed("failed")
		return &WebhookResult{
			Success: false,
			Message: "Invalid webhook payload: " + err.Error(),
			OrderID: payload.OrderInfo.OrderID,
		}, nil
	}

	order, err := s.orderRepo.GetByCustomOrderID(ctx, payload.OrderInfo.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.finalizeLog(ctx, wl.ID, model.WebhookLogFailed, "Order not found")
			prom.IncWebhookProcessed("failed")
			logger.Warn("webhook for unknown order", "order_id", payload.OrderInfo.OrderID)
			return &WebhookResult{
				Success: false,
				Message: "Order not found",
				OrderID: payload.OrderInfo.OrderID,
			}, nil
		}
		s.finalizeLog(ctx, wl.ID, model.WebhookLogFailed, err.Error())
		prom.IncWebhookProcessed("failed")
		logger.Error("webhook order lookup failed", "order_id", payload.OrderInfo.OrderID, "error", err)
		return &WebhookResult{
			Success: false,
			Message: "Webhook processing failed: " + err.Error(),
			OrderID: payload.OrderInfo.OrderID,
		}, nil
	}

	status := &model.OrderStatus{
		CollectID:         order.ID,
		OrderAmount:       payload.OrderInfo.OrderAmount,
		TransactionAmount: payload.OrderInfo.TransactionAmount,
		PaymentMode:       payload.OrderInfo.PaymentMode,
		PaymentDetails:    payload.OrderInfo.PaymentDetails,
		BankReference:     payload.OrderInfo.BankReference,
		PaymentMessage:    payload.OrderInfo.PaymentMessage,
		Status:            payload.PaymentStatus(),
		ErrorMessage:      payload.OrderInfo.ErrorMessage,
	}
	if payload.OrderInfo.PaymentTime != "" {
		// already validated
		t, _ := model.ParseWebhookTime(payload.OrderInfo.PaymentTime)
		status.PaymentTime = &t
	}

	updated, err := s.statusRepo.Upsert(ctx, status)
	if err != nil {
		s.finalizeLog(ctx, wl.ID, model.WebhookLogFailed, err.Error())
		prom.IncWebhookProcessed("failed")
		logger.Error("webhook status upsert failed", "order_id", order.ID, "error", err)
		return &WebhookResult{
			Success: false,
			Message: "Webhook processing failed: " + err.Error(),
			OrderID: order.CustomOrderID,
		}, nil
	}

	s.finalizeLog(ctx, wl.ID, model.WebhookLogProcessed, "")
	if s.statusCache != nil {
		s.statusCache.Invalidate(order.ID, order.CustomOrderID)
	}

	prom.IncWebhookProcessed("processed")
	prom.ObserveWebhookProcessing(time.Since(start).Seconds())
	logger.Info("webhook processed",
		"order_id", order.ID,
		"custom_order_id", order.CustomOrderID,
		"status", updated.Status)

	return &WebhookResult{
		Success:       true,
		Message:       "Webhook processed successfully",
		Order:         order,
		UpdatedStatus: updated,
	}, nil
}

func (s *PaymentService) finalizeLog(ctx context.Context, id int64, status model.WebhookLogStatus, errMsg string) {
	if err := s.webhookRepo.Finalize(ctx, id, status, errMsg); err != nil {
		logger.Error("failed to finalize webhook log", "webhook_log_id", id, "error", err)
	}
}

// StatusResult is the lookup outcome; Found false means neither identifier
// form resolved.
type StatusResult struct {
	Found         bool
	TransactionID string
	Transaction   *model.TransactionStatus
}

// GetTransactionStatus resolves an identifier that may be either the primary
// order id or the custom order id, primary form first.
func (s *PaymentService) GetTransactionStatus(ctx context.Context, id string) (*StatusResult, error) {
	if s.statusCache != nil {
		if ts := s.statusCache.Get(id); ts != nil {
			return &StatusResult{Found: true, TransactionID: id, Transaction: ts}, nil
		}
	}

	order, err := s.resolveOrder(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &StatusResult{Found: false, TransactionID: id}, nil
		}
		return nil, err
	}

	ts := &model.TransactionStatus{
		ID:            order.ID,
		CustomOrderID: order.CustomOrderID,
		SchoolID:      order.SchoolID,
		TrusteeID:     order.TrusteeID,
		StudentInfo:   order.StudentInfo,
		GatewayName:   order.GatewayName,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		PaymentMode:   "pending",
		Status:        model.PaymentStatusPending,
		PaymentTime:   order.CreatedAt,
	}

	status, err := s.statusRepo.GetByCollectID(ctx, order.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup order status: %w", err)
	}
	if status != nil {
		ts.OrderAmount = status.OrderAmount
		ts.TransactionAmount = status.TransactionAmount
		ts.PaymentMode = status.PaymentMode
		ts.PaymentDetails = status.PaymentDetails
		ts.BankReference = status.BankReference
		ts.PaymentMessage = status.PaymentMessage
		ts.Status = status.Status
		ts.ErrorMessage = status.ErrorMessage
		if status.PaymentTime != nil {
			ts.PaymentTime = *status.PaymentTime
		}
	}

	if s.statusCache != nil {
		s.statusCache.Set(ts)
	}

	return &StatusResult{Found: true, TransactionID: id, Transaction: ts}, nil
}

func (s *PaymentService) resolveOrder(ctx context.Context, id string) (*model.Order, error) {
	if n, ok := parseOrderID(id); ok {
		order, err := s.orderRepo.GetByID(ctx, n)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup order by id: %w", err)
		}
		// fall through to the custom id form
	}
	return s.orderRepo.GetByCustomOrderID(ctx, id)
}

func parseOrderID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}

const customOrderAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateCustomOrderID builds the externally-facing correlation id: a
// millisecond timestamp plus a 9-character random suffix. Unique for
// practical purposes; the store's unique index backstops collisions.
func generateCustomOrderID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = customOrderAlphabet[rand.IntN(len(customOrderAlphabet))]
	}
	return fmt.Sprintf("ORD_%d_%s", time.Now().UnixMilli(), suffix)
}
