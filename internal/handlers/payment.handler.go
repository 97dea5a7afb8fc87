package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fasthttp/router"
	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/internal/services"
	xhttp "github.com/schoolpay/payment-gateway/pkg/http"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, p model.PaymentCreateRequest) (*services.PaymentCreateResult, error)
	HandleWebhook(ctx context.Context, raw json.RawMessage) (*services.WebhookResult, error)
	GetTransactionStatus(ctx context.Context, id string) (*services.StatusResult, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterPaymentRoutes mounts payment creation behind auth; the webhook stays
// open since the gateway does not hold a user token.
func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler, auth xhttp.MiddlewareFunc) {
	e.POST("/payments", auth(h.CreatePayment))
	e.POST("/payments/webhook", h.Webhook)
}

type createPaymentRequest struct {
	Amount      float64           `json:"amount"`
	StudentInfo model.StudentInfo `json:"student_info"`
	CallbackURL string            `json:"callback_url"`
	TrusteeID   string            `json:"trustee_id"`
}

type createdOrder struct {
	ID            int64             `json:"id"`
	CustomOrderID string            `json:"custom_order_id"`
	Amount        float64           `json:"amount"`
	StudentInfo   model.StudentInfo `json:"student_info"`
}

type createPaymentResponse struct {
	Success          bool            `json:"success"`
	Order            createdOrder    `json:"order"`
	GatewayResponse  json.RawMessage `json:"payment_gateway_response"`
	PaymentURL       string          `json:"payment_url"`
	CollectRequestID string          `json:"collect_request_id"`
}

func (h *PaymentHandler) CreatePayment(ctx *xhttp.RequestCtx) {
	var req createPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := h.svc.CreatePayment(ctx, model.PaymentCreateRequest{
		Amount:      req.Amount,
		StudentInfo: req.StudentInfo,
		CallbackURL: req.CallbackURL,
		TrusteeID:   req.TrusteeID,
	})
	if err != nil {
		var creationErr *services.PaymentCreationError
		if errors.As(err, &creationErr) {
			// caller can fix nothing server-side; surface the upstream detail
			writeError(ctx, xhttp.StatusBadRequest, creationErr.Error())
			return
		}
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusCreated, createPaymentResponse{
		Success: true,
		Order: createdOrder{
			ID:            res.Order.ID,
			CustomOrderID: res.Order.CustomOrderID,
			Amount:        res.Amount,
			StudentInfo:   res.Order.StudentInfo,
		},
		GatewayResponse:  res.GatewayResponse,
		PaymentURL:       res.PaymentURL,
		CollectRequestID: res.CollectRequestID,
	})
}

type webhookAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

type webhookOrderAck struct {
	ID            int64  `json:"id"`
	CustomOrderID string `json:"custom_order_id"`
	Status        string `json:"status"`
}

type webhookProcessedAck struct {
	Success       bool               `json:"success"`
	Order         webhookOrderAck    `json:"order"`
	UpdatedStatus *model.OrderStatus `json:"updated_order_status"`
}

// Webhook acknowledges every well-formed delivery with 200 so the gateway does
// not retry notifications the audit log already recorded.
func (h *PaymentHandler) Webhook(ctx *xhttp.RequestCtx) {
	raw := append(json.RawMessage(nil), ctx.PostBody()...)

	res, err := h.svc.HandleWebhook(ctx, raw)
	if err != nil {
		// the gateway must never see a transport-level error, it would retry
		// a delivery the audit log may already hold
		writeJSON(ctx, xhttp.StatusOK, webhookAck{
			Success: false,
			Message: "Webhook processing failed",
		})
		return
	}

	if res.Success && res.Order != nil && res.UpdatedStatus != nil {
		writeJSON(ctx, xhttp.StatusOK, webhookProcessedAck{
			Success: true,
			Order: webhookOrderAck{
				ID:            res.Order.ID,
				CustomOrderID: res.Order.CustomOrderID,
				Status:        string(res.UpdatedStatus.Status),
			},
			UpdatedStatus: res.UpdatedStatus,
		})
		return
	}

	writeJSON(ctx, xhttp.StatusOK, webhookAck{
		Success: res.Success,
		Message: res.Message,
		OrderID: res.OrderID,
	})
}

