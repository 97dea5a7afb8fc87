package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/internal/services"
	xhttp "github.com/schoolpay/payment-gateway/pkg/http"
)

type TransactionService interface {
	List(ctx context.Context, f model.TransactionFilter) (*services.TransactionPage, error)
}

type TransactionHandler struct {
	svc     TransactionService
	payment PaymentService
}

func NewTransactionHandler(svc TransactionService, payment PaymentService) *TransactionHandler {
	return &TransactionHandler{svc: svc, payment: payment}
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler, auth xhttp.MiddlewareFunc) {
	e.GET("/transactions", auth(h.ListTransactions))
	e.GET("/transactions/school/{schoolId}", auth(h.ListSchoolTransactions))
	e.GET("/transactions/status/{id}", auth(h.GetTransactionStatus))
}

type transactionListResponse struct {
	Success    bool                 `json:"success"`
	Data       []*model.Transaction `json:"data"`
	Pagination model.Pagination     `json:"pagination"`
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	f, err := parseTransactionFilter(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	h.list(ctx, f)
}

func (h *TransactionHandler) ListSchoolTransactions(ctx *xhttp.RequestCtx) {
	f, err := parseTransactionFilter(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	schoolID, _ := ctx.UserValue("schoolId").(string)
	if schoolID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "school id is required")
		return
	}
	f.SchoolID = schoolID
	h.list(ctx, f)
}

type statusResponse struct {
	Success     bool                     `json:"success"`
	Transaction *model.TransactionStatus `json:"transaction,omitempty"`
}

type statusNotFoundResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

func (h *TransactionHandler) GetTransactionStatus(ctx *xhttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		writeError(ctx, xhttp.StatusBadRequest, "transaction id is required")
		return
	}

	res, err := h.payment.GetTransactionStatus(ctx, id)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	if !res.Found {
		writeJSON(ctx, xhttp.StatusNotFound, statusNotFoundResponse{
			Success:       false,
			Message:       "Transaction not found",
			TransactionID: res.TransactionID,
		})
		return
	}
	writeJSON(ctx, xhttp.StatusOK, statusResponse{
		Success:     true,
		Transaction: res.Transaction,
	})
}

func (h *TransactionHandler) list(ctx *xhttp.RequestCtx, f model.TransactionFilter) {
	page, err := h.svc.List(ctx, f)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPageOutOfRange),
			errors.Is(err, services.ErrLimitTooSmall),
			errors.Is(err, services.ErrLimitTooLarge),
			errors.Is(err, services.ErrInvalidDate):
			writeError(ctx, xhttp.StatusBadRequest, err.Error())
		default:
			writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		}
		return
	}

	if page.Transactions == nil {
		page.Transactions = []*model.Transaction{}
	}
	writeJSON(ctx, xhttp.StatusOK, transactionListResponse{
		Success:    true,
		Data:       page.Transactions,
		Pagination: page.Pagination,
	})
}

func parseTransactionFilter(ctx *xhttp.RequestCtx) (model.TransactionFilter, error) {
	var f model.TransactionFilter

	if v := query(ctx, "page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("page must be an integer")
		}
		f.Page = n
	}
	if v := query(ctx, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("limit must be an integer")
		}
		f.Limit = n
	}
	if v := query(ctx, "status"); v != "" {
		f.Status = strings.TrimSpace(v)
	}
	if v := query(ctx, "payment_mode"); v != "" {
		f.PaymentMode = strings.TrimSpace(v)
	}
	if v := query(ctx, "start_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, errors.New("start_date must be YYYY-MM-DD or RFC3339")
		}
		f.StartDate = &t
	}
	if v := query(ctx, "end_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, errors.New("end_date must be YYYY-MM-DD or RFC3339")
		}
		f.EndDate = &t
	}
	if v := query(ctx, "sort_by"); v != "" {
		f.SortBy = v
	}
	if v := query(ctx, "sort_order"); v != "" {
		v = strings.ToLower(v)
		if v != model.SortAsc && v != model.SortDesc {
			return f, errors.New("sort_order must be asc or desc")
		}
		f.SortOrder = v
	}

	return f, nil
}
