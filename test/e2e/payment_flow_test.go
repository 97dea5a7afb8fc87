package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/schoolpay/payment-gateway/internal/cache"
	gateway "github.com/schoolpay/payment-gateway/internal/gateways"
	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/internal/repository"
	"github.com/schoolpay/payment-gateway/internal/services"
	"github.com/schoolpay/payment-gateway/pkg/pg"
	"github.com/schoolpay/payment-gateway/test/fixtures"
	"github.com/schoolpay/payment-gateway/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGatewayClient stands in for the payment provider; it records calls and
// can be told to fail.
type fakeGatewayClient struct {
	fail  bool
	calls int
}

func (f *fakeGatewayClient) CreateCollectRequest(ctx context.Context, amount float64, callbackURL string) (*gateway.CollectResponse, error) {
	f.calls++
	if f.fail {
		return nil, &gateway.CollectError{StatusCode: 502, Body: "upstream unavailable"}
	}
	id := fmt.Sprintf("cr-%d", f.calls)
	return &gateway.CollectResponse{
		CollectRequestID:  id,
		CollectRequestURL: "https://pg.example.com/pay/" + id,
		Raw:               json.RawMessage(fmt.Sprintf(`{"collect_request_id":%q}`, id)),
	}, nil
}

type TestEnvironment struct {
	DB                 *pg.DB
	Redis              *miniredis.Miniredis
	Gateway            *fakeGatewayClient
	OrderRepo          *repository.OrderRepository
	StatusRepo         *repository.OrderStatusRepository
	WebhookRepo        *repository.WebhookLogRepository
	PaymentService     *services.PaymentService
	TransactionService *services.TransactionService
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	pgDB := helpers.SetupTestDB(t)
	mr, adapter := helpers.SetupTestRedis(t)
	t.Cleanup(mr.Close)

	orderRepo := repository.NewOrderRepository(pgDB)
	statusRepo := repository.NewOrderStatusRepository(pgDB)
	webhookRepo := repository.NewWebhookLogRepository(pgDB)
	transactionRepo := repository.NewTransactionRepository(pgDB)

	client := &fakeGatewayClient{}
	statusCache := cache.NewStatusCache(adapter, time.Minute)

	paymentService := services.NewPaymentService(services.PaymentConfig{
		SchoolID:           "school-e2e",
		GatewayName:        "Edviron",
		DefaultTrusteeID:   "trustee-1",
		DefaultCallbackURL: "https://example.com/webhook",
	}, orderRepo, statusRepo, webhookRepo, client, statusCache)

	return &TestEnvironment{
		DB:                 pgDB,
		Redis:              mr,
		Gateway:            client,
		OrderRepo:          orderRepo,
		StatusRepo:         statusRepo,
		WebhookRepo:        webhookRepo,
		PaymentService:     paymentService,
		TransactionService: services.NewTransactionService(transactionRepo),
	}
}

func TestE2E_PaymentCreation(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	res, err := env.PaymentService.CreatePayment(ctx, fixtures.NewTestPaymentCreateRequest(500))
	require.NoError(t, err)
	assert.NotZero(t, res.Order.ID)
	assert.Equal(t, "cr-1", res.CollectRequestID)
	assert.Equal(t, 1, env.Gateway.calls)

	status, err := env.StatusRepo.GetByCollectID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, status.Status)
	assert.Equal(t, 500.0, status.OrderAmount)
}

func TestE2E_GatewayFailureMarksOrder(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.Gateway.fail = true
	ctx := context.Background()

	_, err := env.PaymentService.CreatePayment(ctx, fixtures.NewTestPaymentCreateRequest(200))
	var creationErr *services.PaymentCreationError
	require.ErrorAs(t, err, &creationErr)

	// the order row stays, flagged so it is not mistaken for a live payment
	var entity repository.OrderStatusEntity
	require.NoError(t, env.DB.Read(ctx).First(&entity).Error)
	assert.Equal(t, string(model.PaymentStatusCreationFailed), entity.Status)
	assert.NotEmpty(t, entity.ErrorMessage)
}

func TestE2E_WebhookSettlement(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	res, err := env.PaymentService.CreatePayment(ctx, fixtures.NewTestPaymentCreateRequest(500))
	require.NoError(t, err)

	whRes, err := env.PaymentService.HandleWebhook(ctx, fixtures.NewWebhookBody(res.Order.CustomOrderID, "success", 500))
	require.NoError(t, err)
	assert.True(t, whRes.Success)

	status, err := env.StatusRepo.GetByCollectID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, status.Status)
	assert.Equal(t, "upi", status.PaymentMode)

	processed, err := env.WebhookRepo.CountByStatus(ctx, model.WebhookLogProcessed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), processed)
}

func TestE2E_WebhookForUnknownOrder(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	whRes, err := env.PaymentService.HandleWebhook(ctx, fixtures.NewWebhookBody("ORD_ghost_000000000", "success", 100))
	require.NoError(t, err)
	assert.False(t, whRes.Success)
	assert.Equal(t, "Order not found", whRes.Message)

	// audit entry exists even though no order matched
	failed, err := env.WebhookRepo.CountByStatus(ctx, model.WebhookLogFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestE2E_DuplicateWebhookIsIdempotent(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	res, err := env.PaymentService.CreatePayment(ctx, fixtures.NewTestPaymentCreateRequest(500))
	require.NoError(t, err)

	body := fixtures.NewWebhookBody(res.Order.CustomOrderID, "success", 500)
	for i := 0; i < 2; i++ {
		whRes, err := env.PaymentService.HandleWebhook(ctx, body)
		require.NoError(t, err)
		assert.True(t, whRes.Success)
	}

	// both deliveries logged, still a single status row
	processed, err := env.WebhookRepo.CountByStatus(ctx, model.WebhookLogProcessed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), processed)

	var count int64
	env.DB.Read(ctx).Model(&repository.OrderStatusEntity{}).
		Where("collect_id = ?", res.Order.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestE2E_StatusLookupAndCache(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	res, err := env.PaymentService.CreatePayment(ctx, fixtures.NewTestPaymentCreateRequest(500))
	require.NoError(t, err)

	before, err := env.PaymentService.GetTransactionStatus(ctx, res.Order.CustomOrderID)
	require.NoError(t, err)
	assert.True(t, before.Found)
	assert.Equal(t, model.PaymentStatusPending, before.Transaction.Status)

	_, err = env.PaymentService.HandleWebhook(ctx, fixtures.NewWebhookBody(res.Order.CustomOrderID, "success", 500))
	require.NoError(t, err)

	// webhook invalidated the cached pending entry
	after, err := env.PaymentService.GetTransactionStatus(ctx, res.Order.CustomOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, after.Transaction.Status)
}

func TestE2E_TransactionListing(t *testing.T) {
	env := setupE2EEnvironment(t)
	ctx := context.Background()

	var settled string
	for i := 0; i < 3; i++ {
		res, err := env.PaymentService.CreatePayment(ctx, fixtures.NewTestPaymentCreateRequest(float64(100 * (i + 1))))
		require.NoError(t, err)
		if i == 0 {
			settled = res.Order.CustomOrderID
			_, err = env.PaymentService.HandleWebhook(ctx, fixtures.NewWebhookBody(settled, "success", 100))
			require.NoError(t, err)
		}
	}

	page, err := env.TransactionService.List(ctx, fixtures.TransactionFilterBySchool("school-e2e"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Pagination.TotalRecords)
	assert.Len(t, page.Transactions, 3)

	f := fixtures.TransactionFilterDefaults()
	f.Status = "success"
	successPage, err := env.TransactionService.List(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), successPage.Pagination.TotalRecords)
	assert.Equal(t, settled, successPage.Transactions[0].CustomOrderID)
}
