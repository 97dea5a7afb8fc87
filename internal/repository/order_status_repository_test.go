package repository

import (
	"context"
	"testing"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrder(t *testing.T, repo *OrderRepository, customOrderID string) *model.Order {
	t.Helper()
	order, err := repo.Create(context.Background(), &model.Order{
		SchoolID:      "school-1",
		StudentInfo:   model.StudentInfo{Name: "Alice", ID: "STU001", Email: "alice@example.com"},
		GatewayName:   "Edviron",
		CustomOrderID: customOrderID,
	})
	require.NoError(t, err)
	return order
}

func TestOrderStatusRepository_Upsert(t *testing.T) {
	db := setupTestDB(t).DB
	orderRepo := NewOrderRepository(db)
	repo := NewOrderStatusRepository(db)
	ctx := context.Background()

	t.Run("insert then replace keeps a single row", func(t *testing.T) {
		order := createTestOrder(t, orderRepo, "ORD_1700000000010_aaaaaaaaa")

		first, err := repo.Upsert(ctx, &model.OrderStatus{
			CollectID:         order.ID,
			OrderAmount:       500,
			TransactionAmount: 500,
			PaymentMode:       "pending",
			Status:            model.PaymentStatusPending,
		})
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, first.Status)

		now := time.Now()
		second, err := repo.Upsert(ctx, &model.OrderStatus{
			CollectID:         order.ID,
			OrderAmount:       500,
			TransactionAmount: 495,
			PaymentMode:       "upi",
			BankReference:     "BNK123",
			PaymentMessage:    "Payment completed",
			Status:            model.PaymentStatusSuccess,
			PaymentTime:       &now,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, model.PaymentStatusSuccess, second.Status)
		assert.Equal(t, 495.0, second.TransactionAmount)
		assert.Equal(t, "upi", second.PaymentMode)
	})

	t.Run("identical payload applied twice is idempotent", func(t *testing.T) {
		order := createTestOrder(t, orderRepo, "ORD_1700000000011_bbbbbbbbb")

		status := &model.OrderStatus{
			CollectID:         order.ID,
			OrderAmount:       300,
			TransactionAmount: 300,
			PaymentMode:       "netbanking",
			Status:            model.PaymentStatusSuccess,
		}

		first, err := repo.Upsert(ctx, status)
		require.NoError(t, err)
		second, err := repo.Upsert(ctx, status)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.TransactionAmount, second.TransactionAmount)
	})
}

func TestOrderStatusRepository_GetByCollectID(t *testing.T) {
	db := setupTestDB(t).DB
	orderRepo := NewOrderRepository(db)
	repo := NewOrderStatusRepository(db)
	ctx := context.Background()

	order := createTestOrder(t, orderRepo, "ORD_1700000000012_ccccccccc")

	t.Run("missing status returns ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByCollectID(ctx, order.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("existing status is returned", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.OrderStatus{
			CollectID: order.ID,
			Status:    model.PaymentStatusPending,
		})
		require.NoError(t, err)

		got, err := repo.GetByCollectID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.CollectID)
	})
}

func TestOrderStatusRepository_MarkCreationFailed(t *testing.T) {
	db := setupTestDB(t).DB
	orderRepo := NewOrderRepository(db)
	repo := NewOrderStatusRepository(db)
	ctx := context.Background()

	order := createTestOrder(t, orderRepo, "ORD_1700000000013_ddddddddd")
	_, err := repo.Create(ctx, &model.OrderStatus{
		CollectID: order.ID,
		Status:    model.PaymentStatusPending,
	})
	require.NoError(t, err)

	err = repo.MarkCreationFailed(ctx, order.ID, "gateway timeout")
	require.NoError(t, err)

	got, err := repo.GetByCollectID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCreationFailed, got.Status)
	assert.Equal(t, "gateway timeout", got.ErrorMessage)
}
