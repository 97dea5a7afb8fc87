package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookLogRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewWebhookLogRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.WebhookLog{
		EventType:   "payment_update",
		Payload:     json.RawMessage(`{"status":200,"order_info":{"order_id":"ORD_1"}}`),
		Status:      model.WebhookLogReceived,
		ProcessedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.WebhookLogReceived, created.Status)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(created.Payload), string(got.Payload))
}

func TestWebhookLogRepository_Finalize(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewWebhookLogRepository(db)
	ctx := context.Background()

	t.Run("received entry moves to processed", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.WebhookLog{
			EventType:   "payment_update",
			Payload:     json.RawMessage(`{}`),
			Status:      model.WebhookLogReceived,
			ProcessedAt: time.Now(),
		})
		require.NoError(t, err)

		err = repo.Finalize(ctx, created.ID, model.WebhookLogProcessed, "")
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WebhookLogProcessed, got.Status)
	})

	t.Run("finalized entry cannot be finalized again", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.WebhookLog{
			EventType:   "payment_update",
			Payload:     json.RawMessage(`{}`),
			Status:      model.WebhookLogReceived,
			ProcessedAt: time.Now(),
		})
		require.NoError(t, err)

		require.NoError(t, repo.Finalize(ctx, created.ID, model.WebhookLogFailed, "Order not found"))
		require.NoError(t, repo.Finalize(ctx, created.ID, model.WebhookLogProcessed, ""))

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WebhookLogFailed, got.Status)
		assert.Equal(t, "Order not found", got.ErrorMessage)
	})
}

func TestWebhookLogRepository_CountByStatus(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewWebhookLogRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		created, err := repo.Create(ctx, &model.WebhookLog{
			EventType:   "payment_update",
			Payload:     json.RawMessage(`{}`),
			Status:      model.WebhookLogReceived,
			ProcessedAt: time.Now(),
		})
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, repo.Finalize(ctx, created.ID, model.WebhookLogProcessed, ""))
		}
	}

	processed, err := repo.CountByStatus(ctx, model.WebhookLogProcessed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), processed)

	received, err := repo.CountByStatus(ctx, model.WebhookLogReceived)
	require.NoError(t, err)
	assert.Equal(t, int64(2), received)
}
