package helpers

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/internal/repository"
	"github.com/schoolpay/payment-gateway/pkg/pg"
	"github.com/schoolpay/payment-gateway/pkg/redis"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.OrderEntity{},
		&repository.OrderStatusEntity{},
		&repository.WebhookLogEntity{},
		&repository.UserEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// unique connection name per test to sidestep global adapter caching
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestOrder(t *testing.T, db *pg.DB, schoolID, customOrderID string) *repository.OrderEntity {
	ctx := context.Background()
	order := &repository.OrderEntity{
		SchoolID:      schoolID,
		TrusteeID:     "trustee-1",
		StudentInfo:   model.StudentInfo{Name: "Student", ID: "STU001", Email: "student@example.com"},
		GatewayName:   "Edviron",
		CustomOrderID: customOrderID,
	}
	err := db.Write(ctx).Create(order).Error
	require.NoError(t, err)
	return order
}

func CreateTestOrderStatus(t *testing.T, db *pg.DB, collectID int64, status model.PaymentStatus, amount float64) *repository.OrderStatusEntity {
	ctx := context.Background()
	paymentTime := time.Now()
	entity := &repository.OrderStatusEntity{
		CollectID:         collectID,
		OrderAmount:       amount,
		TransactionAmount: amount,
		PaymentMode:       "upi",
		Status:            string(status),
		PaymentTime:       &paymentTime,
	}
	err := db.Write(ctx).Create(entity).Error
	require.NoError(t, err)
	return entity
}

func CreateTestWebhookLog(t *testing.T, db *pg.DB, status model.WebhookLogStatus, payload string) *repository.WebhookLogEntity {
	ctx := context.Background()
	entity := &repository.WebhookLogEntity{
		EventType:   "payment_update",
		Payload:     payload,
		Status:      string(status),
		ProcessedAt: time.Now(),
	}
	err := db.Write(ctx).Create(entity).Error
	require.NoError(t, err)
	return entity
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
