package services

import (
	"context"
	"time"

	"github.com/schoolpay/payment-gateway/pkg/pg"
)

type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

// Get pings both database handles so the health endpoint reflects real
// connectivity, not just process liveness.
func (s *HealthService) Get() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	readDB, err := s.db.Read(ctx).DB()
	if err != nil {
		return err
	}
	if err := readDB.PingContext(ctx); err != nil {
		return err
	}

	writeDB, err := s.db.Write(ctx).DB()
	if err != nil {
		return err
	}
	return writeDB.PingContext(ctx)
}
