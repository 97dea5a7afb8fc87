package services

import (
	"context"
	"errors"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

var (
	ErrPageOutOfRange = errors.New("page must be 1 or greater")
	ErrLimitTooSmall  = errors.New("limit must be 1 or greater")
	ErrLimitTooLarge  = errors.New("limit must not exceed 100")
	ErrInvalidDate    = errors.New("invalid date range: start_date is after end_date")
)

type TransactionRepository interface {
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

// TransactionService serves the filtered, sorted, paginated transaction
// listing over the order and status stores.
type TransactionService struct {
	repo TransactionRepository
}

func NewTransactionService(repo TransactionRepository) *TransactionService {
	return &TransactionService{repo: repo}
}

type TransactionPage struct {
	Transactions []*model.Transaction
	Pagination   model.Pagination
}

// List validates and normalizes the filter, then runs the joined query.
// Validation failures never reach the store.
func (s *TransactionService) List(ctx context.Context, f model.TransactionFilter) (*TransactionPage, error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = defaultPageLimit
	}
	if f.Page < 1 {
		return nil, ErrPageOutOfRange
	}
	if f.Limit < 1 {
		return nil, ErrLimitTooSmall
	}
	if f.Limit > maxPageLimit {
		return nil, ErrLimitTooLarge
	}

	if f.StartDate != nil {
		d := startOfDay(*f.StartDate)
		f.StartDate = &d
	}
	if f.EndDate != nil {
		d := endOfDay(*f.EndDate)
		f.EndDate = &d
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return nil, ErrInvalidDate
	}

	if f.SortBy == "" {
		f.SortBy = "createdAt"
	}
	if f.SortOrder == "" {
		f.SortOrder = model.SortDesc
	}

	transactions, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	totalPages := int(total / int64(f.Limit))
	if total%int64(f.Limit) != 0 {
		totalPages++
	}

	return &TransactionPage{
		Transactions: transactions,
		Pagination: model.Pagination{
			CurrentPage:    f.Page,
			TotalPages:     totalPages,
			TotalRecords:   total,
			RecordsPerPage: f.Limit,
		},
	}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay pushes the bound to the last representable millisecond, so a date
// filter is inclusive of the whole end day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, t.Location())
}
