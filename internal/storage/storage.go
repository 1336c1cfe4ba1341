package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/lending-console/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// CustomerStore persists borrower records.
type CustomerStore interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id models.ID) (models.Customer, error)
	CreateCustomer(ctx context.Context, fields models.CustomerFields) (models.Customer, error)
	UpdateCustomer(ctx context.Context, id models.ID, fields models.CustomerFields) (models.Customer, error)
	DeleteCustomer(ctx context.Context, id models.ID) error
}

// LoanStore persists loans. CreateLoan also records the disbursement
// transaction for the new loan.
type LoanStore interface {
	ListLoans(ctx context.Context) ([]models.Loan, error)
	GetLoan(ctx context.Context, id models.ID) (models.Loan, error)
	CreateLoan(ctx context.Context, fields models.LoanFields) (models.Loan, error)
	UpdateLoan(ctx context.Context, id models.ID, fields models.LoanFields) (models.Loan, error)
	DeleteLoan(ctx context.Context, id models.ID) error
}

// TransactionStore lists the ledger.
type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
}

// Store is everything the backend persists.
type Store interface {
	UserStore
	CustomerStore
	LoanStore
	TransactionStore
	Close()
}
