// Package memory is a process-local storage.Store used when no database is
// configured.
package memory

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/seed"
	"github.com/hongminglow/lending-console/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu           sync.RWMutex
	users        []models.User
	customers    []models.Customer
	loans        []models.Loan
	transactions []models.Transaction
	nextID       map[string]int64
	now          func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nextID: map[string]int64{"users": 1, "customers": 1, "loans": 1, "transactions": 1},
		now:    time.Now,
	}
}

// NewSeeded returns a store holding the demo dataset.
func NewSeeded() *Store {
	s := New()
	s.customers = seed.Customers()
	s.loans = seed.Loans()
	s.transactions = seed.Transactions()
	s.nextID["customers"] = int64(len(s.customers)) + 1
	s.nextID["loans"] = int64(len(s.loans)) + 1
	s.nextID["transactions"] = int64(len(s.transactions)) + 1
	return s
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) allocate(table string) models.ID {
	id := s.nextID[table]
	s.nextID[table] = id + 1
	return models.ID(strconv.FormatInt(id, 10))
}

// CreateUser stores a user. Emails are unique, case-insensitively.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.ID = s.nextID["users"]
	s.nextID["users"]++
	user.CreatedAt = s.now().UTC()
	s.users = append(s.users, user)
	return user, nil
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// ListCustomers returns customers in id order.
func (s *Store) ListCustomers(context.Context) ([]models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.customers), nil
}

// GetCustomer fetches one customer.
func (s *Store) GetCustomer(_ context.Context, id models.ID) (models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := slices.IndexFunc(s.customers, func(c models.Customer) bool { return c.ID.Equal(id) })
	if idx < 0 {
		return models.Customer{}, storage.ErrNotFound
	}
	return s.customers[idx], nil
}

// CreateCustomer inserts a customer.
func (s *Store) CreateCustomer(_ context.Context, fields models.CustomerFields) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := fields.Customer()
	c.ID = s.allocate("customers")
	s.customers = append(s.customers, c)
	return c, nil
}

// UpdateCustomer replaces the editable fields of a customer.
func (s *Store) UpdateCustomer(_ context.Context, id models.ID, fields models.CustomerFields) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.customers, func(c models.Customer) bool { return c.ID.Equal(id) })
	if idx < 0 {
		return models.Customer{}, storage.ErrNotFound
	}
	c := fields.Customer()
	c.ID = id
	s.customers[idx] = c
	return c, nil
}

// DeleteCustomer removes a customer.
func (s *Store) DeleteCustomer(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.customers)
	s.customers = slices.DeleteFunc(s.customers, func(c models.Customer) bool { return c.ID.Equal(id) })
	if len(s.customers) == n {
		return storage.ErrNotFound
	}
	return nil
}

// ListLoans returns loans in id order.
func (s *Store) ListLoans(context.Context) ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.loans), nil
}

// GetLoan fetches one loan.
func (s *Store) GetLoan(_ context.Context, id models.ID) (models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := slices.IndexFunc(s.loans, func(l models.Loan) bool { return l.ID.Equal(id) })
	if idx < 0 {
		return models.Loan{}, storage.ErrNotFound
	}
	return s.loans[idx], nil
}

// CreateLoan inserts a loan and its disbursement.
func (s *Store) CreateLoan(_ context.Context, fields models.LoanFields) (models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := fields.Loan()
	l.ApplyDefaults(s.now())
	l.ID = s.allocate("loans")
	s.loans = append(s.loans, l)

	tx := models.Transaction{LoanID: l.ID, Amount: l.Amount, Type: models.Disbursement, Date: l.Date}
	tx.ID = s.allocate("transactions")
	s.transactions = append(s.transactions, tx)
	return l, nil
}

// UpdateLoan replaces the editable fields of a loan. An empty status or date
// keeps the stored value.
func (s *Store) UpdateLoan(_ context.Context, id models.ID, fields models.LoanFields) (models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.loans, func(l models.Loan) bool { return l.ID.Equal(id) })
	if idx < 0 {
		return models.Loan{}, storage.ErrNotFound
	}
	cur := s.loans[idx]
	l := fields.Loan()
	l.ID = id
	if l.Status == "" {
		l.Status = cur.Status
	}
	if l.Date == "" {
		l.Date = cur.Date
	}
	s.loans[idx] = l
	return l, nil
}

// DeleteLoan removes a loan. Its transactions are kept as history.
func (s *Store) DeleteLoan(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.loans)
	s.loans = slices.DeleteFunc(s.loans, func(l models.Loan) bool { return l.ID.Equal(id) })
	if len(s.loans) == n {
		return storage.ErrNotFound
	}
	return nil
}

// ListTransactions returns the ledger in id order.
func (s *Store) ListTransactions(context.Context) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.transactions), nil
}
