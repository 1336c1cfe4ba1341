package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/storage"
)

func TestUsersUniqueByEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = s.CreateUser(ctx, models.User{Email: "ADA@example.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	found, err := s.FindByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = s.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSeededCustomersContinueIDs(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	c, err := s.CreateCustomer(ctx, models.CustomerFields{Name: "Esi"})
	require.NoError(t, err)
	assert.Equal(t, models.ID("9"), c.ID)

	list, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 9)
}

func TestCreateLoanRecordsDisbursement(t *testing.T) {
	s := NewSeeded()
	s.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	l, err := s.CreateLoan(ctx, models.LoanFields{Customer: "Esi", Amount: 1200, InterestRate: 4, Term: 6})
	require.NoError(t, err)
	assert.Equal(t, models.ID("5"), l.ID)
	assert.Equal(t, models.LoanPending, l.Status)
	assert.Equal(t, "2026-10-19", l.Date)

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	last := txs[len(txs)-1]
	assert.Equal(t, models.ID("6"), last.ID)
	assert.Equal(t, l.ID, last.LoanID)
	assert.Equal(t, models.Disbursement, last.Type)
	assert.Equal(t, 1200.0, last.Amount)
}

func TestUpdateLoanKeepsStatusWhenOmitted(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	l, err := s.UpdateLoan(ctx, "1", models.LoanFields{Customer: "Kwame Mensah", Amount: 6000, InterestRate: 5.5, Term: 12})
	require.NoError(t, err)
	assert.Equal(t, models.LoanActive, l.Status)
	assert.Equal(t, "2024-01-15", l.Date)
	assert.Equal(t, 6000.0, l.Amount)

	_, err = s.UpdateLoan(ctx, "99", models.LoanFields{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteMissing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	require.NoError(t, s.DeleteCustomer(ctx, "3"))
	assert.ErrorIs(t, s.DeleteCustomer(ctx, "3"), storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteLoan(ctx, "42"), storage.ErrNotFound)

	_, err := s.UpdateCustomer(ctx, "3", models.CustomerFields{Name: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
