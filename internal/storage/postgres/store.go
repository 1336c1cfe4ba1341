package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for the lending backend.
type Store struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

// NewStore connects, applies migrations and returns a ready store.
func NewStore(ctx context.Context, databaseURL string, log logrus.FieldLogger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, log: log}
	if err := s.migrate(databaseURL); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrationURL(databaseURL))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	s.log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("migrations applied")
	return nil
}

// migrationURL rewrites a libpq style URL to the scheme the pgx5 migrate
// driver registers.
func migrationURL(databaseURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (name, email, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, role, password_hash, created_at`
	row := s.pool.QueryRow(ctx, query, user.Name, user.Email, user.Role, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByEmail fetches a user by email address, case-insensitively.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT id, name, email, role, password_hash, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// ListCustomers returns customers in id order.
func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, phone, email FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// GetCustomer fetches one customer.
func (s *Store) GetCustomer(ctx context.Context, id models.ID) (models.Customer, error) {
	key, ok := rowID(id)
	if !ok {
		return models.Customer{}, storage.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name, phone, email FROM customers WHERE id = $1`, key)
	if err != nil {
		return models.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return collectOne(rows, scanCustomer)
}

// CreateCustomer inserts a customer.
func (s *Store) CreateCustomer(ctx context.Context, fields models.CustomerFields) (models.Customer, error) {
	const query = `
		INSERT INTO customers (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id, name, phone, email`
	rows, err := s.pool.Query(ctx, query, fields.Name, fields.Phone, fields.Email)
	if err != nil {
		return models.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return collectOne(rows, scanCustomer)
}

// UpdateCustomer replaces the editable fields of a customer.
func (s *Store) UpdateCustomer(ctx context.Context, id models.ID, fields models.CustomerFields) (models.Customer, error) {
	key, ok := rowID(id)
	if !ok {
		return models.Customer{}, storage.ErrNotFound
	}
	const query = `
		UPDATE customers SET name = $2, phone = $3, email = $4
		WHERE id = $1
		RETURNING id, name, phone, email`
	rows, err := s.pool.Query(ctx, query, key, fields.Name, fields.Phone, fields.Email)
	if err != nil {
		return models.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return collectOne(rows, scanCustomer)
}

// DeleteCustomer removes a customer.
func (s *Store) DeleteCustomer(ctx context.Context, id models.ID) error {
	return s.deleteRow(ctx, "customers", id)
}

const loanColumns = `id, customer, amount::float8, interest_rate::float8, term, status, date::text`

// ListLoans returns loans in id order.
func (s *Store) ListLoans(ctx context.Context) ([]models.Loan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+loanColumns+` FROM loans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return pgx.CollectRows(rows, scanLoan)
}

// GetLoan fetches one loan.
func (s *Store) GetLoan(ctx context.Context, id models.ID) (models.Loan, error) {
	key, ok := rowID(id)
	if !ok {
		return models.Loan{}, storage.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, key)
	if err != nil {
		return models.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return collectOne(rows, scanLoan)
}

// CreateLoan inserts a loan and its disbursement in one transaction.
func (s *Store) CreateLoan(ctx context.Context, fields models.LoanFields) (models.Loan, error) {
	var created models.Loan
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO loans (customer, amount, interest_rate, term, status, date)
			VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), 'Pending'), COALESCE(NULLIF($6, '')::date, CURRENT_DATE))
			RETURNING ` + loanColumns
		rows, err := tx.Query(ctx, query,
			fields.Customer, fields.Amount, fields.InterestRate, fields.Term, string(fields.Status), fields.Date)
		if err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		created, err = collectOne(rows, scanLoan)
		if err != nil {
			return err
		}
		key, _ := rowID(created.ID)
		_, err = tx.Exec(ctx,
			`INSERT INTO transactions (loan_id, amount, type, date) VALUES ($1, $2, $3, $4::date)`,
			key, created.Amount, string(models.Disbursement), created.Date)
		if err != nil {
			return fmt.Errorf("record disbursement: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Loan{}, err
	}
	return created, nil
}

// UpdateLoan replaces the editable fields of a loan. An empty status or date
// keeps the stored value.
func (s *Store) UpdateLoan(ctx context.Context, id models.ID, fields models.LoanFields) (models.Loan, error) {
	key, ok := rowID(id)
	if !ok {
		return models.Loan{}, storage.ErrNotFound
	}
	query := `
		UPDATE loans SET
			customer = $2,
			amount = $3,
			interest_rate = $4,
			term = $5,
			status = COALESCE(NULLIF($6, ''), status),
			date = COALESCE(NULLIF($7, '')::date, date)
		WHERE id = $1
		RETURNING ` + loanColumns
	rows, err := s.pool.Query(ctx, query,
		key, fields.Customer, fields.Amount, fields.InterestRate, fields.Term, string(fields.Status), fields.Date)
	if err != nil {
		return models.Loan{}, fmt.Errorf("update loan: %w", err)
	}
	return collectOne(rows, scanLoan)
}

// DeleteLoan removes a loan. Its transactions keep a null loan id.
func (s *Store) DeleteLoan(ctx context.Context, id models.ID) error {
	return s.deleteRow(ctx, "loans", id)
}

// ListTransactions returns the ledger in id order.
func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, loan_id, amount::float8, type, date::text FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Transaction, error) {
		var (
			t      models.Transaction
			id     int64
			loanID *int64
			typ    string
		)
		if err := row.Scan(&id, &loanID, &t.Amount, &typ, &t.Date); err != nil {
			return models.Transaction{}, err
		}
		t.ID = formatID(id)
		if loanID != nil {
			t.LoanID = formatID(*loanID)
		}
		t.Type = models.TransactionType(typ)
		return t, nil
	})
}

// Seed inserts the demo dataset when the customers table is empty.
func (s *Store) Seed(ctx context.Context, customers []models.Customer, loans []models.Loan) error {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, c := range customers {
		if _, err := s.CreateCustomer(ctx, models.CustomerFields{Name: c.Name, Phone: c.Phone, Email: c.Email}); err != nil {
			return err
		}
	}
	for _, l := range loans {
		fields := models.LoanFields{
			Customer: l.Customer, Amount: l.Amount, InterestRate: l.InterestRate,
			Term: l.Term, Status: l.Status, Date: l.Date,
		}
		if _, err := s.CreateLoan(ctx, fields); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"customers": len(customers), "loans": len(loans)}).Info("seeded demo data")
	return nil
}

func (s *Store) deleteRow(ctx context.Context, table string, id models.ID) error {
	key, ok := rowID(id)
	if !ok {
		return storage.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanCustomer(row pgx.CollectableRow) (models.Customer, error) {
	var (
		c  models.Customer
		id int64
	)
	if err := row.Scan(&id, &c.Name, &c.Phone, &c.Email); err != nil {
		return models.Customer{}, err
	}
	c.ID = formatID(id)
	return c, nil
}

func scanLoan(row pgx.CollectableRow) (models.Loan, error) {
	var (
		l      models.Loan
		id     int64
		status string
	)
	if err := row.Scan(&id, &l.Customer, &l.Amount, &l.InterestRate, &l.Term, &status, &l.Date); err != nil {
		return models.Loan{}, err
	}
	l.ID = formatID(id)
	l.Status = models.LoanStatus(status)
	return l, nil
}

// collectOne returns the single row of rows, or storage.ErrNotFound.
func collectOne[T any](rows pgx.Rows, fn pgx.RowToFunc[T]) (T, error) {
	v, err := pgx.CollectExactlyOneRow(rows, fn)
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, storage.ErrNotFound
	}
	return v, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// rowID accepts only the exact text formatID produces, so "0012" never
// addresses row 12.
func rowID(id models.ID) (int64, bool) {
	n, err := strconv.ParseInt(id.String(), 10, 64)
	return n, err == nil && n > 0 && formatID(n) == id
}

func formatID(id int64) models.ID {
	return models.ID(strconv.FormatInt(id, 10))
}
