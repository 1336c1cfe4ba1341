// Package console is the server-side half of the admin console: one
// workspace per browser session, each with its own token, backend client and
// per-resource views, exposed as JSON endpoints.
package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/hongminglow/lending-console/internal/apiclient"
	"github.com/hongminglow/lending-console/internal/dashboard"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/models/dto"
	"github.com/hongminglow/lending-console/internal/reconcile"
	"github.com/hongminglow/lending-console/internal/seed"
	"github.com/hongminglow/lending-console/internal/session"
)

// AuthError is a login or registration the backend did not accept.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// Me describes the signed-in session.
type Me struct {
	SignedIn bool   `json:"signedIn"`
	Role     string `json:"role,omitempty"`
	Admin    bool   `json:"admin"`
	Demo     bool   `json:"demo"`
}

// Backend is the subset of the API client a workspace uses.
type Backend interface {
	Login(ctx context.Context, creds dto.LoginRequest) (*apiclient.Response, error)
	Register(ctx context.Context, profile dto.RegisterRequest) (*apiclient.Response, error)
	ListCustomers(ctx context.Context) (*apiclient.Response, error)
	CreateCustomer(ctx context.Context, fields models.CustomerFields) (*apiclient.Response, error)
	UpdateCustomer(ctx context.Context, id models.ID, fields models.CustomerFields) (*apiclient.Response, error)
	DeleteCustomer(ctx context.Context, id models.ID) (*apiclient.Response, error)
	ListLoans(ctx context.Context) (*apiclient.Response, error)
	CreateLoan(ctx context.Context, fields models.LoanFields) (*apiclient.Response, error)
	UpdateLoan(ctx context.Context, id models.ID, fields models.LoanFields) (*apiclient.Response, error)
	DeleteLoan(ctx context.Context, id models.ID) (*apiclient.Response, error)
	ListTransactions(ctx context.Context) (*apiclient.Response, error)
}

type (
	CustomerView    = ResourceView[models.Customer, *models.Customer, models.CustomerFields]
	LoanView        = ResourceView[models.Loan, *models.Loan, models.LoanFields]
	TransactionView = ResourceView[models.Transaction, *models.Transaction, struct{}]
)

// Workspace is one browser session's console state.
type Workspace struct {
	Customers    *CustomerView
	Loans        *LoanView
	Transactions *TransactionView

	session *session.Store
	backend Backend
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewWorkspace wires views for the three resources over backend.
func NewWorkspace(store *session.Store, backend Backend, log logrus.FieldLogger) *Workspace {
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := &Workspace{session: store, backend: backend, log: log, now: time.Now}

	customers := reconcile.New[models.Customer, *models.Customer]("customer", seed.Customers)
	w.Customers = &CustomerView{
		name:   "customers",
		policy: customers,
		api: resourceAPI[models.CustomerFields]{
			list:   backend.ListCustomers,
			create: backend.CreateCustomer,
			update: backend.UpdateCustomer,
			remove: backend.DeleteCustomer,
		},
		gate:     store,
		toRecord: models.CustomerFields.Customer,
		toFields: customerFields,
		log:      log.WithField("resource", "customers"),
		items:    []models.Customer{},
	}

	loans := reconcile.New[models.Loan, *models.Loan]("loan", seed.Loans)
	loans.Prepare = func(l *models.Loan) { l.ApplyDefaults(w.now()) }
	w.Loans = &LoanView{
		name:   "loans",
		policy: loans,
		api: resourceAPI[models.LoanFields]{
			list:   backend.ListLoans,
			create: backend.CreateLoan,
			update: backend.UpdateLoan,
			remove: backend.DeleteLoan,
		},
		gate:     store,
		toRecord: models.LoanFields.Loan,
		toFields: loanFields,
		log:      log.WithField("resource", "loans"),
		items:    []models.Loan{},
	}

	transactions := reconcile.New[models.Transaction, *models.Transaction]("transaction", seed.Transactions)
	w.Transactions = &TransactionView{
		name:   "transactions",
		policy: transactions,
		api:    resourceAPI[struct{}]{list: backend.ListTransactions},
		gate:   store,
		log:    log.WithField("resource", "transactions"),
		items:  []models.Transaction{},
	}
	return w
}

// Login exchanges credentials for a token. With demo mode on, an unreachable
// backend signs in with the demo token instead.
func (w *Workspace) Login(ctx context.Context, creds dto.LoginRequest) (Me, error) {
	resp, err := w.backend.Login(ctx, creds)
	return w.authenticate(ctx, "Login", resp, err)
}

// Register creates an account and signs in with the returned token.
func (w *Workspace) Register(ctx context.Context, profile dto.RegisterRequest) (Me, error) {
	resp, err := w.backend.Register(ctx, profile)
	return w.authenticate(ctx, "Registration", resp, err)
}

func (w *Workspace) authenticate(ctx context.Context, action string, resp *apiclient.Response, err error) (Me, error) {
	out := apiclient.Classify(resp, err)
	observe("auth", strings.ToLower(action), out)

	switch out.Kind {
	case reconcile.TransportError:
		if !w.session.DemoMode() {
			return Me{}, &AuthError{Message: "Unable to reach the server. Please try again later.", Err: out.Err}
		}
		w.log.WithError(out.Err).Warn("backend unreachable, signing in with demo token")
		return w.signIn(ctx, session.DemoToken)
	case reconcile.HTTPError:
		msg := reconcile.Message(out.Body)
		if msg == "" {
			msg = fmt.Sprintf("%s failed. Please check your details.", action)
		}
		return Me{}, &AuthError{Status: out.Status, Message: msg}
	case reconcile.ParseError:
		return Me{}, &AuthError{Status: out.Status, Message: fmt.Sprintf("%s failed: unexpected server response.", action), Err: out.Err}
	}

	token := gjson.GetBytes(out.Body, "token").String()
	if token == "" {
		token = gjson.GetBytes(out.Body, "data.token").String()
	}
	if token == "" {
		return Me{}, &AuthError{Status: out.Status, Message: fmt.Sprintf("%s failed: no token in server response.", action)}
	}
	return w.signIn(ctx, token)
}

func (w *Workspace) signIn(ctx context.Context, token string) (Me, error) {
	if err := w.session.SetToken(ctx, token); err != nil {
		return Me{}, fmt.Errorf("store token: %w", err)
	}
	w.reset()
	return w.Me(ctx), nil
}

// Logout clears the token and the held lists. The backend is not contacted.
func (w *Workspace) Logout(ctx context.Context) error {
	if err := w.session.Logout(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	w.reset()
	return nil
}

// Me reports the current session.
func (w *Workspace) Me(ctx context.Context) Me {
	token, ok := w.session.Token(ctx)
	if !ok {
		return Me{}
	}
	role, _ := w.session.Role(ctx)
	return Me{
		SignedIn: true,
		Role:     role,
		Admin:    role == models.RoleAdmin,
		Demo:     token == session.DemoToken,
	}
}

// RequireSession returns ErrUnauthenticated when no token is stored.
func (w *Workspace) RequireSession(ctx context.Context) error {
	if _, ok := w.session.Token(ctx); !ok {
		return ErrUnauthenticated
	}
	return nil
}

// Dashboard summarises the held lists, loading any that never were.
func (w *Workspace) Dashboard(ctx context.Context) dashboard.Summary {
	return dashboard.Summarize(
		w.Customers.State(ctx).Items,
		w.Loans.State(ctx).Items,
		w.Transactions.State(ctx).Items,
	)
}

func (w *Workspace) reset() {
	w.Customers.Reset()
	w.Loans.Reset()
	w.Transactions.Reset()
}

func customerFields(c models.Customer) models.CustomerFields {
	return models.CustomerFields{Name: c.Name, Phone: c.Phone, Email: c.Email}
}

func loanFields(l models.Loan) models.LoanFields {
	return models.LoanFields{
		Customer:     l.Customer,
		Amount:       l.Amount,
		InterestRate: l.InterestRate,
		Term:         l.Term,
		Status:       l.Status,
		Date:         l.Date,
	}
}

// authStatus maps an auth failure to the status the console answers with.
func authStatus(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		switch {
		case authErr.Status == 0:
			return http.StatusBadGateway
		case authErr.Status >= 500:
			return http.StatusBadGateway
		case authErr.Status >= 400:
			return authErr.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
