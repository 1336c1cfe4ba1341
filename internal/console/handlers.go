package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/hongminglow/lending-console/internal/calculator"
	"github.com/hongminglow/lending-console/internal/http/respond"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/models/dto"
	"github.com/hongminglow/lending-console/internal/reconcile"
)

// CookieName is the browser cookie carrying the workspace id.
const CookieName = "console_session"

type ctxKey struct{}

// Handler serves the console's JSON endpoints.
type Handler struct {
	workspaces   *Workspaces
	secureCookie bool
	log          logrus.FieldLogger
}

// NewHandler constructs the handler.
func NewHandler(workspaces *Workspaces, secureCookie bool, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{workspaces: workspaces, secureCookie: secureCookie, log: log}
}

// Register attaches the console routes to r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/console", func(r chi.Router) {
		r.Use(h.workspace)

		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/calculator", h.handleCalculator)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)

			r.Get("/customers", h.listCustomers)
			r.Post("/customers", h.createCustomer)
			r.Put("/customers/{id}", h.updateCustomer)
			r.Delete("/customers/{id}", h.deleteCustomer)

			r.Get("/loans", h.listLoans)
			r.Post("/loans", h.createLoan)
			r.Put("/loans/{id}", h.updateLoan)
			r.Delete("/loans/{id}", h.deleteLoan)

			r.Get("/transactions", h.listTransactions)
			r.Get("/dashboard", h.handleDashboard)
		})
	})
}

// workspace attaches the caller's workspace when its cookie names one that is
// held or has a stored token. Anonymous requests get none.
func (h *Handler) workspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil && h.workspaces.ValidID(c.Value) {
			if ws, ok := h.workspaces.Lookup(r.Context(), c.Value); ok {
				r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, ws))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := workspaceFrom(r)
		if ws == nil {
			respond.Error(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
			return
		}
		if err := ws.RequireSession(r.Context()); err != nil {
			respond.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func workspaceFrom(r *http.Request) *Workspace {
	ws, _ := r.Context().Value(ctxKey{}).(*Workspace)
	return ws
}

// signIn runs fn on the caller's workspace, creating one for a first sign in.
// A new workspace is kept, and its cookie issued, only when fn succeeds.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, fn func(*Workspace) (Me, error)) (Me, error) {
	if ws := workspaceFrom(r); ws != nil {
		return fn(ws)
	}
	id := h.workspaces.NewID()
	me, err := fn(h.workspaces.Get(id))
	if err != nil {
		h.workspaces.Drop(r.Context(), id)
		return me, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return me, nil
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	me, err := h.signIn(w, r, func(ws *Workspace) (Me, error) { return ws.Login(r.Context(), req) })
	if err != nil {
		h.authFailed(w, "login", err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", me)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	me, err := h.signIn(w, r, func(ws *Workspace) (Me, error) { return ws.Register(r.Context(), req) })
	if err != nil {
		h.authFailed(w, "register", err)
		return
	}
	respond.JSON(w, http.StatusOK, "registration successful", me)
}

func (h *Handler) authFailed(w http.ResponseWriter, action string, err error) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		h.log.WithFields(logrus.Fields{"action": action, "status": authErr.Status}).Info(authErr.Message)
		respond.Error(w, authStatus(err), authErr.Message)
		return
	}
	h.log.WithError(err).WithField("action", action).Error("authentication failed")
	respond.Error(w, http.StatusInternalServerError, "failed to sign in")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if ws := workspaceFrom(r); ws != nil {
		if err := ws.Logout(r.Context()); err != nil {
			h.log.WithError(err).Error("logout failed")
			respond.Error(w, http.StatusInternalServerError, "failed to sign out")
			return
		}
	}
	respond.JSON(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	me := Me{}
	if ws := workspaceFrom(r); ws != nil {
		me = ws.Me(r.Context())
	}
	respond.JSON(w, http.StatusOK, "ok", me)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, "ok", workspaceFrom(r).Dashboard(r.Context()))
}

// handleCalculator accepts principal, rate and years as JSON numbers or
// strings, the way form fields arrive.
func (h *Handler) handleCalculator(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil || !gjson.ValidBytes(body) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	field := func(name string) string { return gjson.GetBytes(body, name).String() }
	res, err := calculator.CalculateStrings(field("principal"), field("rate"), field("years"))
	if err != nil {
		if errors.Is(err, calculator.ErrInvalidInput) {
			respond.Error(w, http.StatusUnprocessableEntity, calculator.ErrInvalidInput.Error())
			return
		}
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, "ok", res)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	writeState(w, workspaceFrom(r).Customers.State(r.Context()))
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	create(w, r, workspaceFrom(r).Customers)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	update(w, r, workspaceFrom(r).Customers)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	remove(w, r, workspaceFrom(r).Customers)
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	writeState(w, workspaceFrom(r).Loans.State(r.Context()))
}

func (h *Handler) createLoan(w http.ResponseWriter, r *http.Request) {
	create(w, r, workspaceFrom(r).Loans)
}

func (h *Handler) updateLoan(w http.ResponseWriter, r *http.Request) {
	update(w, r, workspaceFrom(r).Loans)
}

func (h *Handler) deleteLoan(w http.ResponseWriter, r *http.Request) {
	remove(w, r, workspaceFrom(r).Loans)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	writeState(w, workspaceFrom(r).Transactions.State(r.Context()))
}

func create[T any, P reconcile.Record[T], F any](w http.ResponseWriter, r *http.Request, view *ResourceView[T, P, F]) {
	var fields F
	if err := respond.Decode(r, &fields); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := view.Create(r.Context(), fields)
	writeMutation(w, st, err)
}

// update applies only the fields the body carries.
func update[T any, P reconcile.Record[T], F any](w http.ResponseWriter, r *http.Request, view *ResourceView[T, P, F]) {
	var patch json.RawMessage
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := view.Update(r.Context(), pathID(r), patch)
	writeMutation(w, st, err)
}

func remove[T any, P reconcile.Record[T], F any](w http.ResponseWriter, r *http.Request, view *ResourceView[T, P, F]) {
	st, err := view.Delete(r.Context(), pathID(r))
	writeMutation(w, st, err)
}

func pathID(r *http.Request) models.ID {
	raw := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return models.ParseID(raw)
}

func writeMutation[T any](w http.ResponseWriter, st State[T], err error) {
	switch {
	case err == nil:
		writeState(w, st)
	case errors.Is(err, ErrForbidden):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrReadOnly):
		respond.Error(w, http.StatusMethodNotAllowed, err.Error())
	case errors.Is(err, reconcile.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPending):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		respond.Error(w, http.StatusBadRequest, err.Error())
	}
}

// writeState answers 200 even when the notice reports a failure.
func writeState[T any](w http.ResponseWriter, st State[T]) {
	message := st.Notice.Message
	if message == "" {
		message = "ok"
	}
	respond.JSON(w, http.StatusOK, message, st)
}
