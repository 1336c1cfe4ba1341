package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/http/respond"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/storage"
)

// LoanHandler serves the loan collection.
type LoanHandler struct {
	store storage.LoanStore
	log   logrus.FieldLogger
}

// NewLoanHandler constructs the handler.
func NewLoanHandler(store storage.LoanStore, log logrus.FieldLogger) *LoanHandler {
	return &LoanHandler{store: store, log: log}
}

// Register attaches reads to r and mutations to admin.
func (h *LoanHandler) Register(r, admin chi.Router) {
	r.Get("/loans", h.list)
	admin.Post("/loans", h.create)
	admin.Put("/loans/{id}", h.update)
	admin.Patch("/loans/{id}", h.update)
	admin.Delete("/loans/{id}", h.remove)
}

func (h *LoanHandler) list(w http.ResponseWriter, r *http.Request) {
	loans, err := h.store.ListLoans(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list loans")
		respond.Error(w, http.StatusInternalServerError, "failed to list loans")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", nonNil(loans))
}

func (h *LoanHandler) create(w http.ResponseWriter, r *http.Request) {
	var fields models.LoanFields
	if err := respond.Decode(r, &fields); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validateLoan(&fields); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.store.CreateLoan(r.Context(), fields)
	if err != nil {
		h.log.WithError(err).Error("create loan")
		respond.Error(w, http.StatusInternalServerError, "failed to create loan")
		return
	}
	h.log.WithFields(logrus.Fields{"loan": created.ID.String(), "amount": created.Amount}).Info("loan disbursed")
	respond.JSON(w, http.StatusCreated, "Loan created successfully", created)
}

// update serves PUT and PATCH. A PATCH body is applied over the stored record.
func (h *LoanHandler) update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var fields models.LoanFields
	if r.Method == http.MethodPatch {
		current, err := h.store.GetLoan(r.Context(), id)
		if err != nil {
			h.storeError(w, "load loan", err)
			return
		}
		fields = models.LoanFields{
			Customer: current.Customer, Amount: current.Amount, InterestRate: current.InterestRate,
			Term: current.Term, Status: current.Status, Date: current.Date,
		}
	}
	if err := respond.Decode(r, &fields); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validateLoan(&fields); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.store.UpdateLoan(r.Context(), id, fields)
	if err != nil {
		h.storeError(w, "update loan", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Loan updated successfully", updated)
}

func (h *LoanHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteLoan(r.Context(), pathID(r)); err != nil {
		h.storeError(w, "delete loan", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Loan deleted successfully", nil)
}

func (h *LoanHandler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "loan not found")
		return
	}
	h.log.WithError(err).Error(op)
	respond.Error(w, http.StatusInternalServerError, "failed to "+op)
}

func validateLoan(f *models.LoanFields) error {
	f.Customer = strings.TrimSpace(f.Customer)
	f.Date = strings.TrimSpace(f.Date)
	switch {
	case f.Customer == "":
		return errors.New("customer is required")
	case f.Amount <= 0:
		return errors.New("amount must be positive")
	case f.InterestRate < 0:
		return errors.New("interest rate must not be negative")
	case f.Term <= 0:
		return errors.New("term must be at least one month")
	case f.Status != "" && !f.Status.Valid():
		return errors.New("status must be Active, Completed or Pending")
	}
	if f.Date != "" {
		if _, err := time.Parse(models.DateLayout, f.Date); err != nil {
			return errors.New("date must be YYYY-MM-DD")
		}
	}
	return nil
}
