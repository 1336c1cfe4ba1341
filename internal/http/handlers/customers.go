package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/http/respond"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/storage"
)

// CustomerHandler serves the customer collection.
type CustomerHandler struct {
	store storage.CustomerStore
	log   logrus.FieldLogger
}

// NewCustomerHandler constructs the handler.
func NewCustomerHandler(store storage.CustomerStore, log logrus.FieldLogger) *CustomerHandler {
	return &CustomerHandler{store: store, log: log}
}

// Register attaches reads to r and mutations to admin, a router that already
// enforces the admin role.
func (h *CustomerHandler) Register(r, admin chi.Router) {
	r.Get("/customers", h.list)
	admin.Post("/customers", h.create)
	admin.Put("/customers/{id}", h.update)
	admin.Patch("/customers/{id}", h.update)
	admin.Delete("/customers/{id}", h.remove)
}

func (h *CustomerHandler) list(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list customers")
		respond.Error(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", nonNil(customers))
}

func (h *CustomerHandler) create(w http.ResponseWriter, r *http.Request) {
	var fields models.CustomerFields
	if err := respond.Decode(r, &fields); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validateCustomer(&fields); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.store.CreateCustomer(r.Context(), fields)
	if err != nil {
		h.log.WithError(err).Error("create customer")
		respond.Error(w, http.StatusInternalServerError, "failed to create customer")
		return
	}
	respond.JSON(w, http.StatusCreated, "Customer created successfully", created)
}

// update serves PUT and PATCH. A PATCH body is applied over the stored record.
func (h *CustomerHandler) update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var fields models.CustomerFields
	if r.Method == http.MethodPatch {
		current, err := h.store.GetCustomer(r.Context(), id)
		if err != nil {
			h.storeError(w, "load customer", err)
			return
		}
		fields = models.CustomerFields{Name: current.Name, Phone: current.Phone, Email: current.Email}
	}
	if err := respond.Decode(r, &fields); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validateCustomer(&fields); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.store.UpdateCustomer(r.Context(), id, fields)
	if err != nil {
		h.storeError(w, "update customer", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Customer updated successfully", updated)
}

func (h *CustomerHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCustomer(r.Context(), pathID(r)); err != nil {
		h.storeError(w, "delete customer", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Customer deleted successfully", nil)
}

func (h *CustomerHandler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "customer not found")
		return
	}
	h.log.WithError(err).Error(op)
	respond.Error(w, http.StatusInternalServerError, "failed to "+op)
}

func validateCustomer(f *models.CustomerFields) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.TrimSpace(f.Email)
	if f.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
