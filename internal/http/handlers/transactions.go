package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/http/respond"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/storage"
)

// TransactionHandler serves the read-only ledger.
type TransactionHandler struct {
	store storage.TransactionStore
	log   logrus.FieldLogger
}

// NewTransactionHandler constructs the handler.
func NewTransactionHandler(store storage.TransactionStore, log logrus.FieldLogger) *TransactionHandler {
	return &TransactionHandler{store: store, log: log}
}

// Register attaches the ledger route.
func (h *TransactionHandler) Register(r chi.Router) {
	r.Get("/transactions", h.list)
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request) {
	txs, err := h.store.ListTransactions(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list transactions")
		respond.Error(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", nonNil(txs))
}

func pathID(r *http.Request) models.ID {
	raw := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return models.ParseID(raw)
}

// nonNil makes empty collections encode as [] rather than be omitted.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
