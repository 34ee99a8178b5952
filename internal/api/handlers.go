package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/order"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/readmodel"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/usecase"
)

type OrderCreator interface {
	Execute(ctx context.Context, params usecase.CreateOrderParams) (int64, error)
}

type OrderLister interface {
	Execute(ctx context.Context) ([]*order.Order, error)
}

type ReadOrderLister interface {
	Execute(ctx context.Context) ([]*readmodel.OrderRead, error)
}

type Handlers struct {
	createOrder    OrderCreator
	listOrders     OrderLister
	listReadOrders ReadOrderLister
}

func NewHandlers(createOrder OrderCreator, listOrders OrderLister, listReadOrders ReadOrderLister) *Handlers {
	return &Handlers{
		createOrder:    createOrder,
		listOrders:     listOrders,
		listReadOrders: listReadOrders,
	}
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateOrderParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.createOrder.Execute(r.Context(), req)
	if err != nil {
		var vErr *usecase.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "CREATED",
		"orderId": id,
	})
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.listOrders.Execute(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeList(w, orders)
}

// ListReadOrders serves the denormalized view without touching the customers
// service; the names were resolved when the rows were projected.
func (h *Handlers) ListReadOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := h.listReadOrders.Execute(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeList(w, rows)
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	json.NewEncoder(w).Encode(items)
}
