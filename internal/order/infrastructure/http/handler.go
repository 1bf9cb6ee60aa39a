package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	catalog "github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/internal/order/application"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	guard   httpx.Guard
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, guard httpx.Guard) *Handler {
	if guard == nil {
		guard = httpx.NoGuard
	}
	return &Handler{
		log:     log,
		service: service,
		guard:   guard,
		tracer:  otel.Tracer("order-http"),
	}
}

// orderView adds the invoice action a client should offer for the order.
type orderView struct {
	*domain.Order
	InvoiceAction domain.InvoiceAction `json:"invoiceAction"`
}

func view(o *domain.Order) orderView {
	return orderView{Order: o, InvoiceAction: o.InvoiceAction()}
}

func views(orders []domain.Order) []orderView {
	out := make([]orderView, len(orders))
	for i := range orders {
		out[i] = view(&orders[i])
	}
	return out
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.With(h.guard("orders.create")).Post("/orders", h.createOrder)
	r.Get("/orders/unassigned", h.listUnassigned)
	r.Get("/orders/assigned", h.listAssigned)
	r.Get("/orders/my-orders", h.listAgentOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Put("/orders/{id}/status", h.setStatus)
	r.Put("/orders/{id}/out-for-delivery", h.outForDelivery)
	r.With(h.guard("orders.assign")).Put("/orders/{id}/assign", h.assign)
	r.Get("/admin-users", h.listAgents)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req application.CreateOrderInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	o, err := h.service.CreateOrder(ctx, req)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.WriteJSON(w, http.StatusCreated, view(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	f, err := parseFilter(r)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	orders, err := h.service.ListOrders(ctx, f)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views(orders))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrder")
	defer span.End()

	var req application.UpdateOrderInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	o, err := h.service.UpdateOrder(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteOrder")
	defer span.End()

	if err := h.service.DeleteOrder(ctx, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetOrderStatus")
	defer span.End()

	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	o, err := h.service.SetOrderStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *Handler) outForDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "MarkOutForDelivery")
	defer span.End()

	o, err := h.service.MarkOutForDelivery(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

type assignReq struct {
	DeliveryUserID string `json:"deliveryUserId"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AssignOrder")
	defer span.End()

	var req assignReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("order.id", id), attribute.String("agent.id", req.DeliveryUserID))

	o, err := h.service.Assign(ctx, id, req.DeliveryUserID)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(o))
}

func (h *Handler) listUnassigned(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListUnassigned")
	defer span.End()

	orders, err := h.service.ListUnassigned(ctx)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views(orders))
}

func (h *Handler) listAssigned(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListAssigned")
	defer span.End()

	orders, err := h.service.ListAssigned(ctx)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views(orders))
}

func (h *Handler) listAgentOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListAgentOrders")
	defer span.End()

	orders, err := h.service.ListAgentOrders(ctx, r.URL.Query().Get("agentId"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views(orders))
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListDeliveryAgents")
	defer span.End()

	if role := r.URL.Query().Get("role"); role != "" && catalog.ParseRole(role) != catalog.RoleDelivery {
		httpx.Fail(w, span, apperr.Invalid("role", "only the Delivery role can be listed, got %q", role))
		return
	}
	agents, err := h.service.ListDeliveryAgents(ctx)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, agents)
}

func parseFilter(r *http.Request) (application.OrderFilter, error) {
	q := r.URL.Query()
	f := application.OrderFilter{IDContains: q.Get("q"), DeliveryUserID: q.Get("agentId")}
	var err error
	if s := q.Get("status"); s != "" {
		if f.Status, err = domain.ParseOrderStatus(s); err != nil {
			return f, err
		}
	}
	if s := q.Get("paymentMethod"); s != "" {
		if f.PaymentMethod, err = domain.ParsePaymentMethod(s); err != nil {
			return f, err
		}
	}
	if s := q.Get("deliveryStatus"); s != "" {
		if f.DeliveryStatus, err = domain.ParseDeliveryStatus(s); err != nil {
			return f, err
		}
	}
	return f, nil
}
