package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/internal/payment/application"
	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
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
	return &Handler{log: log, service: service, guard: guard, tracer: otel.Tracer("payment-http")}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders/total", h.total)
	r.Post("/payments/upi-link", h.upiLink)
	r.With(h.guard("orders.bulk-status")).Put("/orders/bulk-status", h.bulkStatus)
	r.With(h.guard("payments.mark-paid")).Post("/payments/mark-paid", h.bulkStatus)
}

type idsReq struct {
	OrderIDs []string `json:"orderIds"`
}

type totalResp struct {
	OrderIDs []string        `json:"orderIds"`
	Total    decimal.Decimal `json:"total"`
}

func (h *Handler) total(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QuoteTotal")
	defer span.End()

	var req idsReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	total, err := h.service.QuoteTotal(ctx, req.OrderIDs)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, totalResp{OrderIDs: req.OrderIDs, Total: total})
}

type upiReq struct {
	OrderIDs  []string `json:"orderIds"`
	PayeeID   string   `json:"payeeId"`
	PayeeName string   `json:"payeeName"`
}

func (h *Handler) upiLink(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "BuildUPIRequest")
	defer span.End()

	var req upiReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	out, err := h.service.BuildUPIRequest(ctx, req.OrderIDs, req.PayeeID, req.PayeeName)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("payment.reference", out.Reference))
	httpx.WriteJSON(w, http.StatusOK, out)
}

type bulkReq struct {
	OrderIDs      []string `json:"orderIds"`
	Status        string   `json:"status"`
	PaymentMethod string   `json:"paymentMethod"`
}

type bulkResp struct {
	domain.BulkPaymentRequest
	Orders []orderdomain.Order `json:"orders"`
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "BulkSettle")
	defer span.End()

	var req bulkReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	if req.Status != "" && !strings.EqualFold(req.Status, string(orderdomain.DeliveryPaid)) {
		httpx.Fail(w, span, apperr.Invalid("status", "bulk updates only settle orders to Paid, got %q", req.Status))
		return
	}
	method := orderdomain.PaymentCash
	if req.PaymentMethod != "" {
		m, err := orderdomain.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			httpx.Fail(w, span, err)
			return
		}
		method = m
	}
	span.SetAttributes(attribute.Int("payment.orders", len(req.OrderIDs)), attribute.String("payment.method", string(method)))

	settled, orders, err := h.service.Settle(ctx, req.OrderIDs, method)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bulkResp{BulkPaymentRequest: settled, Orders: orders})
}
