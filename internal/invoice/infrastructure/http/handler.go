package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/application"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
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
	return &Handler{log: log, service: service, guard: guard, tracer: otel.Tracer("invoice-http")}
}

func (h *Handler) Routes(r chi.Router) {
	r.With(h.guard("invoice.create")).Post("/invoice/create", h.create)
	r.Get("/invoice/invoices", h.list)
	r.Get("/invoice/invoices/{id}", h.get)
	r.Get("/invoice/invoices/{id}/download", h.download)
	r.With(h.guard("invoice.send")).Post("/invoice/invoices/{id}/send", h.send)
	r.Get("/orders/{id}/invoice", h.downloadByOrder)
}

type invoiceView struct {
	domain.Invoice
	DisplayNumber string `json:"invoiceNumber"`
}

func view(inv domain.Invoice) invoiceView {
	return invoiceView{Invoice: inv, DisplayNumber: inv.DisplayNumber()}
}

type createReq struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateInvoice")
	defer span.End()

	var req createReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", req.OrderID))
	inv, err := h.service.CreateInvoice(ctx, req.OrderID)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, view(inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListInvoices")
	defer span.End()

	invoices, err := h.service.ListInvoices(ctx, r.URL.Query().Get("q"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	out := make([]invoiceView, len(invoices))
	for i, inv := range invoices {
		out[i] = view(inv)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetInvoice")
	defer span.End()

	inv, err := h.service.GetInvoice(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(inv))
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DownloadInvoice")
	defer span.End()

	inv, pdf, err := h.service.InvoiceArtifactByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	writePDF(w, inv, pdf)
}

func (h *Handler) downloadByOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DownloadOrderInvoice")
	defer span.End()

	inv, pdf, err := h.service.InvoiceArtifact(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	writePDF(w, inv, pdf)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SendInvoice")
	defer span.End()

	inv, err := h.service.SendInvoice(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, view(inv))
}

func writePDF(w http.ResponseWriter, inv domain.Invoice, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+inv.FileName()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
