package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/catalog/application"
	"github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service, tracer: otel.Tracer("catalog-http")}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/menu", h.menu)
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Menu")
	defer span.End()

	name := r.URL.Query().Get("role")
	role := domain.ParseRole(name)
	if name != "" && role == domain.RoleUnknown {
		httpx.Fail(w, span, apperr.Invalid("role", "unknown role %q", name))
		return
	}
	entries, err := h.service.Menu(ctx, role)
	if err != nil {
		httpx.Fail(w, span, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}
