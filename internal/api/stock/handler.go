package stock

import (
	"context"
	"net/http"

	"varistock/internal/api/httpx"
	"varistock/internal/domain"
	"varistock/internal/pkg/logger"
)

// StockService define o contrato que o Handler espera da camada de Serviço.
type StockService interface {
	GetAvailability(ctx context.Context, ref domain.EntityRef, warehouseID string) (domain.StockAvailability, error)
	AllocationBreakdown(ctx context.Context, ref domain.EntityRef) (domain.StockableEntity, error)
	AdjustStock(ctx context.Context, adjustment domain.StockAdjustmentRequest) (domain.StockableEntity, error)
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service StockService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc StockService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// AvailabilityHandler lida com GET /v1/stock/availability?product_id=&variant_id=&warehouse_id=.
func (h *Handler) AvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := domain.EntityRef{ProductID: q.Get("product_id"), VariantID: q.Get("variant_id")}

	availability, err := h.Service.GetAvailability(r.Context(), ref, q.Get("warehouse_id"))
	httpx.Respond(w, r, h.Logger, availability, err, http.StatusOK)
}

// AllocationsHandler lida com GET /v1/stock/allocations?product_id=&variant_id=.
func (h *Handler) AllocationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := domain.EntityRef{ProductID: q.Get("product_id"), VariantID: q.Get("variant_id")}

	entity, err := h.Service.AllocationBreakdown(r.Context(), ref)
	httpx.Respond(w, r, h.Logger, entity, err, http.StatusOK)
}

// AdjustStockHandler lida com a requisição POST /v1/stock/adjust.
// @Summary Ajusta o estoque de uma entidade em um armazém
// @Tags stock
// @Accept json
// @Produce json
// @Param adjustment body domain.StockAdjustmentRequest true "Entrada (delta > 0) ou saída (delta < 0)"
// @Success 200 {object} domain.StockableEntity
// @Failure 409 {object} domain.ErrorResponse "Conflito de concorrência"
// @Failure 422 {object} domain.ErrorResponse "Estoque insuficiente"
// @Security ApiKeyAuth
// @Router /stock/adjust [post]
func (h *Handler) AdjustStockHandler(w http.ResponseWriter, r *http.Request) {
	var adjustment domain.StockAdjustmentRequest
	if err := httpx.DecodeJSON(w, r, &adjustment); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	entity, err := h.Service.AdjustStock(r.Context(), adjustment)
	httpx.Respond(w, r, h.Logger, entity, err, http.StatusOK)
}
