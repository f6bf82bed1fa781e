package warehouse

import (
	"context"
	"net/http"

	"varistock/internal/api/httpx"
	"varistock/internal/domain"
	"varistock/internal/pkg/logger"
)

// WarehouseService define o contrato que o Handler espera da camada de Serviço.
type WarehouseService interface {
	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id string) error
	DefaultWarehouse(ctx context.Context) (domain.Warehouse, error)
	SetDefaultWarehouse(ctx context.Context, id string) (domain.Warehouse, error)
}

// WarehouseRequest é o corpo de criação e renomeação de armazém.
type WarehouseRequest struct {
	Name string `json:"name"`
}

// Handler agrupa todos os métodos de Handler de armazéns.
type Handler struct {
	Service WarehouseService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc WarehouseService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// CreateWarehouseHandler lida com a requisição POST /v1/warehouses.
// @Summary Cria um novo armazém
// @Description O primeiro armazém cadastrado passa a ser o padrão.
// @Tags warehouses
// @Accept json
// @Produce json
// @Param warehouse body WarehouseRequest true "Dados do armazém para criação"
// @Success 201 {object} domain.Warehouse "Armazém criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Security ApiKeyAuth
// @Router /warehouses [post]
func (h *Handler) CreateWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	var req WarehouseRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateWarehouse(r.Context(), domain.Warehouse{Name: req.Name})
	httpx.Respond(w, r, h.Logger, created, err, http.StatusCreated)
}

// GetWarehouseByIDHandler lida com a requisição GET /v1/warehouses/{id}.
func (h *Handler) GetWarehouseByIDHandler(w http.ResponseWriter, r *http.Request) {
	warehouse, err := h.Service.GetWarehouseByID(r.Context(), r.PathValue("id"))
	httpx.Respond(w, r, h.Logger, warehouse, err, http.StatusOK)
}

// GetAllWarehousesHandler lida com a requisição GET /v1/warehouses.
// @Summary Lista todos os armazéns
// @Tags warehouses
// @Produce json
// @Success 200 {array} domain.Warehouse "Lista de armazéns"
// @Router /warehouses [get]
func (h *Handler) GetAllWarehousesHandler(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.Service.GetAllWarehouses(r.Context())
	httpx.Respond(w, r, h.Logger, warehouses, err, http.StatusOK)
}

// GetDefaultWarehouseHandler lida com a requisição GET /v1/warehouses/default.
func (h *Handler) GetDefaultWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	warehouse, err := h.Service.DefaultWarehouse(r.Context())
	httpx.Respond(w, r, h.Logger, warehouse, err, http.StatusOK)
}

// UpdateWarehouseHandler lida com a requisição PUT /v1/warehouses/{id}.
func (h *Handler) UpdateWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	var req WarehouseRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	updated, err := h.Service.UpdateWarehouse(r.Context(), domain.Warehouse{ID: r.PathValue("id"), Name: req.Name})
	httpx.Respond(w, r, h.Logger, updated, err, http.StatusOK)
}

// SetDefaultWarehouseHandler lida com a requisição POST /v1/warehouses/{id}/default.
// @Summary Define o armazém padrão
// @Description Desmarca o padrão anterior. Alocações implícitas ficam gravadas no armazém antigo.
// @Tags warehouses
// @Param id path string true "ID do Armazém"
// @Success 200 {object} domain.Warehouse
// @Security ApiKeyAuth
// @Router /warehouses/{id}/default [post]
func (h *Handler) SetDefaultWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	warehouse, err := h.Service.SetDefaultWarehouse(r.Context(), r.PathValue("id"))
	httpx.Respond(w, r, h.Logger, warehouse, err, http.StatusOK)
}

// DeleteWarehouseHandler lida com a requisição DELETE /v1/warehouses/{id}.
// O armazém padrão e armazéns com estoque alocado não podem ser removidos (409).
func (h *Handler) DeleteWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteWarehouse(r.Context(), r.PathValue("id"))
	httpx.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}
