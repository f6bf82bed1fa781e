package transfer

import (
	"context"
	"net/http"

	"varistock/internal/api/httpx"
	"varistock/internal/domain"
	"varistock/internal/pkg/logger"
	"varistock/internal/pkg/middleware"
)

// TransferService define o contrato que o Handler espera da camada de Serviço.
type TransferService interface {
	Execute(ctx context.Context, req domain.TransferRequest) (domain.TransferRecord, error)
	ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.TransferRecord, error)
	GetTransfer(ctx context.Context, id string) (domain.TransferRecord, error)
}

// Handler expõe a execução de transferências e a consulta ao histórico.
type Handler struct {
	Service TransferService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc TransferService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// ExecuteTransferHandler lida com a requisição POST /v1/transfers.
// @Summary Transfere estoque entre armazéns
// @Description O estoque total da entidade não muda; um registro é gravado no histórico.
// @Tags transfers
// @Accept json
// @Produce json
// @Param transfer body domain.TransferRequest true "Pedido de transferência"
// @Success 201 {object} domain.TransferRecord
// @Failure 400 {object} domain.ErrorResponse "Pedido inválido"
// @Failure 404 {object} domain.ErrorResponse "Produto, variante ou armazém inexistente"
// @Failure 422 {object} domain.ErrorResponse "Estoque insuficiente (campo available)"
// @Security ApiKeyAuth
// @Router /transfers [post]
func (h *Handler) ExecuteTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	if claims, ok := middleware.GetUserClaimsFromContext(r.Context()); ok {
		req.TransferredBy = claims.UserID
	}

	record, err := h.Service.Execute(r.Context(), req)
	httpx.Respond(w, r, h.Logger, record, err, http.StatusCreated)
}

// ListTransfersHandler lida com GET /v1/transfers?product_id=&variant_id=&warehouse_id=&limit=.
func (h *Handler) ListTransfersHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.QueryInt(r, "limit", 0)
	if err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	q := r.URL.Query()
	records, err := h.Service.ListTransfers(r.Context(), domain.TransferFilter{
		ProductID:   q.Get("product_id"),
		VariantID:   q.Get("variant_id"),
		WarehouseID: q.Get("warehouse_id"),
		Limit:       limit,
	})
	if err == nil && records == nil {
		records = []domain.TransferRecord{}
	}
	httpx.Respond(w, r, h.Logger, records, err, http.StatusOK)
}

// GetTransferHandler lida com GET /v1/transfers/{id}.
func (h *Handler) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	record, err := h.Service.GetTransfer(r.Context(), r.PathValue("id"))
	httpx.Respond(w, r, h.Logger, record, err, http.StatusOK)
}
