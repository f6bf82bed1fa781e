package variant

import (
	"context"
	"net/http"

	"varistock/internal/api/httpx"
	"varistock/internal/domain"
	"varistock/internal/pkg/logger"
	"varistock/internal/service/variantservice"
)

// VariantService define o contrato que o Handler espera da camada de Serviço.
type VariantService interface {
	Preview(req variantservice.PreviewRequest) ([]domain.Variant, error)
	SetAttributeValues(ctx context.Context, productID, attributeID string, values []string) (domain.Product, error)
	RemoveAttributeValues(ctx context.Context, productID, attributeID string, values []string) (domain.Product, error)
	DeactivateAttribute(ctx context.Context, productID, attributeID string) (domain.Product, error)
	CreateAttribute(ctx context.Context, def domain.AttributeDefinition) (domain.AttributeDefinition, error)
	ListAttributes(ctx context.Context) ([]domain.AttributeDefinition, error)
}

// ValuesRequest é o corpo das rotas que definem ou removem valores de um atributo.
type ValuesRequest struct {
	Values []string `json:"values"`
}

// Handler expõe o catálogo de atributos e a edição de variantes de um produto.
type Handler struct {
	Service VariantService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc VariantService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// PreviewHandler lida com POST /v1/variants/preview. Nada é gravado.
func (h *Handler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	var req variantservice.PreviewRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	variants, err := h.Service.Preview(req)
	httpx.Respond(w, r, h.Logger, variants, err, http.StatusOK)
}

// SetAttributeValuesHandler lida com PUT /v1/products/{id}/attributes/{attributeID}.
func (h *Handler) SetAttributeValuesHandler(w http.ResponseWriter, r *http.Request) {
	var req ValuesRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	product, err := h.Service.SetAttributeValues(r.Context(), r.PathValue("id"), r.PathValue("attributeID"), req.Values)
	httpx.Respond(w, r, h.Logger, product, err, http.StatusOK)
}

// RemoveAttributeValuesHandler lida com POST /v1/products/{id}/attributes/{attributeID}/remove.
func (h *Handler) RemoveAttributeValuesHandler(w http.ResponseWriter, r *http.Request) {
	var req ValuesRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	product, err := h.Service.RemoveAttributeValues(r.Context(), r.PathValue("id"), r.PathValue("attributeID"), req.Values)
	httpx.Respond(w, r, h.Logger, product, err, http.StatusOK)
}

// DeactivateAttributeHandler lida com DELETE /v1/products/{id}/attributes/{attributeID}.
func (h *Handler) DeactivateAttributeHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.DeactivateAttribute(r.Context(), r.PathValue("id"), r.PathValue("attributeID"))
	httpx.Respond(w, r, h.Logger, product, err, http.StatusOK)
}

// CreateAttributeHandler lida com POST /v1/attributes.
// @Summary Cadastra um atributo de variação
// @Tags attributes
// @Accept json
// @Produce json
// @Param attribute body domain.AttributeDefinition true "Definição do atributo"
// @Success 201 {object} domain.AttributeDefinition
// @Failure 409 {object} domain.ErrorResponse "Atributo já existe"
// @Security ApiKeyAuth
// @Router /attributes [post]
func (h *Handler) CreateAttributeHandler(w http.ResponseWriter, r *http.Request) {
	var def domain.AttributeDefinition
	if err := httpx.DecodeJSON(w, r, &def); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateAttribute(r.Context(), def)
	httpx.Respond(w, r, h.Logger, created, err, http.StatusCreated)
}

// ListAttributesHandler lida com GET /v1/attributes.
func (h *Handler) ListAttributesHandler(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Service.ListAttributes(r.Context())
	httpx.Respond(w, r, h.Logger, defs, err, http.StatusOK)
}
