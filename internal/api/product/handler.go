package product

import (
	"context"
	"net/http"

	"varistock/internal/api/httpx"
	"varistock/internal/domain"
	"varistock/internal/pkg/logger"
	"varistock/internal/service/productservice"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, input productservice.ProductInput) (domain.Product, error)
	GetProductByID(ctx context.Context, id string) (domain.Product, error)
	GetProducts(ctx context.Context, page, limit int, filters map[string]string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch productservice.ProductPatch) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Handler agrupa todos os métodos de Handler de produtos.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// CreateProductHandler lida com a requisição POST /v1/products.
// @Summary Cria um novo produto
// @Description Cria um produto simples. Variantes são geradas depois, pela seleção de atributos.
// @Tags products
// @Accept json
// @Produce json
// @Param product body productservice.ProductInput true "Dados do produto"
// @Success 201 {object} domain.Product "Produto criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "SKU já em uso"
// @Security ApiKeyAuth
// @Router /products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var input productservice.ProductInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateProduct(r.Context(), input)
	httpx.Respond(w, r, h.Logger, created, err, http.StatusCreated)
}

// GetProductsHandler lida com a requisição GET /v1/products?page=&limit=&name=&sku=&is_active=.
// @Summary Lista produtos
// @Tags products
// @Produce json
// @Success 200 {array} domain.Product "Lista de produtos"
// @Router /products [get]
func (h *Handler) GetProductsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", 10)
	if err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	q := r.URL.Query()
	filters := map[string]string{
		"name":      q.Get("name"),
		"sku":       q.Get("sku"),
		"is_active": q.Get("is_active"),
	}

	products, err := h.Service.GetProducts(r.Context(), page, limit, filters)
	httpx.Respond(w, r, h.Logger, products, err, http.StatusOK)
}

// GetProductByIDHandler lida com a requisição GET /v1/products/{id}.
// @Summary Obtém um produto por ID
// @Tags products
// @Produce json
// @Param id path string true "ID do Produto"
// @Success 200 {object} domain.Product "Produto encontrado"
// @Failure 404 {object} domain.ErrorResponse "Produto não encontrado"
// @Router /products/{id} [get]
func (h *Handler) GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.GetProductByID(r.Context(), r.PathValue("id"))
	httpx.Respond(w, r, h.Logger, product, err, http.StatusOK)
}

// UpdateProductHandler lida com a requisição PATCH /v1/products/{id}.
func (h *Handler) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	var patch productservice.ProductPatch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	updated, err := h.Service.UpdateProduct(r.Context(), r.PathValue("id"), patch)
	httpx.Respond(w, r, h.Logger, updated, err, http.StatusOK)
}

// DeleteProductHandler lida com a requisição DELETE /v1/products/{id}.
func (h *Handler) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteProduct(r.Context(), r.PathValue("id"))
	httpx.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}
