package router

import (
	"net/http"
	"time"

	"varistock/internal/api/product"
	"varistock/internal/api/stock"
	"varistock/internal/api/transfer"
	"varistock/internal/api/user"
	"varistock/internal/api/variant"
	"varistock/internal/api/warehouse"
	"varistock/internal/domain"
	"varistock/internal/pkg/cache"
	"varistock/internal/pkg/logger"
	"varistock/internal/pkg/middleware"
)

// Handlers reúne os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Product   *product.Handler
	Variant   *variant.Handler
	Stock     *stock.Handler
	Transfer  *transfer.Handler
	Warehouse *warehouse.Handler
	User      *user.Handler
}

// RateLimit configura o limitador global. Limit <= 0 desliga o limitador.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
// Leituras são públicas; mutações exigem JWT e papel de operador (ou admin).
// Registros públicos nascem como viewer e só leem.
func NewRouter(h Handlers, tokenSvc middleware.TokenService, cacheClient cache.Client, rl RateLimit, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)
	operator := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.PermissionMiddleware(domain.RoleOperator, domain.RoleAdmin)(next))
	}
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.PermissionMiddleware(domain.RoleAdmin)(next))
	}

	// --- 1. Health Check ---
	mux.HandleFunc("GET /ping", PingHandler)

	// --- 2. Autenticação ---
	mux.HandleFunc("POST /v1/register", h.User.RegisterUserHandler)
	mux.HandleFunc("POST /v1/login", h.User.LoginUserHandler)
	mux.HandleFunc("PUT /v1/users/{id}/role", admin(h.User.SetUserRoleHandler))

	// --- 3. Produtos ---
	mux.HandleFunc("GET /v1/products", h.Product.GetProductsHandler)
	mux.HandleFunc("GET /v1/products/{id}", h.Product.GetProductByIDHandler)
	mux.HandleFunc("POST /v1/products", operator(h.Product.CreateProductHandler))
	mux.HandleFunc("PATCH /v1/products/{id}", operator(h.Product.UpdateProductHandler))
	mux.HandleFunc("DELETE /v1/products/{id}", operator(h.Product.DeleteProductHandler))

	// --- 4. Atributos e Variantes ---
	mux.HandleFunc("GET /v1/attributes", h.Variant.ListAttributesHandler)
	mux.HandleFunc("POST /v1/attributes", admin(h.Variant.CreateAttributeHandler))
	mux.HandleFunc("POST /v1/variants/preview", h.Variant.PreviewHandler)
	mux.HandleFunc("PUT /v1/products/{id}/attributes/{attributeID}", operator(h.Variant.SetAttributeValuesHandler))
	mux.HandleFunc("POST /v1/products/{id}/attributes/{attributeID}/remove", operator(h.Variant.RemoveAttributeValuesHandler))
	mux.HandleFunc("DELETE /v1/products/{id}/attributes/{attributeID}", operator(h.Variant.DeactivateAttributeHandler))

	// --- 5. Estoque ---
	mux.HandleFunc("GET /v1/stock/availability", h.Stock.AvailabilityHandler)
	mux.HandleFunc("GET /v1/stock/allocations", h.Stock.AllocationsHandler)
	mux.HandleFunc("POST /v1/stock/adjust", operator(h.Stock.AdjustStockHandler))

	// --- 6. Transferências ---
	mux.HandleFunc("GET /v1/transfers", h.Transfer.ListTransfersHandler)
	mux.HandleFunc("GET /v1/transfers/{id}", h.Transfer.GetTransferHandler)
	mux.HandleFunc("POST /v1/transfers", operator(h.Transfer.ExecuteTransferHandler))

	// --- 7. Armazéns ---
	mux.HandleFunc("GET /v1/warehouses", h.Warehouse.GetAllWarehousesHandler)
	mux.HandleFunc("GET /v1/warehouses/default", h.Warehouse.GetDefaultWarehouseHandler)
	mux.HandleFunc("GET /v1/warehouses/{id}", h.Warehouse.GetWarehouseByIDHandler)
	mux.HandleFunc("POST /v1/warehouses", admin(h.Warehouse.CreateWarehouseHandler))
	mux.HandleFunc("PUT /v1/warehouses/{id}", admin(h.Warehouse.UpdateWarehouseHandler))
	mux.HandleFunc("DELETE /v1/warehouses/{id}", admin(h.Warehouse.DeleteWarehouseHandler))
	mux.HandleFunc("POST /v1/warehouses/{id}/default", admin(h.Warehouse.SetDefaultWarehouseHandler))

	// --- 8. Middlewares Globais ---
	if rl.Limit <= 0 {
		return mux
	}
	return middleware.RateLimiter(cacheClient, rl.Limit, rl.Window, log)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
