package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varistock/internal/api/product"
	"varistock/internal/api/router"
	"varistock/internal/api/stock"
	"varistock/internal/api/transfer"
	"varistock/internal/api/user"
	"varistock/internal/api/variant"
	"varistock/internal/api/warehouse"
	"varistock/internal/domain"
	"varistock/internal/pkg/cache"
	"varistock/internal/pkg/logger"
	"varistock/internal/pkg/token"
	"varistock/internal/repository/memstore"
	"varistock/internal/service/productservice"
	"varistock/internal/service/stockservice"
	"varistock/internal/service/transferservice"
	"varistock/internal/service/userservice"
	"varistock/internal/service/variantservice"
	"varistock/internal/service/warehouseservice"
)

type api struct {
	t       *testing.T
	handler http.Handler
	def     domain.Warehouse
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := logger.NewNop()
	store := memstore.NewStore(log)
	def, err := store.CreateWarehouse(context.Background(), domain.Warehouse{Name: "Armazém Principal"})
	require.NoError(t, err)

	tokens := token.NewService("segredo-de-teste", time.Hour)
	userSvc := userservice.NewService(store, tokens, log)
	require.NoError(t, userSvc.EnsureAdmin(context.Background(), "admin@loja.com", "senha-do-admin"))

	handlers := router.Handlers{
		Product:   product.NewHandler(productservice.NewService(store, store, log), log),
		Variant:   variant.NewHandler(variantservice.NewService(store, store, store, log), log),
		Stock:     stock.NewHandler(stockservice.NewService(store, store, log), log),
		Transfer:  transfer.NewHandler(transferservice.NewService(store, store, log), log),
		Warehouse: warehouse.NewHandler(warehouseservice.NewService(store, log), log),
		User:      user.NewHandler(userSvc, log),
	}
	return &api{
		t:       t,
		handler: router.NewRouter(handlers, tokens, cache.NopClient{}, router.RateLimit{}, log),
		def:     def,
	}
}

func (a *api) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/login", "", domain.LoginRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp domain.LoginResponse
	require.NoError(a.t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func TestPing(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/ping", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestMutationsRequireToken(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/products", "", map[string]interface{}{"sku": "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/products", "token-falso", map[string]interface{}{"sku": "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisteredUserNeedsGrantToMutate(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/register", "", domain.UserRegistration{Email: "op@loja.com", Password: "senha-forte"})
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decode[domain.User](t, rec)
	assert.Equal(t, domain.RoleViewer, registered.Role)

	viewer := a.login("op@loja.com", "senha-forte")
	transferReq := domain.TransferRequest{ProductID: "p", FromWarehouseID: "a", ToWarehouseID: "b", Quantity: 1}
	product := map[string]interface{}{"sku": "CAN", "name": "Caneca", "price": "30.00", "stock": 1}

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/transfers", viewer, transferReq).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/products", viewer, product).Code)
	assert.Equal(t, http.StatusForbidden,
		a.do(http.MethodPut, "/v1/users/"+registered.ID+"/role", viewer, domain.RoleUpdate{Role: domain.RoleOperator}).Code)

	admin := a.login("admin@loja.com", "senha-do-admin")
	rec = a.do(http.MethodPut, "/v1/users/"+registered.ID+"/role", admin, domain.RoleUpdate{Role: domain.RoleOperator})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// O papel novo vale a partir do próximo login.
	operator := a.login("op@loja.com", "senha-forte")
	assert.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/products", operator, product).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/warehouses", operator, warehouse.WarehouseRequest{Name: "Filial"}).Code)
}

func TestPreviewRejectsOversizedRequest(t *testing.T) {
	a := newAPI(t)

	selections := make([]domain.ProductAttributeSelection, 0, 8)
	for i := 0; i < 8; i++ {
		values := make([]string, 10)
		for j := range values {
			values[j] = fmt.Sprintf("v%d", j)
		}
		selections = append(selections, domain.ProductAttributeSelection{
			AttributeID: fmt.Sprintf("attr-%d", i),
			Name:        fmt.Sprintf("Dimensão %d", i),
			Selection:   domain.NewMultiSelection(domain.OptionDropdown, values...),
		})
	}

	rec := a.do(http.MethodPost, "/v1/variants/preview", "", variantservice.PreviewRequest{Selections: selections})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferFlow(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@loja.com", "senha-do-admin")

	rec := a.do(http.MethodPost, "/v1/warehouses", admin, warehouse.WarehouseRequest{Name: "Filial Norte"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	branch := decode[domain.Warehouse](t, rec)
	assert.False(t, branch.IsDefault)

	rec = a.do(http.MethodPost, "/v1/products", admin, map[string]interface{}{
		"sku":   "CAN",
		"name":  "Caneca",
		"price": "30.00",
		"stock": 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Product](t, rec)

	// Transferência válida
	rec = a.do(http.MethodPost, "/v1/transfers", admin, domain.TransferRequest{
		ProductID:       created.ID,
		FromWarehouseID: a.def.ID,
		ToWarehouseID:   branch.ID,
		Quantity:        5,
		Notes:           "abastecer filial",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	record := decode[domain.TransferRecord](t, rec)
	assert.Equal(t, "Caneca", record.ProductName)
	assert.NotEmpty(t, record.TransferredBy)

	// Estoque insuficiente informa o disponível
	rec = a.do(http.MethodPost, "/v1/transfers", admin, domain.TransferRequest{
		ProductID:       created.ID,
		FromWarehouseID: branch.ID,
		ToWarehouseID:   a.def.ID,
		Quantity:        6,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody := decode[domain.ErrorResponse](t, rec)
	require.NotNil(t, errBody.Available)
	assert.Equal(t, 5, *errBody.Available)

	// Disponibilidade por armazém
	rec = a.do(http.MethodGet, "/v1/stock/availability?product_id="+created.ID+"&warehouse_id="+a.def.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, decode[domain.StockAvailability](t, rec).Available)

	// Histórico
	rec = a.do(http.MethodGet, "/v1/transfers?product_id="+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.TransferRecord](t, rec), 1)

	rec = a.do(http.MethodGet, "/v1/transfers/"+record.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// O armazém com estoque não pode ser removido
	rec = a.do(http.MethodDelete, "/v1/warehouses/"+branch.ID, admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVariantFlow(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@loja.com", "senha-do-admin")

	rec := a.do(http.MethodPost, "/v1/attributes", admin, domain.AttributeDefinition{
		Name:          "Cor",
		OptionKind:    domain.OptionDropdown,
		AllowedValues: []string{"Vermelho", "Azul"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	color := decode[domain.AttributeDefinition](t, rec)

	rec = a.do(http.MethodPost, "/v1/products", admin, map[string]interface{}{
		"sku":   "CAM",
		"name":  "Camiseta",
		"price": "59.90",
		"stock": 9,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Product](t, rec)

	rec = a.do(http.MethodPut, "/v1/products/"+created.ID+"/attributes/"+color.ID, admin, variant.ValuesRequest{Values: []string{"Vermelho", "Azul"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	withVariants := decode[domain.Product](t, rec)
	require.Len(t, withVariants.Variants, 2)
	assert.Equal(t, 4, withVariants.Variants[0].Stock)

	rec = a.do(http.MethodPost, "/v1/products/"+created.ID+"/attributes/"+color.ID+"/remove", admin, variant.ValuesRequest{Values: []string{"Azul"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[domain.Product](t, rec).Variants, 1)

	// Produto com variantes exige variant_id no estoque
	rec = a.do(http.MethodGet, "/v1/stock/allocations?product_id="+created.ID, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/v1/stock/allocations?product_id="+created.ID+"&variant_id="+withVariants.Variants[0].ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entity := decode[domain.StockableEntity](t, rec)
	assert.Equal(t, "Vermelho", entity.VariantName)

	rec = a.do(http.MethodPost, "/v1/variants/preview", "", variantservice.PreviewRequest{
		Selections: []domain.ProductAttributeSelection{{
			AttributeID: color.ID,
			Name:        "Cor",
			Selection:   domain.NewMultiSelection(domain.OptionDropdown, "Vermelho", "Azul"),
		}},
		Base: variantservice.Base{SKU: "CAM", Stock: 3},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[[]domain.Variant](t, rec)
	require.Len(t, preview, 2)
	assert.Equal(t, 1, preview[0].Stock)
}
