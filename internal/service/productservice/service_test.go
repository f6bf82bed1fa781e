package productservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
	"varistock/internal/repository/memstore"
	"varistock/internal/service/productservice"
	"varistock/internal/service/stockservice"
)

// MockProductRepository é um mock para a interface ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newMemService(t *testing.T) (*productservice.Service, *memstore.Store, domain.Warehouse) {
	t.Helper()
	store := memstore.NewStore(logger.NewNop())
	def, err := store.CreateWarehouse(context.Background(), domain.Warehouse{Name: "Armazém Principal"})
	require.NoError(t, err)
	return productservice.NewService(store, store, logger.NewNop()), store, def
}

func validInput() productservice.ProductInput {
	return productservice.ProductInput{
		SKU:   "CAM",
		Name:  "Camiseta",
		Price: decimal.RequireFromString("59.90"),
		Stock: 10,
	}
}

// TestGetProducts_Success_NoFilters testa a busca de produtos sem filtros.
func TestGetProducts_Success_NoFilters(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := productservice.NewService(mockRepo, nil, logger.NewNop())

	expected := []domain.Product{{ID: "p1", Name: "Camiseta"}, {ID: "p2", Name: "Caneca"}}
	mockRepo.On("FindAll", mock.Anything, domain.ProductFilter{Page: 1, Limit: 10}).Return(expected, nil)

	products, err := svc.GetProducts(context.Background(), 1, 10, nil)

	assert.NoError(t, err)
	assert.Equal(t, expected, products)
	mockRepo.AssertExpectations(t)
}

// TestGetProducts_Success_WithFilters testa a conversão dos filtros para domain.ProductFilter.
func TestGetProducts_Success_WithFilters(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := productservice.NewService(mockRepo, nil, logger.NewNop())

	filters := map[string]string{"name": "Filtered", "sku": "SKUFILT", "is_active": "true"}
	expectedFilter := domain.ProductFilter{Page: 1, Limit: 10, Name: "Filtered", SKU: "SKUFILT", ActiveOnly: true}
	mockRepo.On("FindAll", mock.Anything, expectedFilter).Return([]domain.Product{{ID: "p1"}}, nil)

	products, err := svc.GetProducts(context.Background(), 1, 10, filters)

	assert.NoError(t, err)
	assert.Len(t, products, 1)
	mockRepo.AssertExpectations(t)
}

// TestGetProducts_Fail_InvalidActiveFilter testa um valor inválido para is_active.
func TestGetProducts_Fail_InvalidActiveFilter(t *testing.T) {
	svc := productservice.NewService(new(MockProductRepository), nil, logger.NewNop())

	_, err := svc.GetProducts(context.Background(), 1, 10, map[string]string{"is_active": "talvez"})

	assert.IsType(t, &apperror.ValidationError{}, err)
}

// TestGetProducts_Fail_RepoError testa um erro genérico do repositório.
func TestGetProducts_Fail_RepoError(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := productservice.NewService(mockRepo, nil, logger.NewNop())

	repoError := errors.New("database connection lost")
	mockRepo.On("FindAll", mock.Anything, domain.ProductFilter{Page: 1, Limit: 10}).Return([]domain.Product(nil), repoError)

	_, err := svc.GetProducts(context.Background(), 1, 10, nil)

	assert.IsType(t, &apperror.InternalError{}, err)
	assert.Contains(t, err.Error(), "Falha interna ao buscar produtos.")
	assert.ErrorIs(t, err, repoError)
	mockRepo.AssertExpectations(t)
}

// TestGetProducts_LimitSafeguard testa o limite máximo e a correção de página inválida.
func TestGetProducts_LimitSafeguard(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := productservice.NewService(mockRepo, nil, logger.NewNop())

	mockRepo.On("FindAll", mock.Anything, domain.ProductFilter{Page: 1, Limit: 100}).Return([]domain.Product{}, nil)

	products, err := svc.GetProducts(context.Background(), 0, 150, nil)

	assert.NoError(t, err)
	assert.NotNil(t, products)
	mockRepo.AssertExpectations(t)
}

// TestGetProducts_NonPositiveLimitUsesDefault garante que limit 0 ou negativo não desliga a paginação.
func TestGetProducts_NonPositiveLimitUsesDefault(t *testing.T) {
	for _, limit := range []int{0, -5} {
		mockRepo := new(MockProductRepository)
		svc := productservice.NewService(mockRepo, nil, logger.NewNop())

		mockRepo.On("FindAll", mock.Anything, domain.ProductFilter{Page: 2, Limit: 10}).Return([]domain.Product{}, nil)

		_, err := svc.GetProducts(context.Background(), 2, limit, nil)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	}
}

func TestCreateProduct_Success_ImplicitDefault(t *testing.T) {
	svc, store, def := newMemService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	assert.True(t, product.IsActive)
	assert.Equal(t, 1, product.Version)
	assert.Empty(t, product.Inventory)

	entity, err := store.FindEntity(ctx, domain.EntityRef{ProductID: product.ID})
	require.NoError(t, err)
	assert.Equal(t, 10, stockservice.AvailableStock(entity, def.ID, def.ID))
}

func TestCreateProduct_Success_ExplicitInventoryPinsDefault(t *testing.T) {
	svc, store, def := newMemService(t)
	ctx := context.Background()
	branch, err := store.CreateWarehouse(ctx, domain.Warehouse{Name: "Filial"})
	require.NoError(t, err)

	input := validInput()
	input.Inventory = []domain.WarehouseAllocation{{WarehouseID: branch.ID, Quantity: 10}}

	product, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	// O padrão precisa de registro explícito zerado; senão a alocação implícita contaria o estoque duas vezes.
	assert.Equal(t, []domain.WarehouseAllocation{
		{WarehouseID: branch.ID, Quantity: 10},
		{WarehouseID: def.ID, Quantity: 0},
	}, product.Inventory)
}

func TestCreateProduct_Fail_InventoryMismatch(t *testing.T) {
	svc, store, _ := newMemService(t)
	ctx := context.Background()
	branch, err := store.CreateWarehouse(ctx, domain.Warehouse{Name: "Filial"})
	require.NoError(t, err)

	input := validInput()
	input.Inventory = []domain.WarehouseAllocation{{WarehouseID: branch.ID, Quantity: 4}}

	_, err = svc.CreateProduct(ctx, input)

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestCreateProduct_Fail_UnknownWarehouse(t *testing.T) {
	svc, _, _ := newMemService(t)

	input := validInput()
	input.Inventory = []domain.WarehouseAllocation{{WarehouseID: uuid.New().String(), Quantity: 10}}

	_, err := svc.CreateProduct(context.Background(), input)

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestCreateProduct_Fail_Validation(t *testing.T) {
	svc, _, _ := newMemService(t)

	cases := map[string]func(in *productservice.ProductInput){
		"sem nome":         func(in *productservice.ProductInput) { in.Name = "  " },
		"sem sku":          func(in *productservice.ProductInput) { in.SKU = "" },
		"preço zero":       func(in *productservice.ProductInput) { in.Price = decimal.Zero },
		"promo acima":      func(in *productservice.ProductInput) { in.SalePrice = decimal.RequireFromString("99") },
		"estoque negativo": func(in *productservice.ProductInput) { in.Stock = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validInput()
			mutate(&input)
			_, err := svc.CreateProduct(context.Background(), input)
			assert.IsType(t, &apperror.ValidationError{}, err)
		})
	}
}

func TestCreateProduct_Fail_DuplicateSKU(t *testing.T) {
	svc, _, _ := newMemService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, validInput())
	assert.IsType(t, &apperror.ConflictError{}, err)
}

func TestUpdateProduct_Success(t *testing.T) {
	svc, _, _ := newMemService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	name := "Camiseta Básica"
	inactive := false
	updated, err := svc.UpdateProduct(ctx, product.ID, productservice.ProductPatch{
		Name:     &name,
		IsActive: &inactive,
		Version:  product.Version,
	})
	require.NoError(t, err)

	assert.Equal(t, name, updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, product.Version+1, updated.Version)
	assert.Equal(t, 10, updated.Stock)
}

func TestUpdateProduct_Fail_StaleVersion(t *testing.T) {
	svc, _, _ := newMemService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	name := "Outro nome"
	_, err = svc.UpdateProduct(ctx, product.ID, productservice.ProductPatch{Name: &name, Version: product.Version + 3})

	assert.IsType(t, &apperror.ConflictError{}, err)
}

func TestDeleteProduct(t *testing.T) {
	svc, _, _ := newMemService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	_, err = svc.GetProductByID(ctx, product.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err)

	err = svc.DeleteProduct(ctx, "nao-e-uuid")
	assert.IsType(t, &apperror.ValidationError{}, err)
}
