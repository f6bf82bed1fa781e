package productservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
	"varistock/internal/service/stockservice"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ProductRepository define o contrato (interface) que este Serviço espera
// da camada de Persistência (DB, Cache).
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// WarehouseRegistry confere os armazéns citados no inventário inicial.
type WarehouseRegistry interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	DefaultWarehouse(ctx context.Context) (domain.Warehouse, error)
}

// ProductInput é o payload de criação de produto.
type ProductInput struct {
	SKU         string                       `json:"sku"`
	Name        string                       `json:"name"`
	Description string                       `json:"description"`
	Price       decimal.Decimal              `json:"price"`
	SalePrice   decimal.Decimal              `json:"sale_price"`
	Stock       int                          `json:"stock"`
	Inventory   []domain.WarehouseAllocation `json:"inventory"`
}

// ProductPatch carrega os campos editáveis; nil mantém o valor atual.
// Estoque e inventário só mudam por ajuste ou transferência.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	IsActive    *bool            `json:"is_active"`
	Version     int              `json:"version"`
}

// Service é a estrutura que mantém o catálogo de produtos.
type Service struct {
	repo       ProductRepository
	warehouses WarehouseRegistry
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, warehouses WarehouseRegistry, logger logger.Logger) *Service {
	return &Service{repo: repo, warehouses: warehouses, logger: logger}
}

// CreateProduct valida e grava um produto simples. Variantes nascem depois, pela seleção de atributos.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	s.logger.Debug("Iniciando criação de produto no serviço.", map[string]interface{}{"sku": input.SKU})

	input.Name = strings.TrimSpace(input.Name)
	input.SKU = strings.TrimSpace(input.SKU)
	if input.Name == "" || input.SKU == "" {
		return domain.Product{}, apperror.NewValidationError("Nome e SKU são obrigatórios para o produto.")
	}
	if err := validatePrices(input.Price, input.SalePrice); err != nil {
		return domain.Product{}, err
	}
	if input.Stock < 0 {
		return domain.Product{}, apperror.NewValidationError("O estoque inicial não pode ser negativo.")
	}

	inventory, err := s.initialInventory(ctx, input)
	if err != nil {
		return domain.Product{}, err
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:          uuid.New().String(),
		SKU:         input.SKU,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		SalePrice:   input.SalePrice,
		Stock:       input.Stock,
		Inventory:   inventory,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Save(ctx, product)
	if err != nil {
		return domain.Product{}, s.translate("Falha interna ao salvar produto.", err)
	}

	s.logger.Info("Produto criado com sucesso.", map[string]interface{}{"id": created.ID, "sku": created.SKU})
	return created, nil
}

// GetProductByID busca um produto (com variantes e alocações) pelo ID.
func (s *Service) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, s.translate("Falha interna ao buscar produto.", err)
	}
	return product, nil
}

// GetProducts lista produtos paginados. Filtros aceitos: "name", "sku" e "is_active".
// limit <= 0 usa o padrão; acima de maxLimit é cortado.
func (s *Service) GetProducts(ctx context.Context, page, limit int, filters map[string]string) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := domain.ProductFilter{Page: page, Limit: limit}
	if v := strings.TrimSpace(filters["name"]); v != "" {
		filter.Name = v
	}
	if v := strings.TrimSpace(filters["sku"]); v != "" {
		filter.SKU = v
	}
	if v := filters["is_active"]; v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return nil, apperror.NewValidationError("O filtro is_active deve ser true ou false.")
		}
		filter.ActiveOnly = active
	}

	products, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, s.translate("Falha interna ao buscar produtos.", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// UpdateProduct aplica o patch sobre a versão informada (OCC).
func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (domain.Product, error) {
	s.logger.Debug("Iniciando atualização de produto no serviço.", map[string]interface{}{"id": id, "version": patch.Version})

	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if patch.Version != 0 && patch.Version != product.Version {
		s.logger.Warn("Versão do produto desatualizada.", map[string]interface{}{
			"id":               id,
			"expected_version": patch.Version,
			"current_version":  product.Version,
		})
		return domain.Product{}, apperror.NewConflictError("O produto foi modificado por outra operação. Tente novamente.")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Product{}, apperror.NewValidationError("O nome do produto não pode ser vazio.")
		}
		product.Name = name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.SalePrice != nil {
		product.SalePrice = *patch.SalePrice
	}
	if patch.IsActive != nil {
		product.IsActive = *patch.IsActive
	}
	if err := validatePrices(product.Price, product.SalePrice); err != nil {
		return domain.Product{}, err
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return domain.Product{}, s.translate("Falha interna ao atualizar produto.", err)
	}

	s.logger.Info("Produto atualizado com sucesso.", map[string]interface{}{"id": updated.ID, "version": updated.Version})
	return updated, nil
}

// DeleteProduct remove o produto. O histórico de transferências não é tocado.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate("Falha interna ao deletar produto.", err)
	}
	s.logger.Info("Produto deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// initialInventory confere o inventário informado e fixa o armazém padrão explicitamente.
// Sem inventário, o estoque fica na alocação implícita do padrão.
func (s *Service) initialInventory(ctx context.Context, input ProductInput) ([]domain.WarehouseAllocation, error) {
	if len(input.Inventory) == 0 {
		return nil, nil
	}

	def, err := s.warehouses.DefaultWarehouse(ctx)
	if err != nil {
		return nil, s.translate("Falha ao buscar armazém padrão.", err)
	}

	seen := make(map[string]struct{}, len(input.Inventory))
	inventory := make([]domain.WarehouseAllocation, 0, len(input.Inventory)+1)
	for _, a := range input.Inventory {
		if _, dup := seen[a.WarehouseID]; dup {
			return nil, apperror.NewValidationError(fmt.Sprintf("Armazém %s repetido no inventário.", a.WarehouseID))
		}
		seen[a.WarehouseID] = struct{}{}
		if a.Quantity < 0 {
			return nil, apperror.NewValidationError("Quantidades do inventário não podem ser negativas.")
		}
		if _, err := s.warehouses.GetWarehouseByID(ctx, a.WarehouseID); err != nil {
			return nil, s.translate("Falha ao buscar armazém do inventário.", err)
		}
		inventory = append(inventory, a)
	}
	if _, ok := seen[def.ID]; !ok {
		inventory = append(inventory, domain.WarehouseAllocation{WarehouseID: def.ID, Quantity: 0})
	}

	entity := domain.StockableEntity{Ref: domain.EntityRef{ProductID: input.SKU}, Stock: input.Stock, Inventory: inventory}
	if err := stockservice.VerifyAllocation(entity, def.ID); err != nil {
		s.logger.Warn("Inventário inicial não fecha com o estoque.", map[string]interface{}{"sku": input.SKU, "error": err.Error()})
		return nil, apperror.NewValidationError("A soma do inventário deve ser igual ao estoque do produto.")
	}
	return inventory, nil
}

func validatePrices(price, salePrice decimal.Decimal) error {
	if !price.IsPositive() {
		return apperror.NewValidationError("O preço do produto deve ser positivo.")
	}
	if salePrice.IsNegative() {
		return apperror.NewValidationError("O preço promocional não pode ser negativo.")
	}
	if salePrice.GreaterThan(price) {
		return apperror.NewValidationError("O preço promocional não pode ser maior que o preço.")
	}
	return nil
}

// translate mantém erros tipados (400, 404, 409) e embrulha o resto como erro interno.
func (s *Service) translate(msg string, err error) error {
	var internal *apperror.InternalError
	if apperror.IsAppError(err) && !errors.As(err, &internal) {
		s.logger.Warn(msg, map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Error(msg, err)
	return apperror.NewInternalError(msg, err)
}
