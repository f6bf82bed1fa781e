package variantservice

import (
	"context"
	"errors"
	"fmt"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
)

// AttributeCatalog guarda as definições de atributos. A geração de variantes só lê o catálogo.
type AttributeCatalog interface {
	GetAttribute(ctx context.Context, id string) (domain.AttributeDefinition, error)
	ListAttributes(ctx context.Context) ([]domain.AttributeDefinition, error)
	CreateAttribute(ctx context.Context, def domain.AttributeDefinition) (domain.AttributeDefinition, error)
}

// ProductStore é o Product Catalog Store: lê o snapshot e recebe o próximo estado.
type ProductStore interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
}

// WarehouseRegistry resolve o armazém padrão, destino do estoque das variantes geradas.
type WarehouseRegistry interface {
	DefaultWarehouse(ctx context.Context) (domain.Warehouse, error)
}

// Service aplica edições de seleção de atributos a um produto e persiste as variantes recalculadas.
type Service struct {
	catalog    AttributeCatalog
	products   ProductStore
	warehouses WarehouseRegistry
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Variantes.
func NewService(catalog AttributeCatalog, products ProductStore, warehouses WarehouseRegistry, logger logger.Logger) *Service {
	return &Service{catalog: catalog, products: products, warehouses: warehouses, logger: logger}
}

// PreviewRequest é o payload da pré-visualização (sem persistência).
type PreviewRequest struct {
	Selections []domain.ProductAttributeSelection `json:"selections"`
	Base       Base                               `json:"base"`
}

// Preview calcula as variantes sem tocar em nenhum estado.
// As seleções vêm do cliente, então passam pelas mesmas checagens de dimensão e limite.
func (s *Service) Preview(req PreviewRequest) ([]domain.Variant, error) {
	if err := CheckSelections(req.Selections); err != nil {
		s.logger.Warn("Pré-visualização rejeitada.", map[string]interface{}{"selections": len(req.Selections), "error": err.Error()})
		return nil, err
	}
	variants := Generate(req.Selections, req.Base)
	s.logger.Debug("Pré-visualização de variantes calculada.", map[string]interface{}{
		"selections": len(req.Selections),
		"variants":   len(variants),
	})
	return variants, nil
}

// SetAttributeValues ativa o atributo (se preciso) com os valores informados e recalcula tudo.
func (s *Service) SetAttributeValues(ctx context.Context, productID, attributeID string, values []string) (domain.Product, error) {
	s.logger.Debug("Atualizando valores de atributo.", map[string]interface{}{
		"product_id":   productID,
		"attribute_id": attributeID,
		"values":       values,
	})

	def, err := s.catalog.GetAttribute(ctx, attributeID)
	if err != nil {
		return domain.Product{}, s.translate("Falha ao buscar atributo.", err)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.translate("Falha ao buscar produto.", err)
	}

	model := NewSelectionModel(product.Attributes)
	if err := model.SetValues(def, values); err != nil {
		s.logger.Warn("Seleção de atributo rejeitada.", map[string]interface{}{"attribute_id": attributeID, "error": err.Error()})
		return domain.Product{}, err
	}

	if err := CheckSelections(model.Selections()); err != nil {
		s.logger.Warn("Seleção de atributo rejeitada.", map[string]interface{}{"attribute_id": attributeID, "error": err.Error()})
		return domain.Product{}, err
	}

	base, err := s.baseFor(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	product.Attributes = model.Selections()
	product.Variants = Generate(product.Attributes, base)
	return s.save(ctx, product)
}

// RemoveAttributeValues retira valores de um atributo: poda as variantes afetadas
// ou, se o atributo esvaziou, recalcula tudo sobre os atributos restantes.
func (s *Service) RemoveAttributeValues(ctx context.Context, productID, attributeID string, values []string) (domain.Product, error) {
	s.logger.Debug("Removendo valores de atributo.", map[string]interface{}{
		"product_id":   productID,
		"attribute_id": attributeID,
		"values":       values,
	})

	if len(values) == 0 {
		return domain.Product{}, apperror.NewValidationError("Informe ao menos um valor a remover.")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.translate("Falha ao buscar produto.", err)
	}

	model := NewSelectionModel(product.Attributes)
	emptied, err := model.RemoveValues(attributeID, values)
	if err != nil {
		return domain.Product{}, err
	}
	if emptied {
		// Atributo sem valores equivale a desativado.
		model.Deactivate(attributeID)
	}

	base, err := s.baseFor(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	product.Variants = PruneOrRegenerate(model.Selections(), attributeID, values, product.Variants, base)
	product.Attributes = model.Selections()
	return s.save(ctx, product)
}

// DeactivateAttribute remove a dimensão do produto e recalcula todas as variantes.
func (s *Service) DeactivateAttribute(ctx context.Context, productID, attributeID string) (domain.Product, error) {
	s.logger.Debug("Desativando atributo.", map[string]interface{}{"product_id": productID, "attribute_id": attributeID})

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.translate("Falha ao buscar produto.", err)
	}

	model := NewSelectionModel(product.Attributes)
	if !model.Deactivate(attributeID) {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Atributo %s não está ativo no produto.", attributeID))
	}

	base, err := s.baseFor(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	product.Variants = OnAttributeDeactivated(attributeID, product.Attributes, base)
	product.Attributes = model.Selections()
	return s.save(ctx, product)
}

func (s *Service) baseFor(ctx context.Context, product domain.Product) (Base, error) {
	wh, err := s.warehouses.DefaultWarehouse(ctx)
	if err != nil {
		return Base{}, s.translate("Falha ao resolver o armazém padrão.", err)
	}
	stock := product.Stock
	if stock < 0 {
		stock = 0
	}
	return Base{
		ProductID:   product.ID,
		Price:       product.Price,
		SalePrice:   product.SalePrice,
		Stock:       stock,
		SKU:         product.SKU,
		WarehouseID: wh.ID,
	}, nil
}

func (s *Service) save(ctx context.Context, product domain.Product) (domain.Product, error) {
	updated, err := s.products.Update(ctx, product)
	if err != nil {
		return domain.Product{}, s.translate("Falha ao gravar variantes do produto.", err)
	}
	s.logger.Info("Variantes do produto recalculadas.", map[string]interface{}{
		"product_id": updated.ID,
		"attributes": len(updated.Attributes),
		"variants":   len(updated.Variants),
	})
	return updated, nil
}

// translate mantém erros tipados (404, 409) e embrulha o resto como erro interno.
func (s *Service) translate(msg string, err error) error {
	var internal *apperror.InternalError
	if apperror.IsAppError(err) && !errors.As(err, &internal) {
		return err
	}
	s.logger.Error(msg, err)
	return apperror.NewInternalError(msg, err)
}
