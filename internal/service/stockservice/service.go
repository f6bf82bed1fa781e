package stockservice

import (
	"context"
	"errors"
	"fmt"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
)

// EntityStore é a parte do Product Catalog Store que lê e grava o estoque de uma entidade.
// SaveEntity aplica controle de concorrência otimista sobre entity.Version.
type EntityStore interface {
	FindEntity(ctx context.Context, ref domain.EntityRef) (domain.StockableEntity, error)
	SaveEntity(ctx context.Context, entity domain.StockableEntity) (domain.StockableEntity, error)
}

// WarehouseRegistry resolve armazéns e o armazém padrão.
type WarehouseRegistry interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	DefaultWarehouse(ctx context.Context) (domain.Warehouse, error)
}

// Service expõe consultas de alocação e ajustes manuais de estoque.
type Service struct {
	store      EntityStore
	warehouses WarehouseRegistry
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(store EntityStore, warehouses WarehouseRegistry, logger logger.Logger) *Service {
	return &Service{store: store, warehouses: warehouses, logger: logger}
}

// GetAvailability devolve quanto da entidade está disponível no armazém.
func (s *Service) GetAvailability(ctx context.Context, ref domain.EntityRef, warehouseID string) (domain.StockAvailability, error) {
	if ref.ProductID == "" || warehouseID == "" {
		return domain.StockAvailability{}, apperror.NewValidationError("product_id e warehouse_id são obrigatórios.")
	}

	if _, err := s.warehouses.GetWarehouseByID(ctx, warehouseID); err != nil {
		return domain.StockAvailability{}, s.translate("Falha ao buscar armazém.", err)
	}
	def, err := s.warehouses.DefaultWarehouse(ctx)
	if err != nil {
		return domain.StockAvailability{}, s.translate("Falha ao resolver o armazém padrão.", err)
	}
	entity, err := s.store.FindEntity(ctx, ref)
	if err != nil {
		return domain.StockAvailability{}, s.translate("Falha ao buscar entidade de estoque.", err)
	}

	return domain.StockAvailability{
		Ref:         ref,
		WarehouseID: warehouseID,
		Available:   AvailableStock(entity, warehouseID, def.ID),
	}, nil
}

// AllocationBreakdown devolve a entidade com a alocação padrão materializada (apenas leitura, nada é gravado).
func (s *Service) AllocationBreakdown(ctx context.Context, ref domain.EntityRef) (domain.StockableEntity, error) {
	if ref.ProductID == "" {
		return domain.StockableEntity{}, apperror.NewValidationError("product_id é obrigatório.")
	}
	def, err := s.warehouses.DefaultWarehouse(ctx)
	if err != nil {
		return domain.StockableEntity{}, s.translate("Falha ao resolver o armazém padrão.", err)
	}
	entity, err := s.store.FindEntity(ctx, ref)
	if err != nil {
		return domain.StockableEntity{}, s.translate("Falha ao buscar entidade de estoque.", err)
	}
	return MaterializeDefault(entity, def.ID), nil
}

// AdjustStock aplica uma entrada (delta > 0) ou saída (delta < 0) no armazém, alterando também o estoque total.
func (s *Service) AdjustStock(ctx context.Context, adjustment domain.StockAdjustmentRequest) (domain.StockableEntity, error) {
	s.logger.Debug("Iniciando ajuste de estoque no serviço.", map[string]interface{}{
		"product_id":   adjustment.ProductID,
		"variant_id":   adjustment.VariantID,
		"warehouse_id": adjustment.WarehouseID,
		"delta":        adjustment.Delta,
	})

	if adjustment.Delta == 0 {
		return domain.StockableEntity{}, apperror.NewValidationError("O ajuste de estoque (delta) não pode ser zero.")
	}
	if adjustment.ProductID == "" || adjustment.WarehouseID == "" {
		return domain.StockableEntity{}, apperror.NewValidationError("product_id e warehouse_id são obrigatórios.")
	}

	if _, err := s.warehouses.GetWarehouseByID(ctx, adjustment.WarehouseID); err != nil {
		return domain.StockableEntity{}, s.translate("Falha ao buscar armazém.", err)
	}
	def, err := s.warehouses.DefaultWarehouse(ctx)
	if err != nil {
		return domain.StockableEntity{}, s.translate("Falha ao resolver o armazém padrão.", err)
	}

	ref := domain.EntityRef{ProductID: adjustment.ProductID, VariantID: adjustment.VariantID}
	entity, err := s.store.FindEntity(ctx, ref)
	if err != nil {
		return domain.StockableEntity{}, s.translate("Falha ao buscar entidade de estoque.", err)
	}

	if adjustment.Delta < 0 {
		available := AvailableStock(entity, adjustment.WarehouseID, def.ID)
		if -adjustment.Delta > available {
			s.logger.Warn("Ajuste resultaria em quantidade negativa.", map[string]interface{}{
				"entity":       ref.Key(),
				"warehouse_id": adjustment.WarehouseID,
				"available":    available,
				"delta":        adjustment.Delta,
			})
			return domain.StockableEntity{}, apperror.NewInsufficientStockError(available, -adjustment.Delta)
		}
	}

	next := MaterializeDefault(entity, def.ID)
	next = Adjust(next, adjustment.WarehouseID, adjustment.Delta)
	next.Stock += adjustment.Delta
	if err := VerifyAllocation(next, def.ID); err != nil {
		return domain.StockableEntity{}, apperror.NewInternalError("Alocação inconsistente após ajuste.", err)
	}

	saved, err := s.store.SaveEntity(ctx, next)
	if err != nil {
		s.logger.Error("Falha ao ajustar estoque no repositório.", err)
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			return domain.StockableEntity{}, apperror.NewConflictError(fmt.Sprintf("Falha de concorrência: %s", conflictErr.Msg))
		}
		return domain.StockableEntity{}, s.translate("Falha interna ao ajustar estoque.", err)
	}

	s.logger.Info("Estoque ajustado com sucesso.", map[string]interface{}{
		"entity":       ref.Key(),
		"warehouse_id": adjustment.WarehouseID,
		"new_stock":    saved.Stock,
		"new_version":  saved.Version,
	})
	return saved, nil
}

func (s *Service) translate(msg string, err error) error {
	var internal *apperror.InternalError
	if apperror.IsAppError(err) && !errors.As(err, &internal) {
		return err
	}
	s.logger.Error(msg, err)
	return apperror.NewInternalError(msg, err)
}
