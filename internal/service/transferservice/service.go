package transferservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
	"varistock/internal/service/stockservice"
)

// MaxNotesLength limita o texto livre gravado no histórico.
const MaxNotesLength = 500

// Store lê a entidade e grava, como uma única unidade, o novo inventário e o registro no histórico.
// ApplyTransfer deve rejeitar com ConflictError se entity.Version não for a versão gravada.
// O histórico só aceita inserções: não há update nem delete.
type Store interface {
	FindEntity(ctx context.Context, ref domain.EntityRef) (domain.StockableEntity, error)
	ApplyTransfer(ctx context.Context, entity domain.StockableEntity, record domain.TransferRecord) (domain.TransferRecord, error)
	ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.TransferRecord, error)
	FindTransferByID(ctx context.Context, id string) (domain.TransferRecord, error)
}

// WarehouseRegistry resolve armazéns e o armazém padrão.
type WarehouseRegistry interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	DefaultWarehouse(ctx context.Context) (domain.Warehouse, error)
}

// Service valida e executa transferências de estoque entre armazéns.
type Service struct {
	store      Store
	warehouses WarehouseRegistry
	logger     logger.Logger
	now        func() time.Time
	newID      func() string

	// locks serializa transferências concorrentes sobre a mesma entidade neste processo;
	// entre processos a proteção é o OCC do Store. Entradas saem do mapa quando ninguém mais espera.
	locksMu sync.Mutex
	locks   map[string]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

// NewService cria e retorna uma nova instância do Serviço de Transferências.
func NewService(store Store, warehouses WarehouseRegistry, logger logger.Logger) *Service {
	return &Service{
		store:      store,
		warehouses: warehouses,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
		locks:      make(map[string]*entityLock),
	}
}

// Execute move quantidade de um armazém para outro sem alterar o estoque total da entidade.
// Pedidos rejeitados não gravam nada; sucesso grava exatamente uma mutação de inventário e um registro.
func (s *Service) Execute(ctx context.Context, req domain.TransferRequest) (domain.TransferRecord, error) {
	s.logger.Debug("Iniciando transferência no serviço.", map[string]interface{}{
		"product_id": req.ProductID,
		"variant_id": req.VariantID,
		"from":       req.FromWarehouseID,
		"to":         req.ToWarehouseID,
		"quantity":   req.Quantity,
	})

	// 1. Validação do pedido
	if err := validate(&req); err != nil {
		s.logger.Warn("Transferência rejeitada na validação.", map[string]interface{}{"error": err.Error()})
		return domain.TransferRecord{}, err
	}

	// 2. Resolução dos armazéns
	if _, err := s.warehouses.GetWarehouseByID(ctx, req.FromWarehouseID); err != nil {
		return domain.TransferRecord{}, s.translate("Falha ao buscar armazém de origem.", err)
	}
	if _, err := s.warehouses.GetWarehouseByID(ctx, req.ToWarehouseID); err != nil {
		return domain.TransferRecord{}, s.translate("Falha ao buscar armazém de destino.", err)
	}
	def, err := s.warehouses.DefaultWarehouse(ctx)
	if err != nil {
		return domain.TransferRecord{}, s.translate("Falha ao resolver o armazém padrão.", err)
	}

	ref := req.Ref()
	unlock := s.lock(ref.Key())
	defer unlock()

	entity, err := s.store.FindEntity(ctx, ref)
	if err != nil {
		return domain.TransferRecord{}, s.translate("Falha ao buscar entidade de estoque.", err)
	}

	// 3. Disponibilidade na origem
	available := stockservice.AvailableStock(entity, req.FromWarehouseID, def.ID)
	if req.Quantity > available {
		s.logger.Warn("Estoque insuficiente para transferência.", map[string]interface{}{
			"entity":    ref.Key(),
			"from":      req.FromWarehouseID,
			"available": available,
			"requested": req.Quantity,
		})
		return domain.TransferRecord{}, apperror.NewInsufficientStockError(available, req.Quantity)
	}

	// 4-6. Materializa o padrão e redistribui; o estoque total não muda.
	next := stockservice.MaterializeDefault(entity, def.ID)
	next = stockservice.Adjust(next, req.FromWarehouseID, -req.Quantity)
	next = stockservice.Adjust(next, req.ToWarehouseID, req.Quantity)
	if err := stockservice.VerifyAllocation(next, def.ID); err != nil {
		return domain.TransferRecord{}, apperror.NewInternalError("Alocação inconsistente após transferência.", err)
	}

	// 7. Registro com snapshot do nome
	record := domain.TransferRecord{
		ID:              s.newID(),
		Timestamp:       s.now(),
		ProductID:       ref.ProductID,
		ProductName:     entity.DisplayName(),
		VariantID:       ref.VariantID,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		Quantity:        req.Quantity,
		Notes:           req.Notes,
		TransferredBy:   req.TransferredBy,
	}

	// 8. Inventário + histórico numa única unidade
	saved, err := s.store.ApplyTransfer(ctx, next, record)
	if err != nil {
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			s.logger.Warn("Conflito de concorrência na transferência.", map[string]interface{}{"entity": ref.Key()})
			return domain.TransferRecord{}, apperror.NewConflictError(fmt.Sprintf("Falha de concorrência: %s", conflictErr.Msg))
		}
		return domain.TransferRecord{}, s.translate("Falha interna ao gravar transferência.", err)
	}

	s.logger.Info("Transferência executada com sucesso.", map[string]interface{}{
		"transfer_id": saved.ID,
		"entity":      ref.Key(),
		"from":        saved.FromWarehouseID,
		"to":          saved.ToWarehouseID,
		"quantity":    saved.Quantity,
	})
	return saved, nil
}

// ListTransfers consulta o histórico, mais recentes primeiro.
func (s *Service) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.TransferRecord, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	records, err := s.store.ListTransfers(ctx, filter)
	if err != nil {
		return nil, s.translate("Falha ao listar transferências.", err)
	}
	return records, nil
}

// GetTransfer busca um registro do histórico.
func (s *Service) GetTransfer(ctx context.Context, id string) (domain.TransferRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.TransferRecord{}, apperror.NewValidationError("O ID da transferência deve ser um UUID válido.")
	}
	record, err := s.store.FindTransferByID(ctx, id)
	if err != nil {
		return domain.TransferRecord{}, s.translate("Falha ao buscar transferência.", err)
	}
	return record, nil
}

func validate(req *domain.TransferRequest) error {
	req.Notes = strings.TrimSpace(req.Notes)
	switch {
	case req.ProductID == "":
		return apperror.NewValidationError("product_id é obrigatório.")
	case req.FromWarehouseID == "" || req.ToWarehouseID == "":
		return apperror.NewValidationError("Armazéns de origem e destino são obrigatórios.")
	case req.FromWarehouseID == req.ToWarehouseID:
		return apperror.NewValidationError("Não é possível transferir para o mesmo armazém.")
	case req.Quantity <= 0:
		return apperror.NewValidationError("A quantidade deve ser um inteiro positivo.")
	case len([]rune(req.Notes)) > MaxNotesLength:
		return apperror.NewValidationError(fmt.Sprintf("As observações devem ter no máximo %d caracteres.", MaxNotesLength))
	}
	return nil
}

func (s *Service) lock(key string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &entityLock{}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) translate(msg string, err error) error {
	var internal *apperror.InternalError
	if apperror.IsAppError(err) && !errors.As(err, &internal) {
		return err
	}
	s.logger.Error(msg, err)
	return apperror.NewInternalError(msg, err)
}
