package warehouseservice

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
)

// WarehouseRepository define o contrato que o Serviço de Armazéns espera da camada de Persistência.
// SetDefaultWarehouse deve trocar o padrão numa única unidade, mantendo exatamente um marcado.
type WarehouseRepository interface {
	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id string) error
	DefaultWarehouse(ctx context.Context) (domain.Warehouse, error)
	SetDefaultWarehouse(ctx context.Context, id string) (domain.Warehouse, error)
}

// Service mantém o Warehouse Registry.
type Service struct {
	repo   WarehouseRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Armazéns.
func NewService(repo WarehouseRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateWarehouse cria um novo armazém após validações de negócio.
func (s *Service) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando criação de armazém no serviço.", map[string]interface{}{"name": warehouse.Name})

	warehouse.Name = strings.TrimSpace(warehouse.Name)
	if err := s.validateWarehouseName(warehouse.Name); err != nil {
		s.logger.Warn("Falha na validação do nome do armazém.", map[string]interface{}{"name": warehouse.Name, "error": err.Error()})
		return domain.Warehouse{}, err
	}

	createdWarehouse, err := s.repo.CreateWarehouse(ctx, warehouse)
	if err != nil {
		return domain.Warehouse{}, s.translate("Falha interna ao criar armazém.", err)
	}

	s.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": createdWarehouse.ID, "name": createdWarehouse.Name})
	return createdWarehouse, nil
}

// GetWarehouseByID busca um armazém pelo ID após validações de formato.
func (s *Service) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando busca de armazém por ID no serviço.", map[string]interface{}{"id": id})

	if err := validateID(id); err != nil {
		s.logger.Warn("ID de armazém inválido fornecido.", map[string]interface{}{"id": id})
		return domain.Warehouse{}, err
	}

	warehouse, err := s.repo.GetWarehouseByID(ctx, id)
	if err != nil {
		return domain.Warehouse{}, s.translate("Falha interna ao buscar armazém.", err)
	}
	return warehouse, nil
}

// GetAllWarehouses busca todos os armazéns.
func (s *Service) GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	warehouses, err := s.repo.GetAllWarehouses(ctx)
	if err != nil {
		return nil, s.translate("Falha interna ao buscar armazéns.", err)
	}
	if warehouses == nil {
		warehouses = []domain.Warehouse{}
	}

	s.logger.Info("Todos os armazéns encontrados com sucesso.", map[string]interface{}{"count": len(warehouses)})
	return warehouses, nil
}

// UpdateWarehouse renomeia um armazém existente.
func (s *Service) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando atualização de armazém no serviço.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name})

	if err := validateID(warehouse.ID); err != nil {
		s.logger.Warn("ID de armazém inválido fornecido para atualização.", map[string]interface{}{"id": warehouse.ID})
		return domain.Warehouse{}, err
	}
	warehouse.Name = strings.TrimSpace(warehouse.Name)
	if err := s.validateWarehouseName(warehouse.Name); err != nil {
		s.logger.Warn("Falha na validação do nome do armazém para atualização.", map[string]interface{}{"name": warehouse.Name, "error": err.Error()})
		return domain.Warehouse{}, err
	}

	updatedWarehouse, err := s.repo.UpdateWarehouse(ctx, warehouse)
	if err != nil {
		return domain.Warehouse{}, s.translate("Falha interna ao atualizar armazém.", err)
	}

	s.logger.Info("Armazém atualizado com sucesso.", map[string]interface{}{"id": updatedWarehouse.ID, "name": updatedWarehouse.Name})
	return updatedWarehouse, nil
}

// DeleteWarehouse remove um armazém. O padrão e armazéns com estoque são recusados pelo repositório.
func (s *Service) DeleteWarehouse(ctx context.Context, id string) error {
	s.logger.Debug("Iniciando exclusão de armazém no serviço.", map[string]interface{}{"id": id})

	if err := validateID(id); err != nil {
		s.logger.Warn("ID de armazém inválido fornecido para exclusão.", map[string]interface{}{"id": id})
		return err
	}

	if err := s.repo.DeleteWarehouse(ctx, id); err != nil {
		return s.translate("Falha interna ao deletar armazém.", err)
	}

	s.logger.Info("Armazém deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// DefaultWarehouse devolve o armazém padrão.
func (s *Service) DefaultWarehouse(ctx context.Context) (domain.Warehouse, error) {
	warehouse, err := s.repo.DefaultWarehouse(ctx)
	if err != nil {
		return domain.Warehouse{}, s.translate("Falha interna ao buscar armazém padrão.", err)
	}
	return warehouse, nil
}

// SetDefaultWarehouse marca o armazém como padrão e desmarca o anterior.
func (s *Service) SetDefaultWarehouse(ctx context.Context, id string) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando troca de armazém padrão no serviço.", map[string]interface{}{"id": id})

	if err := validateID(id); err != nil {
		return domain.Warehouse{}, err
	}

	warehouse, err := s.repo.SetDefaultWarehouse(ctx, id)
	if err != nil {
		return domain.Warehouse{}, s.translate("Falha interna ao trocar armazém padrão.", err)
	}

	s.logger.Info("Armazém padrão definido.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name})
	return warehouse, nil
}

// validateWarehouseName é uma função auxiliar para validar o nome do armazém.
func (s *Service) validateWarehouseName(name string) error {
	if name == "" {
		return apperror.NewValidationError("O nome do armazém não pode ser vazio.")
	}
	if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
		return apperror.NewValidationError("O nome do armazém deve ter entre 3 e 100 caracteres.")
	}
	return nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
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
