package attributerepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/database"
	"varistock/internal/pkg/logger"
)

// AttributeRepository é o Attribute Catalog sobre PostgreSQL.
type AttributeRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewAttributeRepository cria e retorna uma nova instância do Repositório de Atributos.
func NewAttributeRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *AttributeRepository {
	return &AttributeRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

const selectAttributes = `SELECT id, name, display_name, option_kind, allowed_values FROM attributes`

// CreateAttribute cadastra uma dimensão no catálogo.
func (r *AttributeRepository) CreateAttribute(ctx context.Context, def domain.AttributeDefinition) (domain.AttributeDefinition, error) {
	r.logger.Debug("Iniciando CreateAttribute no repositório.", map[string]interface{}{"name": def.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	if def.AllowedValues == nil {
		def.AllowedValues = []string{}
	}

	_, err := r.DB.ExecContext(ctxTimeout, `
        INSERT INTO attributes (id, name, display_name, option_kind, allowed_values)
        VALUES ($1, $2, $3, $4, $5)`,
		def.ID, def.Name, def.DisplayName, string(def.OptionKind), pq.Array(def.AllowedValues),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.AttributeDefinition{}, apperror.NewConflictError(fmt.Sprintf("O atributo '%s' já existe.", def.Name))
		}
		r.logger.Error("Falha ao inserir atributo no DB.", err)
		return domain.AttributeDefinition{}, apperror.NewDBError("Falha ao criar atributo", err)
	}

	r.logger.Info("Atributo criado com sucesso.", map[string]interface{}{"id": def.ID, "name": def.Name})
	return def, nil
}

// GetAttribute busca uma definição pelo ID.
func (r *AttributeRepository) GetAttribute(ctx context.Context, id string) (domain.AttributeDefinition, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	def, err := scanAttribute(r.DB.QueryRowContext(ctxTimeout, selectAttributes+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AttributeDefinition{}, apperror.NewNotFoundError(fmt.Sprintf("Atributo com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar atributo no DB.", err)
		return domain.AttributeDefinition{}, apperror.NewDBError("Falha ao buscar atributo", err)
	}
	return def, nil
}

// ListAttributes lista as definições ordenadas por nome.
func (r *AttributeRepository) ListAttributes(ctx context.Context) ([]domain.AttributeDefinition, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, selectAttributes+" ORDER BY name")
	if err != nil {
		r.logger.Error("Falha ao executar ListAttributes query.", err)
		return nil, apperror.NewDBError("Falha ao listar atributos", err)
	}
	defer rows.Close()

	var defs []domain.AttributeDefinition
	for rows.Next() {
		def, err := scanAttribute(rows)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao mapear atributos do DB", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de atributos", err)
	}
	return defs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAttribute(s scanner) (domain.AttributeDefinition, error) {
	var (
		def  domain.AttributeDefinition
		kind string
	)
	err := s.Scan(&def.ID, &def.Name, &def.DisplayName, &kind, pq.Array(&def.AllowedValues))
	def.OptionKind = domain.OptionKind(kind)
	return def, err
}
