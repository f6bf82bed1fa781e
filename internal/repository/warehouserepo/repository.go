package warehouserepo

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

// ProductInvalidator descarta produtos do cache quando a troca do padrão regrava inventários.
type ProductInvalidator interface {
	Invalidate(ctx context.Context, productIDs ...string)
}

// WarehouseRepository é o Warehouse Registry sobre PostgreSQL.
type WarehouseRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	products  ProductInvalidator
	logger    logger.Logger
}

// NewWarehouseRepository cria e retorna uma nova instância do Repositório de Armazéns.
func NewWarehouseRepository(db *sql.DB, dbTimeout time.Duration, products ProductInvalidator, logger logger.Logger) *WarehouseRepository {
	return &WarehouseRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		products:  products,
		logger:    logger,
	}
}

const selectWarehouses = `SELECT id, name, is_default, created_at, updated_at FROM warehouses`

// CreateWarehouse insere um novo armazém. Sem nenhum padrão cadastrado, o novo armazém vira o padrão.
func (r *WarehouseRepository) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	r.logger.Debug("Iniciando CreateWarehouse no repositório.", map[string]interface{}{"name": warehouse.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if warehouse.ID == "" {
		warehouse.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	query := `
        INSERT INTO warehouses (id, name, is_default, created_at, updated_at)
        VALUES ($1, $2, NOT EXISTS (SELECT 1 FROM warehouses WHERE is_default), $3, $3)
        RETURNING id, name, is_default, created_at, updated_at`

	err := r.DB.QueryRowContext(ctxTimeout, query, warehouse.ID, warehouse.Name, now).Scan(
		&warehouse.ID, &warehouse.Name, &warehouse.IsDefault, &warehouse.CreatedAt, &warehouse.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.Warehouse{}, apperror.NewConflictError(fmt.Sprintf("Armazém com ID %s já existe.", warehouse.ID))
		}
		r.logger.Error("Falha ao inserir armazém no DB.", err)
		return domain.Warehouse{}, apperror.NewDBError("Falha ao criar armazém", err)
	}

	r.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name, "is_default": warehouse.IsDefault})
	return warehouse, nil
}

// GetWarehouseByID busca um armazém pelo ID.
func (r *WarehouseRepository) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	warehouse, err := scanWarehouse(r.DB.QueryRowContext(ctxTimeout, selectWarehouses+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Armazém não encontrado.", map[string]interface{}{"id": id})
		return domain.Warehouse{}, apperror.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar armazém no DB.", err)
		return domain.Warehouse{}, apperror.NewDBError("Falha ao buscar armazém", err)
	}
	return warehouse, nil
}

// DefaultWarehouse devolve o armazém marcado como padrão.
func (r *WarehouseRepository) DefaultWarehouse(ctx context.Context) (domain.Warehouse, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	warehouse, err := scanWarehouse(r.DB.QueryRowContext(ctxTimeout, selectWarehouses+" WHERE is_default"))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Warehouse{}, apperror.NewNotFoundError("Nenhum armazém padrão configurado.")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar armazém padrão no DB.", err)
		return domain.Warehouse{}, apperror.NewDBError("Falha ao buscar armazém padrão", err)
	}
	return warehouse, nil
}

// GetAllWarehouses busca todos os armazéns.
func (r *WarehouseRepository) GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	r.logger.Debug("Iniciando GetAllWarehouses no repositório.", nil)

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, selectWarehouses+" ORDER BY name")
	if err != nil {
		r.logger.Error("Falha ao executar GetAllWarehouses query.", err)
		return nil, apperror.NewDBError("Falha ao buscar todos os armazéns", err)
	}
	defer rows.Close()

	var warehouses []domain.Warehouse
	for rows.Next() {
		warehouse, err := scanWarehouse(rows)
		if err != nil {
			r.logger.Error("Falha ao mapear armazém na iteração de GetAllWarehouses.", err)
			return nil, apperror.NewDBError("Falha ao mapear armazéns do DB", err)
		}
		warehouses = append(warehouses, warehouse)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de armazéns", err)
	}

	r.logger.Info("GetAllWarehouses concluído com sucesso.", map[string]interface{}{"total_warehouses": len(warehouses)})
	return warehouses, nil
}

// UpdateWarehouse renomeia um armazém. O flag de padrão só muda via SetDefaultWarehouse.
func (r *WarehouseRepository) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	r.logger.Debug("Iniciando UpdateWarehouse no repositório.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE warehouses
        SET name = $1, updated_at = $2
        WHERE id = $3
        RETURNING id, name, is_default, created_at, updated_at`

	updated, err := scanWarehouse(r.DB.QueryRowContext(ctxTimeout, query, warehouse.Name, time.Now().UTC(), warehouse.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Warehouse{}, apperror.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado para atualização.", warehouse.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar armazém no DB.", err)
		return domain.Warehouse{}, apperror.NewDBError("Falha ao atualizar armazém", err)
	}

	r.logger.Info("Armazém atualizado com sucesso.", map[string]interface{}{"id": updated.ID, "name": updated.Name})
	return updated, nil
}

// DeleteWarehouse remove um armazém que não seja o padrão nem guarde estoque.
// Alocações zeradas do armazém são descartadas junto.
func (r *WarehouseRepository) DeleteWarehouse(ctx context.Context, id string) error {
	r.logger.Debug("Iniciando DeleteWarehouse no repositório.", map[string]interface{}{"id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	warehouse, err := scanWarehouse(tx.QueryRowContext(ctxTimeout, selectWarehouses+" WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado para exclusão.", id))
	}
	if err != nil {
		return apperror.NewDBError("Falha ao buscar armazém", err)
	}
	if warehouse.IsDefault {
		r.logger.Warn("Tentativa de excluir o armazém padrão.", map[string]interface{}{"id": id})
		return apperror.NewConflictError("O armazém padrão não pode ser excluído.")
	}

	rows, err := tx.QueryContext(ctxTimeout, `
        DELETE FROM inventory_allocations
        WHERE warehouse_id = $1 AND quantity = 0
        RETURNING product_id`, id)
	if err != nil {
		return apperror.NewDBError("Falha ao limpar alocações zeradas", err)
	}
	touched, err := collectIDs(rows)
	if err != nil {
		return apperror.NewDBError("Falha ao limpar alocações zeradas", err)
	}

	if _, err := tx.ExecContext(ctxTimeout, `DELETE FROM warehouses WHERE id = $1`, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			r.logger.Warn("Armazém ainda possui estoque alocado.", map[string]interface{}{"id": id})
			return apperror.NewConflictError(fmt.Sprintf("O armazém %s ainda possui estoque alocado.", warehouse.Name))
		}
		r.logger.Error("Falha ao deletar armazém do DB.", err)
		return apperror.NewDBError("Falha ao deletar armazém", err)
	}

	if err := tx.Commit(); err != nil {
		return apperror.NewDBError("Falha ao commitar transação", err)
	}
	r.products.Invalidate(ctx, touched...)

	r.logger.Info("Armazém deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// SetDefaultWarehouse troca o armazém padrão numa transação, mantendo exatamente um marcado.
// Antes da troca, a alocação implícita do padrão antigo vira registro explícito e o novo padrão
// recebe um registro zerado; as versões das entidades tocadas sobem.
func (r *WarehouseRepository) SetDefaultWarehouse(ctx context.Context, id string) (domain.Warehouse, error) {
	r.logger.Debug("Iniciando SetDefaultWarehouse no repositório.", map[string]interface{}{"id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Warehouse{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	target, err := scanWarehouse(tx.QueryRowContext(ctxTimeout, selectWarehouses+" WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Warehouse{}, apperror.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado.", id))
	}
	if err != nil {
		return domain.Warehouse{}, apperror.NewDBError("Falha ao buscar armazém", err)
	}
	if target.IsDefault {
		return target, nil
	}

	var oldDefault string
	err = tx.QueryRowContext(ctxTimeout, `SELECT id FROM warehouses WHERE is_default FOR UPDATE`).Scan(&oldDefault)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Warehouse{}, apperror.NewDBError("Falha ao buscar armazém padrão", err)
	}

	// Bloqueia os produtos antes de regravar inventários.
	if _, err := tx.ExecContext(ctxTimeout, `SELECT id FROM products FOR UPDATE`); err != nil {
		return domain.Warehouse{}, apperror.NewDBError("Falha ao bloquear produtos", err)
	}

	var touched []string
	if oldDefault != "" {
		ids, err := pinAllocations(ctxTimeout, tx, oldDefault, true)
		if err != nil {
			return domain.Warehouse{}, err
		}
		touched = append(touched, ids...)
	}
	ids, err := pinAllocations(ctxTimeout, tx, id, false)
	if err != nil {
		return domain.Warehouse{}, err
	}
	touched = append(touched, ids...)

	if len(touched) > 0 {
		if _, err := tx.ExecContext(ctxTimeout, `UPDATE variants SET version = version + 1 WHERE product_id = ANY($1)`, pq.Array(touched)); err != nil {
			return domain.Warehouse{}, apperror.NewDBError("Falha ao atualizar versões de variantes", err)
		}
		if _, err := tx.ExecContext(ctxTimeout, `UPDATE products SET version = version + 1 WHERE id = ANY($1)`, pq.Array(touched)); err != nil {
			return domain.Warehouse{}, apperror.NewDBError("Falha ao atualizar versões de produtos", err)
		}
	}

	now := time.Now().UTC()
	// O índice parcial exige limpar o padrão antigo antes de marcar o novo.
	if _, err := tx.ExecContext(ctxTimeout, `UPDATE warehouses SET is_default = FALSE, updated_at = $1 WHERE is_default`, now); err != nil {
		return domain.Warehouse{}, apperror.NewDBError("Falha ao limpar armazém padrão", err)
	}
	target, err = scanWarehouse(tx.QueryRowContext(ctxTimeout, `
        UPDATE warehouses SET is_default = TRUE, updated_at = $1
        WHERE id = $2
        RETURNING id, name, is_default, created_at, updated_at`, now, id))
	if err != nil {
		return domain.Warehouse{}, apperror.NewDBError("Falha ao marcar armazém padrão", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar troca de armazém padrão.", err)
		return domain.Warehouse{}, apperror.NewDBError("Falha ao commitar transação", err)
	}
	r.products.Invalidate(ctx, dedupe(touched)...)

	r.logger.Info("Armazém padrão alterado.", map[string]interface{}{"id": id, "previous": oldDefault, "entities_pinned": len(touched)})
	return target, nil
}

// pinAllocations cria, para toda entidade sem registro no armazém, um registro com o estoque
// inteiro (withStock) ou zerado. Produtos com variantes também têm o próprio inventário fixado.
// Devolve os produtos afetados.
func pinAllocations(ctx context.Context, tx *sql.Tx, warehouseID string, withStock bool) ([]string, error) {
	quantity := "0"
	if withStock {
		quantity = "p.stock"
	}
	productSQL := fmt.Sprintf(`
        INSERT INTO inventory_allocations (product_id, variant_id, warehouse_id, quantity)
        SELECT p.id, '', $1, %s
        FROM products p
        ON CONFLICT (product_id, variant_id, warehouse_id) DO NOTHING
        RETURNING product_id`, quantity)

	variantQuantity := "0"
	if withStock {
		variantQuantity = "v.stock"
	}
	variantSQL := fmt.Sprintf(`
        INSERT INTO inventory_allocations (product_id, variant_id, warehouse_id, quantity)
        SELECT v.product_id, v.id, $1, %s
        FROM variants v
        ON CONFLICT (product_id, variant_id, warehouse_id) DO NOTHING
        RETURNING product_id`, variantQuantity)

	var touched []string
	for _, q := range []string{productSQL, variantSQL} {
		rows, err := tx.QueryContext(ctx, q, warehouseID)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao materializar alocações do armazém padrão", err)
		}
		ids, err := collectIDs(rows)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao materializar alocações do armazém padrão", err)
		}
		touched = append(touched, ids...)
	}
	return touched, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWarehouse(s scanner) (domain.Warehouse, error) {
	var w domain.Warehouse
	err := s.Scan(&w.ID, &w.Name, &w.IsDefault, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
