package transferrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/database"
	"varistock/internal/pkg/logger"
	"varistock/internal/repository/productrepo"
)

// TransferRepository é o Transfer Ledger Store. Só expõe inserção e leitura; a tabela rejeita UPDATE e DELETE.
type TransferRepository struct {
	DB        *sql.DB
	Products  *productrepo.ProductRepository
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewTransferRepository cria e retorna uma nova instância do Repositório de Transferências.
func NewTransferRepository(db *sql.DB, products *productrepo.ProductRepository, dbTimeout time.Duration, logger logger.Logger) *TransferRepository {
	return &TransferRepository{
		DB:        db,
		Products:  products,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// FindEntity delega ao catálogo de produtos.
func (r *TransferRepository) FindEntity(ctx context.Context, ref domain.EntityRef) (domain.StockableEntity, error) {
	return r.Products.FindEntity(ctx, ref)
}

// ApplyTransfer grava o inventário da entidade (com OCC) e insere o registro no histórico na mesma transação.
func (r *TransferRepository) ApplyTransfer(ctx context.Context, entity domain.StockableEntity, record domain.TransferRecord) (domain.TransferRecord, error) {
	r.logger.Debug("Iniciando ApplyTransfer no repositório.", map[string]interface{}{
		"transfer_id": record.ID,
		"entity":      entity.Ref.Key(),
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de transferência.", err)
		return domain.TransferRecord{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	// 1. Inventário (OCC na versão da entidade)
	if _, err := r.Products.SaveEntityTx(ctxTimeout, tx, entity); err != nil {
		return domain.TransferRecord{}, err
	}

	// 2. Registro no histórico
	const insertSQL = `
        INSERT INTO transfers (id, created_at, product_id, product_name, variant_id, from_warehouse_id, to_warehouse_id, quantity, notes, transferred_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.ExecContext(ctxTimeout, insertSQL,
		record.ID, record.Timestamp, record.ProductID, record.ProductName, record.VariantID,
		record.FromWarehouseID, record.ToWarehouseID, record.Quantity, record.Notes, record.TransferredBy,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return domain.TransferRecord{}, apperror.NewConflictError(fmt.Sprintf("Transferência %s já registrada.", record.ID))
		case database.IsCheckViolation(err):
			return domain.TransferRecord{}, apperror.NewValidationError("Registro de transferência inválido.")
		}
		r.logger.Error("Falha ao inserir registro de transferência.", err)
		return domain.TransferRecord{}, apperror.NewDBError("Falha ao registrar transferência", err)
	}

	// 3. Commit: inventário e histórico ficam visíveis juntos
	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de transferência.", err)
		return domain.TransferRecord{}, apperror.NewDBError("Falha ao commitar transação", err)
	}
	r.Products.Invalidate(ctx, entity.Ref.ProductID)

	r.logger.Info("Transferência registrada com sucesso.", map[string]interface{}{"transfer_id": record.ID})
	return record, nil
}

// ListTransfers consulta o histórico, mais recentes primeiro.
func (r *TransferRepository) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.TransferRecord, error) {
	r.logger.Debug("Iniciando ListTransfers no repositório.", map[string]interface{}{
		"product_id":   filter.ProductID,
		"variant_id":   filter.VariantID,
		"warehouse_id": filter.WarehouseID,
		"limit":        filter.Limit,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.VariantID != "" {
		args = append(args, filter.VariantID)
		where = append(where, fmt.Sprintf("variant_id = $%d", len(args)))
	}
	if filter.WarehouseID != "" {
		args = append(args, filter.WarehouseID)
		where = append(where, fmt.Sprintf("(from_warehouse_id = $%d OR to_warehouse_id = $%d)", len(args), len(args)))
	}

	query := selectTransfers
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao executar ListTransfers query.", err)
		return nil, apperror.NewDBError("Falha ao listar transferências", err)
	}
	defer rows.Close()

	records := []domain.TransferRecord{}
	for rows.Next() {
		rec, err := scanTransfer(rows)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao mapear transferência do DB", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de transferências", err)
	}
	return records, nil
}

// FindTransferByID busca um registro do histórico.
func (r *TransferRepository) FindTransferByID(ctx context.Context, id string) (domain.TransferRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rec, err := scanTransfer(r.DB.QueryRowContext(ctxTimeout, selectTransfers+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TransferRecord{}, apperror.NewNotFoundError(fmt.Sprintf("Transferência com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar transferência no DB.", err)
		return domain.TransferRecord{}, apperror.NewDBError("Falha ao buscar transferência", err)
	}
	return rec, nil
}

const selectTransfers = `
    SELECT id, created_at, product_id, product_name, variant_id, from_warehouse_id, to_warehouse_id, quantity, notes, transferred_by
    FROM transfers`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(s scanner) (domain.TransferRecord, error) {
	var rec domain.TransferRecord
	err := s.Scan(
		&rec.ID, &rec.Timestamp, &rec.ProductID, &rec.ProductName, &rec.VariantID,
		&rec.FromWarehouseID, &rec.ToWarehouseID, &rec.Quantity, &rec.Notes, &rec.TransferredBy,
	)
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, err
}
