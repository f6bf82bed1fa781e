package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/cache"
	"varistock/internal/pkg/database"
	"varistock/internal/pkg/logger"
)

// queryer é satisfeito por *sql.DB e *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// execer é satisfeito por *sql.DB e *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ProductRepository é o Product Catalog Store sobre PostgreSQL, com leitura cache-aside no Redis.
type ProductRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório de Produtos.
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

const productCacheKey = "product:%s"

// CacheKey é a chave de cache de um produto. Repositórios que alteram inventário a usam para invalidar.
func CacheKey(productID string) string {
	return fmt.Sprintf(productCacheKey, productID)
}

// Save persiste um novo Produto, suas Variantes e alocações numa transação.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	r.logger.Debug("Iniciando Save de produto no repositório.", map[string]interface{}{"id": product.ID, "sku": product.SKU})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Product{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	product.Version = 1
	for i := range product.Variants {
		product.Variants[i].ProductID = product.ID
		product.Variants[i].Version = 1
	}

	attrs, err := json.Marshal(nonNilSelections(product.Attributes))
	if err != nil {
		return domain.Product{}, apperror.NewInternalError("Falha ao serializar atributos do produto.", err)
	}

	const productSQL = `
        INSERT INTO products (id, sku, name, description, price, sale_price, stock, is_active, attributes, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.ExecContext(ctxTimeout, productSQL,
		product.ID, product.SKU, product.Name, product.Description,
		product.Price, product.SalePrice, product.Stock, product.IsActive,
		attrs, product.Version, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			r.logger.Warn("SKU ou ID de produto duplicado.", map[string]interface{}{"id": product.ID, "sku": product.SKU})
			return domain.Product{}, apperror.NewConflictError(fmt.Sprintf("O SKU '%s' já está em uso.", product.SKU))
		}
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao inserir produto", err)
	}

	if err := r.writeChildren(ctxTimeout, tx, product); err != nil {
		return domain.Product{}, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de produto.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Produto salvo com sucesso.", map[string]interface{}{"id": product.ID, "variants": len(product.Variants)})
	return product, nil
}

// FindByID busca um produto pelo ID usando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := CacheKey(id)

	cached, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		var product domain.Product
		if json.Unmarshal([]byte(cached), &product) == nil {
			r.logger.Debug("Produto servido do cache.", map[string]interface{}{"id": id})
			return product, nil
		}
		r.logger.Warn("Entrada de cache de produto corrompida; lendo do DB.", map[string]interface{}{"id": id})
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"id": id, "error": err.Error()})
	}

	product, err := r.load(ctxTimeout, r.DB, id, false)
	if err != nil {
		return domain.Product{}, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := r.Cache.Set(ctxTimeout, key, data, r.CacheTTL); err != nil {
			r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"id": id, "error": err.Error()})
		}
	}
	return product, nil
}

// FindAll lista produtos paginados, na ordem de criação.
func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.logger.Debug("Iniciando FindAll de produtos no repositório.", map[string]interface{}{"page": filter.Page, "limit": filter.Limit})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.SKU != "" {
		args = append(args, filter.SKU)
		where = append(where, fmt.Sprintf("sku = $%d", len(args)))
	}

	query := "SELECT id FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao executar FindAll de produtos.", err)
		return nil, apperror.NewDBError("Falha ao listar produtos", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apperror.NewDBError("Falha ao mapear produtos do DB", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de produtos", err)
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, err := r.load(ctxTimeout, r.DB, id, false)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Update substitui o produto inteiro (seleções, variantes e alocações) com controle otimista de versão.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	r.logger.Debug("Iniciando Update de produto no repositório.", map[string]interface{}{"id": product.ID, "version": product.Version})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Product{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	current, err := r.load(ctxTimeout, tx, product.ID, true)
	if err != nil {
		return domain.Product{}, err
	}
	if current.Version != product.Version {
		r.logger.Warn("Falha no controle de concorrência otimista (OCC) do produto.", map[string]interface{}{
			"id":               product.ID,
			"expected_version": product.Version,
			"current_version":  current.Version,
		})
		return domain.Product{}, apperror.NewConflictError("O produto foi modificado por outra operação. Tente novamente.")
	}

	previous := make(map[string]int, len(current.Variants))
	for _, v := range current.Variants {
		previous[v.ID] = v.Version
	}
	for i := range product.Variants {
		product.Variants[i].ProductID = product.ID
		product.Variants[i].Version = previous[product.Variants[i].ID] + 1
	}
	product.Version = current.Version + 1
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()

	attrs, err := json.Marshal(nonNilSelections(product.Attributes))
	if err != nil {
		return domain.Product{}, apperror.NewInternalError("Falha ao serializar atributos do produto.", err)
	}

	const updateSQL = `
        UPDATE products
        SET sku = $1, name = $2, description = $3, price = $4, sale_price = $5, stock = $6,
            is_active = $7, attributes = $8, version = $9, updated_at = $10
        WHERE id = $11`

	_, err = tx.ExecContext(ctxTimeout, updateSQL,
		product.SKU, product.Name, product.Description, product.Price, product.SalePrice, product.Stock,
		product.IsActive, attrs, product.Version, product.UpdatedAt, product.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.Product{}, apperror.NewConflictError(fmt.Sprintf("O SKU '%s' já está em uso.", product.SKU))
		}
		r.logger.Error("Falha ao atualizar produto no DB.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao atualizar produto", err)
	}

	// Variantes e alocações são regravadas por inteiro.
	if _, err := tx.ExecContext(ctxTimeout, `DELETE FROM inventory_allocations WHERE product_id = $1`, product.ID); err != nil {
		return domain.Product{}, apperror.NewDBError("Falha ao limpar alocações", err)
	}
	if _, err := tx.ExecContext(ctxTimeout, `DELETE FROM variants WHERE product_id = $1`, product.ID); err != nil {
		return domain.Product{}, apperror.NewDBError("Falha ao limpar variantes", err)
	}
	if err := r.writeChildren(ctxTimeout, tx, product); err != nil {
		return domain.Product{}, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar atualização de produto.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao commitar transação", err)
	}
	r.Invalidate(ctx, product.ID)

	r.logger.Info("Produto atualizado com sucesso.", map[string]interface{}{"id": product.ID, "new_version": product.Version})
	return product, nil
}

// Delete remove o produto. Variantes e alocações caem em cascata; o histórico de transferências permanece.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao deletar produto do DB.", err)
		return apperror.NewDBError("Falha ao deletar produto", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rows == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não encontrado para exclusão.", id))
	}
	r.Invalidate(ctx, id)

	r.logger.Info("Produto deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// FindEntity projeta o produto simples ou a variante como entidade estocável.
// Lê direto do DB: a versão devolvida é a usada no OCC da gravação.
func (r *ProductRepository) FindEntity(ctx context.Context, ref domain.EntityRef) (domain.StockableEntity, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	product, err := r.load(ctxTimeout, r.DB, ref.ProductID, false)
	if err != nil {
		return domain.StockableEntity{}, err
	}
	return resolveEntity(product, ref)
}

// SaveEntity grava estoque e inventário de uma entidade, exigindo a versão lida.
func (r *ProductRepository) SaveEntity(ctx context.Context, entity domain.StockableEntity) (domain.StockableEntity, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.StockableEntity{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	saved, err := r.SaveEntityTx(ctxTimeout, tx, entity)
	if err != nil {
		return domain.StockableEntity{}, err
	}
	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar gravação de estoque.", err)
		return domain.StockableEntity{}, apperror.NewDBError("Falha ao commitar transação", err)
	}
	r.Invalidate(ctx, entity.Ref.ProductID)
	return saved, nil
}

// SaveEntityTx grava a entidade dentro de uma transação aberta por quem chama.
// Devolve ConflictError se entity.Version não for a versão gravada. O cache não é tocado.
func (r *ProductRepository) SaveEntityTx(ctx context.Context, tx *sql.Tx, entity domain.StockableEntity) (domain.StockableEntity, error) {
	r.logger.Debug("Gravando estoque da entidade.", map[string]interface{}{"entity": entity.Ref.Key(), "version": entity.Version})

	now := time.Now().UTC()
	var (
		result sql.Result
		err    error
	)
	if entity.Ref.VariantID == "" {
		result, err = tx.ExecContext(ctx, `
            UPDATE products SET stock = $1, version = version + 1, updated_at = $2
            WHERE id = $3 AND version = $4`,
			entity.Stock, now, entity.Ref.ProductID, entity.Version)
	} else {
		result, err = tx.ExecContext(ctx, `
            UPDATE variants SET stock = $1, version = version + 1
            WHERE id = $2 AND product_id = $3 AND version = $4`,
			entity.Stock, entity.Ref.VariantID, entity.Ref.ProductID, entity.Version)
	}
	if err != nil {
		if database.IsCheckViolation(err) {
			return domain.StockableEntity{}, apperror.NewValidationError("O estoque não pode ficar negativo.")
		}
		r.logger.Error("Falha ao gravar estoque da entidade.", err)
		return domain.StockableEntity{}, apperror.NewDBError("Falha ao gravar estoque", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.StockableEntity{}, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rows == 0 {
		// Ou a entidade sumiu, ou a versão mudou.
		if _, err := r.findEntityTx(ctx, tx, entity.Ref); err != nil {
			return domain.StockableEntity{}, err
		}
		r.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão do registro desatualizada.", map[string]interface{}{
			"entity":           entity.Ref.Key(),
			"expected_version": entity.Version,
		})
		return domain.StockableEntity{}, apperror.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}

	if entity.Ref.VariantID != "" {
		// Qualquer mutação de variante invalida edições concorrentes do produto.
		if _, err := tx.ExecContext(ctx, `UPDATE products SET version = version + 1, updated_at = $1 WHERE id = $2`, now, entity.Ref.ProductID); err != nil {
			return domain.StockableEntity{}, apperror.NewDBError("Falha ao atualizar versão do produto", err)
		}
	}

	if err := writeInventory(ctx, tx, entity.Ref.ProductID, entity.Ref.VariantID, entity.Inventory, true); err != nil {
		return domain.StockableEntity{}, err
	}

	entity.Version++
	entity.Inventory = domain.CloneAllocations(entity.Inventory)
	return entity, nil
}

// Invalidate descarta o produto do cache. Falhas só são logadas: a entrada expira pelo TTL.
func (r *ProductRepository) Invalidate(ctx context.Context, productIDs ...string) {
	if len(productIDs) == 0 {
		return
	}
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = CacheKey(id)
	}
	if err := r.Cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn("Falha ao invalidar cache de produto.", map[string]interface{}{"ids": productIDs, "error": err.Error()})
	}
}

func (r *ProductRepository) findEntityTx(ctx context.Context, tx *sql.Tx, ref domain.EntityRef) (domain.StockableEntity, error) {
	product, err := r.load(ctx, tx, ref.ProductID, false)
	if err != nil {
		return domain.StockableEntity{}, err
	}
	return resolveEntity(product, ref)
}

func resolveEntity(product domain.Product, ref domain.EntityRef) (domain.StockableEntity, error) {
	if ref.VariantID == "" && product.HasVariants() {
		return domain.StockableEntity{}, apperror.NewValidationError("O produto possui variantes; informe variant_id.")
	}
	entity, ok := product.StockEntity(ref.VariantID)
	if !ok {
		return domain.StockableEntity{}, apperror.NewNotFoundError(fmt.Sprintf("Variante com ID %s não existe no produto %s.", ref.VariantID, ref.ProductID))
	}
	return entity, nil
}

func (r *ProductRepository) writeChildren(ctx context.Context, tx *sql.Tx, product domain.Product) error {
	const variantSQL = `
        INSERT INTO variants (id, product_id, position, name, attributes, price, sale_price, stock, sku, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for i, v := range product.Variants {
		attrs, err := json.Marshal(v.Attributes)
		if err != nil {
			return apperror.NewInternalError("Falha ao serializar atributos da variante.", err)
		}
		_, err = tx.ExecContext(ctx, variantSQL,
			v.ID, product.ID, i, v.Name, attrs, v.Price, v.SalePrice, v.Stock, v.SKU, v.Version,
		)
		if err != nil {
			r.logger.Error("Falha ao inserir variante.", err)
			return apperror.NewDBError("Falha ao inserir variantes", err)
		}
		if err := writeInventory(ctx, tx, product.ID, v.ID, v.Inventory, false); err != nil {
			return err
		}
	}
	return writeInventory(ctx, tx, product.ID, "", product.Inventory, false)
}

// writeInventory grava a lista de alocações na ordem recebida (a coluna seq preserva a ordem).
func writeInventory(ctx context.Context, tx execer, productID, variantID string, inventory []domain.WarehouseAllocation, replace bool) error {
	if replace {
		_, err := tx.ExecContext(ctx, `DELETE FROM inventory_allocations WHERE product_id = $1 AND variant_id = $2`, productID, variantID)
		if err != nil {
			return apperror.NewDBError("Falha ao limpar alocações", err)
		}
	}

	const allocSQL = `
        INSERT INTO inventory_allocations (product_id, variant_id, warehouse_id, quantity)
        VALUES ($1, $2, $3, $4)`

	for _, a := range inventory {
		if _, err := tx.ExecContext(ctx, allocSQL, productID, variantID, a.WarehouseID, a.Quantity); err != nil {
			switch {
			case database.IsForeignKeyViolation(err):
				return apperror.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado.", a.WarehouseID))
			case database.IsCheckViolation(err):
				return apperror.NewValidationError("Alocações não podem ser negativas.")
			case database.IsUniqueViolation(err):
				return apperror.NewValidationError(fmt.Sprintf("Alocação duplicada para o armazém %s.", a.WarehouseID))
			}
			return apperror.NewDBError("Falha ao gravar alocação", err)
		}
	}
	return nil
}

// load monta o produto completo (variantes e alocações). forUpdate bloqueia a linha do produto.
func (r *ProductRepository) load(ctx context.Context, q queryer, id string, forUpdate bool) (domain.Product, error) {
	productSQL := `
        SELECT id, sku, name, description, price, sale_price, stock, is_active, attributes, version, created_at, updated_at
        FROM products
        WHERE id = $1`
	if forUpdate {
		productSQL += " FOR UPDATE"
	}

	var (
		product domain.Product
		attrs   []byte
	)
	err := q.QueryRowContext(ctx, productSQL, id).Scan(
		&product.ID, &product.SKU, &product.Name, &product.Description,
		&product.Price, &product.SalePrice, &product.Stock, &product.IsActive,
		&attrs, &product.Version, &product.CreatedAt, &product.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao buscar produto no DB", err)
	}
	if err := json.Unmarshal(attrs, &product.Attributes); err != nil {
		return domain.Product{}, apperror.NewInternalError("Atributos do produto corrompidos.", err)
	}

	allocations, err := r.loadAllocations(ctx, q, id)
	if err != nil {
		return domain.Product{}, err
	}
	product.Inventory = allocations[""]

	rows, err := q.QueryContext(ctx, `
        SELECT id, name, attributes, price, sale_price, stock, sku, version
        FROM variants
        WHERE product_id = $1
        ORDER BY position`, id)
	if err != nil {
		return domain.Product{}, apperror.NewDBError("Falha ao buscar variantes", err)
	}
	defer rows.Close()

	for rows.Next() {
		v := domain.Variant{ProductID: id}
		var vattrs []byte
		if err := rows.Scan(&v.ID, &v.Name, &vattrs, &v.Price, &v.SalePrice, &v.Stock, &v.SKU, &v.Version); err != nil {
			return domain.Product{}, apperror.NewDBError("Falha ao mapear variante", err)
		}
		if err := json.Unmarshal(vattrs, &v.Attributes); err != nil {
			return domain.Product{}, apperror.NewInternalError("Atributos da variante corrompidos.", err)
		}
		v.Inventory = allocations[v.ID]
		product.Variants = append(product.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return domain.Product{}, apperror.NewDBError("Erro após iteração de variantes", err)
	}
	return product, nil
}

// loadAllocations agrupa as alocações do produto por variant_id ("" para o próprio produto).
func (r *ProductRepository) loadAllocations(ctx context.Context, q queryer, productID string) (map[string][]domain.WarehouseAllocation, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT variant_id, warehouse_id, quantity
        FROM inventory_allocations
        WHERE product_id = $1
        ORDER BY seq`, productID)
	if err != nil {
		return nil, apperror.NewDBError("Falha ao buscar alocações", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.WarehouseAllocation)
	for rows.Next() {
		var (
			variantID string
			a         domain.WarehouseAllocation
		)
		if err := rows.Scan(&variantID, &a.WarehouseID, &a.Quantity); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear alocação", err)
		}
		out[variantID] = append(out[variantID], a)
	}
	return out, rows.Err()
}

func nonNilSelections(s []domain.ProductAttributeSelection) []domain.ProductAttributeSelection {
	if s == nil {
		return []domain.ProductAttributeSelection{}
	}
	return s
}
