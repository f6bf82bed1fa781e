package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"varistock/internal/domain"
	"varistock/internal/errors"
)

// Save grava um novo produto (com variantes, se houver).
func (s *Store) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	product = cloneProduct(product)
	err := s.update(ctx, func(st *state) error {
		if _, exists := st.products[product.ID]; exists {
			return errors.NewConflictError(fmt.Sprintf("Produto com ID %s já existe.", product.ID))
		}
		for _, p := range st.products {
			if p.SKU == product.SKU {
				return errors.NewConflictError(fmt.Sprintf("O SKU '%s' já está em uso.", product.SKU))
			}
		}
		product.Version = 1
		for i := range product.Variants {
			product.Variants[i].ProductID = product.ID
			product.Variants[i].Version = 1
		}
		st.products[product.ID] = cloneProduct(product)
		st.productOrder = append(st.productOrder, product.ID)
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Debug("Produto gravado em memória.", map[string]interface{}{"id": product.ID})
	return cloneProduct(product), nil
}

// FindByID busca um produto pelo ID.
func (s *Store) FindByID(ctx context.Context, id string) (domain.Product, error) {
	var out domain.Product
	err := s.view(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe.", id))
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

// FindAll lista produtos na ordem de criação, com filtros e paginação.
func (s *Store) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var out []domain.Product
	err := s.view(ctx, func(st *state) error {
		for _, id := range st.productOrder {
			p, ok := st.products[id]
			if !ok {
				continue
			}
			if filter.ActiveOnly && !p.IsActive {
				continue
			}
			if filter.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
				continue
			}
			if filter.SKU != "" && p.SKU != filter.SKU {
				continue
			}
			out = append(out, cloneProduct(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paginate(out, filter.Page, filter.Limit), nil
}

// Update substitui o produto inteiro (seleções e variantes incluídas) com controle otimista de versão.
func (s *Store) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	product = cloneProduct(product)
	var out domain.Product
	err := s.update(ctx, func(st *state) error {
		current, ok := st.products[product.ID]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe.", product.ID))
		}
		if current.Version != product.Version {
			return errors.NewConflictError("O produto foi modificado por outra operação. Tente novamente.")
		}
		for _, p := range st.products {
			if p.ID != product.ID && p.SKU == product.SKU {
				return errors.NewConflictError(fmt.Sprintf("O SKU '%s' já está em uso.", product.SKU))
			}
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
		product.UpdatedAt = s.nowFn()
		st.products[product.ID] = cloneProduct(product)
		out = cloneProduct(product)
		return nil
	})
	return out, err
}

// Delete remove o produto. O histórico de transferências guarda snapshots e não é afetado.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.update(ctx, func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não encontrado para exclusão.", id))
		}
		delete(st.products, id)
		order := st.productOrder[:0]
		for _, pid := range st.productOrder {
			if pid != id {
				order = append(order, pid)
			}
		}
		st.productOrder = order
		return nil
	})
}

// FindEntity projeta o produto simples ou a variante como entidade estocável.
func (s *Store) FindEntity(ctx context.Context, ref domain.EntityRef) (domain.StockableEntity, error) {
	var out domain.StockableEntity
	err := s.view(ctx, func(st *state) error {
		e, err := findEntity(st, ref)
		out = e
		return err
	})
	return out, err
}

// SaveEntity grava estoque e inventário de uma entidade, exigindo a versão lida.
func (s *Store) SaveEntity(ctx context.Context, entity domain.StockableEntity) (domain.StockableEntity, error) {
	var out domain.StockableEntity
	err := s.update(ctx, func(st *state) error {
		saved, err := saveEntity(st, entity, s.nowFn)
		out = saved
		return err
	})
	return out, err
}

func findEntity(st *state, ref domain.EntityRef) (domain.StockableEntity, error) {
	p, ok := st.products[ref.ProductID]
	if !ok {
		return domain.StockableEntity{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe.", ref.ProductID))
	}
	if ref.VariantID == "" && p.HasVariants() {
		return domain.StockableEntity{}, errors.NewValidationError("O produto possui variantes; informe variant_id.")
	}
	e, ok := p.StockEntity(ref.VariantID)
	if !ok {
		return domain.StockableEntity{}, errors.NewNotFoundError(fmt.Sprintf("Variante com ID %s não existe no produto %s.", ref.VariantID, ref.ProductID))
	}
	return e, nil
}

func saveEntity(st *state, entity domain.StockableEntity, now func() time.Time) (domain.StockableEntity, error) {
	current, err := findEntity(st, entity.Ref)
	if err != nil {
		return domain.StockableEntity{}, err
	}
	if current.Version != entity.Version {
		return domain.StockableEntity{}, errors.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}

	entity.Version = current.Version + 1
	p := st.products[entity.Ref.ProductID].WithEntity(entity)
	if entity.Ref.VariantID != "" {
		// Qualquer mutação de variante invalida edições concorrentes do produto.
		p.Version++
	}
	p.UpdatedAt = now()
	st.products[p.ID] = p

	saved, _ := p.StockEntity(entity.Ref.VariantID)
	return saved, nil
}

func paginate(products []domain.Product, page, limit int) []domain.Product {
	if limit <= 0 {
		return products
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(products) {
		return []domain.Product{}
	}
	end := start + limit
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}
