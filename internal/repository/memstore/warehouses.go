package memstore

import (
	"context"
	"fmt"
	"sort"

	"varistock/internal/domain"
	"varistock/internal/errors"
)

// CreateWarehouse insere um novo armazém. O primeiro armazém cadastrado vira o padrão.
func (s *Store) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	err := s.update(ctx, func(st *state) error {
		if warehouse.ID == "" {
			warehouse.ID = s.newID()
		}
		if _, exists := st.warehouses[warehouse.ID]; exists {
			return errors.NewConflictError(fmt.Sprintf("Armazém com ID %s já existe.", warehouse.ID))
		}
		now := s.nowFn()
		warehouse.CreatedAt = now
		warehouse.UpdatedAt = now
		warehouse.IsDefault = len(st.warehouses) == 0
		st.warehouses[warehouse.ID] = warehouse
		return nil
	})
	if err != nil {
		return domain.Warehouse{}, err
	}
	return warehouse, nil
}

// GetWarehouseByID busca um armazém pelo ID.
func (s *Store) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	var out domain.Warehouse
	err := s.view(ctx, func(st *state) error {
		w, ok := st.warehouses[id]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado.", id))
		}
		out = w
		return nil
	})
	return out, err
}

// GetAllWarehouses lista os armazéns ordenados por nome.
func (s *Store) GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	var out []domain.Warehouse
	err := s.view(ctx, func(st *state) error {
		for _, w := range st.warehouses {
			out = append(out, w)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// UpdateWarehouse renomeia um armazém. O flag de padrão só muda via SetDefaultWarehouse.
func (s *Store) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	var out domain.Warehouse
	err := s.update(ctx, func(st *state) error {
		current, ok := st.warehouses[warehouse.ID]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado para atualização.", warehouse.ID))
		}
		current.Name = warehouse.Name
		current.UpdatedAt = s.nowFn()
		st.warehouses[current.ID] = current
		out = current
		return nil
	})
	return out, err
}

// DeleteWarehouse remove um armazém que não seja o padrão nem guarde estoque.
func (s *Store) DeleteWarehouse(ctx context.Context, id string) error {
	return s.update(ctx, func(st *state) error {
		w, ok := st.warehouses[id]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado para exclusão.", id))
		}
		if w.IsDefault {
			return errors.NewConflictError("O armazém padrão não pode ser excluído.")
		}
		for _, p := range st.products {
			if holdsStock(p, id) {
				return errors.NewConflictError(fmt.Sprintf("O armazém %s ainda possui estoque alocado.", w.Name))
			}
		}
		for pid, p := range st.products {
			st.products[pid] = dropZeroAllocations(p, id)
		}
		delete(st.warehouses, id)
		return nil
	})
}

// DefaultWarehouse devolve o armazém marcado como padrão.
func (s *Store) DefaultWarehouse(ctx context.Context) (domain.Warehouse, error) {
	var out domain.Warehouse
	err := s.view(ctx, func(st *state) error {
		for _, w := range st.warehouses {
			if w.IsDefault {
				out = w
				return nil
			}
		}
		return errors.NewNotFoundError("Nenhum armazém padrão configurado.")
	})
	return out, err
}

// SetDefaultWarehouse troca o armazém padrão mantendo exatamente um marcado.
// Antes da troca, a alocação implícita do padrão antigo é gravada explicitamente e o novo padrão
// recebe um registro zerado, para que nenhuma entidade mude de distribuição com a troca.
func (s *Store) SetDefaultWarehouse(ctx context.Context, id string) (domain.Warehouse, error) {
	var out domain.Warehouse
	err := s.update(ctx, func(st *state) error {
		target, ok := st.warehouses[id]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado.", id))
		}
		if target.IsDefault {
			out = target
			return nil
		}

		oldDefault := ""
		for wid, w := range st.warehouses {
			if w.IsDefault {
				oldDefault = wid
				w.IsDefault = false
				w.UpdatedAt = s.nowFn()
				st.warehouses[wid] = w
			}
		}
		for pid, p := range st.products {
			st.products[pid] = pinDefaults(p, oldDefault, id)
		}

		target.IsDefault = true
		target.UpdatedAt = s.nowFn()
		st.warehouses[id] = target
		out = target
		return nil
	})
	return out, err
}

// pinDefaults grava explicitamente a alocação implícita do padrão antigo e um registro zerado no novo.
// Entidades alteradas têm a versão incrementada, invalidando leituras em andamento.
func pinDefaults(p domain.Product, oldDefault, newDefault string) domain.Product {
	changed := false
	pin := func(stock int, inv []domain.WarehouseAllocation) ([]domain.WarehouseAllocation, bool) {
		n := len(inv)
		if oldDefault != "" && !hasAllocation(inv, oldDefault) {
			inv = append(inv, domain.WarehouseAllocation{WarehouseID: oldDefault, Quantity: stock})
		}
		if !hasAllocation(inv, newDefault) {
			inv = append(inv, domain.WarehouseAllocation{WarehouseID: newDefault, Quantity: 0})
		}
		return inv, len(inv) != n
	}

	// O inventário do próprio produto é fixado mesmo com variantes: volta a valer
	// se o último atributo for desativado.
	p.Inventory, changed = pin(p.Stock, p.Inventory)
	for i := range p.Variants {
		var pinned bool
		p.Variants[i].Inventory, pinned = pin(p.Variants[i].Stock, p.Variants[i].Inventory)
		if pinned {
			p.Variants[i].Version++
			changed = true
		}
	}
	if changed {
		p.Version++
	}
	return p
}

func dropZeroAllocations(p domain.Product, warehouseID string) domain.Product {
	drop := func(inv []domain.WarehouseAllocation) []domain.WarehouseAllocation {
		out := inv[:0]
		for _, a := range inv {
			if a.WarehouseID == warehouseID && a.Quantity == 0 {
				continue
			}
			out = append(out, a)
		}
		return out
	}
	p.Inventory = drop(p.Inventory)
	for i := range p.Variants {
		p.Variants[i].Inventory = drop(p.Variants[i].Inventory)
	}
	return p
}

func holdsStock(p domain.Product, warehouseID string) bool {
	check := func(inv []domain.WarehouseAllocation) bool {
		for _, a := range inv {
			if a.WarehouseID == warehouseID && a.Quantity != 0 {
				return true
			}
		}
		return false
	}
	if check(p.Inventory) {
		return true
	}
	for _, v := range p.Variants {
		if check(v.Inventory) {
			return true
		}
	}
	return false
}

func hasAllocation(inv []domain.WarehouseAllocation, warehouseID string) bool {
	for _, a := range inv {
		if a.WarehouseID == warehouseID {
			return true
		}
	}
	return false
}
