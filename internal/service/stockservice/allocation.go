package stockservice

import (
	"fmt"

	"varistock/internal/domain"
)

// AvailableStock devolve a quantidade da entidade em um armazém.
// Sem registro explícito, o armazém padrão recebe todo o estoque (alocação implícita legada).
func AvailableStock(e domain.StockableEntity, warehouseID, defaultWarehouseID string) int {
	if i := indexOf(e.Inventory, warehouseID); i >= 0 {
		return e.Inventory[i].Quantity
	}
	if warehouseID != "" && warehouseID == defaultWarehouseID {
		return e.Stock
	}
	return 0
}

// MaterializeDefault grava explicitamente a alocação implícita do armazém padrão. Idempotente.
// Deve rodar antes de qualquer mutação que assuma registros explícitos.
func MaterializeDefault(e domain.StockableEntity, defaultWarehouseID string) domain.StockableEntity {
	if defaultWarehouseID == "" || indexOf(e.Inventory, defaultWarehouseID) >= 0 {
		return e
	}
	e.Inventory = append(domain.CloneAllocations(e.Inventory), domain.WarehouseAllocation{
		WarehouseID: defaultWarehouseID,
		Quantity:    e.Stock,
	})
	return e
}

// Adjust soma delta ao registro do armazém (ou cria o registro). Não valida nada:
// quem chama com delta negativo deve conferir AvailableStock antes.
func Adjust(e domain.StockableEntity, warehouseID string, delta int) domain.StockableEntity {
	inv := domain.CloneAllocations(e.Inventory)
	if i := indexOf(inv, warehouseID); i >= 0 {
		inv[i].Quantity += delta
	} else {
		inv = append(inv, domain.WarehouseAllocation{WarehouseID: warehouseID, Quantity: delta})
	}
	e.Inventory = inv
	return e
}

// AllocatedTotal soma as alocações após materializar o armazém padrão.
func AllocatedTotal(e domain.StockableEntity, defaultWarehouseID string) int {
	total := 0
	for _, a := range MaterializeDefault(e, defaultWarehouseID).Inventory {
		total += a.Quantity
	}
	return total
}

// VerifyAllocation confere a invariante em repouso: alocações somam o estoque e nenhuma é negativa.
func VerifyAllocation(e domain.StockableEntity, defaultWarehouseID string) error {
	for _, a := range e.Inventory {
		if a.Quantity < 0 {
			return fmt.Errorf("alocação negativa no armazém %s: %d", a.WarehouseID, a.Quantity)
		}
	}
	if total := AllocatedTotal(e, defaultWarehouseID); total != e.Stock {
		return fmt.Errorf("alocações somam %d, estoque da entidade %s é %d", total, e.Ref.Key(), e.Stock)
	}
	return nil
}

func indexOf(inv []domain.WarehouseAllocation, warehouseID string) int {
	for i, a := range inv {
		if a.WarehouseID == warehouseID {
			return i
		}
	}
	return -1
}
