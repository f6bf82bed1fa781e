package stockservice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"varistock/internal/domain"
	"varistock/internal/service/stockservice"
)

const (
	whDefault = "wh-padrao"
	whBranch  = "wh-filial"
)

func entity(stock int, inv ...domain.WarehouseAllocation) domain.StockableEntity {
	return domain.StockableEntity{Ref: domain.EntityRef{ProductID: "p1"}, Stock: stock, Inventory: inv}
}

func TestAvailableStock_ImplicitDefaultAllocation(t *testing.T) {
	e := entity(12)

	assert.Equal(t, 12, stockservice.AvailableStock(e, whDefault, whDefault))
	assert.Equal(t, 0, stockservice.AvailableStock(e, whBranch, whDefault))
	assert.Equal(t, 0, stockservice.AvailableStock(e, whDefault, ""))
}

func TestAvailableStock_ExplicitRecordWins(t *testing.T) {
	e := entity(12,
		domain.WarehouseAllocation{WarehouseID: whBranch, Quantity: 12},
		domain.WarehouseAllocation{WarehouseID: whDefault, Quantity: 0},
	)

	assert.Equal(t, 0, stockservice.AvailableStock(e, whDefault, whDefault))
	assert.Equal(t, 12, stockservice.AvailableStock(e, whBranch, whDefault))
}

// Materializar duas vezes dá o mesmo resultado que materializar uma vez.
func TestMaterializeDefault_Idempotent(t *testing.T) {
	e := entity(7, domain.WarehouseAllocation{WarehouseID: whBranch, Quantity: 0})

	once := stockservice.MaterializeDefault(e, whDefault)
	twice := stockservice.MaterializeDefault(once, whDefault)

	assert.Equal(t, once, twice)
	assert.Equal(t, []domain.WarehouseAllocation{
		{WarehouseID: whBranch, Quantity: 0},
		{WarehouseID: whDefault, Quantity: 7},
	}, once.Inventory)
	assert.Len(t, e.Inventory, 1, "a entrada não deve ser alterada")
}

func TestAdjust_CreatesOrUpdatesRecord(t *testing.T) {
	e := entity(5, domain.WarehouseAllocation{WarehouseID: whDefault, Quantity: 5})

	e = stockservice.Adjust(e, whDefault, -2)
	e = stockservice.Adjust(e, whBranch, 2)

	assert.Equal(t, []domain.WarehouseAllocation{
		{WarehouseID: whDefault, Quantity: 3},
		{WarehouseID: whBranch, Quantity: 2},
	}, e.Inventory)
}

func TestVerifyAllocation(t *testing.T) {
	tests := []struct {
		name    string
		entity  domain.StockableEntity
		wantErr bool
	}{
		{"implícita fecha", entity(9), false},
		{"explícita fecha", entity(9,
			domain.WarehouseAllocation{WarehouseID: whBranch, Quantity: 4},
			domain.WarehouseAllocation{WarehouseID: whDefault, Quantity: 5},
		), false},
		{"filial sem padrão soma em dobro", entity(9,
			domain.WarehouseAllocation{WarehouseID: whBranch, Quantity: 9},
		), true},
		{"negativa", entity(0,
			domain.WarehouseAllocation{WarehouseID: whBranch, Quantity: -1},
			domain.WarehouseAllocation{WarehouseID: whDefault, Quantity: 1},
		), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := stockservice.VerifyAllocation(tt.entity, whDefault)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
