package domain

import "time"

// TransferRecord é o registro imutável de uma transferência entre armazéns.
// ProductName/VariantName são snapshots: renomear ou apagar o produto não altera o histórico.
type TransferRecord struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name"`
	VariantID       string    `json:"variant_id,omitempty"`
	FromWarehouseID string    `json:"from_warehouse_id"`
	ToWarehouseID   string    `json:"to_warehouse_id"`
	Quantity        int       `json:"quantity"`
	Notes           string    `json:"notes"`
	TransferredBy   string    `json:"transferred_by,omitempty"`
}

// TransferRequest é o payload de execução de uma transferência.
type TransferRequest struct {
	ProductID       string `json:"product_id"`
	VariantID       string `json:"variant_id,omitempty"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int    `json:"quantity"`
	Notes           string `json:"notes"`
	TransferredBy   string `json:"-"` // preenchido a partir das claims do token
}

// Ref devolve a entidade alvo da transferência.
func (r TransferRequest) Ref() EntityRef {
	return EntityRef{ProductID: r.ProductID, VariantID: r.VariantID}
}

// TransferFilter filtra a consulta ao histórico (mais recentes primeiro).
type TransferFilter struct {
	ProductID   string
	VariantID   string
	WarehouseID string // origem ou destino
	Limit       int
}

// Matches aplica o filtro a um registro.
func (f TransferFilter) Matches(r TransferRecord) bool {
	if f.ProductID != "" && r.ProductID != f.ProductID {
		return false
	}
	if f.VariantID != "" && r.VariantID != f.VariantID {
		return false
	}
	if f.WarehouseID != "" && r.FromWarehouseID != f.WarehouseID && r.ToWarehouseID != f.WarehouseID {
		return false
	}
	return true
}
