package domain

// WarehouseAllocation é a parcela do estoque de uma entidade registrada em um armazém.
type WarehouseAllocation struct {
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
}

// EntityRef identifica a entidade estocável: o produto simples ou uma variante dele.
type EntityRef struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
}

// Key é a chave estável da entidade (usada para locks e cache).
func (r EntityRef) Key() string {
	if r.VariantID == "" {
		return r.ProductID
	}
	return r.ProductID + "/" + r.VariantID
}

// StockableEntity é a visão comum de Product (sem variantes) e Variant para o controle de estoque.
// Invariante em repouso: soma de Inventory (após materializar o armazém padrão) == Stock.
type StockableEntity struct {
	Ref         EntityRef             `json:"ref"`
	ProductName string                `json:"product_name"`
	VariantName string                `json:"variant_name,omitempty"`
	Stock       int                   `json:"stock"`
	Inventory   []WarehouseAllocation `json:"inventory"`
	Version     int                   `json:"version"`
}

// DisplayName é o nome desnormalizado gravado no histórico de transferências.
func (e StockableEntity) DisplayName() string {
	if e.VariantName == "" {
		return e.ProductName
	}
	return e.ProductName + " - " + e.VariantName
}

// CloneAllocations copia a lista para que mutações não vazem entre snapshots.
func CloneAllocations(in []WarehouseAllocation) []WarehouseAllocation {
	if in == nil {
		return nil
	}
	out := make([]WarehouseAllocation, len(in))
	copy(out, in)
	return out
}

// StockAdjustmentRequest é o payload de um ajuste manual (entrada/saída) de estoque em um armazém.
type StockAdjustmentRequest struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	WarehouseID string `json:"warehouse_id"`
	Delta       int    `json:"delta"` // Quantidade a ser adicionada/removida
}

// StockAvailability é a resposta da consulta de disponibilidade em um armazém.
type StockAvailability struct {
	Ref         EntityRef `json:"ref"`
	WarehouseID string    `json:"warehouse_id"`
	Available   int       `json:"available"`
}
