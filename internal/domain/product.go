package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa o item principal do catálogo.
// Sem variantes, o próprio produto é a entidade estocável; com variantes, o estoque vive em cada Variant.
type Product struct {
	ID          string                `json:"id"`
	SKU         string                `json:"sku"` // Stock Keeping Unit (código base das variantes)
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Price       decimal.Decimal       `json:"price"`
	SalePrice   decimal.Decimal       `json:"sale_price"`
	Stock       int                   `json:"stock"`
	Inventory   []WarehouseAllocation `json:"inventory"`
	IsActive    bool                  `json:"is_active"`
	Version     int                   `json:"version"` // Para Controle de Concorrência Otimista (OCC)
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`

	Attributes []ProductAttributeSelection `json:"attributes"`
	Variants   []Variant                   `json:"variants"`
}

// Variant é uma combinação vendável com exatamente um valor por dimensão ativa (ex: "Vermelho / M").
type Variant struct {
	ID         string                `json:"id"`
	ProductID  string                `json:"product_id"`
	Name       string                `json:"name"`
	Attributes map[string]string     `json:"attributes"` // nome do atributo -> valor escolhido
	Price      decimal.Decimal       `json:"price"`
	SalePrice  decimal.Decimal       `json:"sale_price"`
	Stock      int                   `json:"stock"`
	SKU        string                `json:"sku"`
	Inventory  []WarehouseAllocation `json:"inventory"`
	Version    int                   `json:"version"`
}

// HasVariants indica se o estoque do produto é controlado pelas variantes.
func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// FindVariant busca uma variante pelo ID.
func (p Product) FindVariant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// StockEntity projeta o produto (ou uma de suas variantes) como entidade estocável.
func (p Product) StockEntity(variantID string) (StockableEntity, bool) {
	if variantID == "" {
		return StockableEntity{
			Ref:         EntityRef{ProductID: p.ID},
			ProductName: p.Name,
			Stock:       p.Stock,
			Inventory:   CloneAllocations(p.Inventory),
			Version:     p.Version,
		}, true
	}

	v, ok := p.FindVariant(variantID)
	if !ok {
		return StockableEntity{}, false
	}
	return StockableEntity{
		Ref:         EntityRef{ProductID: p.ID, VariantID: v.ID},
		ProductName: p.Name,
		VariantName: v.Name,
		Stock:       v.Stock,
		Inventory:   CloneAllocations(v.Inventory),
		Version:     v.Version,
	}, true
}

// WithEntity devolve uma cópia do produto com o estoque/inventário da entidade aplicado.
func (p Product) WithEntity(e StockableEntity) Product {
	if e.Ref.VariantID == "" {
		p.Stock = e.Stock
		p.Inventory = CloneAllocations(e.Inventory)
		p.Version = e.Version
		return p
	}

	variants := make([]Variant, len(p.Variants))
	copy(variants, p.Variants)
	for i := range variants {
		if variants[i].ID == e.Ref.VariantID {
			variants[i].Stock = e.Stock
			variants[i].Inventory = CloneAllocations(e.Inventory)
			variants[i].Version = e.Version
		}
	}
	p.Variants = variants
	return p
}

// ProductFilter define os parâmetros de busca e paginação.
type ProductFilter struct {
	Page       int
	Limit      int
	Name       string
	SKU        string
	ActiveOnly bool
}
