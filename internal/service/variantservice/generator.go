package variantservice

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
)

// NameSeparator une os valores no nome derivado da variante ("Vermelho / M").
const NameSeparator = " / "

// SKUSeparator une o SKU base aos códigos dos valores ("CAM-VE-M").
const SKUSeparator = "-"

// MaxVariants limita o produto cartesiano de um produto (ou de uma pré-visualização).
const MaxVariants = 1000

// MaxAllowedValues limita a lista de valores de um atributo do catálogo.
const MaxAllowedValues = 200

// newID gera o ID de cada variante; substituível em testes.
var newID = func() string { return uuid.New().String() }

// Base são os campos do produto copiados para cada variante gerada.
// Valores não numéricos do formulário devem chegar aqui já normalizados para zero.
type Base struct {
	ProductID   string          `json:"product_id"`
	Price       decimal.Decimal `json:"price"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	Stock       int             `json:"stock"`
	SKU         string          `json:"sku"`
	WarehouseID string          `json:"warehouse_id"`
}

// Generate transforma as seleções ativas no produto cartesiano de variantes.
// Seleções sem valores são ignoradas; sem nenhuma ativa o resultado é vazio e o produto volta a ser simples.
// O estoque é dividido por piso: o resto da divisão não é atribuído a nenhuma variante.
func Generate(selections []domain.ProductAttributeSelection, base Base) []domain.Variant {
	active := activeSelections(selections)
	if len(active) == 0 {
		return []domain.Variant{}
	}

	combos := cartesian(active)
	stock := 0
	if len(combos) > 0 && base.Stock > 0 {
		stock = base.Stock / len(combos)
	}

	variants := make([]domain.Variant, 0, len(combos))
	for _, combo := range combos {
		assignment := make(map[string]string, len(active))
		for i, sel := range active {
			assignment[sel.Name] = combo[i]
		}

		v := domain.Variant{
			ID:         newID(),
			ProductID:  base.ProductID,
			Name:       strings.Join(combo, NameSeparator),
			Attributes: assignment,
			Price:      base.Price,
			SalePrice:  base.SalePrice,
			Stock:      stock,
			SKU:        SKU(base.SKU, combo),
		}
		if base.WarehouseID != "" {
			v.Inventory = []domain.WarehouseAllocation{{WarehouseID: base.WarehouseID, Quantity: stock}}
		}
		variants = append(variants, v)
	}
	return variants
}

// PruneOrRegenerate trata a remoção de valores de um atributo. selections já reflete a remoção.
// Se o atributo ficou sem valores, equivale a desativá-lo: recálculo completo sobre os restantes.
// Caso contrário apenas descarta as variantes com os valores removidos, preservando edições manuais.
func PruneOrRegenerate(
	selections []domain.ProductAttributeSelection,
	removedAttributeID string,
	removedValues []string,
	current []domain.Variant,
	base Base,
) []domain.Variant {
	sel, ok := findSelection(selections, removedAttributeID)
	if !ok || len(sel.Values()) == 0 {
		return Generate(selections, base)
	}

	removed := make(map[string]struct{}, len(removedValues))
	for _, v := range removedValues {
		removed[v] = struct{}{}
	}

	kept := make([]domain.Variant, 0, len(current))
	for _, v := range current {
		if _, drop := removed[v.Attributes[sel.Name]]; drop {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

// CheckSelections confere as seleções antes da geração: cada dimensão aparece uma única vez
// (por ID e por nome) e o número de combinações não passa de MaxVariants.
// A contagem para assim que o limite é ultrapassado, sem montar nenhuma combinação.
func CheckSelections(selections []domain.ProductAttributeSelection) error {
	ids := make(map[string]struct{}, len(selections))
	names := make(map[string]struct{}, len(selections))
	for _, sel := range selections {
		if _, dup := ids[sel.AttributeID]; dup {
			return apperror.NewValidationError(fmt.Sprintf("Atributo %q informado mais de uma vez.", sel.AttributeID))
		}
		ids[sel.AttributeID] = struct{}{}
		if _, dup := names[sel.Name]; dup {
			return apperror.NewValidationError(fmt.Sprintf("Nome de atributo %q informado mais de uma vez.", sel.Name))
		}
		names[sel.Name] = struct{}{}
	}

	combos := 1
	for _, sel := range activeSelections(selections) {
		combos *= len(sel.Values())
		if combos > MaxVariants {
			return apperror.NewValidationError(fmt.Sprintf("A combinação de atributos gera mais de %d variantes.", MaxVariants))
		}
	}
	return nil
}

// OnAttributeDeactivated remove o atributo das seleções e sempre recalcula tudo.
// Edições manuais das variantes anteriores são descartadas.
func OnAttributeDeactivated(attributeID string, selections []domain.ProductAttributeSelection, base Base) []domain.Variant {
	return Generate(WithoutAttribute(selections, attributeID), base)
}

// WithoutAttribute devolve as seleções sem o atributo informado, mantendo a ordem.
func WithoutAttribute(selections []domain.ProductAttributeSelection, attributeID string) []domain.ProductAttributeSelection {
	out := make([]domain.ProductAttributeSelection, 0, len(selections))
	for _, s := range selections {
		if s.AttributeID != attributeID {
			out = append(out, s)
		}
	}
	return out
}

// SKU monta o SKU da variante: base + os dois primeiros caracteres (maiúsculos) de cada valor.
// Sem SKU base, apenas os códigos dos valores são usados.
func SKU(baseSKU string, values []string) string {
	parts := make([]string, 0, len(values)+1)
	if baseSKU != "" {
		parts = append(parts, baseSKU)
	}
	for _, v := range values {
		parts = append(parts, valueCode(v))
	}
	return strings.Join(parts, SKUSeparator)
}

func valueCode(value string) string {
	r := []rune(strings.TrimSpace(value))
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// cartesian dobra iterativamente as dimensões: começa com uma combinação vazia
// e multiplica o acumulado pelos valores de cada dimensão, na ordem de inserção.
func cartesian(active []domain.ProductAttributeSelection) [][]string {
	combos := [][]string{{}}
	for _, sel := range active {
		values := sel.Values()
		next := make([][]string, 0, len(combos)*len(values))
		for _, prefix := range combos {
			for _, v := range values {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		combos = next
	}
	return combos
}

func activeSelections(selections []domain.ProductAttributeSelection) []domain.ProductAttributeSelection {
	active := make([]domain.ProductAttributeSelection, 0, len(selections))
	for _, s := range selections {
		if len(s.Values()) > 0 {
			active = append(active, s)
		}
	}
	return active
}

func findSelection(selections []domain.ProductAttributeSelection, attributeID string) (domain.ProductAttributeSelection, bool) {
	for _, s := range selections {
		if s.AttributeID == attributeID {
			return s, true
		}
	}
	return domain.ProductAttributeSelection{}, false
}
