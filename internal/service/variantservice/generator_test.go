package variantservice

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varistock/internal/domain"
)

func multi(id, name string, values ...string) domain.ProductAttributeSelection {
	return domain.ProductAttributeSelection{
		AttributeID: id,
		Name:        name,
		Selection:   domain.NewMultiSelection(domain.OptionDropdown, values...),
	}
}

func names(variants []domain.Variant) []string {
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		out = append(out, v.Name)
	}
	return out
}

func sequentialIDs(t *testing.T) {
	t.Helper()
	n := 0
	prev := newID
	newID = func() string {
		n++
		return fmt.Sprintf("var-%d", n)
	}
	t.Cleanup(func() { newID = prev })
}

func TestGenerate_CartesianProductInSelectionOrder(t *testing.T) {
	selections := []domain.ProductAttributeSelection{
		multi("a", "A", "a1", "a2"),
		multi("b", "B", "b1", "b2", "b3"),
	}

	variants := Generate(selections, Base{SKU: "P", Stock: 12, WarehouseID: "w1"})

	require.Len(t, variants, 6)
	assert.Equal(t, []string{
		"a1 / b1", "a1 / b2", "a1 / b3",
		"a2 / b1", "a2 / b2", "a2 / b3",
	}, names(variants))
	for _, v := range variants {
		assert.Len(t, v.Attributes, 2, "cada variante tem exatamente um valor por dimensão ativa")
	}
	assert.Equal(t, map[string]string{"A": "a2", "B": "b3"}, variants[5].Attributes)
}

func TestGenerate_FloorDivisionLosesRemainder(t *testing.T) {
	selections := []domain.ProductAttributeSelection{multi("a", "A", "x", "y", "z")}

	variants := Generate(selections, Base{Stock: 10, WarehouseID: "w1"})

	total := 0
	for _, v := range variants {
		assert.Equal(t, 3, v.Stock)
		assert.Equal(t, []domain.WarehouseAllocation{{WarehouseID: "w1", Quantity: 3}}, v.Inventory)
		total += v.Stock
	}
	assert.Equal(t, 9, total)
}

func TestGenerate_NoActiveSelections(t *testing.T) {
	variants := Generate([]domain.ProductAttributeSelection{multi("a", "A")}, Base{Stock: 5})

	assert.NotNil(t, variants)
	assert.Empty(t, variants)
}

func TestGenerate_CopiesBaseAndFreshIDs(t *testing.T) {
	sequentialIDs(t)
	price := decimal.RequireFromString("49.90")

	variants := Generate([]domain.ProductAttributeSelection{multi("c", "Cor", "Vermelho", "Azul")}, Base{
		ProductID: "p1",
		Price:     price,
		SKU:       "CAM",
		Stock:     4,
	})

	require.Len(t, variants, 2)
	assert.Equal(t, "var-1", variants[0].ID)
	assert.Equal(t, "var-2", variants[1].ID)
	assert.True(t, price.Equal(variants[0].Price))
	assert.Equal(t, "p1", variants[0].ProductID)
	assert.Equal(t, "CAM-VE", variants[0].SKU)
	assert.Nil(t, variants[0].Inventory, "sem armazém, nenhuma alocação é criada")
}

func TestSKU(t *testing.T) {
	assert.Equal(t, "CAM-VE-M", SKU("CAM", []string{"vermelho", "m"}))
	assert.Equal(t, "AZ-GG", SKU("", []string{"Azul", "GG"}))
	assert.Equal(t, "CAM-ÇÃ", SKU("CAM", []string{"ção"}))
}

func TestPruneOrRegenerate_FullClearFallsBackToRemaining(t *testing.T) {
	sequentialIDs(t)
	base := Base{Stock: 6, WarehouseID: "w1"}
	before := []domain.ProductAttributeSelection{
		multi("a", "A", "a1", "a2"),
		multi("b", "B", "b1", "b2"),
	}
	current := Generate(before, base)

	// B ficou vazio depois da remoção.
	after := []domain.ProductAttributeSelection{multi("a", "A", "a1", "a2"), multi("b", "B")}
	got := PruneOrRegenerate(after, "b", []string{"b1", "b2"}, current, base)

	onlyA := Generate([]domain.ProductAttributeSelection{multi("a", "A", "a1", "a2")}, base)
	assert.Equal(t, names(onlyA), names(got))
	for i := range got {
		assert.Equal(t, onlyA[i].Attributes, got[i].Attributes)
		assert.Equal(t, onlyA[i].Stock, got[i].Stock)
	}
}

func TestPruneOrRegenerate_PartialPrunePreservesEdits(t *testing.T) {
	base := Base{Stock: 10, WarehouseID: "w1"}
	current := Generate([]domain.ProductAttributeSelection{multi("a", "A", "a1", "a2")}, base)
	edited := decimal.RequireFromString("9.99")
	current[0].Price = edited

	got := PruneOrRegenerate([]domain.ProductAttributeSelection{multi("a", "A", "a1")}, "a", []string{"a2"}, current, base)

	require.Len(t, got, 1)
	assert.Equal(t, current[0].ID, got[0].ID)
	assert.Equal(t, "a1", got[0].Name)
	assert.True(t, edited.Equal(got[0].Price))
}

func TestOnAttributeDeactivated_AlwaysRecomputes(t *testing.T) {
	base := Base{Stock: 8, WarehouseID: "w1"}
	selections := []domain.ProductAttributeSelection{
		multi("a", "A", "a1", "a2"),
		multi("b", "B", "b1", "b2"),
	}

	got := OnAttributeDeactivated("a", selections, base)

	assert.Equal(t, []string{"b1", "b2"}, names(got))
	assert.Equal(t, 4, got[0].Stock)
	assert.Len(t, selections, 2, "as seleções de entrada não são alteradas")
}

func TestCheckSelections(t *testing.T) {
	ok := []domain.ProductAttributeSelection{
		multi("a", "Cor", "x", "y"),
		multi("b", "Tamanho", "P", "M", "G"),
		multi("c", "Material"), // inativa: não conta na multiplicação
	}
	assert.NoError(t, CheckSelections(ok))

	assert.Error(t, CheckSelections([]domain.ProductAttributeSelection{
		multi("a", "Cor", "x", "y"),
		multi("b", "Cor", "p", "q"),
	}))

	big := make([]string, MaxVariants+1)
	for i := range big {
		big[i] = fmt.Sprintf("v%d", i)
	}
	assert.Error(t, CheckSelections([]domain.ProductAttributeSelection{multi("a", "Código", big...)}))
}
