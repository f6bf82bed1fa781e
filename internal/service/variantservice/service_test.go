package variantservice_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
	"varistock/internal/repository/memstore"
	"varistock/internal/service/variantservice"
)

type fixture struct {
	svc     *variantservice.Service
	store   *memstore.Store
	def     domain.Warehouse
	color   domain.AttributeDefinition
	size    domain.AttributeDefinition
	product domain.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.NewStore(logger.NewNop())
	svc := variantservice.NewService(store, store, store, logger.NewNop())

	def, err := store.CreateWarehouse(ctx, domain.Warehouse{Name: "Armazém Principal"})
	require.NoError(t, err)
	color, err := svc.CreateAttribute(ctx, domain.AttributeDefinition{
		Name:          "Cor",
		AllowedValues: []string{"Vermelho", "Azul", "Verde"},
	})
	require.NoError(t, err)
	size, err := svc.CreateAttribute(ctx, domain.AttributeDefinition{
		Name:          "Tamanho",
		OptionKind:    domain.OptionRadio,
		AllowedValues: []string{"P", "M", "G"},
	})
	require.NoError(t, err)
	product, err := store.Save(ctx, domain.Product{
		ID:       "prod-1",
		SKU:      "CAM",
		Name:     "Camiseta",
		Price:    decimal.NewFromInt(50),
		Stock:    10,
		IsActive: true,
	})
	require.NoError(t, err)

	return fixture{svc: svc, store: store, def: def, color: color, size: size, product: product}
}

func TestSetAttributeValues_GeneratesVariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAttributeValues(ctx, f.product.ID, f.color.ID, []string{"Vermelho", "Azul"})
	require.NoError(t, err)
	product, err := f.svc.SetAttributeValues(ctx, f.product.ID, f.size.ID, []string{"P", "M", "G"})
	require.NoError(t, err)

	require.Len(t, product.Variants, 6)
	assert.Equal(t, "Vermelho / P", product.Variants[0].Name)
	assert.Equal(t, "CAM-VE-P", product.Variants[0].SKU)
	for _, v := range product.Variants {
		assert.Equal(t, 1, v.Stock)
		assert.Equal(t, []domain.WarehouseAllocation{{WarehouseID: f.def.ID, Quantity: 1}}, v.Inventory)
	}
	assert.Equal(t, 3, product.Version)
}

func TestSetAttributeValues_Fail_NotAllowed(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetAttributeValues(context.Background(), f.product.ID, f.color.ID, []string{"Roxo"})

	assert.IsType(t, &apperror.ValidationError{}, err)
	stored, err := f.store.FindByID(context.Background(), f.product.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Attributes)
	assert.Equal(t, 1, stored.Version)
}

func TestSetAttributeValues_Fail_UnknownAttribute(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetAttributeValues(context.Background(), f.product.ID, "attr-inexistente", []string{"x"})

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestRemoveAttributeValues_PrunesAndKeepsEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product, err := f.svc.SetAttributeValues(ctx, f.product.ID, f.color.ID, []string{"Vermelho", "Azul"})
	require.NoError(t, err)

	// Edição manual da variante "Vermelho".
	product.Variants[0].Price = decimal.RequireFromString("9.99")
	product, err = f.store.Update(ctx, product)
	require.NoError(t, err)
	keptID := product.Variants[0].ID

	product, err = f.svc.RemoveAttributeValues(ctx, f.product.ID, f.color.ID, []string{"Azul"})
	require.NoError(t, err)

	require.Len(t, product.Variants, 1)
	assert.Equal(t, keptID, product.Variants[0].ID)
	assert.Equal(t, "9.99", product.Variants[0].Price.StringFixed(2))
	assert.Equal(t, []string{"Vermelho"}, product.Attributes[0].Values())
}

func TestRemoveAttributeValues_EmptiedAttributeIsDeactivated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAttributeValues(ctx, f.product.ID, f.color.ID, []string{"Vermelho"})
	require.NoError(t, err)
	_, err = f.svc.SetAttributeValues(ctx, f.product.ID, f.size.ID, []string{"P", "M"})
	require.NoError(t, err)

	product, err := f.svc.RemoveAttributeValues(ctx, f.product.ID, f.size.ID, []string{"P", "M"})
	require.NoError(t, err)

	require.Len(t, product.Attributes, 1)
	assert.Equal(t, f.color.ID, product.Attributes[0].AttributeID)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, "Vermelho", product.Variants[0].Name)
	assert.Equal(t, 10, product.Variants[0].Stock)
}

func TestDeactivateAttribute_LastOneRevertsToSimpleProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAttributeValues(ctx, f.product.ID, f.color.ID, []string{"Vermelho", "Azul"})
	require.NoError(t, err)

	product, err := f.svc.DeactivateAttribute(ctx, f.product.ID, f.color.ID)
	require.NoError(t, err)

	assert.Empty(t, product.Attributes)
	assert.Empty(t, product.Variants)
	assert.False(t, product.HasVariants())

	_, err = f.svc.DeactivateAttribute(ctx, f.product.ID, f.color.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestPreview_DoesNotPersist(t *testing.T) {
	f := newFixture(t)

	variants, err := f.svc.Preview(variantservice.PreviewRequest{
		Selections: []domain.ProductAttributeSelection{{
			AttributeID: f.color.ID,
			Name:        f.color.Name,
			Selection:   domain.NewMultiSelection(domain.OptionDropdown, "Vermelho", "Azul", "Verde"),
		}},
		Base: variantservice.Base{SKU: "CAM", Stock: 10},
	})
	require.NoError(t, err)

	require.Len(t, variants, 3)
	assert.Equal(t, 3, variants[2].Stock)

	stored, err := f.store.FindByID(context.Background(), f.product.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Variants)
}

func TestPreview_Fail_TooManyCombinations(t *testing.T) {
	f := newFixture(t)

	// 8 dimensões de 10 valores: 10^8 combinações, muito acima do limite.
	selections := make([]domain.ProductAttributeSelection, 0, 8)
	for i := 0; i < 8; i++ {
		values := make([]string, 10)
		for j := range values {
			values[j] = fmt.Sprintf("v%d", j)
		}
		selections = append(selections, domain.ProductAttributeSelection{
			AttributeID: fmt.Sprintf("attr-%d", i),
			Name:        fmt.Sprintf("Dimensão %d", i),
			Selection:   domain.NewMultiSelection(domain.OptionDropdown, values...),
		})
	}

	variants, err := f.svc.Preview(variantservice.PreviewRequest{Selections: selections, Base: variantservice.Base{Stock: 10}})

	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Nil(t, variants)
}

func TestPreview_Fail_DuplicateDimension(t *testing.T) {
	f := newFixture(t)

	cases := map[string][]domain.ProductAttributeSelection{
		"mesmo nome": {
			{AttributeID: "a", Name: "Cor", Selection: domain.NewMultiSelection(domain.OptionDropdown, "x", "y")},
			{AttributeID: "b", Name: "Cor", Selection: domain.NewMultiSelection(domain.OptionDropdown, "p", "q")},
		},
		"mesmo id": {
			{AttributeID: "a", Name: "Cor", Selection: domain.NewMultiSelection(domain.OptionDropdown, "x", "y")},
			{AttributeID: "a", Name: "Tamanho", Selection: domain.NewMultiSelection(domain.OptionDropdown, "P")},
		},
	}
	for name, selections := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Preview(variantservice.PreviewRequest{Selections: selections})
			assert.IsType(t, &apperror.ValidationError{}, err)
		})
	}
}

func TestSetAttributeValues_Fail_TooManyCombinations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wide := func(name string) domain.AttributeDefinition {
		values := make([]string, 40)
		for i := range values {
			values[i] = fmt.Sprintf("%s-%02d", name, i)
		}
		def, err := f.svc.CreateAttribute(ctx, domain.AttributeDefinition{Name: name, AllowedValues: values})
		require.NoError(t, err)
		return def
	}
	first, second := wide("Estampa"), wide("Acabamento")

	_, err := f.svc.SetAttributeValues(ctx, f.product.ID, first.ID, first.AllowedValues)
	require.NoError(t, err)

	// 40 x 40 = 1600 variantes.
	_, err = f.svc.SetAttributeValues(ctx, f.product.ID, second.ID, second.AllowedValues)
	assert.IsType(t, &apperror.ValidationError{}, err)

	stored, err := f.store.FindByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Variants, 40)
	assert.Len(t, stored.Attributes, 1)
}

func TestCreateAttribute_Fail_TooManyValues(t *testing.T) {
	f := newFixture(t)

	values := make([]string, variantservice.MaxAllowedValues+1)
	for i := range values {
		values[i] = fmt.Sprintf("valor-%d", i)
	}
	_, err := f.svc.CreateAttribute(context.Background(), domain.AttributeDefinition{Name: "Pantone", AllowedValues: values})

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestCreateAttribute_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAttribute(ctx, domain.AttributeDefinition{Name: "Material"})
	assert.IsType(t, &apperror.ValidationError{}, err, "dropdown sem valores")

	_, err = f.svc.CreateAttribute(ctx, domain.AttributeDefinition{Name: "Peso", OptionKind: "slider"})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = f.svc.CreateAttribute(ctx, domain.AttributeDefinition{Name: "Cor", AllowedValues: []string{"Preto"}})
	var conflict *apperror.ConflictError
	assert.True(t, errors.As(err, &conflict))

	text, err := f.svc.CreateAttribute(ctx, domain.AttributeDefinition{Name: "Gravação", OptionKind: domain.OptionText, AllowedValues: []string{"ignorado"}})
	require.NoError(t, err)
	assert.Empty(t, text.AllowedValues)
	assert.Equal(t, "Gravação", text.DisplayName)

	all, err := f.svc.ListAttributes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
