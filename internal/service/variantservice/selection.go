package variantservice

import (
	"fmt"
	"strings"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
)

// SelectionModel guarda, para o rascunho de um produto, quais atributos estão ativos
// e quais valores estão selecionados em cada um (ordem de ativação preservada).
type SelectionModel struct {
	selections []domain.ProductAttributeSelection
}

// NewSelectionModel parte das seleções já gravadas no produto.
func NewSelectionModel(existing []domain.ProductAttributeSelection) *SelectionModel {
	m := &SelectionModel{}
	m.selections = append(m.selections, existing...)
	return m
}

// Selections devolve uma cópia das seleções atuais.
func (m *SelectionModel) Selections() []domain.ProductAttributeSelection {
	return append([]domain.ProductAttributeSelection(nil), m.selections...)
}

// IsActive informa se o atributo está ativo no produto.
func (m *SelectionModel) IsActive(attributeID string) bool {
	return m.index(attributeID) >= 0
}

// Activate ativa o atributo com seleção vazia. Ativar de novo é no-op.
func (m *SelectionModel) Activate(def domain.AttributeDefinition) {
	if m.IsActive(def.ID) {
		return
	}
	m.selections = append(m.selections, domain.ProductAttributeSelection{
		AttributeID: def.ID,
		Name:        def.Name,
		Selection:   domain.EmptySelection(def.OptionKind),
	})
}

// SetValues substitui os valores do atributo (ativando-o se necessário).
// Dropdown/radio exigem valores do conjunto permitido; texto aceita exatamente um valor.
func (m *SelectionModel) SetValues(def domain.AttributeDefinition, values []string) error {
	sel, err := buildSelection(def, values)
	if err != nil {
		return err
	}

	m.Activate(def)
	i := m.index(def.ID)
	m.selections[i].Name = def.Name
	m.selections[i].Selection = sel
	return nil
}

// RemoveValues retira valores específicos de um atributo ativo.
// Devolve true quando o atributo ficou sem nenhum valor.
func (m *SelectionModel) RemoveValues(attributeID string, values []string) (bool, error) {
	i := m.index(attributeID)
	if i < 0 {
		return false, apperror.NewNotFoundError(fmt.Sprintf("Atributo %s não está ativo no produto.", attributeID))
	}

	switch sel := m.selections[i].Selection.(type) {
	case domain.MultiSelection:
		m.selections[i].Selection = sel.Without(values...)
	case domain.ScalarSelection:
		for _, v := range values {
			if v == sel.Value {
				m.selections[i].Selection = domain.ScalarSelection{}
			}
		}
	default:
		m.selections[i].Selection = domain.EmptySelection(domain.OptionDropdown)
	}
	return len(m.selections[i].Values()) == 0, nil
}

// Deactivate remove o atributo por completo. Devolve false se ele não estava ativo.
func (m *SelectionModel) Deactivate(attributeID string) bool {
	if !m.IsActive(attributeID) {
		return false
	}
	m.selections = WithoutAttribute(m.selections, attributeID)
	return true
}

func (m *SelectionModel) index(attributeID string) int {
	for i, s := range m.selections {
		if s.AttributeID == attributeID {
			return i
		}
	}
	return -1
}

func buildSelection(def domain.AttributeDefinition, values []string) (domain.Selection, error) {
	if def.OptionKind == domain.OptionText {
		if len(values) != 1 || strings.TrimSpace(values[0]) == "" {
			return nil, apperror.NewValidationError(fmt.Sprintf("O atributo %s aceita exatamente um valor de texto.", def.Name))
		}
		return domain.ScalarSelection{Value: strings.TrimSpace(values[0])}, nil
	}

	for _, v := range values {
		if !def.Allows(v) {
			return nil, apperror.NewValidationError(fmt.Sprintf("Valor '%s' não é permitido para o atributo %s.", v, def.Name))
		}
	}
	return domain.NewMultiSelection(def.OptionKind, values...), nil
}
