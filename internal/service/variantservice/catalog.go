package variantservice

import (
	"context"
	"fmt"
	"strings"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
)

// CreateAttribute cadastra uma nova dimensão de variação.
// Dropdown e radio precisam de ao menos um valor permitido; texto não usa a lista.
func (s *Service) CreateAttribute(ctx context.Context, def domain.AttributeDefinition) (domain.AttributeDefinition, error) {
	def.Name = strings.TrimSpace(def.Name)
	def.DisplayName = strings.TrimSpace(def.DisplayName)
	if def.Name == "" {
		return domain.AttributeDefinition{}, apperror.NewValidationError("O nome do atributo é obrigatório.")
	}
	if def.DisplayName == "" {
		def.DisplayName = def.Name
	}
	if def.OptionKind == "" {
		def.OptionKind = domain.OptionDropdown
	}
	if !def.OptionKind.Valid() {
		return domain.AttributeDefinition{}, apperror.NewValidationError("Tipo de atributo inválido. Use dropdown, radio ou text.")
	}

	if def.OptionKind == domain.OptionText {
		def.AllowedValues = []string{}
	} else {
		def.AllowedValues = domain.NewMultiSelection(def.OptionKind, trimAll(def.AllowedValues)...).Values()
		if len(def.AllowedValues) == 0 {
			return domain.AttributeDefinition{}, apperror.NewValidationError("Informe ao menos um valor permitido para o atributo.")
		}
		if len(def.AllowedValues) > MaxAllowedValues {
			return domain.AttributeDefinition{}, apperror.NewValidationError(fmt.Sprintf("O atributo aceita no máximo %d valores.", MaxAllowedValues))
		}
	}

	created, err := s.catalog.CreateAttribute(ctx, def)
	if err != nil {
		return domain.AttributeDefinition{}, s.translate("Falha interna ao criar atributo.", err)
	}
	s.logger.Info("Atributo criado.", map[string]interface{}{"id": created.ID, "name": created.Name, "kind": created.OptionKind})
	return created, nil
}

// ListAttributes lista o catálogo de atributos.
func (s *Service) ListAttributes(ctx context.Context) ([]domain.AttributeDefinition, error) {
	defs, err := s.catalog.ListAttributes(ctx)
	if err != nil {
		return nil, s.translate("Falha interna ao listar atributos.", err)
	}
	if defs == nil {
		defs = []domain.AttributeDefinition{}
	}
	return defs, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
