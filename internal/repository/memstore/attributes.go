package memstore

import (
	"context"
	"fmt"
	"sort"

	"varistock/internal/domain"
	"varistock/internal/errors"
)

// CreateAttribute cadastra uma dimensão no catálogo de atributos.
func (s *Store) CreateAttribute(ctx context.Context, def domain.AttributeDefinition) (domain.AttributeDefinition, error) {
	err := s.update(ctx, func(st *state) error {
		if def.ID == "" {
			def.ID = s.newID()
		}
		for _, a := range st.attributes {
			if a.Name == def.Name {
				return errors.NewConflictError(fmt.Sprintf("O atributo '%s' já existe.", def.Name))
			}
		}
		def.AllowedValues = append([]string(nil), def.AllowedValues...)
		st.attributes[def.ID] = def
		return nil
	})
	if err != nil {
		return domain.AttributeDefinition{}, err
	}
	return def, nil
}

// GetAttribute busca uma definição pelo ID.
func (s *Store) GetAttribute(ctx context.Context, id string) (domain.AttributeDefinition, error) {
	var out domain.AttributeDefinition
	err := s.view(ctx, func(st *state) error {
		a, ok := st.attributes[id]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Atributo com ID %s não encontrado.", id))
		}
		a.AllowedValues = append([]string(nil), a.AllowedValues...)
		out = a
		return nil
	})
	return out, err
}

// ListAttributes lista as definições ordenadas por nome.
func (s *Store) ListAttributes(ctx context.Context) ([]domain.AttributeDefinition, error) {
	var out []domain.AttributeDefinition
	err := s.view(ctx, func(st *state) error {
		for _, a := range st.attributes {
			a.AllowedValues = append([]string(nil), a.AllowedValues...)
			out = append(out, a)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}
