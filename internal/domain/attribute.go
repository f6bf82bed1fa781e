package domain

import (
	"encoding/json"
	"fmt"
)

// OptionKind define como os valores de um atributo são escolhidos no formulário.
type OptionKind string

const (
	OptionDropdown OptionKind = "dropdown"
	OptionRadio    OptionKind = "radio"
	OptionText     OptionKind = "text"
)

// Valid informa se o tipo é conhecido.
func (k OptionKind) Valid() bool {
	switch k {
	case OptionDropdown, OptionRadio, OptionText:
		return true
	}
	return false
}

// AttributeDefinition é a dimensão de variação mantida pelo Attribute Catalog (somente leitura para o núcleo).
type AttributeDefinition struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	DisplayName   string     `json:"display_name"`
	OptionKind    OptionKind `json:"option_kind"`
	AllowedValues []string   `json:"allowed_values"`
}

// Allows verifica se o valor pertence ao conjunto permitido. Atributos de texto aceitam qualquer valor.
func (d AttributeDefinition) Allows(value string) bool {
	if d.OptionKind == OptionText {
		return true
	}
	for _, v := range d.AllowedValues {
		if v == value {
			return true
		}
	}
	return false
}

// Selection é o valor selecionado de um atributo: ScalarSelection (texto) ou MultiSelection (dropdown/radio).
type Selection interface {
	Values() []string
	Kind() OptionKind
	isSelection()
}

// ScalarSelection guarda um único valor livre.
type ScalarSelection struct {
	Value string
}

func (s ScalarSelection) Values() []string {
	if s.Value == "" {
		return nil
	}
	return []string{s.Value}
}

func (ScalarSelection) Kind() OptionKind { return OptionText }
func (ScalarSelection) isSelection()     {}

// MultiSelection é um conjunto ordenado (ordem de inserção) de valores.
type MultiSelection struct {
	kind   OptionKind
	values []string
}

// NewMultiSelection cria o conjunto descartando duplicatas e valores vazios.
func NewMultiSelection(kind OptionKind, values ...string) MultiSelection {
	m := MultiSelection{kind: kind}
	return m.With(values...)
}

func (m MultiSelection) Values() []string {
	return append([]string(nil), m.values...)
}

func (m MultiSelection) Kind() OptionKind {
	if m.kind == "" {
		return OptionDropdown
	}
	return m.kind
}

func (MultiSelection) isSelection() {}

// Contains informa se o valor está selecionado.
func (m MultiSelection) Contains(value string) bool {
	for _, v := range m.values {
		if v == value {
			return true
		}
	}
	return false
}

// With devolve um novo conjunto com os valores acrescentados ao final.
func (m MultiSelection) With(values ...string) MultiSelection {
	out := MultiSelection{kind: m.kind, values: append([]string(nil), m.values...)}
	for _, v := range values {
		if v == "" || out.Contains(v) {
			continue
		}
		out.values = append(out.values, v)
	}
	return out
}

// Without devolve um novo conjunto sem os valores informados.
func (m MultiSelection) Without(values ...string) MultiSelection {
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[v] = struct{}{}
	}
	out := MultiSelection{kind: m.kind}
	for _, v := range m.values {
		if _, ok := drop[v]; !ok {
			out.values = append(out.values, v)
		}
	}
	return out
}

// EmptySelection cria a seleção vazia adequada ao tipo do atributo.
func EmptySelection(kind OptionKind) Selection {
	if kind == OptionText {
		return ScalarSelection{}
	}
	return NewMultiSelection(kind)
}

// ProductAttributeSelection registra quais valores de um atributo estão ativos em um produto.
type ProductAttributeSelection struct {
	AttributeID string
	Name        string
	Selection   Selection
}

// Values atalho para os valores selecionados (vazio quando não há seleção).
func (s ProductAttributeSelection) Values() []string {
	if s.Selection == nil {
		return nil
	}
	return s.Selection.Values()
}

type selectionJSON struct {
	AttributeID string     `json:"attribute_id"`
	Name        string     `json:"name"`
	Kind        OptionKind `json:"kind"`
	Values      []string   `json:"values"`
}

// MarshalJSON serializa a seleção com o tipo explícito, sem inspeção de tipo na leitura.
func (s ProductAttributeSelection) MarshalJSON() ([]byte, error) {
	kind := OptionDropdown
	if s.Selection != nil {
		kind = s.Selection.Kind()
	}
	values := s.Values()
	if values == nil {
		values = []string{}
	}
	return json.Marshal(selectionJSON{
		AttributeID: s.AttributeID,
		Name:        s.Name,
		Kind:        kind,
		Values:      values,
	})
}

// UnmarshalJSON reconstrói a seleção a partir do campo "kind".
func (s *ProductAttributeSelection) UnmarshalJSON(data []byte) error {
	var raw selectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Kind == "" {
		raw.Kind = OptionDropdown
	}
	if !raw.Kind.Valid() {
		return fmt.Errorf("tipo de atributo desconhecido: %q", raw.Kind)
	}

	s.AttributeID = raw.AttributeID
	s.Name = raw.Name
	if raw.Kind == OptionText {
		if len(raw.Values) > 1 {
			return fmt.Errorf("atributo de texto %q aceita apenas um valor", raw.Name)
		}
		scalar := ScalarSelection{}
		if len(raw.Values) == 1 {
			scalar.Value = raw.Values[0]
		}
		s.Selection = scalar
		return nil
	}
	s.Selection = NewMultiSelection(raw.Kind, raw.Values...)
	return nil
}
