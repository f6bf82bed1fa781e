// Package memstore implementa catálogo, armazéns, atributos, usuários e histórico de transferências em memória.
// Toda escrita roda sobre uma cópia do estado, trocada pelo estado atual apenas se a função não falhar.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"varistock/internal/domain"
	"varistock/internal/pkg/logger"
)

type state struct {
	products     map[string]domain.Product
	productOrder []string
	warehouses   map[string]domain.Warehouse
	attributes   map[string]domain.AttributeDefinition
	users        map[string]domain.User // por email
	transfers    []domain.TransferRecord
}

func newState() state {
	return state{
		products:   make(map[string]domain.Product),
		warehouses: make(map[string]domain.Warehouse),
		attributes: make(map[string]domain.AttributeDefinition),
		users:      make(map[string]domain.User),
	}
}

func (s state) clone() state {
	cp := newState()
	for id, p := range s.products {
		cp.products[id] = cloneProduct(p)
	}
	cp.productOrder = append([]string(nil), s.productOrder...)
	for id, w := range s.warehouses {
		cp.warehouses[id] = w
	}
	for id, a := range s.attributes {
		a.AllowedValues = append([]string(nil), a.AllowedValues...)
		cp.attributes[id] = a
	}
	for email, u := range s.users {
		cp.users[email] = u
	}
	cp.transfers = append([]domain.TransferRecord(nil), s.transfers...)
	return cp
}

func cloneProduct(p domain.Product) domain.Product {
	p.Inventory = domain.CloneAllocations(p.Inventory)
	p.Attributes = append([]domain.ProductAttributeSelection(nil), p.Attributes...)
	if p.Variants != nil {
		variants := make([]domain.Variant, len(p.Variants))
		for i, v := range p.Variants {
			variants[i] = cloneVariant(v)
		}
		p.Variants = variants
	}
	return p
}

func cloneVariant(v domain.Variant) domain.Variant {
	v.Inventory = domain.CloneAllocations(v.Inventory)
	if v.Attributes != nil {
		attrs := make(map[string]string, len(v.Attributes))
		for k, val := range v.Attributes {
			attrs[k] = val
		}
		v.Attributes = attrs
	}
	return v
}

// Store guarda todo o estado do back-office em memória.
type Store struct {
	mu     sync.RWMutex
	state  state
	logger logger.Logger
	nowFn  func() time.Time
	newID  func() string
}

// NewStore cria um store vazio.
func NewStore(logger logger.Logger) *Store {
	return &Store{
		state:  newState(),
		logger: logger,
		nowFn:  func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// update executa fn sobre uma cópia do estado; a cópia só substitui o estado se fn não falhar.
func (s *Store) update(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// view executa fn sobre o estado atual sob lock de leitura. fn não deve guardar referências.
func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}
