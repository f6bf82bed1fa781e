package memstore

import (
	"context"
	"fmt"

	"varistock/internal/domain"
	"varistock/internal/errors"
)

// SaveUser grava um novo operador; o email é único.
func (s *Store) SaveUser(ctx context.Context, user domain.User) (domain.User, error) {
	err := s.update(ctx, func(st *state) error {
		if _, exists := st.users[user.Email]; exists {
			return errors.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", user.Email))
		}
		if user.ID == "" {
			user.ID = s.newID()
		}
		st.users[user.Email] = user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// FindUserByEmail busca um operador pelo email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var out domain.User
	err := s.view(ctx, func(st *state) error {
		u, ok := st.users[email]
		if !ok {
			return errors.NewNotFoundError(fmt.Sprintf("Usuário com email %s não encontrado.", email))
		}
		out = u
		return nil
	})
	return out, err
}

// UpdateUserRole troca o papel de um usuário pelo ID.
func (s *Store) UpdateUserRole(ctx context.Context, id string, role domain.UserRole) (domain.User, error) {
	var out domain.User
	err := s.update(ctx, func(st *state) error {
		for email, u := range st.users {
			if u.ID != id {
				continue
			}
			u.Role = role
			u.UpdatedAt = s.nowFn()
			st.users[email] = u
			out = u
			return nil
		}
		return errors.NewNotFoundError(fmt.Sprintf("Usuário com ID %s não encontrado.", id))
	})
	return out, err
}
