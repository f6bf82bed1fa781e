package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/database"
	"varistock/internal/pkg/logger"
)

// UserRepository persiste os operadores do back-office.
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// SaveUser insere um novo operador. Email duplicado vira ConflictError.
func (r *UserRepository) SaveUser(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	_, err := r.DB.ExecContext(ctxTimeout, `
        INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			r.logger.Warn("Email já cadastrado.", map[string]interface{}{"email": user.Email})
			return domain.User{}, apperror.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", user.Email))
		}
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao inserir usuário", err)
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// FindUserByEmail busca um operador pelo endereço de e-mail.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		user domain.User
		role string
	)
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT id, email, password_hash, role, created_at, updated_at FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Usuário não encontrado no DB por email.", map[string]interface{}{"email": email})
		return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao buscar usuário por email", err)
	}
	user.Role = domain.UserRole(role)
	return user, nil
}

// UpdateUserRole troca o papel de um usuário e devolve o registro atualizado.
func (r *UserRepository) UpdateUserRole(ctx context.Context, id string, role domain.UserRole) (domain.User, error) {
	r.logger.Debug("Iniciando UpdateUserRole no repositório.", map[string]interface{}{"user_id": id, "role": role})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		user    domain.User
		newRole string
	)
	err := r.DB.QueryRowContext(ctxTimeout, `
        UPDATE users SET role = $1, updated_at = $2
        WHERE id = $3
        RETURNING id, email, password_hash, role, created_at, updated_at`,
		string(role), time.Now().UTC(), id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &newRole, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar papel do usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao atualizar papel do usuário", err)
	}
	user.Role = domain.UserRole(newRole)

	r.logger.Info("Papel do usuário atualizado no repositório.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}
