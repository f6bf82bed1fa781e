package userservice

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
)

// MinPasswordLength é o tamanho mínimo de senha aceito no registro.
const MinPasswordLength = 8

// UserRepository define o que o serviço precisa da persistência de operadores.
type UserRepository interface {
	SaveUser(ctx context.Context, user domain.User) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateUserRole(ctx context.Context, id string, role domain.UserRole) (domain.User, error)
}

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(userID string, userRole string) (string, error)
}

// UserService registra e autentica os operadores que executam ajustes e transferências.
type UserService struct {
	repo     UserRepository
	tokenSvc TokenService
	logger   logger.Logger
}

// NewService cria uma nova instância do UserService.
func NewService(repo UserRepository, tokenSvc TokenService, logger logger.Logger) *UserService {
	return &UserService{repo: repo, tokenSvc: tokenSvc, logger: logger}
}

// Register registra um novo usuário com a senha em bcrypt.
// Todo registro público nasce como viewer; o papel de operador é concedido por um administrador.
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(registration.Email))
	s.logger.Debug("Iniciando registro de usuário no serviço.", map[string]interface{}{"email": email})

	hashedPassword, err := s.validateAndHash(email, registration.Password)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.save(ctx, email, hashedPassword, domain.RoleViewer)
	if err != nil {
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			s.logger.Warn("Email já cadastrado.", map[string]interface{}{"email": email})
			return domain.User{}, err
		}
		s.logger.Error("Falha ao salvar usuário.", err)
		return domain.User{}, apperror.NewInternalError("Falha interna ao registrar usuário.", err)
	}

	s.logger.Info("Usuário registrado com sucesso.", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// Login autentica um operador, verifica a senha e gera um JWT.
func (s *UserService) Login(ctx context.Context, email string, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		// NotFound vira 401 para não revelar quais emails existem.
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			s.logger.Warn("Login com email desconhecido.", map[string]interface{}{"email": email})
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		s.logger.Error("Falha ao buscar usuário para login.", err)
		return "", apperror.NewInternalError("Falha interna ao autenticar.", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Senha incorreta.", map[string]interface{}{"user_id": user.ID})
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	tokenString, err := s.tokenSvc.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		s.logger.Error("Falha ao gerar token de autenticação.", err)
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	s.logger.Info("Login realizado.", map[string]interface{}{"user_id": user.ID})
	return tokenString, nil
}

// EnsureAdmin cria o administrador inicial. Se o email já existe, nada muda.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.repo.FindUserByEmail(ctx, email)
	if err == nil {
		s.logger.Debug("Administrador inicial já existe.", map[string]interface{}{"email": email})
		return nil
	}
	var notFoundErr *apperror.NotFoundError
	if !errors.As(err, &notFoundErr) {
		s.logger.Error("Falha ao buscar administrador inicial.", err)
		return apperror.NewInternalError("Falha ao buscar administrador inicial.", err)
	}

	hashedPassword, err := s.validateAndHash(email, password)
	if err != nil {
		return err
	}
	user, err := s.save(ctx, email, hashedPassword, domain.RoleAdmin)
	if err != nil {
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			return nil
		}
		s.logger.Error("Falha ao criar administrador inicial.", err)
		return apperror.NewInternalError("Falha ao criar administrador inicial.", err)
	}

	s.logger.Info("Administrador inicial criado.", map[string]interface{}{"user_id": user.ID})
	return nil
}

// SetRole troca o papel de um usuário. O novo papel só vale a partir do próximo login.
func (s *UserService) SetRole(ctx context.Context, userID string, role domain.UserRole) (domain.User, error) {
	s.logger.Debug("Iniciando troca de papel no serviço.", map[string]interface{}{"user_id": userID, "role": role})

	if _, err := uuid.Parse(userID); err != nil {
		return domain.User{}, apperror.NewValidationError("O ID do usuário deve ser um UUID válido.")
	}
	if !role.Valid() {
		return domain.User{}, apperror.NewValidationError("Papel inválido. Use admin, operator ou viewer.")
	}

	user, err := s.repo.UpdateUserRole(ctx, userID, role)
	if err != nil {
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			s.logger.Warn("Usuário não encontrado para troca de papel.", map[string]interface{}{"user_id": userID})
			return domain.User{}, err
		}
		s.logger.Error("Falha ao trocar papel do usuário.", err)
		return domain.User{}, apperror.NewInternalError("Falha interna ao trocar papel do usuário.", err)
	}

	s.logger.Info("Papel do usuário alterado.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

func (s *UserService) validateAndHash(email, password string) ([]byte, error) {
	if email == "" || password == "" {
		return nil, apperror.NewValidationError("Email e senha são obrigatórios.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.NewValidationError("Email inválido.")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.NewValidationError("A senha deve ter no mínimo 8 caracteres.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Falha ao gerar hash da senha.", err)
		return nil, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}
	return hashedPassword, nil
}

func (s *UserService) save(ctx context.Context, email string, hashedPassword []byte, role domain.UserRole) (domain.User, error) {
	now := time.Now().UTC()
	return s.repo.SaveUser(ctx, domain.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
