package userservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
	"varistock/internal/pkg/token"
	"varistock/internal/repository/memstore"
	"varistock/internal/service/userservice"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUserRole(ctx context.Context, id string, role domain.UserRole) (domain.User, error) {
	args := m.Called(ctx, id, role)
	return args.Get(0).(domain.User), args.Error(1)
}

func newService() (*userservice.UserService, *token.Service) {
	tokens := token.NewService("segredo-de-teste", time.Hour)
	return userservice.NewService(memstore.NewStore(logger.NewNop()), tokens, logger.NewNop()), tokens
}

func TestRegisterAndLogin_Success(t *testing.T) {
	svc, tokens := newService()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.UserRegistration{Email: " Ana@Loja.com ", Password: "senha-forte"})
	require.NoError(t, err)
	assert.Equal(t, "ana@loja.com", user.Email)
	assert.Equal(t, domain.RoleViewer, user.Role)
	assert.NotEqual(t, "senha-forte", user.PasswordHash)

	tokenString, err := svc.Login(ctx, "ana@loja.com", "senha-forte")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, string(domain.RoleViewer), claims.Role)
}

func TestRegister_Fail_DuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.UserRegistration{Email: "ana@loja.com", Password: "senha-forte"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.UserRegistration{Email: "ana@loja.com", Password: "outra-senha"})
	assert.IsType(t, &apperror.ConflictError{}, err)
}

func TestRegister_Fail_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cases := map[string]domain.UserRegistration{
		"vazio":       {},
		"email":       {Email: "nao-e-email", Password: "senha-forte"},
		"senha curta": {Email: "ana@loja.com", Password: "123"},
	}
	for name, reg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, reg)
			assert.IsType(t, &apperror.ValidationError{}, err)
		})
	}
}

func TestLogin_Fail_WrongPassword(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.UserRegistration{Email: "ana@loja.com", Password: "senha-forte"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@loja.com", "errada")
	assert.IsType(t, &apperror.UnauthorizedError{}, err)
}

func TestLogin_Fail_UnknownEmailIsUnauthorized(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Login(context.Background(), "ninguem@loja.com", "senha-forte")

	assert.IsType(t, &apperror.UnauthorizedError{}, err)
}

func TestLogin_Fail_RepoErrorIsInternal(t *testing.T) {
	repo := new(MockUserRepository)
	svc := userservice.NewService(repo, token.NewService("x", time.Hour), logger.NewNop())

	repo.On("FindUserByEmail", mock.Anything, "ana@loja.com").Return(domain.User{}, errors.New("conexão perdida"))

	_, err := svc.Login(context.Background(), "ana@loja.com", "senha-forte")

	assert.IsType(t, &apperror.InternalError{}, err)
	repo.AssertExpectations(t)
}

func TestEnsureAdmin_CreatesOnceWithAdminRole(t *testing.T) {
	svc, tokens := newService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@loja.com", "senha-do-admin"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@loja.com", "outra-senha-qualquer"))

	tokenString, err := svc.Login(ctx, "admin@loja.com", "senha-do-admin")
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleAdmin), claims.Role)
}

func TestSetRole_GrantsOperatorOnNextLogin(t *testing.T) {
	svc, tokens := newService()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.UserRegistration{Email: "ana@loja.com", Password: "senha-forte"})
	require.NoError(t, err)

	updated, err := svc.SetRole(ctx, user.ID, domain.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, updated.Role)

	tokenString, err := svc.Login(ctx, "ana@loja.com", "senha-forte")
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleOperator), claims.Role)
}

func TestSetRole_Fail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.SetRole(ctx, "nao-e-uuid", domain.RoleOperator)
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = svc.SetRole(ctx, "3f0c8a52-8a4e-4d0e-9b7c-1d2e3f4a5b6c", "superuser")
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = svc.SetRole(ctx, "3f0c8a52-8a4e-4d0e-9b7c-1d2e3f4a5b6c", domain.RoleOperator)
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestSetRole_Fail_RepoErrorIsInternal(t *testing.T) {
	repo := new(MockUserRepository)
	svc := userservice.NewService(repo, token.NewService("x", time.Hour), logger.NewNop())
	id := "3f0c8a52-8a4e-4d0e-9b7c-1d2e3f4a5b6c"

	repo.On("UpdateUserRole", mock.Anything, id, domain.RoleOperator).Return(domain.User{}, errors.New("conexão perdida"))

	_, err := svc.SetRole(context.Background(), id, domain.RoleOperator)

	assert.IsType(t, &apperror.InternalError{}, err)
	repo.AssertExpectations(t)
}
