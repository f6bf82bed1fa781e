package user

import (
	"context"
	"net/http"

	"varistock/internal/api/httpx"
	"varistock/internal/domain"
	"varistock/internal/pkg/logger"
)

// UserService define o contrato para as operações de registro e login.
type UserService interface {
	Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	Login(ctx context.Context, email string, password string) (string, error)
	SetRole(ctx context.Context, userID string, role domain.UserRole) (domain.User, error)
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// RegisterUserHandler lida com a requisição POST /v1/register.
// @Summary Registra um novo operador
// @Description Cria um novo operador, gera o hash da senha e salva.
// @Tags users
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Credenciais de registro (email e senha)"
// @Success 201 {object} domain.User "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Router /register [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.UserRegistration
	if err := httpx.DecodeJSON(w, r, &reg); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	// O hash da senha não sai no JSON (tag `json:"-"`).
	newUser, err := h.Service.Register(r.Context(), reg)
	httpx.Respond(w, r, h.Logger, newUser, err, http.StatusCreated)
}

// LoginUserHandler lida com a requisição POST /v1/login.
// @Summary Autentica um operador e retorna um JWT
// @Tags users
// @Accept json
// @Produce json
// @Param login body domain.LoginRequest true "Credenciais do usuário (email e senha)"
// @Success 200 {object} domain.LoginResponse "Token JWT emitido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Router /login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var loginReq domain.LoginRequest
	if err := httpx.DecodeJSON(w, r, &loginReq); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	token, err := h.Service.Login(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	httpx.Respond(w, r, h.Logger, domain.LoginResponse{Token: token}, nil, http.StatusOK)
}

// SetUserRoleHandler lida com a requisição PUT /v1/users/{id}/role (somente admin).
// @Summary Concede um papel a um usuário
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "ID do usuário"
// @Param role body domain.RoleUpdate true "Novo papel (admin, operator ou viewer)"
// @Success 200 {object} domain.User
// @Failure 400 {object} domain.ErrorResponse "Papel inválido"
// @Failure 404 {object} domain.ErrorResponse "Usuário não encontrado"
// @Security ApiKeyAuth
// @Router /users/{id}/role [put]
func (h *Handler) SetUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	var update domain.RoleUpdate
	if err := httpx.DecodeJSON(w, r, &update); err != nil {
		httpx.Respond(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	user, err := h.Service.SetRole(r.Context(), r.PathValue("id"), update.Role)
	httpx.Respond(w, r, h.Logger, user, err, http.StatusOK)
}
