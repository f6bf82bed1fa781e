package domain

import "time"

// User representa um usuário do back-office. Só operadores e administradores executam ajustes e transferências.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
	RoleViewer   UserRole = "viewer"
)

// Valid indica se o papel é conhecido.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// RoleUpdate é o payload de troca de papel feita por um administrador.
type RoleUpdate struct {
	Role UserRole `json:"role"`
}

// UserRegistration representa o payload de entrada para o registro.
type UserRegistration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest é o payload de autenticação do operador.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse devolve o token JWT emitido para o operador.
type LoginResponse struct {
	Token string `json:"token"`
}
