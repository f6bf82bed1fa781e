package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer identifica os tokens emitidos por este serviço.
const Issuer = "VariStock-API"

// leeway tolera pequenas diferenças de relógio entre instâncias.
const leeway = 30 * time.Second

// CustomClaims carrega o operador (ID e papel) que assina ajustes e transferências.
// O ID do operador viaja no "sub" padrão.
type CustomClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID devolve o operador dono do token.
func (c *CustomClaims) UserID() string {
	return c.Subject
}

// Service assina e valida JWTs HS256.
type Service struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewService cria uma nova instância do serviço Token.
func NewService(secretKey string, expiry time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		now:       time.Now,
	}
}

// GenerateToken emite o token de um operador.
func (s *Service) GenerateToken(userID string, userRole string) (string, error) {
	if userID == "" || userRole == "" {
		return "", errors.New("operador e papel são obrigatórios no token")
	}

	now := s.now()
	claims := CustomClaims{
		Role: userRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("falha ao assinar o token: %w", err)
	}
	return signed, nil
}

// ValidateToken confere assinatura, emissor e validade e devolve as claims.
func (s *Service) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("token inválido: %w", err)
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, errors.New("token sem operador ou papel")
	}
	return claims, nil
}
