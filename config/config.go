package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends de armazenamento suportados.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config armazena todas as configurações do serviço VariStock.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string
	Storage     string

	// Banco de Dados (PostgreSQL)
	DatabaseURL   string
	DBTimeout     time.Duration
	MigrationsDir string

	// Cache (Redis). RedisAddr vazio desliga cache e rate limiting.
	RedisAddr    string
	CacheTimeout time.Duration
	CacheTTL     time.Duration

	// Segurança (JWT)
	JWTSecretKey string
	TokenExpiry  time.Duration

	// Administrador inicial, criado na subida se ainda não existir.
	AdminEmail    string
	AdminPassword string

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
// Termina o processo se uma variável obrigatória faltar.
func LoadConfig() *Config {
	cfg, err := Load(os.LookupEnv)
	if err != nil {
		log.Fatalf("❌ Erro de Configuração: %v", err)
	}
	return cfg
}

// Load monta a Config a partir de uma função de lookup (os.LookupEnv em produção).
func Load(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Port:        env.get("PORT", "8080"),
		Environment: env.get("ENV", "development"),
		LogLevel:    env.get("LOG_LEVEL", "info"),
		Storage:     strings.ToLower(env.get("STORAGE", StoragePostgres)),

		DatabaseURL:   env.get("DATABASE_URL", ""),
		DBTimeout:     env.duration("DB_TIMEOUT_SEC", 5) * time.Second,
		MigrationsDir: env.get("MIGRATIONS_DIR", "./sql"),

		RedisAddr:    env.get("REDIS_ADDR", ""),
		CacheTimeout: env.duration("CACHE_TIMEOUT_SEC", 2) * time.Second,
		CacheTTL:     env.duration("CACHE_TTL_MIN", 5) * time.Minute,

		JWTSecretKey: env.get("JWT_SECRET_KEY", ""),
		TokenExpiry:  env.duration("JWT_EXPIRY_MIN", 60) * time.Minute,

		AdminEmail:    env.get("ADMIN_EMAIL", ""),
		AdminPassword: env.get("ADMIN_PASSWORD", ""),

		RateLimitMaxRequests: env.integer("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      env.duration("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("a variável de ambiente DATABASE_URL deve ser definida quando STORAGE=%s", StoragePostgres)
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE inválido: %q (use %s ou %s)", cfg.Storage, StoragePostgres, StorageMemory)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("a variável de ambiente JWT_SECRET_KEY deve ser definida")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL e ADMIN_PASSWORD devem ser definidas juntas")
	}
	return cfg, nil
}

// CacheEnabled informa se há um Redis configurado.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

type envReader struct {
	lookup func(string) (string, bool)
}

// get lê a variável de ambiente ou retorna um valor padrão.
func (e envReader) get(key, defaultValue string) string {
	if value, exists := e.lookup(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// duration lê uma variável numérica como time.Duration (a unidade é aplicada por quem chama).
func (e envReader) duration(key string, defaultValue int) time.Duration {
	return time.Duration(e.integer(key, defaultValue))
}

func (e envReader) integer(key string, defaultValue int) int {
	valueStr := e.get(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
