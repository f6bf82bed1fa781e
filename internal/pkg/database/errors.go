package database

import (
	"errors"

	"github.com/lib/pq"
)

// Códigos SQLSTATE usados para traduzir falhas do Postgres em erros de domínio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeRaiseException      = "P0001"
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// IsUniqueViolation indica violação de UNIQUE/PRIMARY KEY.
func IsUniqueViolation(err error) bool { return hasCode(err, codeUniqueViolation) }

// IsForeignKeyViolation indica referência a uma linha inexistente (ou ainda referenciada).
func IsForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }

// IsCheckViolation indica violação de uma restrição CHECK (ex: quantidade negativa).
func IsCheckViolation(err error) bool { return hasCode(err, codeCheckViolation) }

// IsRaisedException indica um RAISE EXCEPTION de trigger (ex: histórico somente de inserção).
func IsRaisedException(err error) bool { return hasCode(err, codeRaiseException) }
