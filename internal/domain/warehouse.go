package domain

import (
	"time"
)

// Warehouse representa um armazém físico ou lógico no sistema.
// Exatamente um armazém carrega IsDefault = true.
type Warehouse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
