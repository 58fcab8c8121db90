// package models holds the entities and value types shared by the reconciler,
// the HTTP layer and the CLI.
package models

import (
	"time"
)

// Model is a persisted entity with a stable identifier and audit timestamps.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the CRUD surface every store exposes for its entity.
// List filters on column equality; a nil criteria map returns every row.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
