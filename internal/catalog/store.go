package catalog

import "context"

// Storage persists the whole product collection as a single unit.
type Storage interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
	Ping(ctx context.Context) error
}
