package family

import (
	"context"
)

// Repository enumerates the pool of families members are asked to pray for.
type Repository interface {
	// ListAll returns every family description. An empty pool is not an error.
	ListAll(ctx context.Context) ([]string, error)
}
