// Package store holds the row collections tables are built from and applies
// the row mutations requested by bulk actions and row events.
package store

import (
	"context"

	"github.com/pitabwire/tabula/model"
)

// RowStore persists row collections. Implementations must be safe for
// concurrent use.
type RowStore interface {
	// List returns every row of collection in its stored order.
	List(ctx context.Context, collection string) ([]model.Row, error)
	// Delete removes the rows with the given ids and returns how many existed.
	Delete(ctx context.Context, collection string, ids []string) (int, error)
	// Update merges set into the fields of the rows with the given ids and
	// returns how many were changed.
	Update(ctx context.Context, collection string, ids []string, set map[string]any) (int, error)
}
