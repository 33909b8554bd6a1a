// Package store persists the address book.
package store

import (
	"context"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// ListFilter specifies criteria for listing address book entries.
type ListFilter struct {
	Postcode string `json:"postcode,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store is an append-only address book. It does not deduplicate.
type Store interface {
	Add(ctx context.Context, rec model.PersonAddress) (*model.Entry, error)
	AddMany(ctx context.Context, recs []model.PersonAddress) (int, error)
	List(ctx context.Context, filter ListFilter) ([]model.Entry, error)
	Count(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
