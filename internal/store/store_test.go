package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addressbook-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestMemory(t *testing.T) Store {
	t.Helper()
	return NewMemory()
}

func person(first, postcode string) model.PersonAddress {
	return model.PersonAddress{
		Address: model.Address{
			ID:          "-33.8688_151.2093",
			Street:      "Pitt St",
			HouseNumber: "123",
			Postcode:    postcode,
			City:        "Sydney",
		},
		FirstName: first,
		LastName:  "Bo",
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("AddAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		e, err := s.Add(ctx, person("Jo", "2000"))
		require.NoError(t, err)
		assert.NotEmpty(t, e.EntryID)
		assert.False(t, e.CreatedAt.IsZero())
		assert.Equal(t, "Jo", e.FirstName)

		entries, err := s.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, e.EntryID, entries[0].EntryID)
		assert.Equal(t, person("Jo", "2000"), entries[0].PersonAddress)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := newStore(t)
		entries, err := s.List(context.Background(), ListFilter{})
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("AppendOnlyNoDedup", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Add(ctx, person("Jo", "2000"))
		require.NoError(t, err)
		_, err = s.Add(ctx, person("Jo", "2000"))
		require.NoError(t, err)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("UntrimmedValuesStored", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Add(ctx, person("  Jo ", "2000"))
		require.NoError(t, err)

		entries, err := s.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "  Jo ", entries[0].FirstName)
	})

	t.Run("AddMany", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		recs := make([]model.PersonAddress, 0, 5)
		for i := 0; i < 5; i++ {
			recs = append(recs, person(fmt.Sprintf("P%d", i), "2000"))
		}
		n, err := s.AddMany(ctx, recs)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, count)

		n, err = s.AddMany(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ListFilterAndPaging", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := s.Add(ctx, person(fmt.Sprintf("A%d", i), "2000"))
			require.NoError(t, err)
		}
		_, err := s.Add(ctx, person("B", "1012"))
		require.NoError(t, err)

		entries, err := s.List(ctx, ListFilter{Postcode: "1012"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "B", entries[0].FirstName)

		entries, err = s.List(ctx, ListFilter{Postcode: "2000", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		entries, err = s.List(ctx, ListFilter{Postcode: "2000", Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		entries, err = s.List(ctx, ListFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("PagingBulkRowsIsStable", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		recs := make([]model.PersonAddress, 0, 7)
		for i := 0; i < 7; i++ {
			recs = append(recs, person(fmt.Sprintf("P%d", i), "2000"))
		}
		_, err := s.AddMany(ctx, recs)
		require.NoError(t, err)

		seen := map[string]bool{}
		for offset := 0; offset < 7; offset += 3 {
			page, err := s.List(ctx, ListFilter{Limit: 3, Offset: offset})
			require.NoError(t, err)
			for _, e := range page {
				assert.False(t, seen[e.EntryID], "entry %s returned twice", e.EntryID)
				seen[e.EntryID] = true
			}
		}
		assert.Len(t, seen, 7)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Add(ctx, person("First", "2000"))
		require.NoError(t, err)
		_, err = s.Add(ctx, person("Second", "2000"))
		require.NoError(t, err)

		entries, err := s.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "Second", entries[0].FirstName)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestMemoryStore(t *testing.T) {
	storeTestSuite(t, newTestMemory)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestNewSQLite_BadPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	require.Error(t, err)
}

func TestListFilter_Limit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ListFilter{}.limit())
	assert.Equal(t, DefaultListLimit, ListFilter{Limit: -1}.limit())
	assert.Equal(t, 5, ListFilter{Limit: 5}.limit())
}
