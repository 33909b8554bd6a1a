package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumns = []string{"id", "first_name", "last_name"}

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "address_book", entryColumns, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"address_book"}, entryColumns).WillReturnResult(2)

	rows := [][]any{{"e1", "Jo", "Bo"}, {"e2", "Al", "Ex"}}
	n, err := CopyFrom(context.Background(), mock, "address_book", entryColumns, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"address_book"}, entryColumns).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "address_book", entryColumns, [][]any{{"e1", "Jo", "Bo"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO address_book")
	assert.NoError(t, mock.ExpectationsWereMet())
}
