package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"washroom-tracker-client/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteStore(t *testing.T) Store {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gormDB.AutoMigrate(&model.KVEntry{}))
	t.Cleanup(func() { sqlDB.Close() })
	return NewGormStore(gormDB)
}

func TestGormStore_Get(t *testing.T) {
	testCases := []struct {
		name      string
		mock      func(mock sqlmock.Sqlmock)
		wantValue string
		wantOK    bool
		wantErr   bool
	}{
		{
			name: "key present",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT \* FROM "kv_entries" WHERE "kv_entries"."key" = \$1`).
					WithArgs(KeyToken, 1).
					WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).
						AddRow(KeyToken, "abc", nil))
			},
			wantValue: "abc",
			wantOK:    true,
		},
		{
			name: "key absent",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT \* FROM "kv_entries" WHERE "kv_entries"."key" = \$1`).
					WithArgs(KeyToken, 1).
					WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}))
			},
		},
		{
			name: "query fails",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT \* FROM "kv_entries"`).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)
			tc.mock(mock)

			value, ok, err := s.Get(context.Background(), KeyToken)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.wantValue, value)
				assert.Equal(t, tc.wantOK, ok)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_PutFailsAtomically(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin().WillReturnError(errors.New("db down"))

	err := s.Put(context.Background(), map[string]string{KeyUser: "{}", KeyToken: "t"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Delete(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "kv_entries" WHERE .*"key" IN \(\$1,\$2\)`).
		WithArgs(KeyUser, KeyToken).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.Delete(context.Background(), KeyUser, KeyToken))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_EmptyInputsAreNoops(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	assert.NoError(t, s.Put(context.Background(), nil))
	assert.NoError(t, s.Delete(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.Put(ctx, map[string]string{KeyUser: `{"id":1}`, KeyToken: "first"}))
	require.NoError(t, s.Put(ctx, map[string]string{KeyToken: "second"}))

	token, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", token)

	require.NoError(t, s.Delete(ctx, KeyUser, KeyToken))
	_, ok, err = s.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}
