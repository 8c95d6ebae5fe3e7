package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type uniqueRow struct {
	ID  int64  `gorm:"primaryKey"`
	Key string `gorm:"uniqueIndex"`
}

func TestConnect_SQLiteEnforcesUniqueIndex(t *testing.T) {
	db, err := Connect(fmt.Sprintf("file:database_test_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&uniqueRow{}))

	require.NoError(t, db.Create(&uniqueRow{Key: "a"}).Error)
	err = db.Create(&uniqueRow{Key: "a"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://user@localhost/db"))
	assert.True(t, IsPostgres("postgresql://user@localhost/db"))
	assert.False(t, IsPostgres("productlogik.db"))
	assert.False(t, IsPostgres("file:x?mode=memory"))
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t, "app.db?"+sqlitePragmas, withPragmas("app.db"))
	assert.Equal(t, "file:x?mode=memory&"+sqlitePragmas, withPragmas("file:x?mode=memory"))
	assert.Equal(t, "app.db?_pragma=journal_mode(WAL)", withPragmas("app.db?_pragma=journal_mode(WAL)"))
}
