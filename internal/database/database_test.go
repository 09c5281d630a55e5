package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eztutor/drive-export/internal/entities"
)

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDatabase(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())

	for _, table := range []string{
		"users",
		"lesson_plans",
		"quizzes",
		"export_retry_queue",
		"google_drive_exports",
		"export_failures",
		"audit_events",
	} {
		assert.True(t, db.DB.Migrator().HasTable(table), "table %s", table)
	}

	assert.True(t, db.DB.Migrator().HasColumn(&entities.User{}, "google_refresh_token"))
	assert.True(t, db.DB.Migrator().HasColumn(&entities.ExportRetryItem{}, "lease_owner"))
}

func TestNewDatabase_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDatabase(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&entities.User{Username: "a", Email: "a@example.com", Token: "t"}).Error)
	require.NoError(t, db.Close())

	db, err = NewDatabase(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	var count int64
	require.NoError(t, db.DB.Model(&entities.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
