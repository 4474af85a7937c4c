package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"myblog/internal/config"
	"myblog/internal/models"
	"myblog/internal/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := Open(sqlite.Open(dsn), observability.NopLogger())
	require.NoError(t, err)
	configurePool(db, "sqlite")
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestDialector(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		wantErr  bool
	}{
		{"sqlite", config.Config{DBDriver: "sqlite", DBPath: "posts.db"}, "sqlite", false},
		{"postgres", config.Config{DBDriver: "postgres", DBHost: "db", DBPort: "5432"}, "postgres", false},
		{"unknown", config.Config{DBDriver: "mysql"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Dialector(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, d.Name())
		})
	}
}

func TestConnect_SQLiteMigrates(t *testing.T) {
	cfg := &config.Config{
		Env:      "test",
		DBDriver: "sqlite",
		DBPath:   t.TempDir() + "/posts.db",
	}

	db, err := Connect(cfg, observability.NopLogger())
	require.NoError(t, err)
	defer Close(db)

	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasTable(&models.Post{}))
	assert.NoError(t, Ping(context.Background(), db))
}

func TestReset_DropsRows(t *testing.T) {
	db := setupTestDB(t)

	u := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", ImageFile: models.DefaultImageFile}
	require.NoError(t, db.Create(&u).Error)

	require.NoError(t, Reset(db))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestForeignKeyEnforced(t *testing.T) {
	db := setupTestDB(t)

	err := db.Create(&models.Post{Title: "orphan", Content: "x", UserID: 999}).Error
	assert.Error(t, err)
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(observability.NopLogger())
	quiet := l.LogMode(logger.Silent).(*CustomGormLogger)

	assert.Equal(t, logger.Silent, quiet.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
	assert.Equal(t, 200*time.Millisecond, l.Config.SlowThreshold)

	assert.NotPanics(t, func() {
		quiet.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	})
}
