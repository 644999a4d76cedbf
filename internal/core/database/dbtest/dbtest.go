// Package dbtest 给各包测试提供迁移好的临时 sqlite 库
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"go-gin-gorm-iam/internal/core/database"
)

func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "iam-test.db") + "?_busy_timeout=5000"
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}
