// Package dbtest 测试用的内存 SQLite
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xxz807/finledger/internal/platform/config"
	"github.com/xxz807/finledger/internal/platform/database"
)

// New 每个测试一个独立的库，测试结束自动关闭。
// 只开一个连接，所有 unit of work 串行执行，代替 SQLite 没有的行锁
func New(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := database.NewDB(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db, models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
