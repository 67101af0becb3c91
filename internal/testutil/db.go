// Package testutil 测试共用的数据库与配置构造
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mudit2103/csm-web/config"
	"github.com/mudit2103/csm-web/pkg/database"
)

// NewSQLiteDB 每个测试独立的内存 SQLite 库，已建表并注册主键回调
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn), gormlogger.Silent)
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层 sql.DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

// NewConfig 开发环境配置：UTC 时区、固定种子、两门课程
func NewConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:      config.EnvDevelopment,
			Debug:    true,
			Timezone: "UTC",
		},
		Database: config.DatabaseConfig{Type: config.DBTypeSQLite},
		Fixture: config.FixtureConfig{
			Seed:        42,
			CourseNames: []string{"CS70", "CS61A"},
			DevPassword: "password",
			LockTTL:     time.Minute,
		},
		Audit: config.AuditConfig{Enabled: true},
	}
}
