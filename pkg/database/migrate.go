package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// versionRange 一次迁移前后的版本
type versionRange struct {
	from, to uint
}

func (r versionRange) applied() bool {
	return r.to != r.from
}

// RunMigrations 将 PostgreSQL 库升级到内嵌迁移的最新版本
// dirty 状态下拒绝执行，需人工 force 修复
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	res, err := migrateUp(db)
	if err != nil {
		return err
	}
	if res.applied() {
		logger.Info("数据库迁移完成", zap.Uint("from", res.from), zap.Uint("to", res.to))
	} else {
		logger.Info("数据库已是最新版本", zap.Uint("version", res.to))
	}
	return nil
}

func migrateUp(db *sql.DB) (versionRange, error) {
	var res versionRange

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return res, fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "csm_schema_migrations"})
	if err != nil {
		return res, fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return res, fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	from, dirty, err := currentVersion(m)
	if err != nil {
		return res, err
	}
	if dirty {
		return res, fmt.Errorf("数据库迁移处于 dirty 状态 (version=%d)，请先修复后再执行", from)
	}
	res.from = from

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return res, fmt.Errorf("执行迁移失败: %w", err)
	}

	to, _, err := currentVersion(m)
	if err != nil {
		return res, err
	}
	res.to = to
	return res, nil
}

// currentVersion 空库视为版本 0
func currentVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	return v, dirty, nil
}
