package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mudit2103/csm-web/config"
	"github.com/mudit2103/csm-web/internal/audit"
	"github.com/mudit2103/csm-web/internal/repository"
	"github.com/mudit2103/csm-web/internal/service"
	"github.com/mudit2103/csm-web/pkg/database"
	applogger "github.com/mudit2103/csm-web/pkg/logger"
	"github.com/mudit2103/csm-web/pkg/redis"
)

// app 一次命令执行所需的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	repo   *repository.Repository
	svc    *service.Service
}

// loadConfig 加载配置并初始化日志
func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}

// newApp 依次连接数据库、执行迁移、连接 Redis（可选）、注册审计回调并装配 Service
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	// 1. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, db: db}

	// 2. 数据库迁移
	if err := migrateSchema(cfg, db, logger); err != nil {
		a.Close()
		return nil, err
	}

	// 3. 连接 Redis（可选：连接失败时降级运行，不加生成锁）
	var guard service.RunGuard
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，生成任务将不加锁运行", zap.Error(err))
		} else {
			a.rdb = rdb
			guard = rdb
		}
	}

	// 4. 审计回调
	if cfg.Audit.Enabled {
		if _, err := audit.Register(db, logger, audit.DefaultRules()); err != nil {
			a.Close()
			return nil, err
		}
	}

	// 5. 依赖注入: Repository → Service
	a.repo = repository.NewRepository(db)
	a.svc = service.NewService(cfg, a.repo, guard, logger)
	return a, nil
}

// migrateSchema PostgreSQL 走版本化 SQL 迁移，SQLite 走 AutoMigrate
func migrateSchema(cfg *config.Config, db *gorm.DB, logger *zap.Logger) error {
	if cfg.Database.Type != config.DBTypePostgres {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// Close 关闭数据库与 Redis 连接
func (a *app) Close() {
	if a.db != nil {
		if sqlDB, _ := a.db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	_ = a.logger.Sync()
}
