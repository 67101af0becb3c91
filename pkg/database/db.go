package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mudit2103/csm-web/config"
	"github.com/mudit2103/csm-web/internal/model"
)

// NewDB 按配置初始化数据库连接（PostgreSQL 或本地 SQLite）
func NewDB(cfg *config.DatabaseConfig, logLevel string, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case config.DBTypePostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DBTypeSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("不支持的数据库类型 %q", cfg.Type)
	}

	db, err := Open(dialector, gormLogLevel(logLevel))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	if cfg.Type == config.DBTypeSQLite {
		// SQLite 单写者，多连接时事务外的读写会遇到 database is locked
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	if cfg.Type == config.DBTypePostgres {
		logger.Info("数据库连接成功",
			zap.String("type", cfg.Type),
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("dbname", cfg.Name),
		)
	} else {
		logger.Info("数据库连接成功",
			zap.String("type", cfg.Type),
			zap.String("path", cfg.SQLitePath),
		)
	}

	return db, nil
}

// Open 打开连接并注册主键生成回调；测试直接传入 SQLite 内存库
func Open(dialector gorm.Dialector, level gormlogger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
		// 外键由迁移脚本维护；sections ↔ profiles 存在环形引用
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	if err := RegisterPrimaryKeyCallback(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate 按模型建表（SQLite 开发库与测试使用；PostgreSQL 走 RunMigrations）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate 失败: %w", err)
	}
	return nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error", "dpanic", "panic", "fatal":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
