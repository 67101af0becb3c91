package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // 容器内可能没有 zoneinfo

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Fixture  FixtureConfig  `mapstructure:"fixture"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// AppConfig 运行环境配置
type AppConfig struct {
	Env      string `mapstructure:"env"`   // development | production
	Debug    bool   `mapstructure:"debug"` // 关闭时禁止生成测试数据
	Timezone string `mapstructure:"timezone"`
}

// AllowsFixtures 是否允许执行破坏性的测试数据生成
func (c *AppConfig) AllowsFixtures() bool {
	return c.Debug && c.Env != EnvProduction
}

// Location 解析 "今天" 所在时区，未经 Validate 的配置回退 UTC
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// 运行环境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// 数据库类型
const (
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"
)

// DatabaseConfig 数据库配置（PostgreSQL 或本地 SQLite）
type DatabaseConfig struct {
	Type            string `mapstructure:"type"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（可选，用于生成任务互斥锁）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FixtureConfig 测试数据生成配置
type FixtureConfig struct {
	Seed        uint64        `mapstructure:"seed"` // 0 表示随机种子
	CourseNames []string      `mapstructure:"course_names"`
	DevPassword string        `mapstructure:"dev_password"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultCourseNames 默认生成的课程
var DefaultCourseNames = []string{"CS70", "CS61A", "CS61B", "CS61C", "EE16A"}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.debug", true)
	v.SetDefault("app.timezone", "America/Los_Angeles")

	v.SetDefault("db.type", DBTypeSQLite)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "csm_web")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.sqlite_path", "csm.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("fixture.seed", 0)
	v.SetDefault("fixture.course_names", DefaultCourseNames)
	v.SetDefault("fixture.dev_password", "password")
	v.SetDefault("fixture.lock_ttl", "10m")

	v.SetDefault("audit.enabled", true)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CSM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: app.timezone 无法解析 %q: %w", c.App.Timezone, err)
	}
	switch c.Database.Type {
	case DBTypePostgres, DBTypeSQLite:
	default:
		return fmt.Errorf("配置校验失败: db.type 必须为 postgres 或 sqlite，实际 %q", c.Database.Type)
	}
	if c.Database.Type == DBTypeSQLite && c.Database.SQLitePath == "" {
		return fmt.Errorf("配置校验失败: db.sqlite_path 不能为空")
	}
	if len(c.Fixture.CourseNames) == 0 {
		return fmt.Errorf("配置校验失败: fixture.course_names 不能为空")
	}
	seen := make(map[string]bool, len(c.Fixture.CourseNames))
	for _, name := range c.Fixture.CourseNames {
		if name == "" {
			return fmt.Errorf("配置校验失败: fixture.course_names 含空课程名")
		}
		if seen[name] {
			return fmt.Errorf("配置校验失败: fixture.course_names 课程名重复 %q", name)
		}
		seen[name] = true
	}
	if c.Fixture.LockTTL < 0 {
		return fmt.Errorf("配置校验失败: fixture.lock_ttl 不能为负数")
	}
	return nil
}
