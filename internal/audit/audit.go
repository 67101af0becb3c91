// Package audit 在 GORM 写入生命周期上挂载结构化审计日志。
//
// 回调与 ORM 的 create/update/delete 处理链同步执行：
//   - post-save：写入成功后记录 created / updated 及完整字段
//   - pre-save：写入前记录当前内存中的字段快照
//   - pre-delete：删除前记录待删除记录的字段快照
//
// 批量导入（raw load）时通过 Raw 标记会话，所有钩子静默。
// 钩子只产生日志，不向 Statement 添加错误，也不会因日志异常影响写入结果。
package audit

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// Event 生命周期事件
type Event string

const (
	EventPostSave  Event = "post_save"
	EventPreSave   Event = "pre_save"
	EventPreDelete Event = "pre_delete"
)

// Rule 某张表在某个事件上的日志级别
type Rule struct {
	Table string
	Event Event
	Level zapcore.Level
}

// Rules 规则集合，按 (事件, 表名) 查找
type Rules map[Event]map[string]zapcore.Level

// NewRules 由规则列表构建查找表
func NewRules(rules ...Rule) Rules {
	rs := make(Rules)
	for _, r := range rules {
		if rs[r.Event] == nil {
			rs[r.Event] = make(map[string]zapcore.Level)
		}
		rs[r.Event][r.Table] = r.Level
	}
	return rs
}

func (rs Rules) lookup(event Event, table string) (zapcore.Level, bool) {
	lv, ok := rs[event][table]
	return lv, ok
}

// DefaultRules 调度模型的审计级别：核心实体 INFO，外围实体 DEBUG
func DefaultRules() Rules {
	return NewRules(
		// 创建 / 更新
		Rule{Table: "users", Event: EventPostSave, Level: zapcore.InfoLevel},
		Rule{Table: "profiles", Event: EventPostSave, Level: zapcore.InfoLevel},
		Rule{Table: "courses", Event: EventPostSave, Level: zapcore.DebugLevel},
		Rule{Table: "overrides", Event: EventPostSave, Level: zapcore.DebugLevel},
		Rule{Table: "sections", Event: EventPostSave, Level: zapcore.DebugLevel},

		// 出勤写入前快照
		Rule{Table: "attendances", Event: EventPreSave, Level: zapcore.InfoLevel},

		// 删除
		Rule{Table: "users", Event: EventPreDelete, Level: zapcore.InfoLevel},
		Rule{Table: "attendances", Event: EventPreDelete, Level: zapcore.InfoLevel},
		Rule{Table: "courses", Event: EventPreDelete, Level: zapcore.InfoLevel},
		Rule{Table: "profiles", Event: EventPreDelete, Level: zapcore.InfoLevel},
		Rule{Table: "sections", Event: EventPreDelete, Level: zapcore.InfoLevel},
		Rule{Table: "spacetimes", Event: EventPreDelete, Level: zapcore.InfoLevel},
		Rule{Table: "overrides", Event: EventPreDelete, Level: zapcore.InfoLevel},
	)
}

// ── raw load 标记 ──

const rawKey = "csm:audit_raw"

// Raw 返回标记为批量导入的会话，其上的写入不触发审计日志
// 返回值可复用，标记随每条语句复制
func Raw(db *gorm.DB) *gorm.DB {
	return db.Set(rawKey, true).Session(&gorm.Session{})
}

// IsRaw 会话是否处于批量导入模式
func IsRaw(db *gorm.DB) bool {
	v, ok := db.Get(rawKey)
	if !ok {
		return false
	}
	raw, _ := v.(bool)
	return raw
}

// ── 回调注册 ──

// Hooks 审计回调
type Hooks struct {
	logger *zap.Logger
	rules  Rules
}

// Register 在 db 的 create/update/delete 处理链上注册审计回调
func Register(db *gorm.DB, logger *zap.Logger, rules Rules) (*Hooks, error) {
	h := &Hooks{logger: logger.Named("audit"), rules: rules}

	cb := db.Callback()
	steps := []struct {
		name string
		err  error
	}{
		{"audit:pre_save_create", cb.Create().Before("gorm:create").Register("audit:pre_save_create", h.preSave)},
		{"audit:post_create", cb.Create().After("gorm:create").Register("audit:post_create", h.postCreate)},
		{"audit:pre_save_update", cb.Update().Before("gorm:update").Register("audit:pre_save_update", h.preSave)},
		{"audit:post_update", cb.Update().After("gorm:update").Register("audit:post_update", h.postUpdate)},
		{"audit:pre_delete", cb.Delete().Before("gorm:delete").Register("audit:pre_delete", h.preDelete)},
	}
	for _, s := range steps {
		if s.err != nil {
			return nil, fmt.Errorf("注册审计回调 %s 失败: %w", s.name, s.err)
		}
	}
	return h, nil
}

func (h *Hooks) preSave(db *gorm.DB) {
	h.emit(db, EventPreSave, "写入前快照")
}

func (h *Hooks) postCreate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	h.emit(db, EventPostSave, "已创建记录", zap.Bool("created", true))
}

func (h *Hooks) postUpdate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	h.emit(db, EventPostSave, "已更新记录", zap.Bool("created", false))
}

func (h *Hooks) preDelete(db *gorm.DB) {
	h.emit(db, EventPreDelete, "删除前快照")
}

func (h *Hooks) emit(db *gorm.DB, event Event, msg string, extra ...zap.Field) {
	defer func() {
		if r := recover(); r != nil {
			h.reportPanic(r)
		}
	}()

	if IsRaw(db) || db.Statement.Schema == nil {
		return
	}
	sch := db.Statement.Schema
	level, ok := h.rules.lookup(event, sch.Table)
	if !ok {
		return
	}
	if !h.logger.Core().Enabled(level) {
		return
	}

	snapshots := Snapshot(db)
	if len(snapshots) == 0 {
		// 无实例可导出时仍记录一条事件
		snapshots = []map[string]interface{}{{}}
	}
	for _, snap := range snapshots {
		ce := h.logger.Check(level, msg)
		if ce == nil {
			return
		}
		fields := append([]zap.Field{
			zap.Bool("audit", true),
			zap.String("event", string(event)),
			zap.String("model", sch.Name),
			zap.String("table", sch.Table),
			zap.Any("instance", snap),
		}, extra...)
		ce.Write(fields...)
	}
}

// reportPanic 上报钩子内的 panic；日志输出本身失败时直接丢弃，不影响写入
func (h *Hooks) reportPanic(r interface{}) {
	defer func() { _ = recover() }()
	h.logger.Warn("审计日志异常", zap.Any("panic", r))
}

// Snapshot 以 列名 → 值 的形式导出 Statement 中每条记录的字段
func Snapshot(db *gorm.DB) []map[string]interface{} {
	sch := db.Statement.Schema
	rv := db.Statement.ReflectValue
	if sch == nil || !rv.IsValid() {
		return nil
	}

	var rows []reflect.Value
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			rows = append(rows, reflect.Indirect(rv.Index(i)))
		}
	case reflect.Struct:
		rows = append(rows, rv)
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		if row.Kind() != reflect.Struct {
			continue
		}
		snap := make(map[string]interface{}, len(sch.DBNames))
		for _, name := range sch.DBNames {
			field := sch.LookUpField(name)
			if field == nil {
				continue
			}
			v, _ := field.ValueOf(db.Statement.Context, row)
			snap[name] = v
		}
		out = append(out, snap)
	}
	return out
}
