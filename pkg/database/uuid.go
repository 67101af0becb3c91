package database

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const primaryKeyCallback = "csm:assign_uuid"

// RegisterPrimaryKeyCallback 在 INSERT 前为空的 uuid 主键填充随机值
// PostgreSQL 与 SQLite 共用，不依赖 gen_random_uuid()
func RegisterPrimaryKeyCallback(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register(primaryKeyCallback, assignUUID); err != nil {
		return fmt.Errorf("注册主键回调失败: %w", err)
	}
	return nil
}

func assignUUID(db *gorm.DB) {
	if db.Statement.Schema == nil {
		return
	}
	pk := db.Statement.Schema.PrioritizedPrimaryField
	if pk == nil || pk.FieldType.Kind() != reflect.String {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			setUUID(db, pk, reflect.Indirect(rv.Index(i)))
		}
	case reflect.Struct:
		setUUID(db, pk, rv)
	}
}

func setUUID(db *gorm.DB, pk *schema.Field, rv reflect.Value) {
	if _, isZero := pk.ValueOf(db.Statement.Context, rv); !isZero {
		return
	}
	if err := pk.Set(db.Statement.Context, rv, uuid.NewString()); err != nil {
		db.AddError(fmt.Errorf("填充主键失败: %w", err))
	}
}
