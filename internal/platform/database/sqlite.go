package database

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/migrator"
	"gorm.io/gorm/schema"
)

// exactSQLite 把 decimal(p,s) 列建成 text。
// SQLite 的 NUMERIC 亲和性会把 "0.1" 转成 REAL，金额就丢精度了；
// text 列原样保存 decimal 的字符串形式，读回来由 decimal.Scan 解析
type exactSQLite struct {
	sqlite.Dialector
}

func openSQLite(dsn string) gorm.Dialector {
	return exactSQLite{Dialector: sqlite.Dialector{DSN: dsn}}
}

func (d exactSQLite) DataTypeOf(field *schema.Field) string {
	if strings.HasPrefix(strings.ToLower(string(field.DataType)), "decimal") {
		return "text"
	}
	return d.Dialector.DataTypeOf(field)
}

// Migrator 必须持有外层 dialector，否则建表时仍走 sqlite 默认的类型映射
func (d exactSQLite) Migrator(db *gorm.DB) gorm.Migrator {
	return sqlite.Migrator{Migrator: migrator.Migrator{Config: migrator.Config{
		DB:                          db,
		Dialector:                   d,
		CreateIndexAfterCreateTable: true,
	}}}
}
