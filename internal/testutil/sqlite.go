// Package testutil builds isolated in-memory databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database named after the test and
// migrates the given models. One connection keeps transactions serialized.
func NewDB(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

// NewNode returns a snowflake node for deterministic-enough ids in tests.
func NewNode(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// FailInserts installs a trigger that aborts every insert into table.
func FailInserts(t testing.TB, db *gorm.DB, table string) {
	t.Helper()
	stmt := fmt.Sprintf(
		"CREATE TRIGGER fail_%[1]s_insert BEFORE INSERT ON %[1]s BEGIN SELECT RAISE(ABORT, '%[1]s insert failed'); END;",
		table,
	)
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("install trigger: %v", err)
	}
}

// BeforeFirstUpdate runs fn once, on the first UPDATE issued against table,
// inside the same transaction and before the statement executes.
func BeforeFirstUpdate(t testing.TB, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()
	fired := false
	err := db.Callback().Update().Before("gorm:update").Register("testutil:before_first_update_"+table, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		fn(tx.Session(&gorm.Session{NewDB: true}))
	})
	if err != nil {
		t.Fatalf("register update callback: %v", err)
	}
}
