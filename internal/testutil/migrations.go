package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqliteDialect rewrites the few postgres column types and functions the
// migrations use into their sqlite equivalents.
var sqliteDialect = strings.NewReplacer(
	"NOW()", "CURRENT_TIMESTAMP",
	"TIMESTAMPTZ", "DATETIME",
)

// MigrationsDir returns the absolute path of the repository's migrations.
func MigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// UpMigrations returns the up migration files in apply order.
func UpMigrations(t *testing.T) []string {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(MigrationsDir(), "*.up.sql"))
	if err != nil {
		t.Fatalf("failed to list migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no migrations found in %s", MigrationsDir())
	}
	sort.Strings(files)
	return files
}

// SplitStatements splits a migration into statements. Semicolons inside
// dollar-quoted bodies do not end a statement.
func SplitStatements(sql string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inDollar bool
	)
	for i := 0; i < len(sql); i++ {
		if strings.HasPrefix(sql[i:], "$$") {
			inDollar = !inDollar
			current.WriteString("$$")
			i++
			continue
		}
		if sql[i] == ';' && !inDollar {
			if s := strings.TrimSpace(current.String()); s != "" {
				stmts = append(stmts, s)
			}
			current.Reset()
			continue
		}
		current.WriteByte(sql[i])
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

// postgresOnly reports whether stmt is procedural DDL sqlite cannot run.
func postgresOnly(stmt string) bool {
	upper := strings.ToUpper(stmt)
	return strings.Contains(stmt, "$$") || strings.Contains(upper, "EXECUTE FUNCTION")
}

// SetupMigratedTestDB creates an in-memory SQLite database whose schema comes
// from the migration files rather than AutoMigrate, so CHECK constraints and
// column definitions match production. Trigger functions are skipped.
func SetupMigratedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:migrated%d?mode=memory&cache=shared", nextID())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { TeardownTestDB(t, db) })

	for _, file := range UpMigrations(t) {
		raw, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("failed to read %s: %v", file, err)
		}
		for _, stmt := range SplitStatements(string(raw)) {
			if postgresOnly(stmt) {
				continue
			}
			if err := db.Exec(sqliteDialect.Replace(stmt)).Error; err != nil {
				t.Fatalf("%s: %v\n%s", filepath.Base(file), err, stmt)
			}
		}
	}
	return db
}
