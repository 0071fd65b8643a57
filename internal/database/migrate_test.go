package database

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEmbeddedMigrationsOrdered(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(ms) < 2 {
		t.Fatalf("expected at least two migrations, got %d", len(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].Version <= ms[i-1].Version {
			t.Fatalf("migrations out of order: %d after %d", ms[i].Version, ms[i-1].Version)
		}
	}
	if !strings.Contains(ms[1].SQL, "uq_ratings_user_photo") {
		t.Fatalf("rating uniqueness migration missing")
	}
	for _, m := range ms {
		if strings.Contains(m.SQL, "agg.total / agg.cnt") {
			t.Fatalf("%s divides the rating sum with DECIMAL precision", m.Name)
		}
	}
}

func TestLoadMigrationsRejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("SELECT 1")},
		"m/0001_b.sql": {Data: []byte("SELECT 2")},
	}
	if _, err := loadMigrations(fsys, "m"); err == nil {
		t.Fatalf("expected duplicate version error")
	}
}

func TestLoadMigrationsRejectsBadName(t *testing.T) {
	fsys := fstest.MapFS{"m/init.sql": {Data: []byte("SELECT 1")}}
	if _, err := loadMigrations(fsys, "m"); err == nil {
		t.Fatalf("expected missing prefix error")
	}
}

func TestApplySkipsRecordedVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	migrations := []Migration{
		{Version: 1, Name: "0001_init.sql", SQL: "CREATE TABLE a (id INT)"},
		{Version: 2, Name: "0002_more.sql", SQL: "CREATE TABLE b (id INT)"},
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs(2, "0002_more.sql").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := apply(context.Background(), db, migrations)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one applied migration, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
