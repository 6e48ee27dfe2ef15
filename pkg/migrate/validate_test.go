package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-sync/pkg/migrate"
)

func TestCreateThenValidateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Review Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if base := filepath.Base(path); !strings.HasSuffix(base, "_add_review_index.sql") {
		t.Fatalf("unexpected sanitized filename %q", base)
	}

	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("freshly created migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "not-a-migration.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateDirRejectsMissingDownMarker(t *testing.T) {
	dir := t.TempDir()
	content := "-- +goose Up\nCREATE TABLE widgets (id TEXT PRIMARY KEY);\n"
	if err := os.WriteFile(filepath.Join(dir, "20260110090000_create_widgets.sql"), []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "+goose Down") {
		t.Fatalf("expected missing Down marker error, got %v", err)
	}
}

func TestShippedMigrationsValidate(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations should validate: %v", err)
	}
}
