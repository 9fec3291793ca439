package db

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

// embeddedVersions walks the migrate source from first to last version.
func embeddedVersions(t *testing.T) ([]uint, string) {
	t.Helper()
	src, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	defer src.Close()

	var versions []uint
	var all strings.Builder
	v, err := src.First()
	for err == nil {
		versions = append(versions, v)
		r, _, rerr := src.ReadUp(v)
		if rerr != nil {
			t.Fatalf("ReadUp(%d): %v", v, rerr)
		}
		body, rerr := io.ReadAll(r)
		r.Close()
		if rerr != nil {
			t.Fatalf("read migration %d: %v", v, rerr)
		}
		all.Write(body)
		v, err = src.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("walking migrations: %v", err)
	}
	return versions, all.String()
}

func TestEmbeddedMigrationsOrdered(t *testing.T) {
	versions, _ := embeddedVersions(t)
	if len(versions) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i-1] >= versions[i] {
			t.Errorf("migrations out of order: %d before %d", versions[i-1], versions[i])
		}
	}

	// Files not matching NNN_name.up.sql are skipped by the source; catch them here.
	files, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != len(versions) {
		t.Errorf("%d migration files but %d versions recognised: %v", len(files), len(versions), files)
	}
	for _, f := range files {
		if !strings.HasSuffix(f, ".up.sql") {
			t.Errorf("%s: expected an .up.sql migration", f)
		}
	}
}

func TestEmbeddedMigrationsCreateCoreTables(t *testing.T) {
	_, all := embeddedVersions(t)
	for _, table := range []string{
		"accounts", "transactions", "entries", "document_sequences", "agencies", "agency_users",
		"user_sessions", "invoices", "invoice_lines", "payments", "commission_rules",
		"commission_rule_tiers", "commissions", "bookings", "ranking_snapshots",
	} {
		if !strings.Contains(all, "CREATE TABLE "+table+" (") {
			t.Errorf("no migration creates table %s", table)
		}
	}
}

func TestNewSourceRejectsDuplicateVersions(t *testing.T) {
	files := fstest.MapFS{
		"migrations/001_a.up.sql": {Data: []byte("SELECT 1;")},
		"migrations/001_b.up.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := newSource(files); err == nil {
		t.Fatal("expected an error for two migrations sharing version 001")
	}
}
