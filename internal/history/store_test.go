package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestOpenRejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected an error for a directory path")
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	records := []Compile{
		{ModuleKey: "main", Timestamp: base, OK: true, DepCount: 2, GLSLBytes: 512, Duration: 3 * time.Millisecond},
		{ModuleKey: "sky", Timestamp: base.Add(time.Minute), OK: false, Error: "no vertex shader entry function"},
	}
	for _, r := range records {
		if err := s.RecordCompile(r); err != nil {
			t.Fatalf("RecordCompile failed: %v", err)
		}
	}

	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}

	// Newest first.
	if got[0].ModuleKey != "sky" || got[1].ModuleKey != "main" {
		t.Errorf("unexpected order: %q, %q", got[0].ModuleKey, got[1].ModuleKey)
	}
	if got[0].OK || got[0].Error == "" {
		t.Errorf("failed compile not round-tripped: %+v", got[0])
	}
	if !got[1].OK || got[1].DepCount != 2 || got[1].GLSLBytes != 512 {
		t.Errorf("successful compile not round-tripped: %+v", got[1])
	}
	if got[1].Duration != 3*time.Millisecond {
		t.Errorf("duration not round-tripped: %v", got[1].Duration)
	}
}

func TestRecentLimit(t *testing.T) {
	s := openStore(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.RecordCompile(Compile{
			ModuleKey: "main",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			OK:        true,
		})
		if err != nil {
			t.Fatalf("RecordCompile failed: %v", err)
		}
	}

	got, err := s.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 records, got %d", len(got))
	}
}

func TestRecordRequiresModuleKey(t *testing.T) {
	s := openStore(t)
	if err := s.RecordCompile(Compile{}); err == nil {
		t.Fatal("expected an error for a record without a module key")
	}
}

func TestRecordUpsertsSameTimestamp(t *testing.T) {
	s := openStore(t)

	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	if err := s.RecordCompile(Compile{ModuleKey: "main", Timestamp: ts, OK: false, Error: "parse failed"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordCompile(Compile{ModuleKey: "main", Timestamp: ts, OK: true, GLSLBytes: 64}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected a single upserted record, got %d", len(got))
	}
	if !got[0].OK || got[0].GLSLBytes != 64 || got[0].Error != "" {
		t.Errorf("upsert did not replace values: %+v", got[0])
	}
}
