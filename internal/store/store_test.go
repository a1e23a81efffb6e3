package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/elvis2workspace/pg-simula/internal/action"
	"github.com/elvis2workspace/pg-simula/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "simula.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(openTestDB(t), action.NewRegistry(), nil)
}

func TestInstalledFalseBeforeProvision(t *testing.T) {
	s := newTestStore(t)

	installed, err := s.Installed()
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if installed {
		t.Error("expected relation to be absent before Provision")
	}
}

func TestProvisionThenInstalled(t *testing.T) {
	s := newTestStore(t)

	if err := s.Provision(); err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	installed, err := s.Installed()
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !installed {
		t.Error("expected relation present after Provision")
	}
}

func TestUpsertRejectsUnknownAction(t *testing.T) {
	s := newTestStore(t)
	if err := s.Provision(); err != nil {
		t.Fatal(err)
	}

	err := s.Upsert("SELECT", "explode", 0)
	var unknown *model.UnknownActionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownActionError, got %v", err)
	}
	if unknown.Action != "explode" {
		t.Errorf("expected rejected action explode, got %q", unknown.Action)
	}

	rules, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 0 {
		t.Errorf("expected nothing written after rejected upsert, got %d rules", len(rules))
	}
}

func TestUpsertLastWriterWins(t *testing.T) {
	s := newTestStore(t)
	if err := s.Provision(); err != nil {
		t.Fatal(err)
	}

	if err := s.Upsert("DROP TABLE", "error", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("DROP TABLE", "wait", 5); err != nil {
		t.Fatal(err)
	}

	rules, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected exactly one rule for DROP TABLE, got %d", len(rules))
	}
	if rules[0].Action != "wait" || rules[0].Sec != 5 {
		t.Errorf("expected second write to fully replace the first, got %+v", rules[0])
	}
}

func TestReadAllPreservesPersistedOrder(t *testing.T) {
	s := newTestStore(t)
	if err := s.Provision(); err != nil {
		t.Fatal(err)
	}

	for _, op := range []string{"VACUUM", "SELECT", "DROP TABLE"} {
		if err := s.Upsert(op, "error", 0); err != nil {
			t.Fatal(err)
		}
	}

	rules, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"VACUUM", "SELECT", "DROP TABLE"}
	for i, op := range want {
		if rules[i].Operation != op {
			t.Errorf("expected rules[%d]=%s, got %s", i, op, rules[i].Operation)
		}
	}
}

func TestClearAllEmptiesRelation(t *testing.T) {
	s := newTestStore(t)
	if err := s.Provision(); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("SELECT", "wait", 2); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	rules, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 0 {
		t.Errorf("expected empty relation after ClearAll, got %d rules", len(rules))
	}
}

func TestReadAllWithoutRelationIsStorageError(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadAll()
	var storage *model.StorageError
	if !errors.As(err, &storage) {
		t.Fatalf("expected StorageError reading a missing relation, got %v", err)
	}
}

// recordingGuard counts scoped acquisitions so tests can verify the latch
// is held for every store call, including failing ones.
type recordingGuard struct {
	entered int
	held    bool
}

func (g *recordingGuard) During(fn func() error) error {
	g.entered++
	g.held = true
	defer func() { g.held = false }()
	return fn()
}

func TestEveryCallHoldsGuard(t *testing.T) {
	g := &recordingGuard{}
	s := New(openTestDB(t), action.NewRegistry(), g)

	if err := s.Provision(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Installed(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadAll(); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("SELECT", "error", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}

	if g.entered != 5 {
		t.Errorf("expected guard held for all 5 calls, got %d", g.entered)
	}
	if g.held {
		t.Error("expected guard released after the calls returned")
	}
}

func TestGuardReleasedOnFailure(t *testing.T) {
	g := &recordingGuard{}
	s := New(openTestDB(t), action.NewRegistry(), g)

	// No Provision: the read fails inside the guarded section.
	if _, err := s.ReadAll(); err == nil {
		t.Fatal("expected read against missing relation to fail")
	}
	if g.held {
		t.Error("expected guard released even though the call failed")
	}
}
