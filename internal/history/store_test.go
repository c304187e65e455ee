package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alucardeht/specsync/internal/syncer"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	results := []syncer.Result{
		{ID: "a", Trigger: "startup", StartedAt: base, Duration: 120 * time.Millisecond, Changed: true, BytesWritten: 2048, DocHash: "h1"},
		{ID: "b", Trigger: "file-change", StartedAt: base.Add(10 * time.Second), Duration: 5 * time.Second, Kind: syncer.KindTransport, Err: errors.New("connection refused")},
		{ID: "c", Trigger: "periodic", StartedAt: base.Add(20 * time.Second), Duration: 80 * time.Millisecond, DocHash: "h1"},
	}
	for _, r := range results {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record(%s): %v", r.ID, err)
		}
	}

	runs, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "c" || runs[2].ID != "a" {
		t.Errorf("runs not newest first: %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	failed := runs[1]
	if failed.OK() || failed.Kind != syncer.KindTransport || failed.Error != "connection refused" {
		t.Errorf("unexpected failed run %+v", failed)
	}
	if failed.Duration != 5*time.Second {
		t.Errorf("Duration = %v", failed.Duration)
	}

	first := runs[2]
	if !first.OK() || !first.Changed || first.BytesWritten != 2048 || first.DocHash != "h1" {
		t.Errorf("unexpected first run %+v", first)
	}
}

func TestListLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := syncer.Result{ID: string(rune('a' + i)), Trigger: "manual", StartedAt: time.Now().Add(time.Duration(i) * time.Second)}
		if err := s.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "e" {
		t.Errorf("unexpected runs %+v", runs)
	}
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	old := syncer.Result{ID: "old", Trigger: "manual", StartedAt: time.Now().Add(-48 * time.Hour)}
	recent := syncer.Result{ID: "new", Trigger: "manual", StartedAt: time.Now()}
	for _, r := range []syncer.Result{old, recent} {
		if err := s.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}

	runs, _ := s.List(ctx, 10)
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Errorf("unexpected runs after prune %+v", runs)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(context.Background(), syncer.Result{ID: "x", Trigger: "manual", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	runs, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after reopen, got %d", len(runs))
	}
}
