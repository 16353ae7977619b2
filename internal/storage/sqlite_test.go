package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "soultray/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "journal.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabledOnEmptyPath(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Error("empty path should return a nil store")
	}
}

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	entries := []ActivityEntry{
		{At: base, Kind: "shown", CardID: "c1", Variant: "error", Title: "Backup failed"},
		{At: base.Add(time.Second), Kind: "action", CardID: "c1", ActionID: "dismiss", DataJSON: `{"k":1}`},
		{At: base.Add(2 * time.Second), Kind: "dismissed", CardID: "c1", Reason: "user"},
	}
	for _, e := range entries {
		if err := st.AppendActivity(ctx, e); err != nil {
			t.Fatalf("AppendActivity: %v", err)
		}
	}

	got, err := st.RecentActivity(ctx, 10)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].Kind != "dismissed" || got[0].Reason != "user" {
		t.Errorf("newest row = %+v", got[0])
	}
	if got[2].Kind != "shown" || got[2].Title != "Backup failed" {
		t.Errorf("oldest row = %+v", got[2])
	}
	if got[1].DataJSON != `{"k":1}` {
		t.Errorf("action payload = %q", got[1].DataJSON)
	}
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := ActivityEntry{At: time.Now(), Kind: "shown", CardID: "c"}
		if err := st.AppendActivity(ctx, e); err != nil {
			t.Fatalf("AppendActivity: %v", err)
		}
	}
	got, err := st.RecentActivity(ctx, 2)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("rows = %d, want 2", len(got))
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	old := ActivityEntry{At: time.Now().Add(-48 * time.Hour), Kind: "shown", CardID: "old"}
	fresh := ActivityEntry{At: time.Now(), Kind: "shown", CardID: "fresh"}
	for _, e := range []ActivityEntry{old, fresh} {
		if err := st.AppendActivity(ctx, e); err != nil {
			t.Fatalf("AppendActivity: %v", err)
		}
	}

	n, err := st.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	got, err := st.RecentActivity(ctx, 10)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(got) != 1 || got[0].CardID != "fresh" {
		t.Errorf("remaining = %+v", got)
	}
}
