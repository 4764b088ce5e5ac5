package statecache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStore_UpdateAndSnapshot(t *testing.T) {
	s := New()

	s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "on"})
	s.Update("dev-2", "Front Door", map[string]any{"lock": "locked"})

	got := s.Snapshot()
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != `Desk Lamp: {"switch":"on"}` {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != `Front Door: {"lock":"locked"}` {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestStore_SnapshotEmpty(t *testing.T) {
	s := New()
	if got := s.Snapshot(); got != "" {
		t.Errorf("expected empty snapshot, got %q", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStore_UpdateReplacesStateKeepsOrder(t *testing.T) {
	s := New()

	s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "on"})
	s.Update("dev-2", "Front Door", map[string]any{"lock": "locked"})
	s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "off"})

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Re-updating dev-1 must not move it behind dev-2.
	if entries[0].ID != "dev-1" || entries[1].ID != "dev-2" {
		t.Errorf("order = [%s %s], want [dev-1 dev-2]", entries[0].ID, entries[1].ID)
	}
	if entries[0].State["switch"] != "off" {
		t.Errorf("state not replaced: %v", entries[0].State)
	}
}

func TestStore_EmptyStateRendersUnknown(t *testing.T) {
	s := New()
	s.Update("dev-1", "Mystery Plug", nil)

	if got := s.Snapshot(); got != "Mystery Plug: unknown" {
		t.Errorf("snapshot = %q", got)
	}
}

func TestStore_EmptyIDIgnored(t *testing.T) {
	s := New()
	s.Update("", "Ghost", map[string]any{"switch": "on"})
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", s.Len())
	}
}

func TestStore_Get(t *testing.T) {
	s := New()
	s.Update("dev-1", "Desk Lamp", map[string]any{"level": 40})

	e, ok := s.Get("dev-1")
	if !ok {
		t.Fatal("expected dev-1")
	}
	if e.Name != "Desk Lamp" {
		t.Errorf("name = %q", e.Name)
	}

	if _, ok := s.Get("dev-9"); ok {
		t.Error("expected miss for dev-9")
	}
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	s := New()
	orig := map[string]any{"switch": "on"}
	s.Update("dev-1", "Desk Lamp", orig)

	// Mutating the caller's map after Update must not leak in.
	orig["switch"] = "off"

	e, _ := s.Get("dev-1")
	if e.State["switch"] != "on" {
		t.Errorf("writer's later mutation leaked into store: %v", e.State)
	}

	// Mutating a read-out map must not leak back.
	e.State["switch"] = "broken"
	again, _ := s.Get("dev-1")
	if again.State["switch"] != "on" {
		t.Errorf("reader mutation leaked into store: %v", again.State)
	}
}

func TestStore_StaleAfterExpires(t *testing.T) {
	s := New(WithStaleAfter(10 * time.Millisecond))
	defer s.Stop()

	s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "on"})
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry before expiry, got %d", s.Len())
	}

	time.Sleep(100 * time.Millisecond)

	if s.Len() != 0 {
		t.Errorf("expected entry to expire, got %d", s.Len())
	}
	if got := s.Snapshot(); got != "" {
		t.Errorf("expected empty snapshot after expiry, got %q", got)
	}

	// A fresh update resurrects the id.
	s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "off"})
	if s.Len() != 1 {
		t.Errorf("expected 1 entry after re-update, got %d", s.Len())
	}
}

func TestStore_DefaultNeverExpires(t *testing.T) {
	s := New()
	s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "on"})

	time.Sleep(30 * time.Millisecond)

	if s.Len() != 1 {
		t.Errorf("entry expired without WithStaleAfter")
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "on"})
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("expected 1 entry after concurrent writes, got %d", s.Len())
	}
}

func TestProvider_GetContext(t *testing.T) {
	s := New()
	p := NewProvider(s)

	got, err := p.GetContext(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("expected empty context for empty store, got %q", got)
	}

	s.Update("dev-1", "Desk Lamp", map[string]any{"switch": "on"})

	got, err = p.GetContext(context.Background(), "turn off the lamp")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "### Device States") {
		t.Error("missing header")
	}
	if !strings.Contains(got, `Desk Lamp: {"switch":"on"}`) {
		t.Errorf("missing state line, got:\n%s", got)
	}
}
