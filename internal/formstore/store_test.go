package formstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/adityalohuni/htmlform/internal/form"
)

func record(name string) form.Record {
	f := form.New()
	f.Name = name
	f.Fields.Append(form.NewField("q", "text", form.NewFieldValue(name, true)))
	return f.Record()
}

func TestStorePutGetLatest(t *testing.T) {
	s := NewStore("")
	if _, ok := s.Latest(); ok {
		t.Fatalf("empty store has no latest entry")
	}
	first, err := s.Put(Entry{Form: record("a")})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", first)
	}
	second, _ := s.Put(Entry{Form: record("b")})
	latest, ok := s.Latest()
	if !ok || latest.ID != second.ID {
		t.Fatalf("expected latest %s, got %s", second.ID, latest.ID)
	}

	updated, _ := s.Put(Entry{ID: first.ID, Form: record("a2")})
	if !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("update must keep creation time")
	}
	got, ok := s.Get(first.ID)
	if !ok || *got.Form.Name != "a2" {
		t.Fatalf("expected updated record")
	}
	if s.Count() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Count())
	}

	if err := s.Delete(first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(first.ID); !errors.Is(err, form.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if latest, _ := s.Latest(); latest.ID != second.ID {
		t.Fatalf("latest should fall back to remaining entry")
	}
}

func TestStorePersistsAndCompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.json")
	s := NewStore(path)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "mid", "new"} {
		if _, err := s.Put(Entry{Form: record(name), CreatedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	removed, err := s.Compact(2)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}

	reloaded := NewStore(path)
	list := reloaded.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", len(list))
	}
	if *list[0].Form.Name != "mid" || *list[1].Form.Name != "new" {
		t.Fatalf("unexpected order after reload: %s, %s", *list[0].Form.Name, *list[1].Form.Name)
	}
	if latest, ok := reloaded.Latest(); !ok || *latest.Form.Name != "new" {
		t.Fatalf("latest should be restored on load")
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore("")
	first, err := s.Put(Entry{Form: record("a")})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(Entry{Form: record("b")}); err != nil {
		t.Fatalf("put: %v", err)
	}

	updated, err := s.Update(first.ID, func(e *Entry) error {
		e.Source = "edited"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Source != "edited" || !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("unexpected updated entry: %+v", updated)
	}
	if latest, _ := s.Latest(); latest.ID != first.ID {
		t.Fatalf("updated entry should become latest, got %s", latest.ID)
	}

	boom := errors.New("boom")
	if _, err := s.Update(first.ID, func(e *Entry) error {
		e.Source = "lost"
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if got, _ := s.Get(first.ID); got.Source != "edited" {
		t.Fatalf("failed update must not be stored, got %q", got.Source)
	}

	if err := s.Delete(first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Update(first.ID, func(*Entry) error { return nil }); !errors.Is(err, form.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := s.Get(first.ID); ok {
		t.Fatalf("update must not recreate a deleted entry")
	}
}
