package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"persona-forge/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDraftStoreSetTraitValueEveryField(t *testing.T) {
	clock := newFakeClock()
	store := NewDraftStore(clock.Now)

	for _, c := range domain.TraitCatalog {
		for _, f := range c.Fields {
			before := store.Current().Metadata.LastModified
			clock.Advance(time.Millisecond)
			p, err := store.SetTraitValue(c.Key, f.Key, 0.25)
			if err != nil {
				t.Fatalf("%s.%s: %v", c.Key, f.Key, err)
			}
			got, _ := store.Current().Traits.Value(c.Key, f.Key)
			if got != 0.25 {
				t.Fatalf("%s.%s: expected 0.25, got %v", c.Key, f.Key, got)
			}
			if !p.Metadata.LastModified.After(before) {
				t.Fatalf("%s.%s: expected lastModified to increase", c.Key, f.Key)
			}
		}
	}
	if !store.Snapshot().IsDirty {
		t.Fatalf("expected dirty after edits")
	}
}

func TestDraftStoreLastModifiedNeverGoesBack(t *testing.T) {
	clock := newFakeClock()
	store := NewDraftStore(clock.Now)
	first, _ := store.SetName("A")

	clock.Advance(-time.Hour)
	second, _ := store.SetName("B")
	if second.Metadata.LastModified.Before(first.Metadata.LastModified) {
		t.Fatalf("lastModified went backwards: %v < %v", second.Metadata.LastModified, first.Metadata.LastModified)
	}

	// Mismo instante: se permite el empate.
	third, _ := store.SetDescription("same tick")
	if !third.Metadata.LastModified.Equal(second.Metadata.LastModified) {
		t.Fatalf("expected tie to keep the same timestamp")
	}
}

func TestDraftStoreMutationsDoNotAliasPreviousValues(t *testing.T) {
	store := NewDraftStore(nil)
	before := store.Current()
	after, err := store.SetTraitValue(domain.TraitCategoryCreativity, "originality", 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before.Traits.Creativity.Originality != domain.DefaultTraitValue {
		t.Fatalf("previous value was mutated")
	}
	if after.Traits.Creativity.Originality != 0.9 {
		t.Fatalf("expected new value returned")
	}
}

func TestDraftStoreRejectsInvalidTraitsWithoutChange(t *testing.T) {
	store := NewDraftStore(nil)
	rev := store.Snapshot().Revision

	if _, err := store.SetTraitValue("humor", "wit", 0.4); !errors.Is(err, domain.ErrUnknownTrait) {
		t.Fatalf("expected unknown trait, got %v", err)
	}
	if _, err := store.SetTraitValue(domain.TraitCategoryEmotionalRange, "empathy", 1.5); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	snap := store.Snapshot()
	if snap.Revision != rev || snap.IsDirty {
		t.Fatalf("expected no state change on rejected mutation")
	}
}

func TestDraftStoreReset(t *testing.T) {
	store := NewDraftStore(nil)
	prev := store.Current()
	_, _ = store.SetTraitValue(domain.TraitCategoryRiskTolerance, "caution", 0.1)

	next := store.Reset()
	if next.ID == prev.ID {
		t.Fatalf("expected fresh id after reset")
	}
	for i, v := range next.Traits.Vector() {
		if v != domain.DefaultTraitValue {
			t.Fatalf("trait %d expected 0.5, got %v", i, v)
		}
	}
	snap := store.Snapshot()
	if snap.IsDirty || snap.LastSavedAt != nil || snap.Persona.Metadata.Version != 1 {
		t.Fatalf("unexpected snapshot after reset: %+v", snap)
	}
}

func TestDraftStoreLoadBumpsVersion(t *testing.T) {
	clock := newFakeClock()
	store := NewDraftStore(clock.Now)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		metadata    domain.Metadata
		wantVersion int
		wantCreated time.Time
	}{
		{name: "existing metadata", metadata: domain.Metadata{CreatedAt: created, LastModified: created, Version: 4}, wantVersion: 5, wantCreated: created},
		{name: "absent metadata", metadata: domain.Metadata{}, wantVersion: 1, wantCreated: clock.Now()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.NewPersona(created)
			p.Metadata = tt.metadata
			_, _ = store.SetName("dirty first")

			loaded := store.Load(p)
			if loaded.Metadata.Version != tt.wantVersion {
				t.Fatalf("expected version %d, got %d", tt.wantVersion, loaded.Metadata.Version)
			}
			if !loaded.Metadata.CreatedAt.Equal(tt.wantCreated) {
				t.Fatalf("expected createdAt %v, got %v", tt.wantCreated, loaded.Metadata.CreatedAt)
			}
			if !loaded.Metadata.LastModified.Equal(clock.Now()) {
				t.Fatalf("expected lastModified stamped now")
			}
			snap := store.Snapshot()
			if snap.IsDirty || snap.LastSavedAt == nil {
				t.Fatalf("expected load to act as a checkpoint, got %+v", snap)
			}
			if loaded.ID != p.ID {
				t.Fatalf("expected id preserved")
			}
		})
	}
}

func TestDraftStoreMarkSavedRevisionGuard(t *testing.T) {
	clock := newFakeClock()
	store := NewDraftStore(clock.Now)
	clock.Advance(time.Second)
	_, _ = store.SetName("Ada")
	rev := store.Snapshot().Revision

	_, _ = store.SetDescription("edited while saving")
	edited := store.Current().Metadata.LastModified
	clock.Advance(time.Minute)
	if _, ok := store.MarkSaved(rev); ok {
		t.Fatalf("expected stale revision to be ignored")
	}
	if snap := store.Snapshot(); !snap.IsDirty || !snap.Persona.Metadata.LastModified.Equal(edited) {
		t.Fatalf("expected untouched dirty draft, got %+v", snap)
	}

	snap, ok := store.MarkSaved(store.Snapshot().Revision)
	if !ok || snap.IsDirty || snap.LastSavedAt == nil {
		t.Fatalf("expected mark saved to clear dirty, got %+v ok=%v", snap, ok)
	}
	want := clock.Now()
	if !snap.Persona.Metadata.LastModified.Equal(want) || !snap.LastSavedAt.Equal(want) {
		t.Fatalf("expected lastModified and lastSavedAt stamped at %v, got %v / %v",
			want, snap.Persona.Metadata.LastModified, *snap.LastSavedAt)
	}
	if snap.Persona.Name != "Ada" || snap.Persona.Description != "edited while saving" {
		t.Fatalf("mark saved must not touch persona data")
	}
}

func TestDraftStorePendingSaveMatchesMarkSavedAt(t *testing.T) {
	clock := newFakeClock()
	store := NewDraftStore(clock.Now)
	_, _ = store.SetName("Ada")
	clock.Advance(time.Minute)

	pending, rev := store.PendingSave()
	if store.Snapshot().Persona.Metadata.LastModified.Equal(pending.Metadata.LastModified) {
		t.Fatalf("pending save must not modify the draft")
	}
	clock.Advance(time.Second)
	snap, ok := store.MarkSavedAt(rev, pending.Metadata.LastModified)
	if !ok {
		t.Fatalf("expected mark saved to apply")
	}
	if snap.Persona != pending {
		t.Fatalf("expected draft equal to committed copy, got %+v vs %+v", snap.Persona, pending)
	}
}

func TestDraftStoreNotifiesListeners(t *testing.T) {
	store := NewDraftStore(nil)
	var seen []string
	store.OnChange(func(p domain.Persona) { seen = append(seen, p.Name) })

	_, _ = store.SetName("one")
	_, _ = store.SetTraitValue("bogus", "x", 0.1)
	store.Reset()

	if len(seen) != 2 || seen[0] != "one" || seen[1] != domain.DefaultPersonaName {
		t.Fatalf("unexpected notifications %v", seen)
	}
}
