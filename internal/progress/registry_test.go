package progress_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/conatuslab/conatuslab/internal/progress"
	"github.com/conatuslab/conatuslab/internal/storage"
)

func TestStorageKey(t *testing.T) {
	if got := progress.StorageKey("base", ""); got != "base" {
		t.Errorf("StorageKey(base, \"\") = %q, want base", got)
	}

	a := progress.StorageKey("base", "alice")
	b := progress.StorageKey("base", "bob")
	if a == b {
		t.Error("different profiles share a key")
	}
	if a != progress.StorageKey("base", "alice") {
		t.Error("StorageKey is not deterministic")
	}
	if !strings.HasPrefix(a, "base:") || len(a) != len("base:")+32 {
		t.Errorf("StorageKey = %q, want base: plus 32 hex chars", a)
	}
	if strings.Contains(progress.StorageKey("base", "../../etc"), "..") {
		t.Error("profile ID leaked into the key")
	}
}

func newTestRegistry(t *testing.T, clock *fixedClock, kv storage.Store, limit int) *progress.Registry {
	t.Helper()
	return progress.NewRegistry(progress.Options{
		Catalog:  testCatalog(t),
		Storage:  kv,
		Clock:    clock.Now,
		Location: time.UTC,
	}, limit)
}

func TestRegistry_IsolatesProfiles(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	reg := newTestRegistry(t, &fixedClock{day0}, kv, 0)

	alice, err := reg.For(ctx, "alice")
	if err != nil {
		t.Fatalf("For(alice) error = %v", err)
	}
	bob, err := reg.For(ctx, "bob")
	if err != nil {
		t.Fatalf("For(bob) error = %v", err)
	}
	if again, _ := reg.For(ctx, "alice"); again != alice {
		t.Error("For(alice) returned a different store on the second call")
	}
	if reg.Loaded() != 2 {
		t.Errorf("Loaded() = %d, want 2", reg.Loaded())
	}

	alice.MarkLessonComplete(ctx, courseID, basics, "clause-drills")
	if got := bob.Snapshot().TotalHoursSpent; got != 0 {
		t.Errorf("bob TotalHoursSpent = %v, want 0", got)
	}

	if _, err := kv.Get(ctx, progress.StorageKey(progress.DefaultStorageKey, "alice")); err != nil {
		t.Errorf("alice snapshot not stored under the derived key: %v", err)
	}
	if _, err := kv.Get(ctx, progress.StorageKey(progress.DefaultStorageKey, "bob")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("bob has no changes but was stored: %v", err)
	}
}

func TestRegistry_ViewOfUnknownProfileLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	reg := newTestRegistry(t, &fixedClock{day0}, kv, 0)

	for i := 0; i < 50; i++ {
		s, err := reg.View(ctx, fmt.Sprintf("visitor-%d", i))
		if err != nil {
			t.Fatalf("View() error = %v", err)
		}
		if len(s.Snapshot().Courses) != 1 || s.Stored() {
			t.Fatalf("View() = %+v stored=%v, want a zeroed unstored record", s.Snapshot(), s.Stored())
		}
	}
	if reg.Loaded() != 0 {
		t.Errorf("Loaded() = %d, want 0", reg.Loaded())
	}
	for i := 0; i < 50; i++ {
		key := progress.StorageKey(progress.DefaultStorageKey, fmt.Sprintf("visitor-%d", i))
		if _, err := kv.Get(ctx, key); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Get(%s) error = %v, want ErrNotFound", key, err)
		}
	}
}

func TestRegistry_ViewKeepsStoredProfiles(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	reg := newTestRegistry(t, &fixedClock{day0}, kv, 0)

	s, _ := reg.For(ctx, "erin")
	s.MarkLessonComplete(ctx, courseID, basics, "clause-drills")

	other := newTestRegistry(t, &fixedClock{day0}, kv, 0)
	v, err := other.View(ctx, "erin")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Snapshot().TotalHoursSpent != 0.5 {
		t.Errorf("TotalHoursSpent = %v, want 0.5", v.Snapshot().TotalHoursSpent)
	}
	if other.Loaded() != 1 {
		t.Errorf("Loaded() = %d, want 1", other.Loaded())
	}
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, &fixedClock{day0}, storage.NewMemoryStore(), 2)

	a, _ := reg.For(ctx, "a")
	reg.For(ctx, "b")
	reg.For(ctx, "a")
	reg.For(ctx, "c")

	if reg.Loaded() != 2 {
		t.Fatalf("Loaded() = %d, want 2", reg.Loaded())
	}
	if again, _ := reg.For(ctx, "a"); again != a {
		t.Error("recently used profile a was evicted")
	}
}

func TestRegistry_KeepsSubscribedProfiles(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, &fixedClock{day0}, storage.NewMemoryStore(), 1)

	a, _ := reg.For(ctx, "a")
	_, cancel := a.Subscribe()
	defer cancel()

	reg.For(ctx, "b")
	if again, _ := reg.For(ctx, "a"); again != a {
		t.Error("subscribed profile was evicted")
	}
}

func TestRegistry_EvictedProfileReloadsFromStorage(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, &fixedClock{day0}, storage.NewMemoryStore(), 1)

	a, _ := reg.For(ctx, "a")
	a.MarkLessonComplete(ctx, courseID, basics, "clause-drills")
	reg.For(ctx, "b")

	reloaded, err := reg.For(ctx, "a")
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if reloaded == a {
		t.Fatal("profile a should have been evicted")
	}
	if got := reloaded.Snapshot().TotalHoursSpent; got != 0.5 {
		t.Errorf("TotalHoursSpent = %v, want 0.5", got)
	}
}

func TestRegistry_StartsStreakOnFirstVisit(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, &fixedClock{day0}, storage.NewMemoryStore(), 0)

	s, err := reg.For(ctx, "carol")
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	// A fresh record is active today, so the first check keeps streak 0.
	if got := s.Snapshot().StreakDays; got != 0 {
		t.Errorf("StreakDays = %d, want 0", got)
	}
}

func seedStreak(t *testing.T, kv storage.Store, key string, lastActive time.Time, streak int) {
	t.Helper()
	data, err := progress.Encode(progress.UserProgress{
		Courses:        []progress.CourseProgress{},
		StreakDays:     streak,
		LastActive:     lastActive,
		SkillsAcquired: []string{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Put(context.Background(), key, data); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_OpenIsNotActivity(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	lastActive := day0.AddDate(0, 0, -1)
	seedStreak(t, kv, progress.DefaultStorageKey, lastActive, 0)
	before, _ := kv.Get(ctx, progress.DefaultStorageKey)

	reg := newTestRegistry(t, &fixedClock{day0}, kv, 0)
	s, err := reg.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if snap := s.Snapshot(); snap.StreakDays != 0 || !snap.LastActive.Equal(lastActive) {
		t.Errorf("snapshot streak=%d lastActive=%v, want the stored values", snap.StreakDays, snap.LastActive)
	}
	if reg.Loaded() != 0 {
		t.Errorf("Loaded() = %d, want 0", reg.Loaded())
	}

	// The seeded record gains the catalog course on load, but keeps its streak.
	after, _ := kv.Get(ctx, progress.DefaultStorageKey)
	stored, err := progress.Decode(after)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if stored.StreakDays != 0 || !stored.LastActive.Equal(lastActive) {
		t.Errorf("stored streak=%d lastActive=%v, want untouched (before: %s)", stored.StreakDays, stored.LastActive, before)
	}

	if _, err := reg.Open(ctx, "nobody"); err != nil {
		t.Fatalf("Open(nobody) error = %v", err)
	}
	if _, err := kv.Get(ctx, progress.StorageKey(progress.DefaultStorageKey, "nobody")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Open created a record for an unknown profile: %v", err)
	}
}

func TestRegistry_ForCountsFirstVisit(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	seedStreak(t, kv, progress.DefaultStorageKey, day0.AddDate(0, 0, -1), 1)

	reg := newTestRegistry(t, &fixedClock{day0}, kv, 0)
	s, err := reg.For(ctx, "")
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if got := s.Snapshot().StreakDays; got != 2 {
		t.Errorf("StreakDays = %d, want 2", got)
	}
}

func TestRegistry_ResetFromAnotherProcessSticks(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	server := newTestRegistry(t, &fixedClock{day0}, kv, 0)
	cli := newTestRegistry(t, &fixedClock{day0}, kv, 0)

	s, _ := server.For(ctx, "frank")
	if err := s.MarkLessonComplete(ctx, courseID, basics, "what-is-a-clause"); err != nil {
		t.Fatal(err)
	}

	op, err := cli.Open(ctx, "frank")
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if err := s.MarkLessonComplete(ctx, courseID, basics, "clause-drills"); err != nil {
		t.Fatal(err)
	}

	data, _ := kv.Get(ctx, progress.StorageKey(progress.DefaultStorageKey, "frank"))
	stored, err := progress.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	cp, _ := stored.Course(courseID)
	if stored.TotalHoursSpent != 0.5 || cp.CompletedLessonCount() != 1 {
		t.Errorf("stored hours=%v lessons=%d, want 0.5 and 1", stored.TotalHoursSpent, cp.CompletedLessonCount())
	}

	// Reads through the registry see the reset too.
	again, _ := server.View(ctx, "frank")
	if again.Snapshot().TotalHoursSpent != 0.5 {
		t.Errorf("View TotalHoursSpent = %v, want 0.5", again.Snapshot().TotalHoursSpent)
	}
}

func TestRegistry_RunStreakTicker(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	clock := &fixedClock{day0}
	reg := newTestRegistry(t, clock, kv, 0)

	s, _ := reg.For(ctx, "gina")
	s.MarkLessonComplete(ctx, courseID, basics, "clause-drills")
	clock.t = day0.AddDate(0, 0, 1)

	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		reg.RunStreakTicker(tickCtx, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for s.Snapshot().StreakDays != 1 {
		select {
		case <-deadline:
			t.Fatal("ticker did not run the initial streak check")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunStreakTicker did not return after cancel")
	}
}

func TestRegistry_PropagatesStorageErrors(t *testing.T) {
	ctx := context.Background()
	kv := &flakyStorage{MemoryStore: storage.NewMemoryStore(), failPuts: true}
	reg := newTestRegistry(t, &fixedClock{day0}, kv, 0)

	s, err := reg.For(ctx, "dave")
	if err != nil {
		t.Fatalf("For() error = %v, want nothing written yet", err)
	}
	if err := s.MarkLessonComplete(ctx, courseID, basics, "clause-drills"); !errors.Is(err, errQuotaExceeded) {
		t.Errorf("MarkLessonComplete() error = %v, want quota error", err)
	}
}
