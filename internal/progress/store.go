package progress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/conatuslab/conatuslab/internal/curriculum"
	"github.com/conatuslab/conatuslab/internal/storage"
)

// DefaultStorageKey is the well-known key of the persisted snapshot.
const DefaultStorageKey = "conatuslab_user_progress"

// Options holds the dependencies of a Store.
type Options struct {
	Catalog   *curriculum.Catalog
	Storage   storage.Store
	Key       string           // defaults to DefaultStorageKey
	ProfileID string           // attached to events
	Clock     func() time.Time // defaults to time.Now
	Location  *time.Location   // calendar used for streak days; defaults to time.Local
	Events    EventLogger      // defaults to NopEventLogger
	Skills    SkillSource      // defaults to DeclaredSkills

	// Deferred keeps a missing or unreadable record in memory only until
	// the first mutation writes it.
	Deferred bool
}

// Store is the single source of truth for one profile's progress. Every
// mutation first adopts any record another process wrote under the same key,
// then updates memory and persists the full snapshot before returning.
type Store struct {
	catalog   *curriculum.Catalog
	storage   storage.Store
	key       string
	profileID string
	now       func() time.Time
	loc       *time.Location
	events    EventLogger
	skills    SkillSource
	deferred  bool

	mu      sync.Mutex
	state   UserProgress
	stored  bool   // state has been read from or written to storage
	written []byte // encoding of the record as last read or written
	subs    map[int]chan UserProgress
	nextID  int
}

// New loads the snapshot stored under opts.Key, or initializes a zeroed
// record for every catalog course when none exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if opts.Storage == nil {
		return nil, fmt.Errorf("storage is nil")
	}

	s := &Store{
		catalog:   opts.Catalog,
		storage:   opts.Storage,
		key:       opts.Key,
		profileID: opts.ProfileID,
		now:       opts.Clock,
		loc:       opts.Location,
		events:    opts.Events,
		skills:    opts.Skills,
		deferred:  opts.Deferred,
		subs:      make(map[int]chan UserProgress),
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.events == nil {
		s.events = NopEventLogger{}
	}
	if s.skills == nil {
		s.skills = DeclaredSkills{}
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Get(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		slog.Debug("initializing progress", "key", s.key, "deferred", s.deferred)
		s.state = s.fresh()
		if s.deferred {
			return nil
		}
		return s.persist(ctx)
	case err != nil:
		return fmt.Errorf("loading progress: %w", err)
	}

	state, err := Decode(data)
	if err != nil {
		slog.Warn("discarding unreadable progress snapshot", "key", s.key, "error", err)
		s.state = s.fresh()
		if s.deferred {
			return nil
		}
		return s.persist(ctx)
	}

	if err := s.adopt(state); err != nil {
		return err
	}
	if s.reconcile() {
		return s.persist(ctx)
	}
	return nil
}

// adopt replaces the in-memory record with one read from storage.
func (s *Store) adopt(state UserProgress) error {
	enc, err := Encode(state)
	if err != nil {
		return err
	}
	s.state = state
	s.stored = true
	s.written = enc
	return nil
}

// sync reloads the record when storage no longer holds what this store last
// read or wrote, so a reset made by another process is not overwritten.
// Callers hold mu.
func (s *Store) sync(ctx context.Context) error {
	data, err := s.storage.Get(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if s.stored {
			slog.Info("progress record removed from storage, starting over", "key", s.key)
			s.state = s.fresh()
			s.stored = false
			s.written = nil
		}
		return nil
	case err != nil:
		return fmt.Errorf("loading progress: %w", err)
	}

	state, err := Decode(data)
	if err != nil {
		slog.Warn("ignoring unreadable progress snapshot", "key", s.key, "error", err)
		return nil
	}
	enc, err := Encode(state)
	if err != nil {
		return err
	}
	if s.stored && bytes.Equal(enc, s.written) {
		return nil
	}

	slog.Info("progress changed in storage, reloading", "key", s.key)
	s.state = state
	s.stored = true
	s.written = enc
	s.reconcile()
	return nil
}

// Refresh picks up a record written to storage by another process since
// this store last read or wrote it.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx)
}

// Stored reports whether the record exists in storage. A deferred store
// over a new profile is not stored until its first mutation.
func (s *Store) Stored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored
}

func (s *Store) subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

// mutate runs fn against the synced record under the lock and persists when
// fn reports a change. The event fn returns is logged after the lock is
// released.
func (s *Store) mutate(ctx context.Context, fn func() (bool, *Event)) error {
	s.mu.Lock()
	if err := s.sync(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	changed, ev := fn()
	var err error
	if changed {
		err = s.persist(ctx)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if ev != nil {
		s.logEvent(*ev)
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// fresh builds a zeroed record covering every catalog course.
func (s *Store) fresh() UserProgress {
	now := s.timestamp()
	p := UserProgress{
		Courses:        []CourseProgress{},
		LastActive:     now,
		SkillsAcquired: []string{},
	}
	for _, c := range s.catalog.Courses() {
		p.Courses = append(p.Courses, zeroCourse(c, now))
	}
	return p
}

func zeroCourse(c curriculum.Course, now time.Time) CourseProgress {
	cp := CourseProgress{
		ID:               c.ID,
		LastAccessed:     now,
		CompletedModules: []string{},
		Modules:          make([]ModuleProgress, 0, len(c.Modules)),
	}
	for _, m := range c.Modules {
		cp.Modules = append(cp.Modules, zeroModule(m.ID))
	}
	return cp
}

func zeroModule(id string) ModuleProgress {
	return ModuleProgress{ID: id, CompletedLessons: []string{}}
}

// reconcile adds records for courses and modules added to the catalog since
// the snapshot was written and recomputes every course's overall progress.
// It reports whether anything changed.
func (s *Store) reconcile() bool {
	changed := false
	now := s.timestamp()
	for _, c := range s.catalog.Courses() {
		cp := s.course(c.ID)
		if cp == nil {
			s.state.Courses = append(s.state.Courses, zeroCourse(c, now))
			changed = true
			continue
		}
		for _, m := range c.Modules {
			if cp.module(m.ID) == nil {
				cp.Modules = append(cp.Modules, zeroModule(m.ID))
				changed = true
			}
		}
		if pct := Overall(c, *cp); pct != cp.OverallProgress {
			cp.OverallProgress = pct
			changed = true
		}
	}
	return changed
}

func (s *Store) course(id string) *CourseProgress {
	for i := range s.state.Courses {
		if s.state.Courses[i].ID == id {
			return &s.state.Courses[i]
		}
	}
	return nil
}

func (c *CourseProgress) module(id string) *ModuleProgress {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i]
		}
	}
	return nil
}

// lookup resolves a course and module in both the catalog and the record.
func (s *Store) lookup(courseID, moduleID string) (curriculum.Course, curriculum.Module, *CourseProgress, *ModuleProgress, bool) {
	course, ok := s.catalog.Course(courseID)
	if !ok {
		return curriculum.Course{}, curriculum.Module{}, nil, nil, false
	}
	mod, ok := course.Module(moduleID)
	if !ok {
		return curriculum.Course{}, curriculum.Module{}, nil, nil, false
	}
	cp := s.course(courseID)
	if cp == nil {
		return curriculum.Course{}, curriculum.Module{}, nil, nil, false
	}
	mp := cp.module(moduleID)
	if mp == nil {
		return curriculum.Course{}, curriculum.Module{}, nil, nil, false
	}
	return course, mod, cp, mp, true
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// CourseProgress returns the record for a course.
func (s *Store) CourseProgress(courseID string) (CourseProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Course(courseID)
}

// OverallProgress computes a course's completion percentage from the current
// record. Unknown courses report 0.
func (s *Store) OverallProgress(courseID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, ok := s.catalog.Course(courseID)
	if !ok {
		return 0
	}
	cp := s.course(courseID)
	if cp == nil {
		return 0
	}
	return Overall(course, *cp)
}

// MarkLessonComplete records a completed lesson. Repeating the call for the
// same lesson changes nothing but the course's last-accessed time. Unknown
// course, module or lesson IDs are ignored.
func (s *Store) MarkLessonComplete(ctx context.Context, courseID, moduleID, lessonID string) error {
	return s.mutate(ctx, func() (bool, *Event) {
		course, mod, cp, mp, ok := s.lookup(courseID, moduleID)
		if !ok {
			return false, nil
		}
		if _, ok := mod.Topic(lessonID); !ok {
			return false, nil
		}

		added := !slices.Contains(mp.CompletedLessons, lessonID)
		if added {
			mp.CompletedLessons = append(mp.CompletedLessons, lessonID)
			s.state.TotalHoursSpent += HoursPerLesson
		}
		cp.LastAccessed = s.timestamp()
		cp.OverallProgress = Overall(course, *cp)

		if !added {
			return true, nil
		}
		return true, s.event(courseID, EventLessonCompleted, map[string]any{
			"module_id":        moduleID,
			"lesson_id":        lessonID,
			"overall_progress": cp.OverallProgress,
		})
	})
}

// MarkModuleComplete marks a module complete. Unknown IDs are ignored.
func (s *Store) MarkModuleComplete(ctx context.Context, courseID, moduleID string) error {
	return s.mutate(ctx, func() (bool, *Event) {
		course, _, cp, mp, ok := s.lookup(courseID, moduleID)
		if !ok {
			return false, nil
		}

		mp.Completed = true
		added := !slices.Contains(cp.CompletedModules, moduleID)
		if added {
			cp.CompletedModules = append(cp.CompletedModules, moduleID)
		}
		cp.OverallProgress = Overall(course, *cp)

		if !added {
			return true, nil
		}
		return true, s.event(courseID, EventModuleCompleted, map[string]any{
			"module_id":        moduleID,
			"overall_progress": cp.OverallProgress,
		})
	})
}

// SubmitAssessment records a module assessment result. A pass grants the
// module's skills; a later failure does not revoke a pass. Unknown IDs are
// ignored.
func (s *Store) SubmitAssessment(ctx context.Context, courseID, moduleID string, passed bool) error {
	return s.mutate(ctx, func() (bool, *Event) {
		course, mod, _, mp, ok := s.lookup(courseID, moduleID)
		if !ok {
			return false, nil
		}

		mp.AssessmentSubmitted = true
		mp.AssessmentPassed = mp.AssessmentPassed || passed

		var granted []string
		if passed {
			for _, skill := range s.skills.Skills(course, mod) {
				if skill != "" && !slices.Contains(s.state.SkillsAcquired, skill) {
					s.state.SkillsAcquired = append(s.state.SkillsAcquired, skill)
					granted = append(granted, skill)
				}
			}
		}

		return true, s.event(courseID, EventAssessmentSubmitted, map[string]any{
			"module_id":      moduleID,
			"passed":         passed,
			"skills_granted": granted,
		})
	})
}

// UpdateStreak compares the last-active day with today: the next day extends
// the streak, a gap restarts it at 1, and the same day only refreshes the
// timestamp. A record that is not stored yet is only updated in memory.
func (s *Store) UpdateStreak(ctx context.Context) error {
	return s.mutate(ctx, func() (bool, *Event) {
		now := s.timestamp()
		streak, touch := nextStreak(s.state.StreakDays, s.state.LastActive, now, s.loc)
		if !touch {
			return false, nil
		}
		prev := s.state.StreakDays
		s.state.StreakDays = streak
		s.state.LastActive = now

		if !s.stored || streak == prev {
			return s.stored, nil
		}
		slog.Debug("streak updated", "key", s.key, "streak_days", streak)
		return true, s.event("", EventStreakUpdated, map[string]any{"streak_days": streak})
	})
}

func runTicker(ctx context.Context, interval time.Duration, fn func()) {
	fn()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Reset discards the record and starts over from a zeroed one.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.state = s.fresh()
	err := s.persist(ctx)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.logEvent(*s.event("", EventProgressReset, nil))
	return nil
}

// Subscribe returns a channel receiving the latest snapshot after each
// mutation. Slow readers only see the most recent one. cancel releases the
// subscription.
func (s *Store) Subscribe() (<-chan UserProgress, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan UserProgress, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// persist writes the full snapshot and notifies subscribers. Callers hold mu.
func (s *Store) persist(ctx context.Context) error {
	data, err := Encode(s.state)
	if err != nil {
		return err
	}
	if err := s.storage.Put(ctx, s.key, data); err != nil {
		slog.Error("failed to persist progress", "key", s.key, "error", err)
		return fmt.Errorf("persisting progress: %w", err)
	}
	s.stored = true
	s.written = data

	for _, ch := range s.subs {
		snap := s.state.clone()
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot in favour of the new one.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return nil
}

func (s *Store) event(courseID, eventType string, data map[string]any) *Event {
	return &Event{
		ProfileID: s.profileID,
		CourseID:  courseID,
		EventType: eventType,
		Data:      data,
		CreatedAt: s.timestamp(),
	}
}

// logEvent must be called without mu held; loggers may do network I/O.
func (s *Store) logEvent(ev Event) {
	if err := s.events.LogEvent(ev); err != nil {
		slog.Warn("failed to log progress event", "type", ev.EventType, "error", err)
	}
}
