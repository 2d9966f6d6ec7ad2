package progress

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// DefaultMaxProfiles bounds the profiles a Registry keeps in memory when no
// limit is given.
const DefaultMaxProfiles = 10000

// Registry hands out one Store per profile. Stores are loaded lazily, kept
// in memory up to a limit and evicted least recently used first. A profile
// is only written to storage by its first mutation.
type Registry struct {
	base   Options
	limit  int
	stores map[string]*entry
	clock  uint64
	mu     sync.Mutex
}

type entry struct {
	store *Store
	used  uint64
}

// NewRegistry creates a registry whose stores share base's dependencies and
// which holds at most maxProfiles stores (DefaultMaxProfiles when <= 0).
func NewRegistry(base Options, maxProfiles int) *Registry {
	if base.Key == "" {
		base.Key = DefaultStorageKey
	}
	if maxProfiles <= 0 {
		maxProfiles = DefaultMaxProfiles
	}
	base.Deferred = true
	return &Registry{
		base:   base,
		limit:  maxProfiles,
		stores: make(map[string]*entry),
	}
}

// StorageKey derives the key of a profile's snapshot. Profile IDs are
// hashed so client-supplied values never become raw storage keys; the empty
// profile uses base unchanged.
func StorageKey(base, profileID string) string {
	if profileID == "" {
		return base
	}
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(profileID))
	return base + ":" + hex.EncodeToString(h.Sum(nil))
}

// For returns the store of a profile that is about to be changed or
// watched, keeping it in memory. The first time the profile is loaded its
// visit counts toward the streak.
func (r *Registry) For(ctx context.Context, profileID string) (*Store, error) {
	return r.get(ctx, profileID, true)
}

// View returns the store of a profile for reading. Profiles without a
// stored record are served from a zeroed record that is neither kept nor
// written, so anonymous page views leave no trace.
func (r *Registry) View(ctx context.Context, profileID string) (*Store, error) {
	return r.get(ctx, profileID, false)
}

// Open loads a profile's store without keeping it and without counting the
// load as learner activity. Operator tools use it to inspect or reset
// progress; nothing is written until the store is mutated.
func (r *Registry) Open(ctx context.Context, profileID string) (*Store, error) {
	opts := r.base
	opts.Key = StorageKey(r.base.Key, profileID)
	opts.ProfileID = profileID
	return New(ctx, opts)
}

func (r *Registry) get(ctx context.Context, profileID string, keep bool) (*Store, error) {
	if s, ok := r.cached(profileID); ok {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := r.Open(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !keep && !s.Stored() {
		return s, nil
	}
	if err := s.UpdateStreak(ctx); err != nil {
		return nil, err
	}
	return r.add(profileID, s), nil
}

func (r *Registry) cached(profileID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[profileID]
	if !ok {
		return nil, false
	}
	r.clock++
	e.used = r.clock
	return e.store, true
}

// add keeps s unless another request loaded the same profile first, in
// which case that store wins.
func (r *Registry) add(profileID string, s *Store) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock++
	if e, ok := r.stores[profileID]; ok {
		e.used = r.clock
		return e.store
	}
	if len(r.stores) >= r.limit {
		r.evict()
	}
	r.stores[profileID] = &entry{store: s, used: r.clock}
	slog.Debug("progress profile loaded", "profile_id", profileID, "profiles", len(r.stores))
	return s
}

// evict drops the least recently used store that has no subscribers.
// Callers hold mu.
func (r *Registry) evict() {
	victim := ""
	var oldest uint64
	for id, e := range r.stores {
		if e.store.subscribed() {
			continue
		}
		if victim == "" || e.used < oldest {
			victim, oldest = id, e.used
		}
	}
	if victim == "" {
		slog.Warn("progress profile limit reached with every profile subscribed", "limit", r.limit)
		return
	}
	delete(r.stores, victim)
	slog.Debug("progress profile evicted", "profile_id", victim)
}

// Loaded returns the number of profiles currently held in memory.
func (r *Registry) Loaded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// RunStreakTicker re-evaluates the streak of every loaded profile now and
// then every interval until ctx is done.
func (r *Registry) RunStreakTicker(ctx context.Context, interval time.Duration) {
	runTicker(ctx, interval, func() { r.updateStreaks(ctx) })
}

func (r *Registry) updateStreaks(ctx context.Context) {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.stores))
	for _, e := range r.stores {
		stores = append(stores, e.store)
	}
	r.mu.Unlock()

	for _, s := range stores {
		if err := s.UpdateStreak(ctx); err != nil {
			slog.Error("streak update failed", "profile_id", s.profileID, "error", err)
		}
	}
}
