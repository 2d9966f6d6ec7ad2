package progress_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/conatuslab/conatuslab/internal/curriculum"
	"github.com/conatuslab/conatuslab/internal/progress"
	"github.com/conatuslab/conatuslab/internal/storage"
)

const testCourseYAML = `
id: contracts-101
title: Contracts 101
description: Contract fundamentals
duration: 2 weeks
level: beginner
modules:
  - title: Clause Basics
    duration: 1 week
    topics:
      - {title: What is a Clause, duration: 30 min, type: video}
      - {title: Clause Libraries, duration: 1 hour, type: reading}
      - {title: Clause Drills, duration: 1 hour, type: exercise}
    project:
      title: Clause Inventory
      objectives: [Catalogue standard clauses, Compare clause variants]
      skills: [Clause analysis, Drafting]
  - title: Automation
    duration: 1 week
    topics:
      - {title: Templates, duration: 1 hour, type: reading}
      - {title: Variables, duration: 1 hour, type: exercise}
      - {title: Review Session, duration: 30 min, type: discussion}
    project:
      title: Template Pack
      objectives: [Build a template pack]
      skills: [Template design, Drafting]
certification: {}
`

// fixedClock is a settable clock for deterministic tests.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func testCatalog(t *testing.T) *curriculum.Catalog {
	t.Helper()
	cat, err := curriculum.Load(fstest.MapFS{
		"01-contracts.yaml": {Data: []byte(testCourseYAML)},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cat
}

func newTestStore(t *testing.T, clock *fixedClock, kv storage.Store) *progress.Store {
	t.Helper()
	s, err := progress.New(context.Background(), progress.Options{
		Catalog:  testCatalog(t),
		Storage:  kv,
		Clock:    clock.Now,
		Location: time.UTC,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

// flakyStorage delegates to memory until failPuts is set.
type flakyStorage struct {
	*storage.MemoryStore
	failPuts bool
}

func (f *flakyStorage) Put(ctx context.Context, key string, value []byte) error {
	if f.failPuts {
		return errQuotaExceeded
	}
	return f.MemoryStore.Put(ctx, key, value)
}

var errQuotaExceeded = errors.New("quota exceeded")
