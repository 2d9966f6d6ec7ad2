package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/conatuslab/conatuslab/internal/app"
	"github.com/conatuslab/conatuslab/internal/platform/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage:  config.StorageConfig{Driver: "bolt", Path: filepath.Join(t.TempDir(), "progress.db")},
		Progress: config.ProgressConfig{StorageKey: "test_progress", Timezone: "UTC", SkillSource: "declared"},
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	a, err := app.Open(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close()

	if len(a.Catalog.Courses()) != 3 {
		t.Errorf("Courses() = %d, want the 3 embedded courses", len(a.Catalog.Courses()))
	}
	if len(a.Resources.All()) == 0 {
		t.Error("resources not loaded")
	}

	s, err := a.Registry.For(ctx, "")
	if err != nil {
		t.Fatalf("Registry.For() error = %v", err)
	}
	course := a.Catalog.Courses()[0]
	mod := course.Modules[0]
	if err := s.MarkLessonComplete(ctx, course.ID, mod.ID, mod.Topics[0].ID); err != nil {
		t.Fatalf("MarkLessonComplete() error = %v", err)
	}
	if _, err := a.Storage.Get(ctx, "test_progress"); err != nil {
		t.Errorf("progress not stored under the configured key: %v", err)
	}
	if len(s.Snapshot().Courses) != 3 {
		t.Errorf("snapshot courses = %d, want 3", len(s.Snapshot().Courses))
	}
}

func TestOpen_CurriculumDir(t *testing.T) {
	dir := t.TempDir()
	course := `
id: solo
title: Solo
description: One course
duration: 1 week
level: advanced
modules:
  - title: Only
    duration: 1 week
    topics:
      - {title: Lesson, duration: 1 hour, type: reading}
    project: {title: Build, objectives: [Build it]}
certification: {}
`
	if err := os.WriteFile(filepath.Join(dir, "solo.yaml"), []byte(course), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.CurriculumPath = dir
	a, err := app.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close()
	if _, ok := a.Catalog.Course("solo"); !ok {
		t.Error("course from CONATUS_CURRICULUM_PATH not loaded")
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing curriculum dir", func(c *config.Config) { c.CurriculumPath = "/nonexistent/curriculum" }},
		{"bad skill source", func(c *config.Config) { c.Progress.SkillSource = "guess" }},
		{"events without postgres", func(c *config.Config) { c.Progress.EventsEnabled = true }},
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "sqlite" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if a, err := app.Open(context.Background(), cfg); err == nil {
				a.Close()
				t.Error("Open() should fail")
			}
		})
	}
}
