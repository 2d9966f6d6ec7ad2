package web_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/conatuslab/conatuslab/internal/curriculum"
	"github.com/conatuslab/conatuslab/internal/progress"
	"github.com/conatuslab/conatuslab/internal/resources"
	"github.com/conatuslab/conatuslab/internal/storage"
	"github.com/conatuslab/conatuslab/internal/web"
)

const testCourseYAML = `
id: contracts-101
title: Contracts 101
description: Contract fundamentals
duration: 2 weeks
level: beginner
learning_objectives: [Read a contract]
modules:
  - title: Clause Basics
    duration: 1 week
    description: What clauses are
    topics:
      - {title: What is a Clause, duration: 30 min, type: video, key_points: [Definition]}
      - {title: Clause Libraries, duration: 1 hour, type: reading}
    project:
      title: Clause Inventory
      objectives: [Catalogue standard clauses]
      skills: [Clause analysis]
  - title: Automation
    duration: 1 week
    topics:
      - {title: Templates, duration: 1 hour, type: reading}
      - {title: Variables, duration: 1 hour, type: exercise}
    project:
      title: Template Pack
      objectives: [Build a template pack]
      skills: [Template design]
certification:
  requirements: [Finish every module]
`

const basePath = "/conatuslab"

type stubPinger struct{ err error }

func (p stubPinger) HealthCheck(context.Context) error { return p.err }

type testEnv struct {
	handler  http.Handler
	registry *progress.Registry
	storage  *storage.MemoryStore
}

func newTestEnv(t *testing.T, pinger web.Pinger) *testEnv {
	t.Helper()
	cat, err := curriculum.Load(fstest.MapFS{"01-contracts.yaml": {Data: []byte(testCourseYAML)}})
	if err != nil {
		t.Fatalf("curriculum.Load() error = %v", err)
	}
	dir, err := resources.Default()
	if err != nil {
		t.Fatalf("resources.Default() error = %v", err)
	}
	kv := storage.NewMemoryStore()
	reg := progress.NewRegistry(progress.Options{
		Catalog:  cat,
		Storage:  kv,
		Clock:    func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}, 0)
	if pinger == nil {
		pinger = kv
	}
	srv, err := web.New(web.Options{
		Catalog:   cat,
		Resources: dir,
		Progress:  reg,
		Storage:   pinger,
		BasePath:  basePath,
	})
	if err != nil {
		t.Fatalf("web.New() error = %v", err)
	}
	return &testEnv{handler: srv.Handler(), registry: reg, storage: kv}
}

// do sends a request with an optional profile cookie.
func (e *testEnv) do(t *testing.T, method, path, contentType, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// profile fetches a page to obtain a fresh profile cookie.
func (e *testEnv) profile(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodGet, basePath+"/api/progress", "", "", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "conatus_profile" {
			return c
		}
	}
	t.Fatal("no profile cookie issued")
	return nil
}

var errDown = errors.New("connection refused")
