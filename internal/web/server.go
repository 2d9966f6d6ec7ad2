// Package web serves the learning pages, the progress JSON API, the live
// progress websocket and the operational endpoints.
package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/conatuslab/conatuslab/internal/curriculum"
	"github.com/conatuslab/conatuslab/internal/progress"
	"github.com/conatuslab/conatuslab/internal/resources"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Options holds the dependencies of a Server.
type Options struct {
	Catalog   *curriculum.Catalog
	Resources *resources.Directory
	Progress  *progress.Registry
	Storage   Pinger
	Metrics   *Metrics // defaults to a private registry
	BasePath  string   // e.g. "/conatuslab"; empty serves from the root
}

// Server routes HTTP requests to pages and API handlers.
type Server struct {
	catalog   *curriculum.Catalog
	resources *resources.Directory
	progress  *progress.Registry
	storage   Pinger
	metrics   *Metrics
	basePath  string
	pages     *pages
}

// New validates the dependencies and parses the page templates.
func New(opts Options) (*Server, error) {
	if opts.Catalog == nil || opts.Resources == nil || opts.Progress == nil {
		return nil, fmt.Errorf("catalog, resources and progress are required")
	}
	if opts.BasePath != "" && (!strings.HasPrefix(opts.BasePath, "/") || strings.HasSuffix(opts.BasePath, "/")) {
		return nil, fmt.Errorf("invalid base path %q", opts.BasePath)
	}

	p, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		catalog:   opts.Catalog,
		resources: opts.Resources,
		progress:  opts.Progress,
		storage:   opts.Storage,
		metrics:   opts.Metrics,
		basePath:  opts.BasePath,
		pages:     p,
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(opts.Progress.Loaded)
	}
	return s, nil
}

// Handler returns the full handler tree mounted under the base path.
func (s *Server) Handler() http.Handler {
	h := s.withProfile(s.metrics.Middleware(s.routes()))
	if s.basePath == "" {
		return h
	}

	root := http.NewServeMux()
	root.Handle(s.basePath+"/", http.StripPrefix(s.basePath, h))
	root.Handle(s.basePath, http.RedirectHandler(s.basePath+"/", http.StatusMovedPermanently))
	root.Handle("GET /{$}", http.RedirectHandler(s.basePath+"/", http.StatusFound))
	// Operational endpoints stay at the root for probes and scrapers.
	root.HandleFunc("GET /healthz", s.handleHealthz)
	root.HandleFunc("GET /readyz", s.handleReadyz)
	root.Handle("GET /metrics", s.metrics.Handler())
	return root
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /courses", s.handleCourses)
	mux.HandleFunc("GET /courses/{courseID}", s.handleCourse)
	mux.HandleFunc("GET /progress", s.handleProgressPage)
	mux.HandleFunc("GET /resources", s.handleResources)

	mux.HandleFunc("GET /api/courses", s.apiCourses)
	mux.HandleFunc("GET /api/courses/{courseID}", s.apiCourse)
	mux.HandleFunc("GET /api/progress", s.apiProgress)
	mux.HandleFunc("GET /api/progress/export.xlsx", s.apiExport)
	mux.HandleFunc("GET /api/progress/{courseID}", s.apiCourseProgress)
	mux.HandleFunc("POST /api/progress/{courseID}/modules/{moduleID}/lessons/{lessonID}", s.apiCompleteLesson)
	mux.HandleFunc("POST /api/progress/{courseID}/modules/{moduleID}/complete", s.apiCompleteModule)
	mux.HandleFunc("POST /api/progress/{courseID}/modules/{moduleID}/assessment", s.apiSubmitAssessment)
	mux.HandleFunc("GET /api/resources", s.apiResources)

	mux.HandleFunc("GET /ws/progress", s.handleProgressSocket)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.storage != nil {
		if err := s.storage.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// link builds an absolute path under the base path.
func (s *Server) link(path string) string {
	return s.basePath + path
}
