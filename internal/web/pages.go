package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conatuslab/conatuslab/internal/curriculum"
	"github.com/conatuslab/conatuslab/internal/progress"
	"github.com/conatuslab/conatuslab/internal/resources"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "courses", "course", "progress", "resources"}

type pages struct {
	byName map[string]*template.Template
}

func parsePages() (*pages, error) {
	funcs := template.FuncMap{
		"title": titleCase,
		"join":  strings.Join,
	}
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// titleCase builds a caser per call; casers keep state between calls.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// view is the data every page template receives.
type view struct {
	Base  string
	Title string
	Nav   string
	Data  any
}

// courseCard pairs a course with the learner's completion percentage.
type courseCard struct {
	Course   curriculum.Course
	Progress int
}

type lessonView struct {
	Topic curriculum.Topic
	Done  bool
}

type moduleView struct {
	Module     curriculum.Module
	Lessons    []lessonView
	Completed  bool
	Assessment progress.AssessmentState
}

type coursePage struct {
	Course        curriculum.Course
	Prerequisites []curriculum.Course
	Progress      progress.CourseProgress
	Modules       []moduleView
}

type progressPage struct {
	Snapshot progress.UserProgress
	Courses  []courseCard
}

type resourcesPage struct {
	Categories []resources.Category
	Selected   string
	Resources  []resources.Resource
}

func (s *Server) render(w http.ResponseWriter, name string, v view) {
	v.Base = s.basePath
	var buf bytes.Buffer
	if err := s.pages.byName[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		slog.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) cards(r *http.Request, courses []curriculum.Course) ([]courseCard, bool) {
	st, err := s.progress.View(r.Context(), profileFrom(r.Context()))
	if err != nil {
		slog.Error("failed to load progress", "error", err)
		return nil, false
	}
	out := make([]courseCard, 0, len(courses))
	for _, c := range courses {
		out = append(out, courseCard{Course: c, Progress: st.OverallProgress(c.ID)})
	}
	return out, true
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	cards, ok := s.cards(r, s.catalog.Courses())
	if !ok {
		http.Error(w, "Progress unavailable", http.StatusInternalServerError)
		return
	}
	s.render(w, "home", view{Title: "Legal tech skills, one lesson at a time", Nav: "home", Data: cards})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.catalog.Courses()
	if level := r.URL.Query().Get("level"); level != "" {
		courses = s.catalog.ByLevel(curriculum.Level(level))
	}
	cards, ok := s.cards(r, courses)
	if !ok {
		http.Error(w, "Progress unavailable", http.StatusInternalServerError)
		return
	}
	s.render(w, "courses", view{Title: "Courses", Nav: "courses", Data: cards})
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := s.catalog.Course(r.PathValue("courseID"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	st, err := s.progress.View(r.Context(), profileFrom(r.Context()))
	if err != nil {
		slog.Error("failed to load progress", "error", err)
		http.Error(w, "Progress unavailable", http.StatusInternalServerError)
		return
	}
	cp, _ := st.CourseProgress(course.ID)
	prereqs := s.catalog.Prerequisites(course.ID)

	page := coursePage{Course: course, Prerequisites: prereqs, Progress: cp}
	for _, m := range course.Modules {
		mp, _ := cp.Module(m.ID)
		mv := moduleView{Module: m, Completed: mp.Completed, Assessment: mp.Assessment()}
		for _, t := range m.Topics {
			mv.Lessons = append(mv.Lessons, lessonView{Topic: t, Done: slices.Contains(mp.CompletedLessons, t.ID)})
		}
		page.Modules = append(page.Modules, mv)
	}
	s.render(w, "course", view{Title: course.Title, Nav: "courses", Data: page})
}

func (s *Server) handleProgressPage(w http.ResponseWriter, r *http.Request) {
	st, err := s.progress.View(r.Context(), profileFrom(r.Context()))
	if err != nil {
		slog.Error("failed to load progress", "error", err)
		http.Error(w, "Progress unavailable", http.StatusInternalServerError)
		return
	}
	page := progressPage{Snapshot: st.Snapshot()}
	for _, c := range s.catalog.Courses() {
		page.Courses = append(page.Courses, courseCard{Course: c, Progress: st.OverallProgress(c.ID)})
	}
	s.render(w, "progress", view{Title: "Your progress", Nav: "progress", Data: page})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	selected := r.URL.Query().Get("type")
	if selected == "" {
		selected = resources.All
	}
	page := resourcesPage{
		Categories: s.resources.Categories(),
		Selected:   selected,
		Resources:  s.resources.ByType(selected),
	}
	s.render(w, "resources", view{Title: "Resources", Nav: "resources", Data: page})
}
