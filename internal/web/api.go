package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/conatuslab/conatuslab/internal/curriculum"
	"github.com/conatuslab/conatuslab/internal/progress"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CourseSummary is the catalog listing entry.
type CourseSummary struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Duration      string           `json:"duration"`
	Level         curriculum.Level `json:"level"`
	Prerequisites []string         `json:"prerequisites"`
	Modules       int              `json:"modules"`
	Lessons       int              `json:"lessons"`
}

// AssessmentRequest is the body of an assessment submission.
type AssessmentRequest struct {
	Passed *bool `json:"passed"`
}

func summarize(c curriculum.Course) CourseSummary {
	prereqs := c.Prerequisites
	if prereqs == nil {
		prereqs = []string{}
	}
	return CourseSummary{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Duration:      c.Duration,
		Level:         c.Level,
		Prerequisites: prereqs,
		Modules:       c.ModuleCount(),
		Lessons:       c.LessonCount(),
	}
}

func (s *Server) apiCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.catalog.Courses()
	if level := r.URL.Query().Get("level"); level != "" {
		courses = s.catalog.ByLevel(curriculum.Level(level))
	}
	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, summarize(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := s.catalog.Course(r.PathValue("courseID"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "course_not_found", "no course with that id")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) apiProgress(w http.ResponseWriter, r *http.Request) {
	st, ok := s.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) apiCourseProgress(w http.ResponseWriter, r *http.Request) {
	st, ok := s.view(w, r)
	if !ok {
		return
	}
	cp, found := st.CourseProgress(r.PathValue("courseID"))
	if !found {
		writeJSONError(w, http.StatusNotFound, "course_not_found", "no progress for that course")
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) apiCompleteLesson(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	courseID := r.PathValue("courseID")
	err := st.MarkLessonComplete(r.Context(), courseID, r.PathValue("moduleID"), r.PathValue("lessonID"))
	s.afterMutation(w, r, st, courseID, "lesson", err)
}

func (s *Server) apiCompleteModule(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	courseID := r.PathValue("courseID")
	err := st.MarkModuleComplete(r.Context(), courseID, r.PathValue("moduleID"))
	s.afterMutation(w, r, st, courseID, "module", err)
}

func (s *Server) apiSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	passed, err := readPassed(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	courseID := r.PathValue("courseID")
	err = st.SubmitAssessment(r.Context(), courseID, r.PathValue("moduleID"), passed)
	s.afterMutation(w, r, st, courseID, "assessment", err)
}

func (s *Server) apiExport(w http.ResponseWriter, r *http.Request) {
	st, ok := s.view(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="conatuslab-progress.xlsx"`)
	if err := progress.WriteReport(w, s.catalog, st.Snapshot()); err != nil {
		slog.Error("failed to write progress report", "error", err)
	}
}

func (s *Server) apiResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.resources.ByType(r.URL.Query().Get("type")))
}

// store resolves the requesting profile's progress for a change, writing a
// 500 on failure.
func (s *Server) store(w http.ResponseWriter, r *http.Request) (*progress.Store, bool) {
	return s.resolve(w, r, s.progress.For)
}

// view resolves the requesting profile's progress for reading only.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (*progress.Store, bool) {
	return s.resolve(w, r, s.progress.View)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, get func(context.Context, string) (*progress.Store, error)) (*progress.Store, bool) {
	st, err := get(r.Context(), profileFrom(r.Context()))
	if err != nil {
		slog.Error("failed to load progress", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "storage_error", "progress is unavailable")
		return nil, false
	}
	return st, true
}

// afterMutation answers a progress POST. HTML form posts are redirected to
// the course page; API clients get the course record, unchanged when the IDs
// were unknown.
func (s *Server) afterMutation(w http.ResponseWriter, r *http.Request, st *progress.Store, courseID, kind string, err error) {
	if err != nil {
		slog.Error("failed to save progress", "kind", kind, "course_id", courseID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "storage_error", "progress could not be saved")
		return
	}
	s.metrics.Mutation(kind)

	if isForm(r) {
		if _, known := s.catalog.Course(courseID); known {
			http.Redirect(w, r, s.link("/courses/"+courseID), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, s.link("/courses"), http.StatusSeeOther)
		return
	}

	cp, found := st.CourseProgress(courseID)
	if !found {
		writeJSON(w, http.StatusOK, st.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func isForm(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

// readPassed accepts {"passed": bool} or a form field passed=true|false.
func readPassed(r *http.Request) (bool, error) {
	if isForm(r) {
		v := r.FormValue("passed")
		if v == "" {
			return false, errors.New("passed is required")
		}
		return strconv.ParseBool(v)
	}

	var req AssessmentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil {
		return false, errors.New("body must be JSON like {\"passed\": true}")
	}
	if req.Passed == nil {
		return false, errors.New("passed is required")
	}
	return *req.Passed, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
