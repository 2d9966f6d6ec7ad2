// Package progress tracks a learner's course, module and lesson completion,
// study hours, day streak and acquired skills, persisted as one snapshot.
package progress

import (
	"slices"
	"time"
)

// ModuleProgress is the learner's state within one module.
type ModuleProgress struct {
	ID                  string   `json:"id"`
	Completed           bool     `json:"completed"`
	CompletedLessons    []string `json:"completedLessons"`
	AssessmentSubmitted bool     `json:"assessmentSubmitted"`
	AssessmentPassed    bool     `json:"assessmentPassed"`
}

// CourseProgress is the learner's state within one course.
type CourseProgress struct {
	ID               string           `json:"id"`
	LastAccessed     time.Time        `json:"lastAccessed"`
	CompletedModules []string         `json:"completedModules"`
	Modules          []ModuleProgress `json:"modules"`
	OverallProgress  int              `json:"overallProgress"`
}

// UserProgress is the full persisted record for one profile.
type UserProgress struct {
	Courses         []CourseProgress `json:"courses"`
	TotalHoursSpent float64          `json:"totalHoursSpent"`
	StreakDays      int              `json:"streakDays"`
	LastActive      time.Time        `json:"lastActive"`
	SkillsAcquired  []string         `json:"skillsAcquired"`
}

// AssessmentState is the tri-state of a module assessment.
type AssessmentState int

const (
	AssessmentNotSubmitted AssessmentState = iota
	AssessmentFailed
	AssessmentPassed
)

func (a AssessmentState) String() string {
	switch a {
	case AssessmentNotSubmitted:
		return "not submitted"
	case AssessmentFailed:
		return "failed"
	case AssessmentPassed:
		return "passed"
	default:
		return "unknown"
	}
}

// Assessment returns the module's assessment state.
func (m ModuleProgress) Assessment() AssessmentState {
	switch {
	case !m.AssessmentSubmitted:
		return AssessmentNotSubmitted
	case m.AssessmentPassed:
		return AssessmentPassed
	default:
		return AssessmentFailed
	}
}

// Module returns the progress record for a module.
func (c CourseProgress) Module(id string) (ModuleProgress, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return ModuleProgress{}, false
}

// CompletedLessonCount sums completed lessons across modules.
func (c CourseProgress) CompletedLessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.CompletedLessons)
	}
	return n
}

// Course returns the progress record for a course.
func (u UserProgress) Course(id string) (CourseProgress, bool) {
	for _, c := range u.Courses {
		if c.ID == id {
			return c.clone(), true
		}
	}
	return CourseProgress{}, false
}

func (m ModuleProgress) clone() ModuleProgress {
	m.CompletedLessons = nonNil(slices.Clone(m.CompletedLessons))
	return m
}

func (c CourseProgress) clone() CourseProgress {
	c.CompletedModules = nonNil(slices.Clone(c.CompletedModules))
	mods := make([]ModuleProgress, len(c.Modules))
	for i, m := range c.Modules {
		mods[i] = m.clone()
	}
	c.Modules = mods
	return c
}

func (u UserProgress) clone() UserProgress {
	courses := make([]CourseProgress, len(u.Courses))
	for i, c := range u.Courses {
		courses[i] = c.clone()
	}
	u.Courses = courses
	u.SkillsAcquired = nonNil(slices.Clone(u.SkillsAcquired))
	return u
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
