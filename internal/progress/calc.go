package progress

import (
	"math"

	"github.com/conatuslab/conatuslab/internal/curriculum"
)

const (
	lessonWeight = 0.7
	moduleWeight = 0.3

	// HoursPerLesson is credited to total study time for each newly completed lesson.
	HoursPerLesson = 0.5
)

// Overall computes a course's completion percentage: 70% from completed
// lessons over all lessons, 30% from completed modules over all modules,
// rounded to the nearest integer and clamped to [0, 100].
func Overall(course curriculum.Course, cp CourseProgress) int {
	var lessons, modules float64
	if total := course.LessonCount(); total > 0 {
		lessons = float64(cp.CompletedLessonCount()) / float64(total) * lessonWeight
	}
	if total := course.ModuleCount(); total > 0 {
		modules = float64(len(cp.CompletedModules)) / float64(total) * moduleWeight
	}

	pct := int(math.Round((lessons + modules) * 100))
	return min(max(pct, 0), 100)
}
