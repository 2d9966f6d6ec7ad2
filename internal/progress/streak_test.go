package progress

import (
	"testing"
	"time"

	"github.com/conatuslab/conatuslab/internal/curriculum"
)

func TestNextStreak_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz data unavailable: %v", err)
	}
	// 2026-03-08 is 23 hours long in New York.
	last := time.Date(2026, 3, 7, 23, 0, 0, 0, ny)
	now := time.Date(2026, 3, 8, 23, 30, 0, 0, ny)

	got, touch := nextStreak(6, last, now, ny)
	if got != 7 || !touch {
		t.Errorf("nextStreak() = %d, %v, want 7, true", got, touch)
	}
}

func TestOverall_EmptyCourse(t *testing.T) {
	if got := Overall(curriculum.Course{ID: "empty"}, CourseProgress{}); got != 0 {
		t.Errorf("Overall() = %d, want 0", got)
	}
}
