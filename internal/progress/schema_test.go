package progress_test

import (
	"strings"
	"testing"
	"time"

	"github.com/conatuslab/conatuslab/internal/progress"
)

func TestEncode_EmptyListsStayArrays(t *testing.T) {
	data, err := progress.Encode(progress.UserProgress{
		Courses: []progress.CourseProgress{{ID: "c", Modules: []progress.ModuleProgress{{ID: "m"}}}},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	s := string(data)
	for _, field := range []string{`"skillsAcquired":[]`, `"completedModules":[]`, `"completedLessons":[]`} {
		if !strings.Contains(s, field) {
			t.Errorf("encoded snapshot missing %s: %s", field, s)
		}
	}
	if _, err := progress.Decode(data); err != nil {
		t.Errorf("Decode(Encode()) error = %v", err)
	}
}

func TestDecode(t *testing.T) {
	valid := `{
		"courses": [{
			"id": "legal-tech-foundations",
			"lastAccessed": "2026-03-10T09:30:00Z",
			"completedModules": ["m1"],
			"modules": [{"id": "m1", "completed": true, "completedLessons": ["a", "b"], "assessmentSubmitted": true, "assessmentPassed": false}],
			"overallProgress": 40
		}],
		"totalHoursSpent": 1,
		"streakDays": 3,
		"lastActive": "2026-03-10T09:30:00Z",
		"skillsAcquired": ["Map"]
	}`

	p, err := progress.Decode([]byte(valid))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if p.StreakDays != 3 || len(p.Courses) != 1 {
		t.Errorf("decoded = %+v", p)
	}
	if want := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC); !p.LastActive.Equal(want) {
		t.Errorf("LastActive = %v, want %v", p.LastActive, want)
	}
	if mp, _ := p.Courses[0].Module("m1"); mp.Assessment() != progress.AssessmentFailed {
		t.Errorf("Assessment = %v, want failed", mp.Assessment())
	}

	invalid := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"array", `[]`},
		{"negative streak", strings.Replace(valid, `"streakDays": 3`, `"streakDays": -1`, 1)},
		{"bad timestamp", strings.Replace(valid, `"lastActive": "2026-03-10T09:30:00Z"`, `"lastActive": "yesterday"`, 1)},
		{"module missing fields", strings.Replace(valid, `, "assessmentPassed": false`, ``, 1)},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := progress.Decode([]byte(tt.data)); err == nil {
				t.Error("Decode() should fail")
			}
		})
	}
}
