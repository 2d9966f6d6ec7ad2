package progress

import (
	"fmt"
	"strings"

	"github.com/conatuslab/conatuslab/internal/curriculum"
)

// SkillSource decides which skill labels a passed module assessment grants.
type SkillSource interface {
	Skills(course curriculum.Course, module curriculum.Module) []string
}

// DeclaredSkills grants the skills listed on the module's project.
type DeclaredSkills struct{}

func (DeclaredSkills) Skills(_ curriculum.Course, m curriculum.Module) []string {
	return m.Project.Skills
}

// ObjectiveVerbSkills grants the first word of each project objective
// ("Map the current legal tech ecosystem" -> "Map"). Kept for profiles
// recorded before projects declared their skills.
type ObjectiveVerbSkills struct{}

func (ObjectiveVerbSkills) Skills(_ curriculum.Course, m curriculum.Module) []string {
	out := make([]string, 0, len(m.Project.Objectives))
	for _, o := range m.Project.Objectives {
		if f := strings.Fields(o); len(f) > 0 {
			out = append(out, f[0])
		}
	}
	return out
}

// Skill source names accepted by ParseSkillSource.
const (
	SkillSourceDeclared      = "declared"
	SkillSourceObjectiveVerb = "objective-verb"
)

// ParseSkillSource maps a configured name to a SkillSource.
func ParseSkillSource(name string) (SkillSource, error) {
	switch name {
	case "", SkillSourceDeclared:
		return DeclaredSkills{}, nil
	case SkillSourceObjectiveVerb:
		return ObjectiveVerbSkills{}, nil
	default:
		return nil, fmt.Errorf("unknown skill source %q", name)
	}
}
