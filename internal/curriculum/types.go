package curriculum

import "slices"

// Level is a course difficulty level.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// TopicType tags the kind of content a topic delivers.
type TopicType string

const (
	TopicVideo      TopicType = "video"
	TopicReading    TopicType = "reading"
	TopicExercise   TopicType = "exercise"
	TopicDiscussion TopicType = "discussion"
)

// Course is a top-level unit of curriculum loaded from YAML.
type Course struct {
	ID                 string        `yaml:"id" json:"id"`
	Title              string        `yaml:"title" json:"title"`
	Description        string        `yaml:"description" json:"description"`
	Duration           string        `yaml:"duration" json:"duration"`
	Level              Level         `yaml:"level" json:"level"`
	Prerequisites      []string      `yaml:"prerequisites" json:"prerequisites"`
	LearningObjectives []string      `yaml:"learning_objectives" json:"learning_objectives"`
	Modules            []Module      `yaml:"modules" json:"modules"`
	Certification      Certification `yaml:"certification" json:"certification"`
}

// Module is a subdivision of a course containing topics and one project.
type Module struct {
	ID          string  `yaml:"-" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Duration    string  `yaml:"duration" json:"duration"`
	Description string  `yaml:"description" json:"description"`
	Topics      []Topic `yaml:"topics" json:"topics"`
	Project     Project `yaml:"project" json:"project"`
}

// Topic is an atomic learning unit (a lesson) within a module.
type Topic struct {
	ID          string      `yaml:"-" json:"id"`
	Title       string      `yaml:"title" json:"title"`
	Duration    string      `yaml:"duration" json:"duration"`
	Type        TopicType   `yaml:"type" json:"type"`
	Description string      `yaml:"description" json:"description"`
	KeyPoints   []string    `yaml:"key_points" json:"key_points"`
	Resources   []string    `yaml:"resources,omitempty" json:"resources,omitempty"`
	Assessment  *Assessment `yaml:"assessment,omitempty" json:"assessment,omitempty"`
}

// Assessment is an optional check attached to a topic.
type Assessment struct {
	Type        string   `yaml:"type" json:"type"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Criteria    []string `yaml:"criteria" json:"criteria"`
	Rubric      *Rubric  `yaml:"rubric,omitempty" json:"rubric,omitempty"`
}

// Rubric grades an assessment in three bands.
type Rubric struct {
	Excellent        string `yaml:"excellent" json:"excellent"`
	Good             string `yaml:"good" json:"good"`
	NeedsImprovement string `yaml:"needs_improvement" json:"needs_improvement"`
}

// Project is the capstone deliverable of a module.
type Project struct {
	Title              string   `yaml:"title" json:"title"`
	Description        string   `yaml:"description" json:"description"`
	Objectives         []string `yaml:"objectives" json:"objectives"`
	Deliverables       []string `yaml:"deliverables" json:"deliverables"`
	AssessmentCriteria []string `yaml:"assessment_criteria" json:"assessment_criteria"`
	Skills             []string `yaml:"skills" json:"skills"`
}

// Certification lists what a learner must do to certify and what they gain.
type Certification struct {
	Requirements []string `yaml:"requirements" json:"requirements"`
	Skills       []string `yaml:"skills" json:"skills"`
}

// Module returns the module with the given ID.
func (c Course) Module(id string) (Module, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleCount returns the number of modules in the course.
func (c Course) ModuleCount() int {
	return len(c.Modules)
}

// LessonCount returns the number of topics across all modules.
func (c Course) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Topics)
	}
	return n
}

// Topic returns the topic with the given ID.
func (m Module) Topic(id string) (Topic, bool) {
	for _, t := range m.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

func (c Course) clone() Course {
	c.Prerequisites = slices.Clone(c.Prerequisites)
	c.LearningObjectives = slices.Clone(c.LearningObjectives)
	c.Certification.Requirements = slices.Clone(c.Certification.Requirements)
	c.Certification.Skills = slices.Clone(c.Certification.Skills)
	c.Modules = slices.Clone(c.Modules)
	for i := range c.Modules {
		m := &c.Modules[i]
		m.Project.Objectives = slices.Clone(m.Project.Objectives)
		m.Project.Deliverables = slices.Clone(m.Project.Deliverables)
		m.Project.AssessmentCriteria = slices.Clone(m.Project.AssessmentCriteria)
		m.Project.Skills = slices.Clone(m.Project.Skills)
		m.Topics = slices.Clone(m.Topics)
		for j := range m.Topics {
			t := &m.Topics[j]
			t.KeyPoints = slices.Clone(t.KeyPoints)
			t.Resources = slices.Clone(t.Resources)
			if t.Assessment != nil {
				a := *t.Assessment
				a.Criteria = slices.Clone(a.Criteria)
				if a.Rubric != nil {
					r := *a.Rubric
					a.Rubric = &r
				}
				t.Assessment = &a
			}
		}
	}
	return c
}
