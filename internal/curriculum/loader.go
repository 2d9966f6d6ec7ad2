// Package curriculum holds the immutable course catalog compiled into the binary.
package curriculum

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/courses/*.yaml
var embedded embed.FS

// Catalog is the read-only set of course definitions.
type Catalog struct {
	courses []Course
	index   map[string]int
}

// Default loads the catalog compiled into the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data/courses")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads a catalog from course YAML files under dir.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Load reads every course YAML file in fsys, ordered by path.
func Load(fsys fs.FS) (*Catalog, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := path.Ext(p); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	sort.Strings(paths)

	c := &Catalog{index: make(map[string]int)}
	for _, p := range paths {
		course, err := loadCourse(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("loading curriculum: %s: %w", p, err)
		}
		if _, dup := c.index[course.ID]; dup {
			return nil, fmt.Errorf("loading curriculum: %s: duplicate course id %q", p, course.ID)
		}
		c.index[course.ID] = len(c.courses)
		c.courses = append(c.courses, course)
	}

	for _, course := range c.courses {
		for _, pre := range course.Prerequisites {
			if _, ok := c.index[pre]; !ok {
				return nil, fmt.Errorf("loading curriculum: course %q requires unknown course %q", course.ID, pre)
			}
		}
	}

	slog.Info("curriculum loaded", "courses", len(c.courses))
	return c, nil
}

func loadCourse(fsys fs.FS, p string) (Course, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return Course{}, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Course{}, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := validateDocument(doc); err != nil {
		return Course{}, err
	}

	var course Course
	if err := yaml.Unmarshal(data, &course); err != nil {
		return Course{}, fmt.Errorf("decoding course: %w", err)
	}

	modules := make(map[string]bool, len(course.Modules))
	for i := range course.Modules {
		m := &course.Modules[i]
		m.ID = Slug(m.Title)
		if modules[m.ID] {
			return Course{}, fmt.Errorf("duplicate module id %q", m.ID)
		}
		modules[m.ID] = true

		topics := make(map[string]bool, len(m.Topics))
		for j := range m.Topics {
			t := &m.Topics[j]
			t.ID = Slug(t.Title)
			if topics[t.ID] {
				return Course{}, fmt.Errorf("module %q: duplicate topic id %q", m.ID, t.ID)
			}
			topics[t.ID] = true
		}
	}
	return course, nil
}

// Courses returns every course in declaration order.
func (c *Catalog) Courses() []Course {
	out := make([]Course, len(c.courses))
	for i, course := range c.courses {
		out[i] = course.clone()
	}
	return out
}

// Course returns a course by ID.
func (c *Catalog) Course(id string) (Course, bool) {
	i, ok := c.index[id]
	if !ok {
		return Course{}, false
	}
	return c.courses[i].clone(), true
}

// Prerequisites returns the courses required before the given course.
func (c *Catalog) Prerequisites(id string) []Course {
	course, ok := c.Course(id)
	if !ok {
		return nil
	}
	out := make([]Course, 0, len(course.Prerequisites))
	for _, pre := range course.Prerequisites {
		if p, ok := c.Course(pre); ok {
			out = append(out, p)
		}
	}
	return out
}

// ByLevel returns courses at the given level, in declaration order.
func (c *Catalog) ByLevel(level Level) []Course {
	out := []Course{}
	for _, course := range c.courses {
		if strings.EqualFold(string(course.Level), string(level)) {
			out = append(out, course.clone())
		}
	}
	return out
}
