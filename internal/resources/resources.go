// Package resources is the curated directory of external learning material
// shown alongside the courses.
package resources

import (
	_ "embed"
	"fmt"
	"net/url"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed data/resources.yaml
var embedded []byte

// Type groups resources on the resources page.
type Type string

const (
	TypeCourse        Type = "course"
	TypeDocumentation Type = "documentation"
	TypeTutorial      Type = "tutorial"
	TypeTool          Type = "tool"
	TypeCommunity     Type = "community"
)

// All is the filter value that matches every type.
const All = "all"

// Resource is one external link.
type Resource struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	URL         string   `yaml:"url" json:"url"`
	Type        Type     `yaml:"type" json:"type"`
	Tags        []string `yaml:"tags" json:"tags"`
	Paid        bool     `yaml:"paid" json:"paid"`
}

// Category is a filter tab.
type Category struct {
	ID    Type   `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

type document struct {
	Categories []Category `yaml:"categories"`
	Resources  []Resource `yaml:"resources"`
}

// Directory is the read-only resource list.
type Directory struct {
	categories []Category
	resources  []Resource
}

// Default parses the directory compiled into the binary.
func Default() (*Directory, error) {
	return Parse(embedded)
}

// Parse decodes a resources document and checks every entry references a
// declared category and carries an absolute http(s) URL.
func Parse(data []byte) (*Directory, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing resources: %w", err)
	}

	known := make(map[Type]bool, len(doc.Categories))
	for _, c := range doc.Categories {
		if c.ID == "" || c.ID == All {
			return nil, fmt.Errorf("invalid category id %q", c.ID)
		}
		if known[c.ID] {
			return nil, fmt.Errorf("duplicate category %q", c.ID)
		}
		known[c.ID] = true
	}

	for i, r := range doc.Resources {
		if r.Title == "" {
			return nil, fmt.Errorf("resource %d: missing title", i)
		}
		if !known[r.Type] {
			return nil, fmt.Errorf("resource %q: unknown type %q", r.Title, r.Type)
		}
		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("resource %q: invalid url %q", r.Title, r.URL)
		}
	}

	return &Directory{categories: doc.Categories, resources: doc.Resources}, nil
}

// All returns every resource in document order.
func (d *Directory) All() []Resource {
	return cloneAll(d.resources)
}

// ByType returns the resources of type t. "all" and "" match everything.
func (d *Directory) ByType(t string) []Resource {
	if t == "" || t == All {
		return d.All()
	}
	out := []Resource{}
	for _, r := range d.resources {
		if string(r.Type) == t {
			out = append(out, clone(r))
		}
	}
	return out
}

// Categories returns the filter tabs in document order.
func (d *Directory) Categories() []Category {
	return slices.Clone(d.categories)
}

func clone(r Resource) Resource {
	r.Tags = slices.Clone(r.Tags)
	return r
}

func cloneAll(rs []Resource) []Resource {
	out := make([]Resource, len(rs))
	for i, r := range rs {
		out[i] = clone(r)
	}
	return out
}
