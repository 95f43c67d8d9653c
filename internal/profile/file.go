package profile

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk profile schema.
type Document struct {
	Name       string            `yaml:"name"`
	Headline   string            `yaml:"headline"`
	Location   string            `yaml:"location"`
	Summary    string            `yaml:"summary"`
	Skills     []string          `yaml:"skills"`
	Experience []Experience      `yaml:"experience"`
	Education  []Education       `yaml:"education"`
	Links      map[string]string `yaml:"links"`
}

// Experience is one role in the profile's work history.
type Experience struct {
	Company    string   `yaml:"company"`
	Role       string   `yaml:"role"`
	Start      string   `yaml:"start"`
	End        string   `yaml:"end"`
	Highlights []string `yaml:"highlights"`
}

// Education is one entry in the profile's education history.
type Education struct {
	School string `yaml:"school"`
	Degree string `yaml:"degree"`
	Year   string `yaml:"year"`
}

// FileSource reads the profile from a YAML document on disk.
type FileSource struct {
	path string
}

// NewFileSource returns a Source backed by the YAML document at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", eris.Wrapf(err, "profile: read %s", f.path)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", eris.Wrapf(err, "profile: parse %s", f.path)
	}
	return doc.Render(), nil
}

// Render flattens the document into the plain-text form fed to prompts.
// Empty sections are omitted.
func (d *Document) Render() string {
	var b strings.Builder

	if d.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", d.Name)
	}
	if d.Headline != "" {
		fmt.Fprintf(&b, "Headline: %s\n", d.Headline)
	}
	if d.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", d.Location)
	}
	if d.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(d.Summary))
	}
	if len(d.Skills) > 0 {
		fmt.Fprintf(&b, "\nSkills: %s\n", strings.Join(d.Skills, ", "))
	}

	if len(d.Experience) > 0 {
		b.WriteString("\nExperience:\n")
		for _, e := range d.Experience {
			span := e.Start
			if e.End != "" {
				span += " - " + e.End
			}
			fmt.Fprintf(&b, "- %s, %s (%s)\n", e.Role, e.Company, span)
			for _, h := range e.Highlights {
				fmt.Fprintf(&b, "  - %s\n", h)
			}
		}
	}

	if len(d.Education) > 0 {
		b.WriteString("\nEducation:\n")
		for _, e := range d.Education {
			fmt.Fprintf(&b, "- %s, %s (%s)\n", e.Degree, e.School, e.Year)
		}
	}

	if len(d.Links) > 0 {
		b.WriteString("\nLinks:\n")
		for _, k := range sortedKeys(d.Links) {
			fmt.Fprintf(&b, "- %s: %s\n", k, d.Links[k])
		}
	}

	return strings.TrimSpace(b.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
