// Package curriculum holds the static subject -> week -> topic catalog used to
// parametrize question generation.
package curriculum

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
	"quizwhiz-service/internal/domain"
)

//go:embed default.yaml
var defaultCatalog []byte

// Week groups the topics taught in one week of a subject.
type Week struct {
	Name   string   `yaml:"name" json:"name"`
	Topics []string `yaml:"topics" json:"topics"`
}

// Subject is one course of the curriculum.
type Subject struct {
	Name  string `yaml:"name" json:"name"`
	Weeks []Week `yaml:"weeks" json:"weeks"`
}

type document struct {
	Subjects []Subject `yaml:"subjects"`
}

// Catalog is immutable after loading and safe for concurrent reads.
type Catalog struct {
	subjects []Subject
	index    map[string]Subject
	// topic -> week, per subject
	weekOf map[string]map[string]string
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Info("curriculum loaded", "path", path, "subjects", len(c.subjects))
	return c, nil
}

// Parse builds a catalog from YAML. Every subject must have at least one topic
// and a topic may appear only once within a subject.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}

	c := &Catalog{
		index:  make(map[string]Subject, len(doc.Subjects)),
		weekOf: make(map[string]map[string]string, len(doc.Subjects)),
	}
	for _, s := range doc.Subjects {
		if s.Name == "" {
			return nil, fmt.Errorf("curriculum: subject without name")
		}
		if _, dup := c.index[s.Name]; dup {
			return nil, fmt.Errorf("curriculum: duplicate subject %q", s.Name)
		}
		weeks := make(map[string]string)
		for _, w := range s.Weeks {
			for _, topic := range w.Topics {
				if prev, dup := weeks[topic]; dup {
					return nil, fmt.Errorf("curriculum: topic %q of %q listed in %q and %q", topic, s.Name, prev, w.Name)
				}
				weeks[topic] = w.Name
			}
		}
		if len(weeks) == 0 {
			return nil, fmt.Errorf("curriculum: subject %q has no topics", s.Name)
		}
		c.subjects = append(c.subjects, s)
		c.index[s.Name] = s
		c.weekOf[s.Name] = weeks
	}
	return c, nil
}

// Subjects lists subject names in catalog order.
func (c *Catalog) Subjects() []string {
	names := make([]string, 0, len(c.subjects))
	for _, s := range c.subjects {
		names = append(names, s.Name)
	}
	return names
}

// All returns the full catalog tree.
func (c *Catalog) All() []Subject {
	return append([]Subject(nil), c.subjects...)
}

// Weeks lists the week names of a subject.
func (c *Catalog) Weeks(subject string) ([]string, error) {
	s, ok := c.index[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubject, subject)
	}
	names := make([]string, 0, len(s.Weeks))
	for _, w := range s.Weeks {
		names = append(names, w.Name)
	}
	return names, nil
}

// Topics lists every topic of a subject across weeks. Never empty for a known subject.
func (c *Catalog) Topics(subject string) ([]string, error) {
	s, ok := c.index[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubject, subject)
	}
	var topics []string
	for _, w := range s.Weeks {
		topics = append(topics, w.Topics...)
	}
	return topics, nil
}

// TopicsForWeek lists the topics of one week.
func (c *Catalog) TopicsForWeek(subject, week string) ([]string, error) {
	s, ok := c.index[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubject, subject)
	}
	for _, w := range s.Weeks {
		if w.Name == week {
			return append([]string(nil), w.Topics...), nil
		}
	}
	return nil, fmt.Errorf("%w: week %q of %q", domain.ErrUnknownTopic, week, subject)
}

// WeekOf returns the week a topic belongs to.
func (c *Catalog) WeekOf(subject, topic string) (string, bool) {
	w, ok := c.weekOf[subject][topic]
	return w, ok
}

// Check verifies that the parameters name a catalogued subject/topic pair
// (and week, when given).
func (c *Catalog) Check(p domain.Parameters) error {
	weeks, ok := c.weekOf[p.Subject]
	if !ok {
		return fmt.Errorf("%w: %w %q", domain.ErrInvalidParameters, domain.ErrUnknownSubject, p.Subject)
	}
	week, ok := weeks[p.Topic]
	if !ok {
		return fmt.Errorf("%w: %w %q in %q", domain.ErrInvalidParameters, domain.ErrUnknownTopic, p.Topic, p.Subject)
	}
	if p.Week != "" && p.Week != week {
		return fmt.Errorf("%w: %w %q is taught in %q, not %q", domain.ErrInvalidParameters, domain.ErrUnknownTopic, p.Topic, week, p.Week)
	}
	return nil
}
