package curriculum_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quizwhiz-service/internal/curriculum"
	"quizwhiz-service/internal/domain"
)

func TestDefaultCatalogHasTopicsForEverySubject(t *testing.T) {
	c, err := curriculum.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	subjects := c.Subjects()
	if len(subjects) != 10 {
		t.Fatalf("expected 10 subjects, got %d", len(subjects))
	}
	for _, s := range subjects {
		topics, err := c.Topics(s)
		if err != nil {
			t.Fatalf("Topics(%q) error = %v", s, err)
		}
		if len(topics) == 0 {
			t.Fatalf("Topics(%q) is empty", s)
		}
	}
}

func TestCheckParameters(t *testing.T) {
	c, err := curriculum.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	ok := domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 3}
	if err := c.Check(ok); err != nil {
		t.Fatalf("Check(%+v) error = %v", ok, err)
	}
	ok.Week = "Week 2"
	if err := c.Check(ok); err != nil {
		t.Fatalf("Check with week error = %v", err)
	}

	wrongWeek := ok
	wrongWeek.Week = "Week 1"
	if err := c.Check(wrongWeek); !errors.Is(err, domain.ErrUnknownTopic) || !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("expected unknown topic for wrong week, got %v", err)
	}

	unknown := domain.Parameters{Subject: "Cobol", Topic: "Semantic HTML", NumQuestions: 3}
	if err := c.Check(unknown); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject, got %v", err)
	}
}

func TestTopicsForWeek(t *testing.T) {
	c, err := curriculum.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	topics, err := c.TopicsForWeek("Git", "Week 1")
	if err != nil {
		t.Fatalf("TopicsForWeek error = %v", err)
	}
	if len(topics) != 3 || topics[0] != "Introduction to Git" {
		t.Fatalf("unexpected topics %v", topics)
	}
	if week, ok := c.WeekOf("JavaScript", "Error Handling"); !ok || week != "Week 3" {
		t.Fatalf("WeekOf = %q, %v", week, ok)
	}
	if _, err := c.Weeks("Nope"); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject, got %v", err)
	}
}

func TestParseRejectsSubjectWithoutTopics(t *testing.T) {
	_, err := curriculum.Parse([]byte(`
subjects:
  - name: Empty
    weeks:
      - name: Week 1
        topics: []
`))
	if err == nil {
		t.Fatalf("expected error for subject without topics")
	}
}

func TestParseRejectsTopicInTwoWeeks(t *testing.T) {
	_, err := curriculum.Parse([]byte(`
subjects:
  - name: Git
    weeks:
      - name: Week 1
        topics: [Basic Commands]
      - name: Week 2
        topics: [Basic Commands]
`))
	if err == nil {
		t.Fatalf("expected error for duplicated topic")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "curriculum.yaml")
	if err := os.WriteFile(path, []byte(`
subjects:
  - name: Go
    weeks:
      - name: Week 1
        topics: [Goroutines, Channels]
`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	c, err := curriculum.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	topics, err := c.Topics("Go")
	if err != nil || len(topics) != 2 {
		t.Fatalf("Topics(Go) = %v, %v", topics, err)
	}
}
