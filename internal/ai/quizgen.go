package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"quizwhiz-service/internal/domain"
)

var (
	// ErrMalformedOutput means the model reply is not the expected JSON document.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrNoValidQuestions means every generated question failed validation.
	ErrNoValidQuestions = errors.New("no valid questions in model output")
)

const questionSchema = `{
  "type": "object",
  "required": ["question", "options", "correctAnswer"],
  "properties": {
    "question": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "minItems": 2,
      "uniqueItems": true,
      "items": {"type": "string", "minLength": 1}
    },
    "correctAnswer": {"type": "string", "minLength": 1}
  }
}`

const generationSystemPrompt = "You are an expert quiz question generator. Reply with JSON only."

const generationPromptTemplate = `Generate %d multiple-choice quiz questions for the subject %s, week %s, on the topic of %s.
Each question should have several options and exactly one correct answer.

Output the questions in JSON format, including the question text, answer options, and correct answer for each question.
Ensure that the correct answer is one of the options and that all questions, options, and correct answers are strings.

Example format:
{
  "questions": [
    {
      "question": "What is 2 + 2?",
      "options": ["3", "4", "5", "6"],
      "correctAnswer": "4"
    }
  ]
}`

// QuestionGenerator asks a provider for quiz questions and keeps only the
// well-formed ones.
type QuestionGenerator struct {
	provider    Provider
	schema      *gojsonschema.Schema
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// GeneratorOption configures a QuestionGenerator.
type GeneratorOption func(*QuestionGenerator)

// WithGenerationTokens caps the reply size.
func WithGenerationTokens(n int) GeneratorOption {
	return func(g *QuestionGenerator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithGenerationTemperature sets the sampling temperature.
func WithGenerationTemperature(t float64) GeneratorOption {
	return func(g *QuestionGenerator) {
		g.temperature = t
	}
}

// WithGeneratorLogger sets the logger used to report dropped questions.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *QuestionGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewQuestionGenerator compiles the question schema and returns a generator.
func NewQuestionGenerator(provider Provider, opts ...GeneratorOption) (*QuestionGenerator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionSchema))
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}
	g := &QuestionGenerator{
		provider:    provider,
		schema:      schema,
		maxTokens:   8192,
		temperature: 0.7,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate returns at most req.NumQuestions valid questions. Invalid items
// are dropped; an empty result is an error.
func (g *QuestionGenerator) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	week := req.Week
	if week == "" {
		week = "any"
	}
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: generationSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(generationPromptTemplate, req.NumQuestions, req.Subject, week, req.Topic)},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", g.provider.Name(), err)
	}

	items, err := splitQuestions(resp.Content)
	if err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, req.NumQuestions)
	for i, raw := range items {
		if len(questions) == req.NumQuestions {
			break
		}
		q, err := g.validate(raw)
		if err != nil {
			g.logger.Warn("dropping generated question", "index", i, "subject", req.Subject, "topic", req.Topic, "error", err)
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, ErrNoValidQuestions
	}
	if len(questions) < req.NumQuestions {
		g.logger.Info("generated fewer questions than requested", "requested", req.NumQuestions, "got", len(questions))
	}
	return questions, nil
}

func (g *QuestionGenerator) validate(raw json.RawMessage) (domain.Question, error) {
	result, err := g.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return domain.Question{}, err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Question{}, fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
	}

	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, err
	}
	q.Text = strings.TrimSpace(q.Text)
	if !q.HasOption(q.CorrectAnswer) {
		return domain.Question{}, fmt.Errorf("correct answer %q is not one of the options", q.CorrectAnswer)
	}
	return q, nil
}

// splitQuestions accepts either {"questions": [...]} or a bare array,
// optionally wrapped in a markdown code fence.
func splitQuestions(content string) ([]json.RawMessage, error) {
	body := []byte(stripFence(content))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}

	var items []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
		}
		return items, nil
	}

	var envelope struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if envelope.Questions == nil {
		return nil, fmt.Errorf("%w: missing questions array", ErrMalformedOutput)
	}
	return envelope.Questions, nil
}

func stripFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
