package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"quizwhiz-service/internal/domain"
)

const explanationSystemPrompt = `You are an expert tutor, skilled at explaining complex topics in simple terms.
A student has answered a question on a quiz. Explain why their answer was right or wrong.
Reply with a JSON object of the form {"explanation": "..."}.`

// Explainer produces a short tutor-style explanation for one answered question.
type Explainer struct {
	provider  Provider
	maxTokens int
}

// NewExplainer returns an Explainer backed by provider.
func NewExplainer(provider Provider) *Explainer {
	return &Explainer{provider: provider, maxTokens: 1024}
}

// Explain returns the explanation text. Every failure wraps
// domain.ErrExplanationFailed and affects only this request.
func (e *Explainer) Explain(ctx context.Context, req domain.ExplanationRequest) (string, error) {
	resp, err := e.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: explanationSystemPrompt},
			{Role: "user", Content: explanationPrompt(req)},
		},
		MaxTokens:   e.maxTokens,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s completion: %w", domain.ErrExplanationFailed, e.provider.Name(), err)
	}

	text := parseExplanation(resp.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty explanation", domain.ErrExplanationFailed)
	}
	return text, nil
}

func explanationPrompt(req domain.ExplanationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	if req.Week != "" {
		fmt.Fprintf(&b, "Week: %s\n", req.Week)
	}
	fmt.Fprintf(&b, "Topic: %s\n\n", req.Topic)
	fmt.Fprintf(&b, "Question: %s\n", req.Question)
	fmt.Fprintf(&b, "Student's Answer: %s\n", req.Answer)
	fmt.Fprintf(&b, "Correct: %t\n", req.Correct)
	if !req.Correct && req.CorrectAnswer != "" {
		fmt.Fprintf(&b, "Correct Answer: %s\n", req.CorrectAnswer)
	}
	b.WriteString("\nGenerate a clear and concise explanation. Focus on the key concepts behind the correct answer and avoid overly technical jargon.\n")
	if req.Correct {
		b.WriteString("The student was correct: affirm their understanding and add a related insight.\n")
	} else {
		b.WriteString("The student was incorrect: explain why their answer was wrong and why the correct answer is right.\n")
	}
	return b.String()
}

// parseExplanation accepts {"explanation": "..."} and falls back to the raw
// reply when the model answered in plain text.
func parseExplanation(content string) string {
	body := stripFence(content)
	var out struct {
		Explanation string `json:"explanation"`
	}
	if strings.HasPrefix(body, "{") && json.Unmarshal([]byte(body), &out) == nil {
		return strings.TrimSpace(out.Explanation)
	}
	return body
}
