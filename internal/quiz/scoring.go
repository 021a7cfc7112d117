package quiz

import "quizwhiz-service/internal/domain"

// Score counts positions where the answer equals the question's correct
// answer. Lists are compared by position; extra entries on either side are
// ignored.
func Score(questions []domain.Question, answers []domain.Answer) int {
	n := min(len(questions), len(answers))
	score := 0
	for i := 0; i < n; i++ {
		if answers[i].Matches(questions[i].CorrectAnswer) {
			score++
		}
	}
	return score
}

// ReviewItem is one line of the results screen.
type ReviewItem struct {
	Question      string        `json:"question"`
	Options       []string      `json:"options"`
	Answer        domain.Answer `json:"answer"`
	CorrectAnswer string        `json:"correctAnswer"`
	Correct       bool          `json:"correct"`
}

// Review pairs every question with the recorded answer.
func Review(questions []domain.Question, answers []domain.Answer) []ReviewItem {
	items := make([]ReviewItem, len(questions))
	for i, q := range questions {
		var a domain.Answer
		if i < len(answers) {
			a = answers[i]
		}
		items[i] = ReviewItem{
			Question:      q.Text,
			Options:       q.Options,
			Answer:        a,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       a.Matches(q.CorrectAnswer),
		}
	}
	return items
}
