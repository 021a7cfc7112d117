package quiz

import "quizwhiz-service/internal/domain"

// QuestionView is the current question without its correct answer.
type QuestionView struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// ResultView summarizes a finished session.
type ResultView struct {
	Score        int          `json:"score"`
	NumQuestions int          `json:"numQuestions"`
	Percentage   int          `json:"percentage"`
	Cause        FinishCause  `json:"cause"`
	Review       []ReviewItem `json:"review"`
}

// Snapshot is the client-facing view of a session.
type Snapshot struct {
	SessionID        string            `json:"sessionId"`
	State            State             `json:"state"`
	Params           domain.Parameters `json:"parameters"`
	Index            int               `json:"index"`
	Total            int               `json:"total"`
	Question         *QuestionView     `json:"question,omitempty"`
	Selected         string            `json:"selected,omitempty"`
	Confirmed        bool              `json:"confirmed"`
	LastQuestion     bool              `json:"lastQuestion"`
	Answers          []domain.Answer   `json:"answers,omitempty"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Error            string            `json:"error,omitempty"`
	Result           *ResultView       `json:"result,omitempty"`
	TabSwitchNotice  bool              `json:"tabSwitchNotice"`
}

// Snapshot renders the session for clients. Correct answers are only
// included once the session has finished.
func (s Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:        s.ID,
		State:            s.State,
		Params:           s.Params,
		Index:            s.Current,
		Total:            len(s.Questions),
		Selected:         s.Selected,
		Confirmed:        s.Confirmed,
		RemainingSeconds: s.Remaining,
		TabSwitchNotice:  s.TabSwitched && !s.NoticeDismissed,
	}
	if len(s.Answers) > 0 {
		snap.Answers = append([]domain.Answer(nil), s.Answers...)
	}
	if s.Err != nil {
		snap.Error = s.Err.Error()
	}
	if s.State == StateActive && s.Current < len(s.Questions) {
		q := s.Questions[s.Current]
		snap.Question = &QuestionView{Text: q.Text, Options: q.Options}
		snap.LastQuestion = s.Current == len(s.Questions)-1
	}
	if s.State == StateFinished && s.Result != nil {
		snap.Result = &ResultView{
			Score:        s.Result.Score,
			NumQuestions: s.Result.NumQuestions,
			Percentage:   s.Result.Percentage(),
			Cause:        s.Cause,
			Review:       Review(s.Questions, s.Answers),
		}
	}
	return snap
}
