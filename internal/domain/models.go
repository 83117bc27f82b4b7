package domain

import "time"

// QuestionsPerQuiz is the number of questions a saved quiz must carry.
const QuestionsPerQuiz = 5

// PerfectScore is the score a submission needs to enter the winner draw.
const PerfectScore = QuestionsPerQuiz

// Option count bounds per question.
const (
	MinOptions = 2
	MaxOptions = 4
)

// Admin is the single operator allowed to author quizzes and review results.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuizStatus is derived from the quiz window, never stored.
type QuizStatus string

const (
	StatusUpcoming QuizStatus = "upcoming"
	StatusActive   QuizStatus = "active"
	StatusPast     QuizStatus = "past"
)

// Quiz is one monthly campaign. Month acts as a uniqueness key (first-of-month
// date in YYYY-MM-DD form); Description holds opaque rich HTML.
type Quiz struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Month            string    `json:"month"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	BannerURL        string    `json:"bannerUrl,omitempty"`
	AdminID          string    `json:"adminId"`
	DrawnWinnerEmail string    `json:"drawnWinnerEmail,omitempty"`
}

// StatusAt derives the campaign status at a given instant.
func (q Quiz) StatusAt(now time.Time) QuizStatus {
	switch {
	case now.Before(q.StartDate):
		return StatusUpcoming
	case now.After(q.EndDate):
		return StatusPast
	default:
		return StatusActive
	}
}

// WindowContains reports whether the quiz is open for participation at now.
func (q Quiz) WindowContains(now time.Time) bool {
	return q.StatusAt(now) == StatusActive
}

// WinnerDrawn reports whether a winner has already been recorded.
func (q Quiz) WinnerDrawn() bool {
	return q.DrawnWinnerEmail != ""
}

// FirstOfMonth renders the month key for an instant, e.g. "2025-01-01".
func FirstOfMonth(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Format("2006-01-02")
}

// Question is a single-choice question. CorrectAnswer indexes into Options.
type Question struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"quizId"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Order         int      `json:"order"`
}

// VisibleOptions filters blank options out for display. Stored indices are
// unaffected; callers must keep original positions when recording answers.
func (q Question) VisibleOptions() []string {
	visible := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt != "" {
			visible = append(visible, opt)
		}
	}
	return visible
}

// Submission is one participant's answer sheet. Answers maps question id to
// the chosen option index. Score is written as zero by the flows and computed
// authoritatively by the storage layer on insert.
type Submission struct {
	ID        string         `json:"id"`
	QuizID    string         `json:"quizId"`
	Email     string         `json:"email"`
	CreatedAt time.Time      `json:"createdAt"`
	Answers   map[string]int `json:"answers"`
	Score     int            `json:"score"`
}

// Perfect reports whether the submission answered every question correctly.
func (s Submission) Perfect() bool {
	return s.Score == PerfectScore
}

// PublicQuiz bundles a quiz with its ordered questions for the public flow.
type PublicQuiz struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}
