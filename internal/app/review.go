package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"monthly-quiz-service/internal/domain"
)

// SubmissionSource lists a quiz's submissions, newest first.
type SubmissionSource interface {
	SubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
}

// ReviewService loads participant submissions for the dashboard. Filtering,
// sorting and export all operate on the loaded in-memory view.
type ReviewService struct {
	subs SubmissionSource
}

func NewReviewService(subs SubmissionSource) *ReviewService {
	return &ReviewService{subs: subs}
}

func (s *ReviewService) Load(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.subs.SubmissionsByQuiz(ctx, quizID)
}

// SortKey selects the submission column to order by.
type SortKey string

const (
	SortByEmail SortKey = "email"
	SortByDate  SortKey = "created_at"
	SortByScore SortKey = "score"
)

// SortConfig holds the current ordering; repeated toggles on the same key
// flip the direction.
type SortConfig struct {
	Key  SortKey
	Desc bool
}

// DefaultSort is newest-first, matching the initial dashboard view.
func DefaultSort() SortConfig {
	return SortConfig{Key: SortByDate, Desc: true}
}

// Toggle returns the ordering after a click on key: ascending when switching
// keys, flipped when the same key is clicked again while ascending.
func (c SortConfig) Toggle(key SortKey) SortConfig {
	return SortConfig{Key: key, Desc: c.Key == key && !c.Desc}
}

// FilterByEmail keeps submissions whose email contains term, case-insensitively.
func FilterByEmail(subs []domain.Submission, term string) []domain.Submission {
	term = strings.ToLower(term)
	out := make([]domain.Submission, 0, len(subs))
	for _, sub := range subs {
		if strings.Contains(strings.ToLower(sub.Email), term) {
			out = append(out, sub)
		}
	}
	return out
}

// SortSubmissions returns a sorted copy; the input order is preserved.
func SortSubmissions(subs []domain.Submission, cfg SortConfig) []domain.Submission {
	out := make([]domain.Submission, len(subs))
	copy(out, subs)
	less := func(a, b domain.Submission) bool {
		switch cfg.Key {
		case SortByEmail:
			return a.Email < b.Email
		case SortByScore:
			return a.Score < b.Score
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if cfg.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// Stats returns the participation count and the average score (one decimal's
// worth of precision is applied by the caller). An empty set averages zero.
func Stats(subs []domain.Submission) (int, float64) {
	if len(subs) == 0 {
		return 0, 0
	}
	total := 0
	for _, sub := range subs {
		total += sub.Score
	}
	return len(subs), float64(total) / float64(len(subs))
}

// ExportCSV serializes the given (already filtered and sorted) submissions:
// a header row then one row per submission with the score rendered as "n/5".
func ExportCSV(subs []domain.Submission) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Email", "Date", "Score"}); err != nil {
		return nil, err
	}
	for _, sub := range subs {
		rec := []string{
			sub.Email,
			sub.CreatedAt.Format("02/01/2006"),
			fmt.Sprintf("%d/%d", sub.Score, domain.QuestionsPerQuiz),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportFilename names the download after the export date.
func ExportFilename(now time.Time) string {
	return "submissions-" + now.Format("2006-01-02") + ".csv"
}
