package app

import (
	"context"
	"time"

	"monthly-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// QuizStore abstracts quiz and question persistence (memory, Postgres).
type QuizStore interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ReplaceQuestions(ctx context.Context, quizID string, questions []domain.Question) error
	QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error)
}

// ParticipantCounter reports how many submissions each quiz received.
type ParticipantCounter interface {
	ParticipantCounts(ctx context.Context, quizIDs []string) (map[string]int, error)
}

// AuthoringService contains the admin-side quiz lifecycle use cases.
type AuthoringService struct {
	quizzes QuizStore
	counts  ParticipantCounter
	now     func() time.Time
	newID   func() string
}

func NewAuthoringService(quizzes QuizStore, counts ParticipantCounter) *AuthoringService {
	return &AuthoringService{
		quizzes: quizzes,
		counts:  counts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock is test-only for deterministic draft defaults.
func (s *AuthoringService) WithClock(now func() time.Time) *AuthoringService {
	s.now = now
	return s
}

// NewDraft resets authoring state to an empty quiz whose window runs from now
// through one month later, keyed on the current month.
func (s *AuthoringService) NewDraft() *Draft {
	now := s.now()
	return &Draft{
		Quiz: domain.Quiz{
			Month:     domain.FirstOfMonth(now),
			StartDate: now.Truncate(time.Minute),
			EndDate:   now.AddDate(0, 1, 0).Truncate(time.Minute),
		},
	}
}

// LoadForEdit fetches a quiz and its ordered questions into a draft. The
// second return reports whether the quiz window currently contains now, so
// the caller can warn that edits to a live quiz are immediately visible.
func (s *AuthoringService) LoadForEdit(ctx context.Context, quizID string) (*Draft, bool, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, false, err
	}
	questions, err := s.quizzes.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return nil, false, err
	}
	return &Draft{Quiz: quiz, Questions: questions}, quiz.WindowContains(s.now()), nil
}

// Save validates the draft, then upserts the quiz row and replaces its
// question rows wholesale (delete + reinsert). Validation failures occur
// before any write. Blank options are filtered out before persisting.
func (s *AuthoringService) Save(ctx context.Context, adminID string, draft *Draft) (domain.Quiz, error) {
	if adminID == "" {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}

	questions := domain.StripBlankOptions(draft.Questions)
	if err := domain.ValidateQuizForSave(draft.Quiz, questions); err != nil {
		return domain.Quiz{}, err
	}

	quiz := draft.Quiz
	quiz.AdminID = adminID
	if quiz.Month == "" {
		quiz.Month = domain.FirstOfMonth(quiz.StartDate)
	}

	if quiz.ID == "" {
		quiz.ID = s.newID()
		if err := s.quizzes.CreateQuiz(ctx, &quiz); err != nil {
			return domain.Quiz{}, err
		}
	} else {
		if err := s.quizzes.UpdateQuiz(ctx, &quiz); err != nil {
			return domain.Quiz{}, err
		}
	}

	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = s.newID()
		}
		questions[i].QuizID = quiz.ID
		questions[i].Order = i
	}
	if err := s.quizzes.ReplaceQuestions(ctx, quiz.ID, questions); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Delete permanently removes a quiz; questions and submissions cascade at the
// data layer. The interactive confirmation lives with the caller.
func (s *AuthoringService) Delete(ctx context.Context, quizID string) error {
	return s.quizzes.DeleteQuiz(ctx, quizID)
}

// QuizSummary is one row of the admin quiz list.
type QuizSummary struct {
	domain.Quiz
	Status       domain.QuizStatus `json:"status"`
	Participants int               `json:"participants"`
}

// List returns all quizzes newest-first with derived status and participant
// counts. There is no cache; every call re-fetches from the store.
func (s *AuthoringService) List(ctx context.Context) ([]QuizSummary, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(quizzes))
	for i, q := range quizzes {
		ids[i] = q.ID
	}
	counts, err := s.counts.ParticipantCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summaries := make([]QuizSummary, len(quizzes))
	for i, q := range quizzes {
		summaries[i] = QuizSummary{
			Quiz:         q,
			Status:       q.StatusAt(now),
			Participants: counts[q.ID],
		}
	}
	return summaries, nil
}
