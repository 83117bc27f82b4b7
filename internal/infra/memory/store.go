// Package memory backs the service without Postgres or Redis, mirroring the
// database behavior the application relies on: uniqueness on quiz month and
// on (email, quiz), cascade deletes, and authoritative score computation on
// submission insert. Used for tests and demo mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"monthly-quiz-service/internal/domain"
)

// Store is an in-memory implementation of the quiz, submission and admin
// persistence interfaces.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	quizzes     map[string]domain.Quiz
	questions   map[string][]domain.Question
	submissions map[string][]domain.Submission
	admins      map[string]domain.Admin
}

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		quizzes:     make(map[string]domain.Quiz),
		questions:   make(map[string][]domain.Question),
		submissions: make(map[string][]domain.Submission),
		admins:      make(map[string]domain.Admin),
	}
}

// WithClock is test-only for deterministic submission timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.quizzes {
		if existing.Month == quiz.Month {
			return domain.ErrMonthTaken
		}
	}
	s.quizzes[quiz.ID] = *quiz
	return nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	for id, existing := range s.quizzes {
		if id != quiz.ID && existing.Month == quiz.Month {
			return domain.ErrMonthTaken
		}
	}
	// drawn_winner_email is owned by SetDrawnWinner, not the edit path.
	quiz.DrawnWinnerEmail = s.quizzes[quiz.ID].DrawnWinnerEmail
	s.quizzes[quiz.ID] = *quiz
	return nil
}

// DeleteQuiz removes the quiz permanently and cascades to its questions and
// submissions, as the relational schema would.
func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	delete(s.questions, quizID)
	delete(s.submissions, quizID)
	return nil
}

// SetDrawnWinner records the winner at most once per quiz (conditional write).
func (s *Store) SetDrawnWinner(_ context.Context, quizID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	if quiz.DrawnWinnerEmail != "" {
		return domain.ErrWinnerAlreadyDrawn
	}
	quiz.DrawnWinnerEmail = email
	s.quizzes[quizID] = quiz
	return nil
}

// ReplaceQuestions implements the replace-on-save semantics: existing rows
// for the quiz are dropped and the given list inserted.
func (s *Store) ReplaceQuestions(_ context.Context, quizID string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replacement := make([]domain.Question, len(questions))
	copy(replacement, questions)
	s.questions[quizID] = replacement
	return nil
}

func (s *Store) QuestionsByQuiz(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions[quizID]))
	copy(out, s.questions[quizID])
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// ActivePublicQuiz returns the quiz whose window contains at, with its
// ordered questions. At most one such quiz is expected to exist.
func (s *Store) ActivePublicQuiz(ctx context.Context, at time.Time) (domain.PublicQuiz, error) {
	s.mu.RLock()
	var active *domain.Quiz
	for _, quiz := range s.quizzes {
		if quiz.WindowContains(at) {
			q := quiz
			active = &q
			break
		}
	}
	s.mu.RUnlock()

	if active == nil {
		return domain.PublicQuiz{}, domain.ErrNoActiveQuiz
	}
	questions, err := s.QuestionsByQuiz(ctx, active.ID)
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	return domain.PublicQuiz{Quiz: *active, Questions: questions}, nil
}

func (s *Store) SubmissionsByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, len(s.submissions[quizID]))
	copy(out, s.submissions[quizID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) HasSubmission(_ context.Context, quizID, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions[quizID] {
		if strings.EqualFold(sub.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// CreateSubmission enforces the (email, quiz) uniqueness constraint and
// computes the authoritative score from the stored correct answers, standing
// in for the database trigger. The caller-provided score is ignored.
func (s *Store) CreateSubmission(_ context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.submissions[sub.QuizID] {
		if strings.EqualFold(existing.Email, sub.Email) {
			return domain.ErrAlreadyParticipated
		}
	}

	score := 0
	for _, question := range s.questions[sub.QuizID] {
		if chosen, ok := sub.Answers[question.ID]; ok && chosen == question.CorrectAnswer {
			score++
		}
	}
	sub.Score = score
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	s.submissions[sub.QuizID] = append(s.submissions[sub.QuizID], *sub)
	return nil
}

func (s *Store) ParticipantCounts(_ context.Context, quizIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int, len(quizIDs))
	for _, id := range quizIDs {
		if n := len(s.submissions[id]); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (s *Store) AdminByEmail(_ context.Context, email string) (domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[strings.ToLower(email)]
	if !ok {
		return domain.Admin{}, domain.ErrNotAdmin
	}
	return admin, nil
}

// CreateFirstAdmin is the one-time bootstrap; it fails once any admin exists.
func (s *Store) CreateFirstAdmin(_ context.Context, admin *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.admins) > 0 {
		return domain.ErrAdminExists
	}
	s.admins[strings.ToLower(admin.Email)] = *admin
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, email string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	admin, ok := s.admins[key]
	if !ok {
		return domain.ErrNotAdmin
	}
	admin.PasswordHash = hash
	s.admins[key] = admin
	return nil
}
