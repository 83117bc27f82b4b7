package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monthly-quiz-service/internal/backoff"
	"monthly-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// ActiveQuizSource resolves the quiz whose window contains the given instant.
type ActiveQuizSource interface {
	ActivePublicQuiz(ctx context.Context, at time.Time) (domain.PublicQuiz, error)
}

// SubmissionGate is the submission persistence seen by the public flow: the
// advisory duplicate check and the single-attempt write.
type SubmissionGate interface {
	HasSubmission(ctx context.Context, quizID, email string) (bool, error)
	CreateSubmission(ctx context.Context, sub *domain.Submission) error
}

// PublicService starts quiz-taking flows against the currently active quiz.
type PublicService struct {
	quizzes   ActiveQuizSource
	subs      SubmissionGate
	retry     backoff.Policy
	now       func() time.Time
	newID     func() string
	reviewURL string
}

func NewPublicService(quizzes ActiveQuizSource, subs SubmissionGate) *PublicService {
	return &PublicService{
		quizzes: quizzes,
		subs:    subs,
		retry:   backoff.DefaultPolicy(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithReviewURL sets the external call-to-action link offered on the review
// step once a submission landed.
func (s *PublicService) WithReviewURL(url string) *PublicService {
	s.reviewURL = url
	return s
}

// WithClock and WithRetry are test-only knobs.
func (s *PublicService) WithClock(now func() time.Time) *PublicService {
	s.now = now
	return s
}

func (s *PublicService) WithRetry(p backoff.Policy) *PublicService {
	s.retry = p
	return s
}

// Start loads the active quiz and opens a flow at the welcome step. Transient
// lookup failures are retried with bounded exponential backoff; a definitive
// "no active quiz" answer is returned immediately as the terminal state.
func (s *PublicService) Start(ctx context.Context) (*TakerFlow, error) {
	var pub domain.PublicQuiz
	err := s.retry.Retry(ctx, func(ctx context.Context) error {
		loaded, err := s.quizzes.ActivePublicQuiz(ctx, s.now())
		if errors.Is(err, domain.ErrNoActiveQuiz) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		pub = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &TakerFlow{
		svc:       s,
		quiz:      pub.Quiz,
		questions: pub.Questions,
		step:      StepWelcome,
		answers:   make(map[string]int),
	}, nil
}

// FlowStep names the public flow states.
type FlowStep string

const (
	StepWelcome   FlowStep = "welcome"
	StepEmail     FlowStep = "email"
	StepQuestions FlowStep = "quiz"
	StepReview    FlowStep = "review"
)

// TakerFlow sequences one participant through
// welcome -> email -> quiz(question i) -> review. Transitions are
// unidirectional except stepping between questions.
type TakerFlow struct {
	svc       *PublicService
	quiz      domain.Quiz
	questions []domain.Question
	step      FlowStep
	index     int
	email     string
	answers   map[string]int
	result    domain.Submission
}

func (f *TakerFlow) Step() FlowStep               { return f.step }
func (f *TakerFlow) Quiz() domain.Quiz            { return f.quiz }
func (f *TakerFlow) Questions() []domain.Question { return f.questions }
func (f *TakerFlow) Email() string                { return f.email }

// Result returns the recorded submission; valid once the flow reached review.
func (f *TakerFlow) Result() domain.Submission { return f.result }

// ReviewURL is the call-to-action link shown on the review step.
func (f *TakerFlow) ReviewURL() string { return f.svc.reviewURL }

// CurrentQuestion returns the question on screen plus its 1-based position.
func (f *TakerFlow) CurrentQuestion() (domain.Question, int) {
	return f.questions[f.index], f.index + 1
}

// Begin leaves the welcome screen for the email capture step.
func (f *TakerFlow) Begin() error {
	if f.step != StepWelcome {
		return fmt.Errorf("cannot begin from step %q", f.step)
	}
	f.step = StepEmail
	return nil
}

// EnterEmail records the participant email after an advisory duplicate check;
// a found submission blocks advancement. The authoritative check happens
// again at submit time through the uniqueness constraint.
func (f *TakerFlow) EnterEmail(ctx context.Context, email string) error {
	if f.step != StepEmail {
		return fmt.Errorf("cannot enter email from step %q", f.step)
	}
	// A quiz whose questions never landed (a partial save) is not takeable.
	if len(f.questions) == 0 {
		return domain.ErrNoQuestions
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}
	exists, err := f.svc.subs.HasSubmission(ctx, f.quiz.ID, email)
	if err != nil {
		return fmt.Errorf("check participation: %w", err)
	}
	if exists {
		return domain.ErrAlreadyParticipated
	}
	f.email = email
	f.step = StepQuestions
	f.index = 0
	return nil
}

// SelectAnswer records the chosen option for the question on screen and
// auto-advances; the last question stays on screen awaiting submit.
func (f *TakerFlow) SelectAnswer(option int) error {
	if f.step != StepQuestions {
		return fmt.Errorf("cannot answer from step %q", f.step)
	}
	question := f.questions[f.index]
	if option < 0 || option >= len(question.Options) {
		return fmt.Errorf("option %d out of range", option)
	}
	f.answers[question.ID] = option
	if f.index < len(f.questions)-1 {
		f.index++
	}
	return nil
}

// AnswerQuestion records an answer by question id without moving the cursor.
// It serves non-interactive clients that submit a whole answer sheet at once.
func (f *TakerFlow) AnswerQuestion(questionID string, option int) error {
	if f.step != StepQuestions {
		return fmt.Errorf("cannot answer from step %q", f.step)
	}
	for _, question := range f.questions {
		if question.ID != questionID {
			continue
		}
		if option < 0 || option >= len(question.Options) {
			return fmt.Errorf("option %d out of range", option)
		}
		f.answers[question.ID] = option
		return nil
	}
	return fmt.Errorf("unknown question %q", questionID)
}

// Previous steps back one question, never past the first.
func (f *TakerFlow) Previous() {
	if f.step == StepQuestions && f.index > 0 {
		f.index--
	}
}

// Submit writes the submission (score zero; the storage layer computes the
// authoritative score) and advances to review. The write is single-attempt:
// on failure the flow stays at the quiz step so the participant may retry.
func (f *TakerFlow) Submit(ctx context.Context) error {
	if f.step != StepQuestions {
		return fmt.Errorf("cannot submit from step %q", f.step)
	}
	if len(f.answers) != len(f.questions) {
		return domain.ErrMissingAnswers
	}

	answers := make(map[string]int, len(f.answers))
	for id, idx := range f.answers {
		answers[id] = idx
	}
	sub := domain.Submission{
		ID:      f.svc.newID(),
		QuizID:  f.quiz.ID,
		Email:   f.email,
		Answers: answers,
		Score:   0,
	}
	if err := f.svc.subs.CreateSubmission(ctx, &sub); err != nil {
		return err
	}
	f.result = sub
	f.step = StepReview
	return nil
}
