package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"monthly-quiz-service/internal/domain"
	"monthly-quiz-service/internal/infra/memory"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func validDraft() *Draft {
	d := &Draft{
		Quiz: domain.Quiz{
			Title:     "January challenge",
			Month:     "2025-01-01",
			StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC),
		},
	}
	for i := 0; i < domain.QuestionsPerQuiz; i++ {
		d.Questions = append(d.Questions, domain.Question{
			Text:          "question",
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: 1,
			Order:         i,
		})
	}
	return d
}

// recordingStore counts writes so tests can assert that validation failures
// never reach the store.
type recordingStore struct {
	*memory.Store
	writes int
}

func (r *recordingStore) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	r.writes++
	return r.Store.CreateQuiz(ctx, quiz)
}

func (r *recordingStore) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	r.writes++
	return r.Store.UpdateQuiz(ctx, quiz)
}

func (r *recordingStore) ReplaceQuestions(ctx context.Context, quizID string, questions []domain.Question) error {
	r.writes++
	return r.Store.ReplaceQuestions(ctx, quizID, questions)
}

func TestNewDraftDefaults(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	svc := NewAuthoringService(memory.NewStore(), memory.NewStore()).WithClock(fixedClock(now))

	draft := svc.NewDraft()
	if draft.Quiz.Month != "2025-03-01" {
		t.Fatalf("month = %q, want 2025-03-01", draft.Quiz.Month)
	}
	if !draft.Quiz.StartDate.Equal(time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", draft.Quiz.StartDate)
	}
	if !draft.Quiz.EndDate.Equal(time.Date(2025, 4, 14, 9, 26, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", draft.Quiz.EndDate)
	}
	if len(draft.Questions) != 0 {
		t.Fatalf("new draft must start without questions")
	}
}

func TestSaveCreatesQuizWithQuestions(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthoringService(store, store)
	ctx := context.Background()

	quiz, err := svc.Save(ctx, "admin-1", validDraft())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if quiz.ID == "" {
		t.Fatalf("expected generated quiz id")
	}
	if quiz.AdminID != "admin-1" {
		t.Fatalf("admin id = %q", quiz.AdminID)
	}

	questions, err := store.QuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != domain.QuestionsPerQuiz {
		t.Fatalf("persisted %d questions", len(questions))
	}
	for i, q := range questions {
		if q.ID == "" || q.QuizID != quiz.ID || q.Order != i {
			t.Fatalf("question %d not normalized: %+v", i, q)
		}
	}
}

func TestSaveRejectsWrongQuestionCount(t *testing.T) {
	store := &recordingStore{Store: memory.NewStore()}
	svc := NewAuthoringService(store, store.Store)

	draft := validDraft()
	draft.Questions = draft.Questions[:3]

	_, err := svc.Save(context.Background(), "admin-1", draft)
	if !errors.Is(err, domain.ErrQuestionCount) {
		t.Fatalf("expected ErrQuestionCount, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("validation failure must not write, saw %d writes", store.writes)
	}
}

func TestSaveRejectsInvertedDates(t *testing.T) {
	store := &recordingStore{Store: memory.NewStore()}
	svc := NewAuthoringService(store, store.Store)

	draft := validDraft()
	draft.Quiz.EndDate = draft.Quiz.StartDate.Add(-time.Hour)

	_, err := svc.Save(context.Background(), "admin-1", draft)
	if !errors.Is(err, domain.ErrDateOrder) {
		t.Fatalf("expected ErrDateOrder, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("validation failure must not write, saw %d writes", store.writes)
	}
}

func TestSaveRequiresAdmin(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthoringService(store, store)

	_, err := svc.Save(context.Background(), "", validDraft())
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestSaveFiltersBlankOptions(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthoringService(store, store)
	ctx := context.Background()

	draft := validDraft()
	draft.Questions[0].Options = []string{"a", "", "b", ""}
	draft.Questions[0].CorrectAnswer = 2 // points at "b"

	quiz, err := svc.Save(ctx, "admin-1", draft)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	questions, err := store.QuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	got := questions[0]
	if len(got.Options) != 2 {
		t.Fatalf("options = %v, blanks should be dropped", got.Options)
	}
	if got.Options[got.CorrectAnswer] != "b" {
		t.Fatalf("correct answer shifted wrong: index %d in %v", got.CorrectAnswer, got.Options)
	}
}

func TestSaveRejectsDuplicateMonth(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthoringService(store, store)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "admin-1", validDraft()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	_, err := svc.Save(ctx, "admin-1", validDraft())
	if !errors.Is(err, domain.ErrMonthTaken) {
		t.Fatalf("expected ErrMonthTaken, got %v", err)
	}
}

func TestSaveUpdateReplacesQuestions(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthoringService(store, store)
	ctx := context.Background()

	quiz, err := svc.Save(ctx, "admin-1", validDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	draft, _, err := svc.LoadForEdit(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("load for edit: %v", err)
	}
	draft.Questions[2].Text = "rewritten"
	oldID := draft.Questions[2].ID

	if _, err := svc.Save(ctx, "admin-1", draft); err != nil {
		t.Fatalf("update: %v", err)
	}

	questions, err := store.QuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != domain.QuestionsPerQuiz {
		t.Fatalf("question count changed to %d", len(questions))
	}
	if questions[2].Text != "rewritten" || questions[2].ID != oldID {
		t.Fatalf("edit lost: %+v", questions[2])
	}
}

func TestListNewestFirstWithCounts(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	svc := NewAuthoringService(store, store).WithClock(fixedClock(now))
	ctx := context.Background()

	jan := validDraft()
	if _, err := svc.Save(ctx, "admin-1", jan); err != nil {
		t.Fatalf("save january: %v", err)
	}
	feb := validDraft()
	feb.Quiz.Month = "2025-02-01"
	feb.Quiz.StartDate = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	feb.Quiz.EndDate = time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC)
	febQuiz, err := svc.Save(ctx, "admin-1", feb)
	if err != nil {
		t.Fatalf("save february: %v", err)
	}

	err = store.CreateSubmission(ctx, &domain.Submission{
		ID: "sub-1", QuizID: febQuiz.ID, Email: "a@b.c", Answers: map[string]int{},
	})
	if err != nil {
		t.Fatalf("seed submission: %v", err)
	}

	summaries, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries", len(summaries))
	}
	if summaries[0].Month != "2025-02-01" {
		t.Fatalf("expected newest first, got %q", summaries[0].Month)
	}
	if summaries[0].Status != domain.StatusActive {
		t.Fatalf("february status = %q", summaries[0].Status)
	}
	if summaries[1].Status != domain.StatusPast {
		t.Fatalf("january status = %q", summaries[1].Status)
	}
	if summaries[0].Participants != 1 || summaries[1].Participants != 0 {
		t.Fatalf("participant counts = %d, %d", summaries[0].Participants, summaries[1].Participants)
	}
}

func TestDraftEditing(t *testing.T) {
	d := &Draft{}
	for i := 0; i < domain.QuestionsPerQuiz; i++ {
		if err := d.AddQuestion(); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if err := d.AddQuestion(); !errors.Is(err, domain.ErrQuestionLimit) {
		t.Fatalf("expected ErrQuestionLimit, got %v", err)
	}

	if err := d.UpdateQuestion(1, func(q *domain.Question) { q.Text = "edited" }); err != nil {
		t.Fatalf("update: %v", err)
	}
	if d.Questions[1].Text != "edited" {
		t.Fatalf("update not applied")
	}

	if err := d.GrowOptions(0); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if err := d.GrowOptions(0); err != nil {
		t.Fatalf("grow to four: %v", err)
	}
	if err := d.GrowOptions(0); !errors.Is(err, domain.ErrOptionCount) {
		t.Fatalf("expected option cap, got %v", err)
	}

	d.Questions[0].CorrectAnswer = 3
	if err := d.ShrinkOptions(0, 1); err != nil {
		t.Fatalf("shrink: %v", err)
	}
	if d.Questions[0].CorrectAnswer != 2 {
		t.Fatalf("correct answer should shift down, got %d", d.Questions[0].CorrectAnswer)
	}
	if err := d.ShrinkOptions(0, 0); err != nil {
		t.Fatalf("shrink to two: %v", err)
	}
	if err := d.ShrinkOptions(0, 0); !errors.Is(err, domain.ErrOptionCount) {
		t.Fatalf("expected option floor, got %v", err)
	}

	if err := d.RemoveQuestion(2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(d.Questions) != 4 {
		t.Fatalf("len = %d after remove", len(d.Questions))
	}
	for i, q := range d.Questions {
		if q.Order != i {
			t.Fatalf("order not renumbered at %d: %d", i, q.Order)
		}
	}
}
