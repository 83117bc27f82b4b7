package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"monthly-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store persists quizzes, questions, submissions and admins via bun.
// Uniqueness constraints on quizzes.month and (submissions.email, quiz_id)
// surface as the domain errors the flows expect; submission scores are
// computed by a database trigger on insert, never in Go.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation reports whether err is a Postgres unique-constraint error
// (SQLSTATE 23505).
func uniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	err := s.db.NewSelect().Model(&rows).Order("start_date DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.Quiz, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := s.db.NewSelect().Model(&row).Where("q.id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row, err := quizToRow(*quiz)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if uniqueViolation(err) {
			return domain.ErrMonthTaken
		}
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row, err := quizToRow(*quiz)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().Model(&row).
		Column("title", "description", "month", "start_date", "end_date", "banner_url", "admin_id").
		WherePK().
		Exec(ctx)
	if err != nil {
		if uniqueViolation(err) {
			return domain.ErrMonthTaken
		}
		return fmt.Errorf("update quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// DeleteQuiz is permanent; questions and submissions cascade via foreign keys.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// SetDrawnWinner records the winner through a single conditional update so a
// second draw can never overwrite the first, even across operators.
func (s *Store) SetDrawnWinner(ctx context.Context, quizID, email string) error {
	res, err := s.db.NewUpdate().Model((*quizRow)(nil)).
		Set("drawn_winner_email = ?", email).
		Where("id = ?", quizID).
		Where("drawn_winner_email IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set winner: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	return domain.ErrWinnerAlreadyDrawn
}

// ReplaceQuestions deletes the quiz's question rows and reinserts the given
// list in one transaction (full replace-on-save semantics).
func (s *Store) ReplaceQuestions(ctx context.Context, quizID string, questions []domain.Question) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if len(questions) == 0 {
			return nil
		}
		rows := make([]questionRow, len(questions))
		for i, q := range questions {
			rows[i] = questionToRow(q)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}

func (s *Store) QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.NewSelect().Model(&rows).Where("quiz_id = ?", quizID).Order("\"order\" ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// ActivePublicQuiz resolves the quiz whose window contains at, with its
// ordered questions.
func (s *Store) ActivePublicQuiz(ctx context.Context, at time.Time) (domain.PublicQuiz, error) {
	var row quizRow
	err := s.db.NewSelect().Model(&row).
		Where("start_date <= ?", at).
		Where("end_date >= ?", at).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PublicQuiz{}, domain.ErrNoActiveQuiz
	}
	if err != nil {
		return domain.PublicQuiz{}, fmt.Errorf("active quiz: %w", err)
	}
	questions, err := s.QuestionsByQuiz(ctx, row.ID)
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	return domain.PublicQuiz{Quiz: row.toDomain(), Questions: questions}, nil
}

func (s *Store) SubmissionsByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.NewSelect().Model(&rows).Where("quiz_id = ?", quizID).Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.Submission, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) HasSubmission(ctx context.Context, quizID, email string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Where("quiz_id = ?", quizID).
		Where("lower(email) = lower(?)", email).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

// CreateSubmission inserts the row and reads back the trigger-computed score
// and timestamp. A unique violation means this email already participated.
func (s *Store) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	row := submissionRow{
		ID:      sub.ID,
		QuizID:  sub.QuizID,
		Email:   strings.ToLower(sub.Email),
		Answers: sub.Answers,
	}
	_, err := s.db.NewInsert().Model(&row).Returning("created_at, score").Exec(ctx)
	if err != nil {
		if uniqueViolation(err) {
			return domain.ErrAlreadyParticipated
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	sub.Email = row.Email
	sub.CreatedAt = row.CreatedAt
	sub.Score = row.Score
	return nil
}

func (s *Store) ParticipantCounts(ctx context.Context, quizIDs []string) (map[string]int, error) {
	if len(quizIDs) == 0 {
		return map[string]int{}, nil
	}
	var rows []struct {
		QuizID string `bun:"quiz_id"`
		N      int    `bun:"n"`
	}
	err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Column("quiz_id").
		ColumnExpr("count(*) AS n").
		Where("quiz_id IN (?)", bun.In(quizIDs)).
		Group("quiz_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.QuizID] = r.N
	}
	return counts, nil
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	var row adminRow
	err := s.db.NewSelect().Model(&row).Where("lower(email) = lower(?)", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Admin{}, domain.ErrNotAdmin
	}
	if err != nil {
		return domain.Admin{}, fmt.Errorf("admin by email: %w", err)
	}
	return row.toDomain(), nil
}

// CreateFirstAdmin inserts the bootstrap admin only while the table is empty.
func (s *Store) CreateFirstAdmin(ctx context.Context, admin *domain.Admin) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (id, email, password_hash, created_at)
		 SELECT ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM admins)`,
		admin.ID, strings.ToLower(admin.Email), admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		if uniqueViolation(err) {
			return domain.ErrAdminExists
		}
		return fmt.Errorf("create admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAdminExists
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, email string, hash []byte) error {
	res, err := s.db.NewUpdate().Model((*adminRow)(nil)).
		Set("password_hash = ?", hash).
		Where("lower(email) = lower(?)", email).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotAdmin
	}
	return nil
}
