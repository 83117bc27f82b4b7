package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monthly-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ActiveQuizLoader serves the hot public read path (the active quiz and its
// questions) straight through pgx, bypassing the ORM. It sits behind the
// Redis cache as its fill source.
type ActiveQuizLoader struct {
	pool *pgxpool.Pool
}

func NewActiveQuizLoader(pool *pgxpool.Pool) *ActiveQuizLoader {
	return &ActiveQuizLoader{pool: pool}
}

func (l *ActiveQuizLoader) ActivePublicQuiz(ctx context.Context, at time.Time) (domain.PublicQuiz, error) {
	var (
		quiz  domain.Quiz
		month time.Time
	)
	err := l.pool.QueryRow(ctx, `
		SELECT id, title, description, month, start_date, end_date,
		       COALESCE(banner_url, ''), COALESCE(admin_id, ''), COALESCE(drawn_winner_email, '')
		FROM quizzes
		WHERE start_date <= $1 AND end_date >= $1
		LIMIT 1`, at).
		Scan(&quiz.ID, &quiz.Title, &quiz.Description, &month, &quiz.StartDate,
			&quiz.EndDate, &quiz.BannerURL, &quiz.AdminID, &quiz.DrawnWinnerEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PublicQuiz{}, domain.ErrNoActiveQuiz
	}
	if err != nil {
		return domain.PublicQuiz{}, fmt.Errorf("load active quiz: %w", err)
	}
	quiz.Month = month.Format("2006-01-02")

	rows, err := l.pool.Query(ctx, `
		SELECT id, quiz_id, question_text, options, correct_answer, "order"
		FROM questions
		WHERE quiz_id = $1
		ORDER BY "order"`, quiz.ID)
	if err != nil {
		return domain.PublicQuiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Options, &q.CorrectAnswer, &q.Order); err != nil {
			return domain.PublicQuiz{}, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.PublicQuiz{}, fmt.Errorf("iterate questions: %w", err)
	}
	return domain.PublicQuiz{Quiz: quiz, Questions: questions}, nil
}
