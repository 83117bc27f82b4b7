package postgres

import (
	"fmt"
	"time"

	"monthly-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID               string    `bun:"id,pk"`
	Title            string    `bun:"title,notnull"`
	Description      string    `bun:"description,notnull"`
	Month            time.Time `bun:"month,notnull"`
	StartDate        time.Time `bun:"start_date,notnull"`
	EndDate          time.Time `bun:"end_date,notnull"`
	BannerURL        string    `bun:"banner_url,nullzero"`
	AdminID          string    `bun:"admin_id,nullzero"`
	DrawnWinnerEmail string    `bun:"drawn_winner_email,nullzero"`
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		Month:            r.Month.Format("2006-01-02"),
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		BannerURL:        r.BannerURL,
		AdminID:          r.AdminID,
		DrawnWinnerEmail: r.DrawnWinnerEmail,
	}
}

func quizToRow(q domain.Quiz) (quizRow, error) {
	month, err := time.Parse("2006-01-02", q.Month)
	if err != nil {
		return quizRow{}, fmt.Errorf("parse quiz month %q: %w", q.Month, err)
	}
	return quizRow{
		ID:               q.ID,
		Title:            q.Title,
		Description:      q.Description,
		Month:            month,
		StartDate:        q.StartDate,
		EndDate:          q.EndDate,
		BannerURL:        q.BannerURL,
		AdminID:          q.AdminID,
		DrawnWinnerEmail: q.DrawnWinnerEmail,
	}, nil
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID            string   `bun:"id,pk"`
	QuizID        string   `bun:"quiz_id,notnull"`
	QuestionText  string   `bun:"question_text,notnull"`
	Options       []string `bun:"options,array"`
	CorrectAnswer int      `bun:"correct_answer,notnull"`
	Order         int      `bun:"\"order\",notnull"`
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Text:          r.QuestionText,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Order:         r.Order,
	}
}

func questionToRow(q domain.Question) questionRow {
	return questionRow{
		ID:            q.ID,
		QuizID:        q.QuizID,
		QuestionText:  q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Order:         q.Order,
	}
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID        string         `bun:"id,pk"`
	QuizID    string         `bun:"quiz_id,notnull"`
	Email     string         `bun:"email,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,default:now()"`
	Answers   map[string]int `bun:"answers,type:jsonb"`
	Score     int            `bun:"score"`
}

func (r submissionRow) toDomain() domain.Submission {
	return domain.Submission{
		ID:        r.ID,
		QuizID:    r.QuizID,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		Answers:   r.Answers,
		Score:     r.Score,
	}
}

type adminRow struct {
	bun.BaseModel `bun:"table:admins,alias:a"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull"`
	PasswordHash []byte    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,default:now()"`
}

func (r adminRow) toDomain() domain.Admin {
	return domain.Admin{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}
