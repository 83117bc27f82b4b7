package app

import (
	"fmt"

	"monthly-quiz-service/internal/domain"
)

// Draft is the in-memory authoring state for one quiz. Its edit operations
// are pure list manipulations; nothing touches a store until Save.
type Draft struct {
	Quiz      domain.Quiz
	Questions []domain.Question
}

// AddQuestion appends an empty two-option question. Adding is refused once
// the draft holds five questions.
func (d *Draft) AddQuestion() error {
	if len(d.Questions) >= domain.QuestionsPerQuiz {
		return domain.ErrQuestionLimit
	}
	d.Questions = append(d.Questions, domain.Question{
		Options: []string{"", ""},
		Order:   len(d.Questions),
	})
	return nil
}

// UpdateQuestion applies an in-place edit to the question at index.
func (d *Draft) UpdateQuestion(index int, edit func(*domain.Question)) error {
	if index < 0 || index >= len(d.Questions) {
		return fmt.Errorf("question index %d out of range", index)
	}
	edit(&d.Questions[index])
	return nil
}

// RemoveQuestion drops the question at index and renumbers the rest.
func (d *Draft) RemoveQuestion(index int) error {
	if index < 0 || index >= len(d.Questions) {
		return fmt.Errorf("question index %d out of range", index)
	}
	d.Questions = append(d.Questions[:index], d.Questions[index+1:]...)
	for i := range d.Questions {
		d.Questions[i].Order = i
	}
	return nil
}

// GrowOptions appends an empty option slot, capped at four per question.
func (d *Draft) GrowOptions(index int) error {
	if index < 0 || index >= len(d.Questions) {
		return fmt.Errorf("question index %d out of range", index)
	}
	q := &d.Questions[index]
	if len(q.Options) >= domain.MaxOptions {
		return domain.ErrOptionCount
	}
	q.Options = append(q.Options, "")
	return nil
}

// ShrinkOptions removes one option slot; questions keep at least two.
func (d *Draft) ShrinkOptions(index, option int) error {
	if index < 0 || index >= len(d.Questions) {
		return fmt.Errorf("question index %d out of range", index)
	}
	q := &d.Questions[index]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option index %d out of range", option)
	}
	if len(q.Options) <= domain.MinOptions {
		return domain.ErrOptionCount
	}
	q.Options = append(q.Options[:option], q.Options[option+1:]...)
	if q.CorrectAnswer > option {
		q.CorrectAnswer--
	} else if q.CorrectAnswer == option {
		q.CorrectAnswer = 0
	}
	return nil
}
