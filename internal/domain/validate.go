package domain

// StripBlankOptions drops empty option strings from every question before a
// save, keeping the correct-answer index pointing at the same option text.
func StripBlankOptions(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		kept := make([]string, 0, len(q.Options))
		correct := q.CorrectAnswer
		for idx, opt := range q.Options {
			if opt == "" {
				if idx < q.CorrectAnswer {
					correct--
				}
				continue
			}
			kept = append(kept, opt)
		}
		q.Options = kept
		q.CorrectAnswer = correct
		out[i] = q
	}
	return out
}

// ValidateQuizForSave enforces the invariants checked before any write:
// exactly five questions, 2-4 non-empty options each, a correct-answer index
// inside the option list, and an end date after the start date.
func ValidateQuizForSave(quiz Quiz, questions []Question) error {
	if !quiz.EndDate.After(quiz.StartDate) {
		return ErrDateOrder
	}
	if len(questions) != QuestionsPerQuiz {
		return ErrQuestionCount
	}
	for _, q := range questions {
		if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
			return ErrOptionCount
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return ErrCorrectAnswer
		}
	}
	return nil
}
