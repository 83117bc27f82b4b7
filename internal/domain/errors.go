package domain

import "errors"

var (
	// ErrQuizNotFound indicates the requested quiz row does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoActiveQuiz indicates no quiz window contains the current moment.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrMonthTaken maps the uniqueness constraint on quizzes.month.
	ErrMonthTaken = errors.New("a quiz already exists for this month")
	// ErrQuestionCount rejects a save whose draft does not hold exactly five questions.
	ErrQuestionCount = errors.New("quiz must contain exactly 5 questions")
	// ErrQuestionLimit rejects adding a question to a full draft.
	ErrQuestionLimit = errors.New("quiz already has 5 questions")
	// ErrOptionCount rejects a question with fewer than 2 or more than 4 non-empty options.
	ErrOptionCount = errors.New("question must have between 2 and 4 options")
	// ErrCorrectAnswer rejects a correct-answer index outside the option list.
	ErrCorrectAnswer = errors.New("correct answer must reference an option")
	// ErrDateOrder rejects a window whose end does not follow its start.
	ErrDateOrder = errors.New("end date must be after start date")

	// ErrNoQuestions indicates the quiz has no questions and cannot be taken.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrAlreadyParticipated maps the uniqueness constraint on (email, quiz_id).
	ErrAlreadyParticipated = errors.New("already participated in this quiz")
	// ErrMissingAnswers rejects a submission that left questions unanswered.
	ErrMissingAnswers = errors.New("all questions must be answered")

	// ErrQuizNotEnded guards the draw until the quiz window has closed.
	ErrQuizNotEnded = errors.New("quiz has not ended yet")
	// ErrWinnerAlreadyDrawn guards against a second draw for the same quiz.
	ErrWinnerAlreadyDrawn = errors.New("winner already drawn for this quiz")
	// ErrNoPerfectScore indicates the eligible pool is empty.
	ErrNoPerfectScore = errors.New("no perfect-score participant")
	// ErrDrawInProgress indicates a draw is already running for the quiz.
	ErrDrawInProgress = errors.New("draw already in progress")

	// ErrAdminExists fails first-admin bootstrap once an admin row exists.
	ErrAdminExists = errors.New("an admin already exists")
	// ErrNotAdmin indicates the session email is not listed in the admins table.
	ErrNotAdmin = errors.New("not an admin")
	// ErrInvalidCredentials covers bad email/password pairs.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates no valid session is present.
	ErrUnauthenticated = errors.New("unauthenticated")
)
