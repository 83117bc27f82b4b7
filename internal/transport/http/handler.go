package http

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"monthly-quiz-service/internal/app"
	"monthly-quiz-service/internal/auth"
	"monthly-quiz-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Handler exposes the admin dashboard and public quiz APIs.
type Handler struct {
	authoring *app.AuthoringService
	review    *app.ReviewService
	draw      *app.DrawService
	public    *app.PublicService
	auth      *auth.Service
	sessions  *auth.SessionManager
	validate  *validator.Validate
	now       func() time.Time
}

func NewHandler(
	authoring *app.AuthoringService,
	review *app.ReviewService,
	draw *app.DrawService,
	public *app.PublicService,
	authSvc *auth.Service,
	sessions *auth.SessionManager,
) *Handler {
	return &Handler{
		authoring: authoring,
		review:    review,
		draw:      draw,
		public:    public,
		auth:      authSvc,
		sessions:  sessions,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Routes builds the full route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/admin/signup", h.handleSignup)
	mux.HandleFunc("POST /api/admin/login", h.handleLogin)
	mux.HandleFunc("POST /api/admin/logout", h.requireAdmin(h.handleLogout))
	mux.HandleFunc("POST /api/admin/password-reset/request", h.handleResetRequest)
	mux.HandleFunc("POST /api/admin/password-reset", h.handleResetPassword)

	mux.HandleFunc("GET /api/admin/quizzes", h.requireAdmin(h.handleListQuizzes))
	mux.HandleFunc("POST /api/admin/quizzes", h.requireAdmin(h.handleSaveQuiz))
	mux.HandleFunc("GET /api/admin/quizzes/{id}", h.requireAdmin(h.handleGetQuiz))
	mux.HandleFunc("PUT /api/admin/quizzes/{id}", h.requireAdmin(h.handleSaveQuiz))
	mux.HandleFunc("DELETE /api/admin/quizzes/{id}", h.requireAdmin(h.handleDeleteQuiz))

	mux.HandleFunc("GET /api/admin/quizzes/{id}/submissions", h.requireAdmin(h.handleListSubmissions))
	mux.HandleFunc("GET /api/admin/quizzes/{id}/submissions/export", h.requireAdmin(h.handleExportSubmissions))
	mux.HandleFunc("GET /api/admin/quizzes/{id}/draw", h.handleDrawWS)

	mux.HandleFunc("GET /api/public/quiz", h.handleActiveQuiz)
	mux.HandleFunc("POST /api/public/check-email", h.handleCheckEmail)
	mux.HandleFunc("POST /api/public/submissions", h.handleSubmit)
	mux.HandleFunc("GET /ws/take", h.handleTakeWS)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps domain sentinels onto HTTP statuses. Unknown errors are
// logged and reported as opaque 500s.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrNoActiveQuiz),
		errors.Is(err, domain.ErrNoQuestions):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMonthTaken),
		errors.Is(err, domain.ErrAlreadyParticipated),
		errors.Is(err, domain.ErrWinnerAlreadyDrawn),
		errors.Is(err, domain.ErrDrawInProgress),
		errors.Is(err, domain.ErrAdminExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrQuestionCount),
		errors.Is(err, domain.ErrQuestionLimit),
		errors.Is(err, domain.ErrOptionCount),
		errors.Is(err, domain.ErrCorrectAnswer),
		errors.Is(err, domain.ErrDateOrder),
		errors.Is(err, domain.ErrMissingAnswers),
		errors.Is(err, domain.ErrQuizNotEnded),
		errors.Is(err, domain.ErrNoPerfectScore),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAdmin):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode unmarshals and validates a request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return h.validate.Struct(dst)
}

type signupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	admin, err := h.auth.Signup(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.sessions != nil {
		h.sessions.Track(token)
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	if h.sessions != nil {
		h.sessions.Forget(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequestResponse struct {
	ResetToken string `json:"resetToken"`
}

func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	token, err := h.auth.IssueResetToken(r.Context(), req.Email)
	if err != nil {
		// Whether the email exists is not revealed; the caller always sees 202.
		log.Printf("reset token request: %v", err)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	// Mail delivery is out of scope; the token is returned for the operator.
	writeJSON(w, http.StatusOK, resetRequestResponse{ResetToken: token})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.authoring.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

type questionPayload struct {
	ID            string   `json:"id"`
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"required"`
	CorrectAnswer int      `json:"correctAnswer" validate:"gte=0"`
}

type saveQuizRequest struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Month       string            `json:"month"`
	StartDate   time.Time         `json:"startDate" validate:"required"`
	EndDate     time.Time         `json:"endDate" validate:"required"`
	BannerURL   string            `json:"bannerUrl" validate:"omitempty,url"`
	Questions   []questionPayload `json:"questions" validate:"required,dive"`
}

func (h *Handler) handleSaveQuiz(w http.ResponseWriter, r *http.Request) {
	var req saveQuizRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	draft := &app.Draft{
		Quiz: domain.Quiz{
			ID:          r.PathValue("id"),
			Title:       req.Title,
			Description: req.Description,
			Month:       req.Month,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			BannerURL:   req.BannerURL,
		},
	}
	for i, q := range req.Questions {
		draft.Questions = append(draft.Questions, domain.Question{
			ID:            q.ID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Order:         i,
		})
	}

	quiz, err := h.authoring.Save(r.Context(), adminFrom(r.Context()).ID, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, quiz)
}

type quizDetail struct {
	domain.Quiz
	Live      bool              `json:"live"`
	Questions []domain.Question `json:"questions"`
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	draft, live, err := h.authoring.LoadForEdit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizDetail{Quiz: draft.Quiz, Live: live, Questions: draft.Questions})
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.authoring.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submissionsResponse struct {
	Submissions  []domain.Submission `json:"submissions"`
	Count        int                 `json:"count"`
	AverageScore float64             `json:"averageScore"`
}

func (h *Handler) loadSubmissions(r *http.Request) ([]domain.Submission, error) {
	subs, err := h.review.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if term := r.URL.Query().Get("search"); term != "" {
		subs = app.FilterByEmail(subs, term)
	}

	cfg := app.DefaultSort()
	if key := r.URL.Query().Get("sort"); key != "" {
		cfg.Key = app.SortKey(key)
		cfg.Desc = r.URL.Query().Get("dir") == "desc"
	}
	return app.SortSubmissions(subs, cfg), nil
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.loadSubmissions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	count, avg := app.Stats(subs)
	avg = math.Round(avg*10) / 10
	writeJSON(w, http.StatusOK, submissionsResponse{Submissions: subs, Count: count, AverageScore: avg})
}

func (h *Handler) handleExportSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.loadSubmissions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := app.ExportCSV(subs)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+app.ExportFilename(h.now())+`"`)
	w.Write(data)
}

// publicQuestion is the question as shown to participants; the correct answer
// never leaves the server.
type publicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Order   int      `json:"order"`
}

type publicQuizResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StartDate   time.Time        `json:"startDate"`
	EndDate     time.Time        `json:"endDate"`
	BannerURL   string           `json:"bannerUrl,omitempty"`
	Questions   []publicQuestion `json:"questions"`
}

func toPublicQuiz(quiz domain.Quiz, questions []domain.Question) publicQuizResponse {
	resp := publicQuizResponse{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		StartDate:   quiz.StartDate,
		EndDate:     quiz.EndDate,
		BannerURL:   quiz.BannerURL,
	}
	for _, q := range questions {
		resp.Questions = append(resp.Questions, publicQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options,
			Order:   q.Order,
		})
	}
	return resp
}

func (h *Handler) handleActiveQuiz(w http.ResponseWriter, r *http.Request) {
	flow, err := h.public.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicQuiz(flow.Quiz(), flow.Questions()))
}

type checkEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type checkEmailResponse struct {
	Participated bool `json:"participated"`
}

func (h *Handler) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	var req checkEmailRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	flow, err := h.public.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := flow.Begin(); err != nil {
		writeError(w, err)
		return
	}
	err = flow.EnterEmail(r.Context(), req.Email)
	if errors.Is(err, domain.ErrAlreadyParticipated) {
		writeJSON(w, http.StatusOK, checkEmailResponse{Participated: true})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkEmailResponse{Participated: false})
}

type submitRequest struct {
	Email   string         `json:"email" validate:"required,email"`
	Answers map[string]int `json:"answers" validate:"required"`
}

type submitResponse struct {
	SubmissionID string `json:"submissionId"`
	Answered     int    `json:"answered"`
	ReviewURL    string `json:"reviewUrl,omitempty"`
}

// handleSubmit is the non-interactive submission path for clients that drive
// the flow themselves. The websocket flow at /ws/take is the guided variant.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	flow, err := h.public.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := flow.Begin(); err != nil {
		writeError(w, err)
		return
	}
	if err := flow.EnterEmail(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	for _, q := range flow.Questions() {
		option, ok := req.Answers[q.ID]
		if !ok {
			continue
		}
		if err := flow.AnswerQuestion(q.ID, option); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := flow.Submit(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	result := flow.Result()
	writeJSON(w, http.StatusCreated, submitResponse{
		SubmissionID: result.ID,
		Answered:     len(result.Answers),
		ReviewURL:    flow.ReviewURL(),
	})
}
