package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"monthly-quiz-service/internal/app"
	"monthly-quiz-service/internal/auth"
	"monthly-quiz-service/internal/backoff"
	"monthly-quiz-service/internal/domain"
	"monthly-quiz-service/internal/infra/memory"
)

const testReviewURL = "https://example.com/results"

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	sessions := memory.NewSessionStore()
	authSvc := auth.NewService(store, sessions, "test-secret", time.Hour)

	retry := backoff.DefaultPolicy()
	retry.Sleep = func(time.Duration) {}

	handler := NewHandler(
		app.NewAuthoringService(store, store),
		app.NewReviewService(store),
		app.NewDrawService(store, store, 3, 0),
		app.NewPublicService(store, store).WithRetry(retry).WithReviewURL(testReviewURL),
		authSvc,
		nil,
	)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	env := &testEnv{server: server, store: store}

	resp := env.post(t, "/api/admin/signup", "", map[string]any{
		"email": "admin@example.com", "password": "s3cretpass", "confirmPassword": "s3cretpass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	var login loginResponse
	resp = env.post(t, "/api/admin/login", "", map[string]any{
		"email": "admin@example.com", "password": "s3cretpass",
	})
	decodeBody(t, resp, &login)
	env.token = login.Token
	return env
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) post(t *testing.T, path, token string, body any) *http.Response {
	return e.do(t, http.MethodPost, path, token, body)
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	return e.do(t, http.MethodGet, path, token, nil)
}

func quizPayload() map[string]any {
	questions := make([]map[string]any, domain.QuestionsPerQuiz)
	for i := range questions {
		questions[i] = map[string]any{
			"text":          fmt.Sprintf("question %d", i+1),
			"options":       []string{"a", "b", "c"},
			"correctAnswer": 1,
		}
	}
	return map[string]any{
		"title":     "January challenge",
		"month":     "2025-01-01",
		"startDate": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"endDate":   time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC),
		"questions": questions,
	}
}

func TestAdminRoutesFailClosed(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/quizzes"},
		{http.MethodPost, "/api/admin/quizzes"},
		{http.MethodDelete, "/api/admin/quizzes/some-id"},
		{http.MethodGet, "/api/admin/quizzes/some-id/submissions"},
		{http.MethodGet, "/api/admin/quizzes/some-id/submissions/export"},
	}
	for _, tc := range paths {
		resp := env.do(t, tc.method, tc.path, "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s without token = %d, want 401", tc.method, tc.path, resp.StatusCode)
		}

		resp = env.do(t, tc.method, tc.path, "bogus-token", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token = %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestQuizCRUD(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/admin/quizzes", env.token, quizPayload())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created domain.Quiz
	decodeBody(t, resp, &created)
	if created.ID == "" || created.AdminID == "" {
		t.Fatalf("created = %+v", created)
	}

	resp = env.post(t, "/api/admin/quizzes", env.token, quizPayload())
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate month status = %d, want 409", resp.StatusCode)
	}

	resp = env.get(t, "/api/admin/quizzes/"+created.ID, env.token)
	var detail quizDetail
	decodeBody(t, resp, &detail)
	if len(detail.Questions) != domain.QuestionsPerQuiz {
		t.Fatalf("detail questions = %d", len(detail.Questions))
	}

	var list []app.QuizSummary
	resp = env.get(t, "/api/admin/quizzes", env.token)
	decodeBody(t, resp, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list = %+v", list)
	}

	resp = env.do(t, http.MethodDelete, "/api/admin/quizzes/"+created.ID, env.token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/admin/quizzes/"+created.ID, env.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestSaveQuizRejectsShortQuiz(t *testing.T) {
	env := newTestEnv(t)

	payload := quizPayload()
	payload["questions"] = payload["questions"].([]map[string]any)[:2]

	resp := env.post(t, "/api/admin/quizzes", env.token, payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func seedSubmissions(t *testing.T, env *testEnv, quizID string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	for i, email := range []string{"zoe@example.com", "amir@example.com"} {
		err := env.store.CreateSubmission(ctx, &domain.Submission{
			ID:        fmt.Sprintf("s%d", i+1),
			QuizID:    quizID,
			Email:     email,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Answers:   map[string]int{},
		})
		if err != nil {
			t.Fatalf("seed submission: %v", err)
		}
	}
}

func TestListSubmissions(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/admin/quizzes", env.token, quizPayload())
	var created domain.Quiz
	decodeBody(t, resp, &created)
	seedSubmissions(t, env, created.ID)

	var body submissionsResponse
	resp = env.get(t, "/api/admin/quizzes/"+created.ID+"/submissions?sort=email&dir=asc", env.token)
	decodeBody(t, resp, &body)
	if body.Count != 2 {
		t.Fatalf("count = %d", body.Count)
	}
	if body.Submissions[0].Email != "amir@example.com" {
		t.Fatalf("sort not applied: %+v", body.Submissions)
	}

	resp = env.get(t, "/api/admin/quizzes/"+created.ID+"/submissions?search=zoe", env.token)
	decodeBody(t, resp, &body)
	if body.Count != 1 || body.Submissions[0].Email != "zoe@example.com" {
		t.Fatalf("search not applied: %+v", body)
	}
}

func TestListSubmissionsRoundsAverage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.post(t, "/api/admin/quizzes", env.token, quizPayload())
	var created domain.Quiz
	decodeBody(t, resp, &created)

	questions, err := env.store.QuestionsByQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	perfect := make(map[string]int, len(questions))
	for _, q := range questions {
		perfect[q.ID] = q.CorrectAnswer
	}

	// Two perfect scores and one zero average to 3.333...; the response
	// carries one decimal.
	for i, answers := range []map[string]int{perfect, perfect, {}} {
		err := env.store.CreateSubmission(ctx, &domain.Submission{
			ID:      fmt.Sprintf("s%d", i+1),
			QuizID:  created.ID,
			Email:   fmt.Sprintf("taker%d@example.com", i+1),
			Answers: answers,
		})
		if err != nil {
			t.Fatalf("seed submission: %v", err)
		}
	}

	var body submissionsResponse
	resp = env.get(t, "/api/admin/quizzes/"+created.ID+"/submissions", env.token)
	decodeBody(t, resp, &body)
	if body.AverageScore != 3.3 {
		t.Fatalf("average = %v, want 3.3", body.AverageScore)
	}
}

func TestExportSubmissions(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/admin/quizzes", env.token, quizPayload())
	var created domain.Quiz
	decodeBody(t, resp, &created)
	seedSubmissions(t, env, created.ID)

	resp = env.get(t, "/api/admin/quizzes/"+created.ID+"/submissions/export", env.token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/csv" {
		t.Fatalf("content type = %q", got)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !strings.Contains(disposition, "submissions-") || !strings.Contains(disposition, ".csv") {
		t.Fatalf("disposition = %q", disposition)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || lines[0] != "Email,Date,Score" {
		t.Fatalf("csv = %q", buf.String())
	}
}

func activeQuizPayload(now time.Time) map[string]any {
	payload := quizPayload()
	payload["month"] = domain.FirstOfMonth(now)
	payload["startDate"] = now.Add(-time.Hour)
	payload["endDate"] = now.Add(24 * time.Hour)
	return payload
}

func TestPublicQuizHidesAnswers(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/admin/quizzes", env.token, activeQuizPayload(time.Now()))
	resp.Body.Close()

	resp = env.get(t, "/api/public/quiz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var raw map[string]any
	decodeBody(t, resp, &raw)
	questions, _ := raw["questions"].([]any)
	if len(questions) != domain.QuestionsPerQuiz {
		t.Fatalf("questions = %d", len(questions))
	}
	for _, q := range questions {
		fields := q.(map[string]any)
		if _, leaked := fields["correctAnswer"]; leaked {
			t.Fatalf("correct answer leaked to the public payload: %v", fields)
		}
	}
}

func TestPublicQuizWhenNoneActive(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/public/quiz", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPublicSubmitAndCheckEmail(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/admin/quizzes", env.token, activeQuizPayload(time.Now()))
	var created domain.Quiz
	decodeBody(t, resp, &created)

	questions, err := env.store.QuestionsByQuiz(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	answers := make(map[string]int, len(questions))
	for _, q := range questions {
		answers[q.ID] = q.CorrectAnswer
	}

	var check checkEmailResponse
	resp = env.post(t, "/api/public/check-email", "", map[string]any{"email": "taker@example.com"})
	decodeBody(t, resp, &check)
	if check.Participated {
		t.Fatalf("fresh email reported as participated")
	}

	resp = env.post(t, "/api/public/submissions", "", map[string]any{
		"email": "taker@example.com", "answers": answers,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var submitted submitResponse
	decodeBody(t, resp, &submitted)
	if submitted.SubmissionID == "" || submitted.Answered != domain.QuestionsPerQuiz {
		t.Fatalf("submit response = %+v", submitted)
	}
	if submitted.ReviewURL != testReviewURL {
		t.Fatalf("review link = %q, want %q", submitted.ReviewURL, testReviewURL)
	}

	subs, err := env.store.SubmissionsByQuiz(context.Background(), created.ID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("stored submissions = %v, %v", subs, err)
	}
	if subs[0].Score != domain.PerfectScore {
		t.Fatalf("score = %d", subs[0].Score)
	}

	resp = env.post(t, "/api/public/check-email", "", map[string]any{"email": "taker@example.com"})
	decodeBody(t, resp, &check)
	if !check.Participated {
		t.Fatalf("submitted email not reported as participated")
	}

	resp = env.post(t, "/api/public/submissions", "", map[string]any{
		"email": "taker@example.com", "answers": answers,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate submit status = %d, want 409", resp.StatusCode)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/admin/logout", env.token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/admin/quizzes", env.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("token alive after logout, status = %d", resp.StatusCode)
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var issued resetRequestResponse
	resp := env.post(t, "/api/admin/password-reset/request", "", map[string]any{"email": "admin@example.com"})
	decodeBody(t, resp, &issued)
	if issued.ResetToken == "" {
		t.Fatalf("no reset token issued")
	}

	resp = env.post(t, "/api/admin/password-reset", "", map[string]any{
		"token": issued.ResetToken, "password": "replacement1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}

	resp = env.post(t, "/api/admin/login", "", map[string]any{
		"email": "admin@example.com", "password": "replacement1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password = %d", resp.StatusCode)
	}
}
