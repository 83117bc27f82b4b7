package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"monthly-quiz-service/internal/domain"
)

// DrawState is the winner-draw lifecycle: idle -> drawing -> settled. A
// failed persistence write reverts to idle; settled is permanent per quiz.
type DrawState string

const (
	DrawIdle    DrawState = "idle"
	DrawRunning DrawState = "drawing"
	DrawSettled DrawState = "settled"
)

// DrawQuizStore is the slice of quiz persistence the draw needs: the guard
// read and the single conditional winner write.
type DrawQuizStore interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SetDrawnWinner(ctx context.Context, quizID, email string) error
}

// DrawUpdate is one frame of the animated draw sent to subscribers.
type DrawUpdate struct {
	State      DrawState `json:"state"`
	Step       int       `json:"step,omitempty"`
	TotalSteps int       `json:"totalSteps,omitempty"`
	Candidate  string    `json:"candidate,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	Err        error     `json:"-"`
}

// DrawService runs the randomized winner selection among perfect scorers.
type DrawService struct {
	quizzes  DrawQuizStore
	subs     SubmissionSource
	steps    int
	interval time.Duration
	now      func() time.Time

	pickMu sync.Mutex
	rnd    *rand.Rand
	pick   func(n int) int

	mu      sync.Mutex
	running map[string]struct{}
}

func NewDrawService(quizzes DrawQuizStore, subs SubmissionSource, steps int, interval time.Duration) *DrawService {
	if steps <= 0 {
		steps = 20
	}
	s := &DrawService{
		quizzes:  quizzes,
		subs:     subs,
		steps:    steps,
		interval: interval,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		running:  make(map[string]struct{}),
	}
	s.pick = func(n int) int {
		s.pickMu.Lock()
		defer s.pickMu.Unlock()
		return s.rnd.Intn(n)
	}
	return s
}

// WithClock and WithPick are test-only knobs for determinism.
func (s *DrawService) WithClock(now func() time.Time) *DrawService {
	s.now = now
	return s
}

func (s *DrawService) WithPick(pick func(n int) int) *DrawService {
	s.pick = pick
	return s
}

// Run starts a draw for quizID and returns the update stream. Entry guards:
// the quiz must have ended, no winner may be recorded yet, the eligible pool
// (perfect scores only) must be non-empty, and no other draw may be running
// for the same quiz. Each animation step broadcasts a provisional uniform
// pick that is discarded; only the final pick is persisted, via a single
// conditional update. The draw is settled only once that write succeeds.
func (s *DrawService) Run(ctx context.Context, quizID string) (<-chan DrawUpdate, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.WinnerDrawn() {
		return nil, domain.ErrWinnerAlreadyDrawn
	}
	if !s.now().After(quiz.EndDate) {
		return nil, domain.ErrQuizNotEnded
	}

	subs, err := s.subs.SubmissionsByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, len(subs))
	for _, sub := range subs {
		if sub.Perfect() {
			pool = append(pool, sub.Email)
		}
	}
	if len(pool) == 0 {
		return nil, domain.ErrNoPerfectScore
	}

	s.mu.Lock()
	if _, busy := s.running[quizID]; busy {
		s.mu.Unlock()
		return nil, domain.ErrDrawInProgress
	}
	s.running[quizID] = struct{}{}
	s.mu.Unlock()

	// Buffered for every frame so a slow subscriber never stalls the draw.
	updates := make(chan DrawUpdate, s.steps+2)
	go s.animate(ctx, quizID, pool, updates)
	return updates, nil
}

func (s *DrawService) animate(ctx context.Context, quizID string, pool []string, updates chan<- DrawUpdate) {
	defer func() {
		s.mu.Lock()
		delete(s.running, quizID)
		s.mu.Unlock()
		close(updates)
	}()

	for step := 1; step <= s.steps; step++ {
		updates <- DrawUpdate{
			State:      DrawRunning,
			Step:       step,
			TotalSteps: s.steps,
			Candidate:  pool[s.pick(len(pool))],
		}
		if s.interval > 0 {
			select {
			case <-ctx.Done():
				updates <- DrawUpdate{State: DrawIdle, Err: ctx.Err()}
				return
			case <-time.After(s.interval):
			}
		}
	}

	winner := pool[s.pick(len(pool))]
	// Single attempt: the visible winner is not final until this write lands.
	if err := s.quizzes.SetDrawnWinner(ctx, quizID, winner); err != nil {
		updates <- DrawUpdate{State: DrawIdle, Err: err}
		return
	}
	updates <- DrawUpdate{State: DrawSettled, TotalSteps: s.steps, Winner: winner}
}
