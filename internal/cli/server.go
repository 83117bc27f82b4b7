package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monthly-quiz-service/internal/app"
	"monthly-quiz-service/internal/auth"
	"monthly-quiz-service/internal/config"
	"monthly-quiz-service/internal/infra/memory"
	"monthly-quiz-service/internal/infra/postgres"
	redisinfra "monthly-quiz-service/internal/infra/redis"
	transport "monthly-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, demo *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, *demo)
		},
	}
	cmd.Flags().BoolVar(demo, "demo", false, "run with in-memory stores, no Postgres or Redis")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string, demo bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !demo {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	memStore := memory.NewStore()

	// Quiz, submission and admin persistence.
	var (
		quizzes      app.QuizStore          = memStore
		counts       app.ParticipantCounter = memStore
		admins       auth.AdminStore        = memStore
		drawStore    app.DrawQuizStore      = memStore
		subSource    app.SubmissionSource   = memStore
		subGate      app.SubmissionGate     = memStore
		activeSource app.ActiveQuizSource   = memStore
	)

	if !demo {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}

		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		pg := postgres.NewStore(db)
		quizzes, counts, admins = pg, pg, pg
		drawStore, subSource, subGate = pg, pg, pg

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		activeSource = postgres.NewActiveQuizLoader(pool)
	}

	var sessionStore auth.SessionStore = memory.NewSessionStore()
	if !demo && cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		sessionStore = redisinfra.NewSessionStore(redisClient)

		quizTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
		if loader, ok := activeSource.(*postgres.ActiveQuizLoader); ok {
			activeSource = redisinfra.NewQuizCache(redisClient, loader, quizTTL)
		}
	}

	sessionTTL := config.TTLDuration(cfg.Auth.SessionTTL, time.Hour)
	checkInterval := config.TTLDuration(cfg.Auth.CheckInterval, time.Minute)
	secret := cfg.Auth.TokenSecret
	if secret == "" {
		secret = "demo-secret"
	}

	authSvc := auth.NewService(admins, sessionStore, secret, sessionTTL)
	sessions := auth.NewSessionManager(sessionStore, sessionTTL, checkInterval)
	sessions.Start()
	defer sessions.Stop()

	drawInterval := config.TTLDuration(cfg.Draw.Interval, 100*time.Millisecond)
	handler := transport.NewHandler(
		app.NewAuthoringService(quizzes, counts),
		app.NewReviewService(subSource),
		app.NewDrawService(drawStore, subSource, cfg.Draw.Steps, drawInterval),
		app.NewPublicService(activeSource, subGate).WithReviewURL(cfg.Server.ReviewURL),
		authSvc,
		sessions,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s (demo=%v)", finalPort, demo)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
