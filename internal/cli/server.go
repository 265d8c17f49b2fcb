package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"quizroom/internal/app"
	"quizroom/internal/auth"
	"quizroom/internal/config"
	transport "quizroom/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	service, cleanup, err := buildService(ctx, cfg)
	defer cleanup()
	if err != nil {
		return err
	}

	if cfg.Auth.Secret == "" {
		log.Println("auth secret not configured, authenticated routes will reject every token")
	}
	issuer := newIssuer(cfg)

	scheduler, err := scheduleBackfill(cfg.Backfill.Schedule, service)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { <-scheduler.Stop().Done() }()
	}

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, issuer, cfg.Server.AllowOrigins),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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

func newIssuer(cfg config.Config) *auth.Issuer {
	return auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TTL, 24*time.Hour))
}

// scheduleBackfill runs the rank backfill for every room on a cron schedule. An empty schedule disables it.
func scheduleBackfill(schedule string, service *app.QuizService) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := service.BackfillRankAwards(ctx, ""); err != nil {
			log.Printf("scheduled rank backfill failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("rank backfill scheduled: %s", schedule)
	return c, nil
}
