package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quizroom/internal/auth"
	"quizroom/internal/client"
	"quizroom/internal/config"
	"quizroom/internal/domain"
	"quizroom/internal/reconcile"
	"quizroom/internal/session"
)

func newClient(cfg config.Config, urlFlag string) *client.Client {
	base := urlFlag
	if base == "" {
		base = cfg.Client.BaseURL
	}
	if base == "" {
		base = "http://localhost:8080"
	}
	return client.New(base, config.TTLDuration(cfg.Client.Timeout, 10*time.Second))
}

// NewWatchCmd follows one room's leaderboard until interrupted.
func NewWatchCmd(configPath *string) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "watch CODE",
		Short: "Follow a room's live leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := newClient(cfg, serverURL)
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s as client session %s\n", strings.ToUpper(args[0]), c.SessionID())
			interval := config.TTLDuration(cfg.Leaderboard.PollInterval, 15*time.Second)
			w := reconcile.Watch(ctx, strings.ToUpper(args[0]), c, c, interval)
			defer w.Close()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case view := <-w.Updates():
					printLeaderboard(out, view, w.Live())
				case err := <-w.Errors():
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
			}
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "", "quiz server base URL")
	return cmd
}

func printLeaderboard(w io.Writer, entries []domain.LeaderboardEntry, live bool) {
	source := "batch"
	if live {
		source = "live"
	}
	fmt.Fprintf(w, "--- %s (%s) ---\n", time.Now().Format("15:04:05"), source)
	if len(entries) == 0 {
		fmt.Fprintln(w, "no attempts yet")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%3d. %-20s %4d pts %5ds\n", e.Rank, e.Name, e.Score, e.DurationSeconds)
	}
}

// NewPlayCmd answers a quiz non-interactively, mainly for smoke tests against a running server.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		serverURL string
		name      string
		answers   string
		token     string
		uid       string
	)
	cmd := &cobra.Command{
		Use:   "play CODE",
		Short: "Play a quiz room from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if name == "" {
				return domain.Invalid("name", "--name is required")
			}
			labels, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			if token == "" && uid != "" {
				if token, err = newIssuer(cfg).Issue(uid, name); err != nil {
					return err
				}
			}

			c := newClient(cfg, serverURL)
			s := session.New(strings.ToUpper(args[0]), name, c, auth.StaticToken(token))
			defer s.Close()
			return playSession(cmd.Context(), s, labels, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "", "quiz server base URL")
	cmd.Flags().StringVar(&name, "name", "", "participant name")
	cmd.Flags().StringVar(&answers, "answers", "", "comma-separated labels in question order, e.g. A,C,,B")
	cmd.Flags().StringVar(&token, "token", os.Getenv("QUIZROOM_TOKEN"), "identity token")
	cmd.Flags().StringVar(&uid, "uid", "", "sign a token for this uid with the configured secret")
	return cmd
}

// parseAnswers splits "A,b,,D" into labels; an empty item leaves that question unanswered.
func parseAnswers(raw string) ([]domain.Label, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	labels := make([]domain.Label, len(parts))
	for i, p := range parts {
		l := domain.Label(p).Normalize()
		if l != "" && !l.Valid() {
			return nil, domain.Invalid("answers", fmt.Sprintf("unknown option %q at position %d", p, i+1))
		}
		labels[i] = l
	}
	return labels, nil
}

func playSession(ctx context.Context, s *session.Session, labels []domain.Label, out io.Writer) error {
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("load quiz: %w", err)
	}
	snap := s.Snapshot()
	fmt.Fprintf(out, "%s (%d questions)\n", snap.Quiz.Title, len(snap.Quiz.Questions))
	for i, q := range snap.Quiz.Questions {
		if i >= len(labels) || labels[i] == "" {
			continue
		}
		if err := s.Answer(q.ID, labels[i]); err != nil {
			return err
		}
	}

	result, err := s.Submit(ctx)
	if errors.Is(err, domain.ErrAuthRequired) {
		return fmt.Errorf("sign in required: pass --token or --uid: %w", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "score %d, correct %d/%d\n", result.TotalScore, result.TotalCorrect, result.TotalQuestions)
	return nil
}

// NewTokenCmd prints a signed identity token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "token UID",
		Short: "Issue an identity token signed with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth secret not configured")
			}
			token, err := newIssuer(cfg).Issue(args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name carried in the token")
	return cmd
}
