// Package cli implements wooctl, the terminal console for WooAgent.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashureev/wooagent/internal/applog"
	"github.com/ashureev/wooagent/internal/auth"
	"github.com/ashureev/wooagent/internal/client"
	"github.com/ashureev/wooagent/internal/config"
	"github.com/ashureev/wooagent/internal/console"
	"github.com/ashureev/wooagent/internal/fixtures"
	"github.com/ashureev/wooagent/internal/service"
	"github.com/ashureev/wooagent/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// publicAnnotation marks commands that run without a logged-in session.
const publicAnnotation = "public"

// Options wires the console's dependencies. Zero values are filled from the
// environment on first use.
type Options struct {
	Config *config.Config
	// Client replaces the mode-selected client.
	Client client.Client
	Tokens client.TokenStore
	Clock  clockwork.Clock
	// Interactive enables prompting for values missing from flags.
	Interactive bool
	// ReadSecret reads a password without echo.
	ReadSecret func() (string, error)
}

type app struct {
	opts    Options
	cfg     *config.Config
	seed    *fixtures.Set
	client  client.Client
	session *auth.Session
	agents  *console.AgentStore
	closers []io.Closer
}

// NewRootCmd builds the wooctl command tree.
func NewRootCmd(opts Options) *cobra.Command {
	a := &app{opts: opts}
	cmd := &cobra.Command{
		Use:               "wooctl",
		Short:             "WooAgent console",
		Long:              "wooctl manages WooCommerce AI agents: create and configure them, follow their logs and replay demo chats.",
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}

	cmd.AddCommand(a.newLoginCmd())
	cmd.AddCommand(a.newLogoutCmd())
	cmd.AddCommand(a.newWhoamiCmd())
	cmd.AddCommand(a.newAgentsCmd())
	cmd.AddCommand(a.newStatsCmd())
	cmd.AddCommand(a.newLogsCmd())
	cmd.AddCommand(a.newConversationsCmd())
	cmd.AddCommand(a.newDemoCmd())
	cmd.AddCommand(a.newKnowledgeCmd())
	cmd.AddCommand(a.newAccountCmd())
	cmd.AddCommand(a.newCacheCmd())
	return cmd
}

func public(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[publicAnnotation] = "true"
	return cmd
}

func isPublic(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return cmd.Annotations[publicAnnotation] == "true"
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := a.opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	a.cfg = cfg

	if a.opts.Client == nil {
		logger, _ := applog.New(applog.ConsoleOptions(cfg.LogMaxEntries, cfg.IsDevelopment(), cfg.Debug, cmd.ErrOrStderr()))
		slog.SetDefault(logger)
	}

	seed, err := fixtures.Load()
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	a.seed = seed

	if a.opts.Clock == nil {
		a.opts.Clock = clockwork.NewRealClock()
	}

	c := a.opts.Client
	if c == nil {
		c, err = a.newClient(ctx, cfg)
		if err != nil {
			return err
		}
	}
	a.client = c
	a.session = auth.NewSession(c)
	a.agents = console.NewAgentStore(c)

	if err := a.session.Restore(ctx); err != nil {
		slog.Warn("Could not restore session", "error", err)
	}
	if isPublic(cmd) {
		return nil
	}
	if _, err := a.session.Require(ctx); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return errors.New("not logged in, run `wooctl login` first")
		}
		return err
	}
	return nil
}

func (a *app) newClient(ctx context.Context, cfg *config.Config) (client.Client, error) {
	tokens := a.opts.Tokens
	if tokens == nil {
		path, err := tokenPath(cfg)
		if err != nil {
			return nil, err
		}
		tokens = client.NewFileTokenStore(path)
	}

	var backend *service.Backend
	if cfg.IsDevelopment() {
		repo, err := store.NewSQLite(ctx, store.MemoryDSN, a.seed)
		if err != nil {
			return nil, fmt.Errorf("open mock store: %w", err)
		}
		a.closers = append(a.closers, repo)
		backend = service.New(repo, a.seed, service.WithClock(a.opts.Clock))
	}

	return client.New(client.Config{
		Development:    cfg.IsDevelopment(),
		BaseURL:        cfg.APIURL,
		Backend:        backend,
		Tokens:         tokens,
		Latency:        cfg.MockLatency,
		Clock:          a.opts.Clock,
		OnUnauthorized: func() { a.session.HandleUnauthorized() },
	})
}

func (a *app) teardown() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

// tokenPath resolves TOKEN_PATH, defaulting to the user config directory.
func tokenPath(cfg *config.Config) (string, error) {
	if cfg.TokenPath != "" {
		return cfg.TokenPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "wooagent", "token"), nil
}
