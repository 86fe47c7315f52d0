package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askweb/internal/config"
	logpkg "github.com/kailas-cloud/askweb/internal/logger"
	"github.com/kailas-cloud/askweb/internal/metrics"
	chiTransport "github.com/kailas-cloud/askweb/internal/transport/chi"
	agentuc "github.com/kailas-cloud/askweb/internal/usecase/agent"
	"github.com/kailas-cloud/askweb/internal/version"
)

type cli struct {
	Env     string           `help:"Config environment (local, prod)." env:"ENV" default:"local"`
	Config  string           `help:"Config file path; overrides --env." type:"path"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Serve  serveCmd  `cmd:"" default:"1" help:"Run the HTTP API (default)."`
	Ask    askCmd    `cmd:"" help:"Answer a question with the tool-calling agent."`
	Search searchCmd `cmd:"" help:"Answer a query with the retrieval pipeline."`
}

type serveCmd struct{}

type askCmd struct {
	Question string `arg:"" help:"Question to answer."`
}

type searchCmd struct {
	Query   string `arg:"" help:"Search query."`
	Sources bool   `help:"List the ranked source links after the answer."`
}

func main() {
	// Missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("askweb"),
		kong.Description("Web-search-augmented question answering."),
		kong.Vars{"version": version.String()},
	)

	cfg, err := loadConfig(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(c.Env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Provider, agent and tool metrics are registered explicitly.
	metrics.Register()

	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}
	defer a.Close()

	if err := kctx.Run(a); err != nil {
		logger.Error("Command failed", zap.String("command", kctx.Command()), zap.Error(err))
		a.Close()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(c cli) (config.Config, error) {
	if c.Config != "" {
		return config.LoadFile(c.Config)
	}
	return config.Load(c.Env)
}

// Run serves the HTTP API until SIGINT or SIGTERM.
func (serveCmd) Run(a *app) error {
	a.logger.Info("Starting askweb API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.Bool("counter_store", a.cfg.Database.Enabled()),
	)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(a.server, a.logger),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// Run answers one question through the agent and prints the answer.
func (cmd askCmd) Run(a *app) error {
	ctx, cancel := a.commandContext()
	defer cancel()

	res, err := a.agent.Run(ctx, agentuc.Request{Question: cmd.Question})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	fmt.Println(res.Answer)
	return nil
}

// Run answers one query through the retrieval pipeline and prints the answer.
func (cmd searchCmd) Run(a *app) error {
	ctx, cancel := a.commandContext()
	defer cancel()

	ans, err := a.retrieval.Search(ctx, cmd.Query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	fmt.Println(ans.Text)
	if cmd.Sources {
		for i, s := range ans.Sources {
			fmt.Printf("[%d] %.3f %s\n", i+1, s.Score, s.Document.Metadata.Link)
		}
	}
	return nil
}

// commandContext bounds a one-shot command like an HTTP request and cancels on SIGINT.
func (a *app) commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.HTTP.RequestTimeoutSec)*time.Second)
	ctx = logpkg.ContextWithLogger(ctx, a.logger)
	return ctx, func() {
		cancel()
		stop()
	}
}
