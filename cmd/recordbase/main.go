package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/recordbase/internal/app"
	"github.com/rpggio/recordbase/internal/auth"
	"github.com/rpggio/recordbase/internal/config"
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/urfave/cli/v3"
)

func main() {
	root := &cli.Command{
		Name:  "recordbase",
		Usage: "Structured record collections over JSON-RPC and MCP",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			tokenCommand(),
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			return serve(ctx, "")
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "recordbase: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Usage: "http or stdio; overrides RECORDBASE_TRANSPORT"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("transport"))
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and print the schema version",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := app.OpenDB(ctx, cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := db.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s at version %d\n", cfg.DB.Path, version)
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Sign a bearer token with the configured secret",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "user id"},
			&cli.StringSliceFlag{Name: "cap", Usage: "capability, repeatable"},
			&cli.StringFlag{Name: "groups", Usage: "comma separated group ids"},
			&cli.StringFlag{Name: "given-name"},
			&cli.StringFlag{Name: "family-name"},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tokens, err := auth.NewTokens(auth.Config{
				Secret: cfg.Auth.Secret,
				Issuer: cfg.Auth.Issuer,
				TTL:    cfg.Auth.TokenTTL,
			})
			if err != nil {
				return err
			}
			groups, err := parseGroups(c.String("groups"))
			if err != nil {
				return err
			}
			caps := make([]access.Capability, 0, len(c.StringSlice("cap")))
			for _, name := range c.StringSlice("cap") {
				caps = append(caps, access.Capability(strings.TrimSpace(name)))
			}
			token, err := tokens.Issue(auth.Identity{
				Actor:      access.Actor{UserID: c.String("user"), Capabilities: caps, Groups: groups},
				GivenName:  c.String("given-name"),
				FamilyName: c.String("family-name"),
			})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

func parseGroups(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var groups []int64
	for part := range strings.SplitSeq(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid group id %q", part)
		}
		groups = append(groups, id)
	}
	return groups, nil
}

func serve(ctx context.Context, transportMode string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if transportMode != "" {
		cfg.Transport.Mode = transportMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// Stdout carries JSON-RPC in stdio mode.
	var logWriter io.Writer = os.Stdout
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path, cfg.Log.MaxBytes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = io.MultiWriter(logWriter, fileWriter)
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Transport.Mode == "stdio" {
		logger.Info("starting stdio transport", "auth", "disabled")
		if err := a.MCP.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	}
	return runHTTP(ctx, logger, a.Router(), net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))
}

func runHTTP(ctx context.Context, logger *slog.Logger, handler http.Handler, addr string) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
