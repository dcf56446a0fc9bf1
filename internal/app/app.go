// Package app assembles the server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rpggio/recordbase/internal/auth"
	"github.com/rpggio/recordbase/internal/config"
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/query"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/mcp"
	"github.com/rpggio/recordbase/internal/metrics"
	"github.com/rpggio/recordbase/internal/ratelimit"
	"github.com/rpggio/recordbase/internal/render"
	"github.com/rpggio/recordbase/internal/sqlite"
	"github.com/rpggio/recordbase/internal/storage"
	"github.com/rpggio/recordbase/internal/transport"
)

// DevCapabilities are granted to the dev actor when auth is disabled.
var DevCapabilities = []access.Capability{
	access.CapManageEntries,
	access.CapApprove,
	access.CapAccessAllGroups,
	access.CapWriteEntry,
	access.CapExportAllEntries,
	access.CapManageTemplates,
}

// App holds the assembled services of one server process.
type App struct {
	Config    config.Config
	DB        *sqlite.DB
	Instances *instance.Service
	Entries   *entry.Service
	Search    *query.Service
	Render    *render.Service
	Handler   *mcp.Handler
	MCP       *sdkmcp.Server
	// Tokens is nil when no auth secret is configured.
	Tokens   *auth.Tokens
	Registry *prometheus.Registry

	resolver auth.ActorResolver
	blobs    *storage.BlobStore
	redis    *redis.Client
	logger   *slog.Logger
}

// Option adjusts an App before its services are built.
type Option func(*options)

type options struct {
	now func() time.Time
	db  *sqlite.DB
}

// WithClock fixes the time source of every policy decision.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDB uses an already migrated database instead of opening cfg.DB.Path. The
// App closes it.
func WithDB(db *sqlite.DB) Option {
	return func(o *options) { o.db = db }
}

// New opens storage and wires every service.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, logger: logger, DB: o.db}
	if a.DB == nil {
		db, err := OpenDB(ctx, cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		a.DB = db
	}

	if err := a.build(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// OpenDB opens the database at path and applies pending migrations.
func OpenDB(ctx context.Context, path string) (*sqlite.DB, error) {
	if err := ensureDBDir(path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *App) build(ctx context.Context, o options) error {
	cfg := a.Config

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.Registry)

	var (
		files  entry.FileStore
		linker field.FileLinker
	)
	if cfg.Storage.Enabled() {
		blobs, err := storage.New(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			URLExpiry: cfg.Storage.URLExpiry,
		}, a.logger)
		if err != nil {
			return err
		}
		if err := blobs.EnsureBucket(ctx); err != nil {
			return err
		}
		a.blobs, files, linker = blobs, blobs, blobs
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.RPS > 0 {
		if cfg.RateLimit.RedisAddr != "" {
			a.redis = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
			limiter = ratelimit.NewRedis(a.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window)
		} else {
			limiter = ratelimit.NewMemory(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	loc := time.UTC
	if cfg.Render.Timezone != "" {
		l, err := time.LoadLocation(cfg.Render.Timezone)
		if err != nil {
			return fmt.Errorf("load render timezone: %w", err)
		}
		loc = l
	}

	groups := access.MembershipGroups{}
	a.Instances = instance.NewService(
		sqlite.NewInstanceRepository(a.DB),
		sqlite.NewFieldRepository(a.DB),
		sqlite.NewTemplateRepository(a.DB),
		field.DefaultRegistry(),
		a.logger,
	)
	a.Entries = entry.NewService(sqlite.NewRecordRepository(a.DB), sqlite.NewProfileRepository(a.DB), a.Instances, files, groups, a.logger)
	a.Search = query.NewService(a.Instances, sqlite.NewSearchRepository(a.DB), groups, a.logger)
	engine := render.NewEngine(render.Options{
		BaseURL:          cfg.Render.BaseURL,
		DateFormat:       cfg.Render.DateFormat,
		ApprovedLabel:    cfg.Render.ApprovedLabel,
		NotApprovedLabel: cfg.Render.NotApprovedLabel,
		Location:         loc,
		OnUnresolved:     func(n template.Name) { m.UnresolvedTag(string(n)) },
	}, linker, a.logger)
	a.Render = render.NewService(a.Instances, engine, groups, a.logger)
	if o.now != nil {
		a.Entries.WithClock(o.now)
		a.Search.WithClock(o.now)
		a.Render.WithClock(o.now)
	}

	a.Handler = mcp.NewHandler(mcp.Services{
		Instances: a.Instances,
		Entries:   a.Entries,
		Search:    a.Search,
		Render:    a.Render,
	}, mcp.WithLimiter(limiter), mcp.WithMetrics(m), mcp.WithLogger(a.logger))

	if cfg.Auth.Secret != "" {
		tokens, err := auth.NewTokens(auth.Config{Secret: cfg.Auth.Secret, Issuer: cfg.Auth.Issuer, TTL: cfg.Auth.TokenTTL})
		if err != nil {
			return err
		}
		a.Tokens = tokens
	}
	devActor := access.Actor{UserID: cfg.Auth.DevUser, Capabilities: DevCapabilities}
	if cfg.Auth.Enabled {
		if a.Tokens == nil {
			return errors.New("auth enabled without a secret")
		}
		a.resolver = a.Tokens
	} else {
		a.resolver = auth.Static(devActor)
	}

	a.MCP = mcp.NewServer(mcp.Config{
		Handler:       a.Handler,
		Resolver:      a.resolver,
		DevActor:      devActor,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Logger:        a.logger,
	})
	return nil
}

// Router returns the HTTP handler serving JSON-RPC, MCP, files and metrics.
func (a *App) Router() http.Handler {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return a.MCP },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
			Logger:         a.logger,
		},
	)
	opts := transport.Options{
		Dispatcher: a.Handler,
		Auth:       auth.Middleware(a.resolver, nil),
		MCP:        mcpHandler,
		Gatherer:   a.Registry,
		Logger:     a.logger,
	}
	if a.blobs != nil {
		opts.Files = a.blobs
	}
	return transport.NewServer(opts)
}

// Close releases the database and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
