package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/recordbase/internal/auth"
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/mcp"
	"github.com/rpggio/recordbase/internal/metrics"
	"github.com/rpggio/recordbase/internal/storage"
)

// Dispatcher handles method dispatch for the JSON-RPC endpoint.
type Dispatcher interface {
	Handle(ctx context.Context, actor access.Actor, method string, params json.RawMessage) (any, error)
}

// FileSource opens stored attachments.
type FileSource interface {
	Open(ctx context.Context, key string) (*storage.Object, error)
}

// Options configures the router. Nil fields disable the matching routes.
type Options struct {
	Dispatcher Dispatcher
	// Auth authenticates /rpc, /files and /mcp requests.
	Auth     func(http.Handler) http.Handler
	MCP      http.Handler
	Files    FileSource
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	dispatcher Dispatcher
	files      FileSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{dispatcher: opts.Dispatcher, files: opts.Files, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		if opts.Dispatcher != nil {
			r.Post("/rpc", srv.handleRPC)
		}
		if opts.Files != nil {
			r.Get("/files/{key}", srv.handleFile)
		}
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		code := ErrInvalidReq
		if errors.Is(err, errParse) {
			code = ErrParseCode
		}
		WriteError(w, nil, code, err.Error(), nil)
		return
	}

	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "missing actor", http.StatusUnauthorized)
		return
	}

	result, err := s.dispatcher.Handle(r.Context(), actor, req.Method, req.Params)
	if err != nil {
		var apiErr *mcp.APIError
		if errors.As(err, &apiErr) {
			WriteError(w, req.ID, errorCode(apiErr.Code), apiErr.Message, apiErr)
			return
		}
		s.logger.Error("rpc failed", "method", req.Method, "request_id", RequestIDFromContext(r.Context()), "error", err)
		WriteError(w, req.ID, ErrInternal, "internal error", nil)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	obj, err := s.files.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("open file", "key", key, "error", err)
		http.Error(w, "file unavailable", http.StatusBadGateway)
		return
	}
	defer obj.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		s.logger.Warn("copy file", "key", key, "error", err)
	}
}
