package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/recordbase/internal/auth"
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/query"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/render"
)

// InstanceService defines instance and schema operations needed by MCP.
type InstanceService interface {
	Create(ctx context.Context, req instance.CreateRequest) (*instance.Instance, error)
	Get(ctx context.Context, id int64) (*instance.Instance, error)
	List(ctx context.Context) ([]instance.Instance, error)
	Update(ctx context.Context, id int64, req instance.CreateRequest) (*instance.Instance, error)
	LoadSchema(ctx context.Context, id int64) (*instance.Schema, error)
	Capabilities(typeName string) field.Capabilities
	CreateField(ctx context.Context, instanceID int64, req instance.FieldRequest) (*field.Definition, error)
	UpdateField(ctx context.Context, instanceID, id int64, req instance.FieldRequest) (*field.Definition, error)
	DeleteField(ctx context.Context, instanceID, id int64) error
	ListFields(ctx context.Context, instanceID int64) ([]field.Definition, error)
	SetTemplate(ctx context.Context, instanceID int64, name template.Name, body string) error
	Template(ctx context.Context, schema *instance.Schema, name template.Name) (*instance.Template, error)
}

// EntryService defines entry operations needed by MCP.
type EntryService interface {
	ValidateSubmission(ctx context.Context, instanceID int64, sub entry.Submission) (*entry.Report, error)
	Submit(ctx context.Context, req entry.SubmitRequest) (*entry.Record, error)
	Get(ctx context.Context, instanceID, id int64, actor access.Actor) (*entry.Record, error)
	Update(ctx context.Context, req entry.UpdateRequest) (*entry.Record, error)
	Approve(ctx context.Context, instanceID, id int64, actor access.Actor, approve bool) (*entry.Record, error)
	Delete(ctx context.Context, instanceID, id int64, actor access.Actor) error
	SetTags(ctx context.Context, instanceID, id int64, actor access.Actor, tags []string) (*entry.Record, error)
	AttachFile(ctx context.Context, req entry.AttachRequest) (*entry.Record, error)
	AccessInformation(ctx context.Context, instanceID int64, actor access.Actor) (*entry.AccessInfo, error)
	SaveProfile(ctx context.Context, p *entry.Profile) error
}

// SearchService defines search operations needed by MCP.
type SearchService interface {
	Search(ctx context.Context, req query.Request) (*query.Result, error)
}

// RenderService defines template rendering needed by MCP.
type RenderService interface {
	RenderTemplate(ctx context.Context, req render.Request) (string, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Instances InstanceService
	Entries   EntryService
	Search    SearchService
	Render    RenderService
}

// Config contains server configuration.
type Config struct {
	Handler  *Handler
	Resolver auth.ActorResolver
	// DevActor is used when auth is disabled or the transport is stdio.
	DevActor      access.Actor
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "recordbase",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Middleware added later runs first, so the actor is in ctx for traffic logging.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))
	// Stdio is local only and always runs as the dev actor.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.DevActor))
	}

	registerTools(server, cfg.Handler)

	return server
}
