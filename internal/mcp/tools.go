package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/recordbase/internal/auth"
)

func schemaFor[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("tool input schema: %v", err))
	}
	return s
}

// buildToolCatalog returns all available MCP tools. Every tool name is a
// Handler method.
func buildToolCatalog() []*sdkmcp.Tool {
	return []*sdkmcp.Tool{
		// Entries
		{
			Name:        "search_entries",
			Description: "Search the entries of an instance visible to the caller, with free text or advanced criteria, sorting and pagination",
			InputSchema: schemaFor[SearchEntriesParams](),
		},
		{
			Name:        "get_entry",
			Description: "Get one entry with all of its field contents",
			InputSchema: schemaFor[EntryRefParams](),
		},
		{
			Name:        "validate_entry",
			Description: "Validate raw field values against the instance schema without saving",
			InputSchema: schemaFor[ValidateEntryParams](),
		},
		{
			Name:        "submit_entry",
			Description: "Validate and save a new entry. Returns the validation report and the new entry id",
			InputSchema: schemaFor[SubmitEntryParams](),
		},
		{
			Name:        "update_entry",
			Description: "Change field values of an existing entry",
			InputSchema: schemaFor[UpdateEntryParams](),
		},
		{
			Name:        "approve_entry",
			Description: "Approve an entry or withdraw its approval",
			InputSchema: schemaFor[ApproveEntryParams](),
		},
		{
			Name:        "delete_entry",
			Description: "Delete an entry with its contents and files",
			InputSchema: schemaFor[EntryRefParams](),
		},
		{
			Name:        "set_tags",
			Description: "Replace the tags of an entry",
			InputSchema: schemaFor[SetTagsParams](),
		},
		{
			Name:        "attach_file",
			Description: "Attach a base64 encoded file to a file or picture field of an entry",
			InputSchema: schemaFor[AttachFileParams](),
		},
		{
			Name:        "access_information",
			Description: "Report what the caller may do in an instance right now",
			InputSchema: schemaFor[InstanceRefParams](),
		},
		{
			Name:        "save_profile",
			Description: "Set the display name shown as the owner of the caller's entries",
			InputSchema: schemaFor[SaveProfileParams](),
		},

		// Rendering
		{
			Name:        "render_template",
			Description: "Render an instance template for the given entries or for a search result",
			InputSchema: schemaFor[RenderTemplateParams](),
		},

		// Schema
		{
			Name:        "field_type_capabilities",
			Description: "Report whether a field type is searchable, text exportable and accepts files",
			InputSchema: schemaFor[FieldTypeParams](),
		},
		{
			Name:        "create_instance",
			Description: "Create an instance with its access settings",
			InputSchema: schemaFor[InstanceParams](),
		},
		{
			Name:        "get_instance",
			Description: "Get an instance and its settings",
			InputSchema: schemaFor[InstanceRefParams](),
		},
		{
			Name:        "list_instances",
			Description: "List all instances",
			InputSchema: schemaFor[EmptyParams](),
		},
		{
			Name:        "update_instance",
			Description: "Replace the settings of an instance",
			InputSchema: schemaFor[UpdateInstanceParams](),
		},
		{
			Name:        "create_field",
			Description: "Add a typed field to an instance",
			InputSchema: schemaFor[FieldParams](),
		},
		{
			Name:        "update_field",
			Description: "Rename or reconfigure a field; template references follow a rename",
			InputSchema: schemaFor[UpdateFieldParams](),
		},
		{
			Name:        "delete_field",
			Description: "Delete a field and every stored value of it",
			InputSchema: schemaFor[FieldRefParams](),
		},
		{
			Name:        "list_fields",
			Description: "List the fields of an instance in display order",
			InputSchema: schemaFor[InstanceRefParams](),
		},
		{
			Name:        "set_template",
			Description: "Store a template body for an instance",
			InputSchema: schemaFor[SetTemplateParams](),
		},
		{
			Name:        "get_template",
			Description: "Get a template body, generated from the fields when none is stored",
			InputSchema: schemaFor[TemplateRefParams](),
		},
	}
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, tool := range buildToolCatalog() {
		server.AddTool(tool, toolHandler(h, tool.Name))
	}
}

func toolHandler(h *Handler, name string) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		actor, ok := auth.ActorFromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("unauthorized: no actor")
		}
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}
		result, err := h.Handle(ctx, actor, name, args)
		if err != nil {
			return errorResult(err), nil
		}
		return textResult(result)
	}
}

func textResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

// errorResult reports a tool failure to the caller as content so it can
// correct the call.
func errorResult(err error) *sdkmcp.CallToolResult {
	var payload any = map[string]string{"code": "INTERNAL", "message": err.Error()}
	if apiErr := MapError(err); apiErr != nil {
		payload = apiErr
	}
	data, mErr := json.Marshal(payload)
	if mErr != nil {
		data = []byte(err.Error())
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}
