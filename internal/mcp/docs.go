package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `recordbase stores structured entries in instances, each with its own typed field schema and display templates.

Core concepts:
- Instance: an activity owning fields, templates, entries and access settings (approval, groups, time windows, entry cap).
- Field: a typed column (text, textarea, number, url, date, menu, radiobutton, checkbox, multimenu, latlong, file, picture).
- Entry: one submission; values are stored per field and owned by the submitting user.
- Template: text with [[field]] and ##tag## placeholders rendered per entry (list, single, rss) or once (add, asearch, headers).

Default workflow:
1) Orient: list_instances, then access_information(instance_id) to see what you may do.
2) Read: search_entries (free text or criteria), get_entry, render_template for display output.
3) Write: validate_entry before submit_entry; update_entry, approve_entry, delete_entry, set_tags, attach_file.
4) Schema work (managetemplates capability): create_instance, create_field, update_field, set_template.

Errors come back as {code, message, recovery_hint}. ACCESS_DENIED and ENTRY_NOT_FOUND are distinct; never assume an entry is missing when access is denied.

Docs:
- recordbase://docs/index
- recordbase://docs/search
- recordbase://docs/templates
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "recordbase://docs/index",
		Name:        "docs_index",
		Title:       "recordbase docs index",
		Description: "Entry point: what exists and what to read when.",
		Content: `# recordbase: Agent Docs Index

## Quick start

1. ` + "`list_instances`" + ` to find an instance id.
2. ` + "`list_fields`" + ` to learn the schema. Field ids key every value you submit.
3. ` + "`access_information`" + ` before writing: it reports canaddentry, timeavailable, inreadonlyperiod and entrieslefttoadd.

## Submitting values

Values are keyed by field id (as a string), then by subfield. The main value uses the empty subfield:

` + "```json" + `
{"instance_id": 1, "values": {"3": {"": ["Ada"]}, "4": {"lat": ["51.5"], "long": ["-0.12"]}}}
` + "```" + `

Checkbox and multimenu fields take several values under the empty subfield. Validation failures return validated=false with per-field notifications; nothing is saved.

## Further reading

- recordbase://docs/search: free text, criteria, sorting, paging.
- recordbase://docs/templates: tags and where they render.
`,
	},
	{
		URI:         "recordbase://docs/search",
		Name:        "docs_search",
		Title:       "Searching entries",
		Description: "How search_entries filters, sorts and pages.",
		Content: `# Searching entries

- Visibility is applied first: unapproved entries of others, other groups and closed availability windows are never returned.
- ` + "`search`" + ` matches free text against every searchable field and the owner first or last name.
- ` + "`criteria`" + ` are ANDed conditions. ` + "`name`" + ` is a field id, ` + "`fn`" + ` or ` + "`ln`" + `. Number fields accept ` + "`lo..hi`" + ` ranges; date fields accept dates. When criteria are given, free text is ignored.
- ` + "`sort`" + `: a field id, or 0 time added, -1 first name, -2 last name, -3 approved, -4 time modified. Entries without a value for the sort field come last. Ties break on entry id.
- ` + "`page`" + ` is zero based; ` + "`perpage`" + ` 0 returns everything. ` + "`totalcount`" + ` does not change with the page.
- ` + "`maxcount`" + ` is the number of visible entries before criteria, present only when filtering.
`,
	},
	{
		URI:         "recordbase://docs/templates",
		Name:        "docs_templates",
		Title:       "Template syntax",
		Description: "Field placeholders, tags and tag availability per template kind.",
		Content: `# Template syntax

## Placeholders

- ` + "`[[name]]`" + `: the rendered value of field *name*.
- ` + "`[[name#id]]`" + `, ` + "`[[name#name]]`" + `, ` + "`[[name#description]]`" + `: field information.
- ` + "`##otherfields##`" + `: every field not referenced elsewhere in the template.
- ` + "`##timeadded##`" + `, ` + "`##timemodified##`" + `, ` + "`##user##`" + `, ` + "`##userpicture##`" + `, ` + "`##approvalstatus##`" + `, ` + "`##id##`" + `, ` + "`##tags##`" + `, ` + "`##comments##`" + `.
- Actions: ` + "`##edit##`" + `, ` + "`##delete##`" + `, ` + "`##approve##`" + `, ` + "`##disapprove##`" + `, ` + "`##export##`" + `, ` + "`##more##`" + `, ` + "`##moreurl##`" + `, ` + "`##delcheck##`" + `, ` + "`##actionsmenu##`" + `.

## Availability

- Action tags render nothing in add, asearch, rsstitle, listheader and listfooter.
- more, moreurl and delcheck render nothing in single; export renders nothing in rss.
- Actions also render nothing when the caller lacks the matching permission.
- Unknown placeholders stay in the output as literal text.

## Editing

An empty body restores the template generated from the field list. Renaming a field rewrites ` + "`[[old]]`" + ` references in every template of the instance.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
