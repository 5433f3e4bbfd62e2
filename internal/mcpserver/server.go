package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adityalohuni/htmlform/internal/extract"
	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/service"
)

const (
	latestURI   = "form://latest"
	listURI     = "form://list"
	parsedHost  = "parsed"
	jsonMIME    = "application/json"
	defaultName = "htmlform"
)

type Options struct {
	Implementation *mcp.Implementation
	Instructions   string
	// OnParsed is called with the session and the ids of forms a tool call
	// stored.
	OnParsed func(session *mcp.ServerSession, ids ...string)
}

type Server struct {
	mcpServer *mcp.Server
	service   *service.Service
	onParsed  func(*mcp.ServerSession, ...string)
}

func New(svc *service.Service, opts Options) *Server {
	impl := opts.Implementation
	if impl == nil {
		impl = &mcp.Implementation{Name: defaultName, Version: "v1.0.0"}
	}
	server := mcp.NewServer(impl, &mcp.ServerOptions{Instructions: opts.Instructions})
	s := &Server{mcpServer: server, service: svc, onParsed: opts.OnParsed}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.parse",
		Description: "Extract one <form> from HTML markup (by name, id or index; the first form by default) and store it.",
	}, s.parse)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.parse_all",
		Description: "Extract and store every <form> in an HTML document, in document order.",
	}, s.parseAll)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.get",
		Description: "Return a stored form with its fields and controls.",
	}, s.get)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.list",
		Description: "List stored forms, oldest first.",
	}, s.list)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.select",
		Description: "Select or deselect a value of a stored form's field or control.",
	}, s.selectValue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.submission",
		Description: "Return the name/value pairs and file attachments the stored form would submit.",
	}, s.submission)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.prepare",
		Description: "Build the HTTP request the stored form would send, resolving its action against a base URL.",
	}, s.prepare)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "form.delete",
		Description: "Remove a stored form.",
	}, s.deleteForm)

	server.AddResource(&mcp.Resource{
		Name:        "form_latest",
		Description: "Read the most recently stored form.",
		URI:         latestURI,
		MIMEType:    jsonMIME,
	}, s.readLatest)

	server.AddResource(&mcp.Resource{
		Name:        "form_list",
		Description: "List stored forms.",
		URI:         listURI,
		MIMEType:    jsonMIME,
	}, s.readList)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "form_parsed",
		Description: "Read a stored form by ID.",
		URITemplate: "form://parsed/{form_id}",
		MIMEType:    jsonMIME,
	}, s.readParsed)

	return s
}

func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) notify(req *mcp.CallToolRequest, ids ...string) {
	if s.onParsed == nil || req == nil || req.Session == nil || len(ids) == 0 {
		return
	}
	s.onParsed(req.Session, ids...)
}

// FormOutput is a stored form as returned by the tools.
type FormOutput struct {
	FormID    string      `json:"formId" jsonschema:"identifier of the stored form"`
	Source    string      `json:"source,omitempty" jsonschema:"label given when the form was parsed"`
	Selector  string      `json:"selector" jsonschema:"selector that picked the form"`
	Form      form.Record `json:"form" jsonschema:"form attributes, fields and controls"`
	UpdatedAt string      `json:"updatedAt" jsonschema:"RFC 3339 time of the last change"`
}

func formOutput(e formstore.Entry) FormOutput {
	return FormOutput{
		FormID:    e.ID,
		Source:    e.Source,
		Selector:  e.Selector,
		Form:      e.Form,
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}
}

type ParseInput struct {
	Markup string `json:"markup" jsonschema:"HTML document or fragment containing the form"`
	Source string `json:"source,omitempty" jsonschema:"free-form label for where the markup came from"`
	Name   string `json:"name,omitempty" jsonschema:"pick the form with this name attribute"`
	ID     string `json:"id,omitempty" jsonschema:"pick the form with this id attribute"`
	Index  *int   `json:"index,omitempty" jsonschema:"pick the form at this zero-based position"`
}

func (s *Server) parse(ctx context.Context, req *mcp.CallToolRequest, input ParseInput) (*mcp.CallToolResult, FormOutput, error) {
	entry, err := s.service.Parse(ctx, service.ParseRequest{
		Markup:   input.Markup,
		Source:   input.Source,
		Selector: extract.SelectorSpec{Name: input.Name, ID: input.ID, Index: input.Index},
	})
	if err != nil {
		return nil, FormOutput{}, err
	}
	s.notify(req, entry.ID)
	return nil, formOutput(entry), nil
}

type ParseAllInput struct {
	Markup string `json:"markup" jsonschema:"HTML document containing the forms"`
	Source string `json:"source,omitempty" jsonschema:"free-form label for where the markup came from"`
}

type ParseAllOutput struct {
	Forms []FormOutput `json:"forms" jsonschema:"stored forms in document order"`
}

func (s *Server) parseAll(ctx context.Context, req *mcp.CallToolRequest, input ParseAllInput) (*mcp.CallToolResult, ParseAllOutput, error) {
	entries, err := s.service.ParseAll(ctx, input.Markup, input.Source)
	if err != nil {
		return nil, ParseAllOutput{}, err
	}
	out := ParseAllOutput{Forms: make([]FormOutput, 0, len(entries))}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		out.Forms = append(out.Forms, formOutput(e))
		ids = append(ids, e.ID)
	}
	s.notify(req, ids...)
	return nil, out, nil
}

type FormInput struct {
	FormID string `json:"formId" jsonschema:"id of a stored form"`
}

func (s *Server) get(ctx context.Context, _ *mcp.CallToolRequest, input FormInput) (*mcp.CallToolResult, FormOutput, error) {
	entry, err := s.service.Get(input.FormID)
	if err != nil {
		return nil, FormOutput{}, err
	}
	return nil, formOutput(entry), nil
}

type ListInput struct{}

type FormSummary struct {
	FormID   string `json:"formId"`
	Source   string `json:"source,omitempty"`
	Selector string `json:"selector"`
	Name     string `json:"name,omitempty"`
	ID       string `json:"id,omitempty"`
	Action   string `json:"action,omitempty"`
	Method   string `json:"method"`
	Fields   int    `json:"fields"`
	Controls int    `json:"controls"`
}

type ListOutput struct {
	Forms []FormSummary `json:"forms"`
}

func summarize(e formstore.Entry) FormSummary {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return FormSummary{
		FormID:   e.ID,
		Source:   e.Source,
		Selector: e.Selector,
		Name:     deref(e.Form.Name),
		ID:       deref(e.Form.ID),
		Action:   deref(e.Form.Action),
		Method:   e.Form.Method,
		Fields:   len(e.Form.Fields),
		Controls: len(e.Form.Controls),
	}
}

func (s *Server) list(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	entries := s.service.List()
	out := ListOutput{Forms: make([]FormSummary, 0, len(entries))}
	for _, e := range entries {
		out.Forms = append(out.Forms, summarize(e))
	}
	return nil, out, nil
}

type SelectInput struct {
	FormID     string `json:"formId" jsonschema:"id of a stored form"`
	Collection string `json:"collection,omitempty" jsonschema:"fields or controls; defaults to fields"`
	Name       string `json:"name" jsonschema:"field or control name"`
	Value      string `json:"value,omitempty" jsonschema:"value to toggle; for controls empty picks the first value"`
	Selected   bool   `json:"selected" jsonschema:"new selection state"`
}

func (s *Server) selectValue(ctx context.Context, _ *mcp.CallToolRequest, input SelectInput) (*mcp.CallToolResult, FormOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, FormOutput{}, errors.New("name is required")
	}
	entry, err := s.service.Select(ctx, service.SelectRequest{
		FormID:     input.FormID,
		Collection: input.Collection,
		Name:       input.Name,
		Value:      input.Value,
		Selected:   input.Selected,
	})
	if err != nil {
		return nil, FormOutput{}, err
	}
	return nil, formOutput(entry), nil
}

func (s *Server) submission(ctx context.Context, _ *mcp.CallToolRequest, input FormInput) (*mcp.CallToolResult, service.Submission, error) {
	sub, err := s.service.Submission(input.FormID)
	if err != nil {
		return nil, service.Submission{}, err
	}
	return nil, sub, nil
}

type PrepareInput struct {
	FormID  string `json:"formId" jsonschema:"id of a stored form"`
	BaseURL string `json:"baseUrl,omitempty" jsonschema:"URL of the page the form came from"`
}

type PrepareOutput struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Body        string `json:"body,omitempty"`
}

func (s *Server) prepare(ctx context.Context, _ *mcp.CallToolRequest, input PrepareInput) (*mcp.CallToolResult, PrepareOutput, error) {
	r, err := s.service.Prepare(input.FormID, input.BaseURL)
	if err != nil {
		return nil, PrepareOutput{}, err
	}
	return nil, PrepareOutput{Method: r.Method, URL: r.URL, ContentType: r.ContentType, Body: string(r.Body)}, nil
}

type DeleteOutput struct {
	Deleted string `json:"deleted"`
}

func (s *Server) deleteForm(ctx context.Context, _ *mcp.CallToolRequest, input FormInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := s.service.Delete(input.FormID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: input.FormID}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: jsonMIME,
				Text:     string(data),
			},
		},
	}, nil
}

func (s *Server) readLatest(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entry, err := s.service.Latest()
	if err != nil {
		return nil, mcp.ResourceNotFoundError(latestURI)
	}
	return jsonResource(latestURI, formOutput(entry))
}

func (s *Server) readList(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entries := s.service.List()
	out := make([]FormSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e))
	}
	return jsonResource(listURI, out)
}

func (s *Server) readParsed(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if req == nil || req.Params == nil {
		return nil, errors.New("missing resource params")
	}
	u, err := url.Parse(req.Params.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid form URI: %w", err)
	}
	if u.Scheme != "form" || u.Host != parsedHost {
		return nil, fmt.Errorf("unsupported form URI: %s", req.Params.URI)
	}
	id := strings.TrimPrefix(u.Path, "/")
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	entry, err := s.service.Get(id)
	if errors.Is(err, form.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, formOutput(entry))
}
