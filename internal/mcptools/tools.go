// Package mcptools exposes the ingestion pipeline as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/service/assistant"
	"ai-offline-assistant/internal/service/format"
	"ai-offline-assistant/internal/service/llm"
	"ai-offline-assistant/internal/service/prompt"
	"ai-offline-assistant/internal/session"
)

// SessionID is the session tool calls ingest into and ask against.
const SessionID = "mcp"

// Assistant is the pipeline the tools drive.
type Assistant interface {
	Ingest(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact, source assistant.Source) models.Result
	AskDocument(ctx context.Context, sess *session.Session, question string) (string, error)
}

// Tools holds tool dependencies.
type Tools struct {
	sessions  *session.Store
	assistant Assistant
	model     llm.Client
}

// New creates the tool set.
func New(sessions *session.Store, a Assistant, model llm.Client) *Tools {
	return &Tools{sessions: sessions, assistant: a, model: model}
}

// Register adds every tool to srv.
func (t *Tools) Register(srv *mcp.Server) {
	addTool(srv, &mcp.Tool{
		Name:        "detect_format",
		Description: "Classify a file by suffix as pdf, docx, image, audio or unsupported.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "File name or path"},
		}, []string{"name"}),
	}, t.detect)

	addTool(srv, &mcp.Tool{
		Name:        "extract_document",
		Description: "Extract the text of a pdf, docx or image file and keep it as the document to ask about.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Local file path"},
		}, []string{"path"}),
	}, t.extract)

	addTool(srv, &mcp.Tool{
		Name:        "compose_prompt",
		Description: "Build the grounded prompt sent to the model for a question about some text.",
		InputSchema: inputSchema(map[string]any{
			"grounding": map[string]any{"type": "string", "description": "Extracted text"},
			"question":  map[string]any{"type": "string", "description": "User question"},
		}, []string{"grounding", "question"}),
	}, t.compose)

	addTool(srv, &mcp.Tool{
		Name:        "ask_model",
		Description: "Send a prompt to the local model. With document=true the prompt is a question about the last extracted document.",
		InputSchema: inputSchema(map[string]any{
			"prompt":   map[string]any{"type": "string", "description": "Prompt or question"},
			"document": map[string]any{"type": "boolean", "description": "Ground on the extracted document"},
		}, []string{"prompt"}),
	}, t.ask)
}

type detectReq struct {
	Name string `json:"name"`
}

type extractReq struct {
	Path string `json:"path"`
}

type composeReq struct {
	Grounding string `json:"grounding"`
	Question  string `json:"question"`
}

type askReq struct {
	Prompt   string `json:"prompt"`
	Document bool   `json:"document"`
}

func (t *Tools) detect(_ context.Context, raw json.RawMessage) (any, error) {
	var r detectReq
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return map[string]any{"kind": string(format.Detect(r.Name))}, nil
}

func (t *Tools) extract(ctx context.Context, raw json.RawMessage) (any, error) {
	var r extractReq
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	name := filepath.Base(r.Path)
	kind := format.Detect(name)
	if !kind.IsDocument() {
		return nil, fmt.Errorf("%w: %s", format.ErrUnsupported, format.Ext(name))
	}

	f, err := os.Open(r.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sess := t.sessions.Ensure(SessionID)
	res := t.assistant.Ingest(ctx, sess, models.UploadedArtifact{Name: name, Body: f}, assistant.SourceMCP)
	out := map[string]any{
		"name":    name,
		"kind":    string(kind),
		"outcome": string(res.Outcome),
		"chars":   len(res.Text),
		"text":    res.Text,
	}
	if res.Err != nil {
		out["error"] = res.Err.Error()
	}
	return out, nil
}

func (t *Tools) compose(_ context.Context, raw json.RawMessage) (any, error) {
	var r composeReq
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return map[string]any{"prompt": prompt.Compose(r.Grounding, r.Question)}, nil
}

func (t *Tools) ask(ctx context.Context, raw json.RawMessage) (any, error) {
	var r askReq
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return nil, assistant.ErrEmptyQuestion
	}
	if !r.Document {
		return map[string]any{"answer": llm.Ask(ctx, t.model, r.Prompt)}, nil
	}
	answer, err := t.assistant.AskDocument(ctx, t.sessions.Ensure(SessionID), r.Prompt)
	if err != nil {
		return nil, err
	}
	return map[string]any{"answer": answer}, nil
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// addTool registers h and renders its result as JSON text. Handler errors
// become tool errors rather than protocol errors.
func addTool(srv *mcp.Server, tool *mcp.Tool, h handlerFunc) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		resp, err := h(ctx, args)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
