package llmclient

import (
	"context"
	"encoding/json"
	"strings"

	genai "google.golang.org/genai"

	"ideabot/internal/schema"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (logging, attempt bookkeeping) are applied via middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient builds a client for the Gemini API. An empty apiKey lets
// genai fall back to GEMINI_API_KEY / GOOGLE_API_KEY.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON asks for application/json constrained to req.Schema and
// returns the concatenated text parts of the first candidate.
func (g *GeminiClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = g.model
	}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if req.Schema != nil {
		cfg.ResponseSchema = ResponseSchema(req.Schema)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return json.RawMessage(sb.String()), nil
}

// ResponseSchema translates a schema descriptor into the genai form: an
// object whose properties are all required and ordered as declared.
func ResponseSchema(s *schema.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Title:      s.Name,
		Properties: make(map[string]*genai.Schema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		out.Properties[f.Name] = &genai.Schema{
			Type:        genaiType(f.Type),
			Description: f.Description,
		}
		out.Required = append(out.Required, f.Name)
		out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
	}
	return out
}

func genaiType(t schema.Type) genai.Type {
	switch t {
	case schema.TypeNumber:
		return genai.TypeNumber
	case schema.TypeInteger:
		return genai.TypeInteger
	case schema.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
