package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	"ideabot/internal/schema"
)

// FakeClient returns deterministic payloads shaped to the requested schema
// for offline runs.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj := map[string]any{}
	if req.Schema != nil {
		for _, field := range req.Schema.Fields {
			switch field.Type {
			case schema.TypeNumber:
				obj[field.Name] = 0.5
			case schema.TypeInteger:
				obj[field.Name] = 1
			case schema.TypeBoolean:
				obj[field.Name] = true
			default:
				obj[field.Name] = fmt.Sprintf("fake %s", field.TitleOf())
			}
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
