package google

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/berea-ai/berea/generator"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	genaiopt "google.golang.org/api/option"
)

type googleGenerator struct {
	options generator.Options
	client  *genai.Client
}

func (g *googleGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Response, error) {
	session, parts := g.session(req)

	rsp, err := session.SendMessage(ctx, parts...)
	if err != nil {
		return nil, err
	}

	return collect(rsp)
}

func (g *googleGenerator) Stream(ctx context.Context, req generator.Request, onDelta func(text string)) (*generator.Response, error) {
	session, parts := g.session(req)

	var last *genai.GenerateContentResponse
	var text strings.Builder
	var calls []generator.ToolCall

	iter := session.SendMessageStream(ctx, parts...)
	for {
		rsp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}

		last = rsp
		if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
			continue
		}

		for _, part := range rsp.Candidates[0].Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				text.WriteString(string(v))
				if onDelta != nil {
					onDelta(string(v))
				}
			case genai.FunctionCall:
				call, err := toToolCall(v)
				if err != nil {
					return nil, err
				}
				calls = append(calls, call)
			}
		}
	}

	if last == nil {
		return nil, errors.New("no response from Google")
	}

	out := &generator.Response{
		Text:         text.String(),
		ToolCalls:    calls,
		FinishReason: finishReason(last, len(calls) > 0),
	}

	return out, nil
}

// session maps the request onto a chat session: every message but the last
// becomes history, the last becomes the outgoing parts.
func (g *googleGenerator) session(req generator.Request) (*genai.ChatSession, []genai.Part) {
	model := g.client.GenerativeModel(g.options.Model)

	if len(req.System) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.options.MaxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	if len(req.Tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  toSchema(tool.InputSchema),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	session := model.StartChat()

	var parts []genai.Part
	for i, msg := range req.Messages {
		if i == len(req.Messages)-1 {
			parts = []genai.Part{genai.Text(msg.Content)}
			break
		}

		role := "user"
		if msg.Role == generator.RoleAssistant {
			role = "model"
		}

		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	return session, parts
}

func collect(rsp *genai.GenerateContentResponse) (*generator.Response, error) {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return nil, errors.New("no response from Google")
	}

	var text strings.Builder
	var calls []generator.ToolCall

	for _, part := range rsp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			call, err := toToolCall(v)
			if err != nil {
				return nil, err
			}
			calls = append(calls, call)
		}
	}

	out := &generator.Response{
		Text:         text.String(),
		ToolCalls:    calls,
		FinishReason: finishReason(rsp, len(calls) > 0),
	}

	return out, nil
}

func toToolCall(call genai.FunctionCall) (generator.ToolCall, error) {
	args, err := json.Marshal(call.Args)
	if err != nil {
		return generator.ToolCall{}, err
	}

	// Gemini does not assign call IDs.
	return generator.ToolCall{
		Id:   uuid.NewString(),
		Name: call.Name,
		Args: args,
	}, nil
}

func finishReason(rsp *genai.GenerateContentResponse, hasCalls bool) generator.FinishReason {
	if hasCalls {
		return generator.FinishToolCalls
	}

	if len(rsp.Candidates) == 0 {
		return generator.FinishUnknown
	}

	switch rsp.Candidates[0].FinishReason {
	case genai.FinishReasonStop:
		return generator.FinishStop
	case genai.FinishReasonMaxTokens:
		return generator.FinishLength
	default:
		return generator.FinishUnknown
	}
}

// toSchema converts a JSON Schema object into the subset Gemini understands:
// type, description, enum, properties, required, and items.
func toSchema(input map[string]any) *genai.Schema {
	if input == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	schema := &genai.Schema{
		Type:        toType(input["type"]),
		Description: asString(input["description"]),
	}

	if enum, ok := input["enum"].([]any); ok {
		for _, v := range enum {
			schema.Enum = append(schema.Enum, asString(v))
		}
	}

	if props, ok := input["properties"].(map[string]any); ok {
		schema.Properties = map[string]*genai.Schema{}
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				schema.Properties[name] = toSchema(prop)
			}
		}
	}

	if required, ok := input["required"].([]any); ok {
		for _, v := range required {
			schema.Required = append(schema.Required, asString(v))
		}
	}

	if items, ok := input["items"].(map[string]any); ok {
		schema.Items = toSchema(items)
	}

	return schema
}

func toType(raw any) genai.Type {
	switch asString(raw) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}

func asString(raw any) string {
	s, _ := raw.(string)
	return s
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &googleGenerator{
		options: options,
	}

	client, err := genai.NewClient(
		options.Context,
		genaiopt.WithAPIKey(options.ApiKey),
	)
	if err != nil {
		panic(err)
	}

	g.client = client

	return g
}
