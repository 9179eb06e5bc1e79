package anthropic

import (
	"context"
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/berea-ai/berea/generator"
)

type anthropicGenerator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Response, error) {
	rsp, err := g.client.Messages.New(ctx, g.params(req))
	if err != nil {
		return nil, err
	}

	return toResponse(rsp), nil
}

func (g *anthropicGenerator) Stream(ctx context.Context, req generator.Request, onDelta func(text string)) (*generator.Response, error) {
	stream := g.client.Messages.NewStreaming(ctx, g.params(req))
	defer stream.Close()

	message := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()

		if err := message.Accumulate(event); err != nil {
			continue
		}

		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if onDelta != nil {
					onDelta(delta.Text)
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return nil, err
	}

	return toResponse(&message), nil
}

func (g *anthropicGenerator) params(req generator.Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.options.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.options.Model),
		MaxTokens: int64(maxTokens),
		Messages:  toMessages(req.Messages),
	}

	if len(req.System) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	if len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
	}

	return params
}

func toMessages(msgs []generator.Message) []anthropic.MessageParam {
	converted := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == generator.RoleAssistant {
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		} else {
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return converted
}

func toTools(tools []generator.Tool) []anthropic.ToolUnionParam {
	converted := make([]anthropic.ToolUnionParam, 0, len(tools))

	for _, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := tool.InputSchema["properties"]; ok {
			schema.Properties = props
		}
		if required, ok := tool.InputSchema["required"].([]string); ok {
			schema.Required = required
		}

		converted = append(converted, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: schema,
			},
		})
	}

	return converted
}

func toResponse(rsp *anthropic.Message) *generator.Response {
	var b strings.Builder
	var toolCalls []generator.ToolCall

	for _, block := range rsp.Content {
		switch block.Type {
		case "text":
			b.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, generator.ToolCall{
				Id:   block.ID,
				Name: block.Name,
				Args: json.RawMessage(block.Input),
			})
		}
	}

	return &generator.Response{
		Text:         b.String(),
		ToolCalls:    toolCalls,
		FinishReason: toFinishReason(rsp.StopReason),
	}
}

func toFinishReason(reason anthropic.StopReason) generator.FinishReason {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return generator.FinishStop
	case anthropic.StopReasonToolUse:
		return generator.FinishToolCalls
	case anthropic.StopReasonMaxTokens:
		return generator.FinishLength
	default:
		return generator.FinishUnknown
	}
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &anthropicGenerator{
		options: options,
	}

	client := anthropic.NewClient(
		anthropicopt.WithAPIKey(options.ApiKey),
	)

	g.client = &client

	return g
}
