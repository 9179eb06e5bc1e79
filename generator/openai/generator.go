package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/berea-ai/berea/generator"
	"github.com/sashabaranov/go-openai"
)

type openAIGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openAIGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Response, error) {
	rsp, err := g.client.CreateChatCompletion(ctx, g.request(req, false))
	if err != nil {
		return nil, err
	}

	if len(rsp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	choice := rsp.Choices[0]

	return &generator.Response{
		Text:         choice.Message.Content,
		ToolCalls:    toToolCalls(choice.Message.ToolCalls),
		FinishReason: toFinishReason(choice.FinishReason),
	}, nil
}

func (g *openAIGenerator) Stream(ctx context.Context, req generator.Request, onDelta func(text string)) (*generator.Response, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, g.request(req, true))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var b strings.Builder
	var finish openai.FinishReason
	calls := map[int]*openai.ToolCall{}

	for {
		rsp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(rsp.Choices) == 0 {
			continue
		}

		choice := rsp.Choices[0]

		if len(choice.Delta.Content) > 0 {
			b.WriteString(choice.Delta.Content)
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}

		for _, delta := range choice.Delta.ToolCalls {
			idx := 0
			if delta.Index != nil {
				idx = *delta.Index
			}

			call, exists := calls[idx]
			if !exists {
				call = &openai.ToolCall{Type: openai.ToolTypeFunction}
				calls[idx] = call
			}

			if len(delta.ID) > 0 {
				call.ID = delta.ID
			}
			if len(delta.Function.Name) > 0 {
				call.Function.Name = delta.Function.Name
			}
			call.Function.Arguments += delta.Function.Arguments
		}

		if len(choice.FinishReason) > 0 {
			finish = choice.FinishReason
		}
	}

	ordered := make([]openai.ToolCall, 0, len(calls))
	for idx := 0; idx < len(calls); idx++ {
		if call, exists := calls[idx]; exists {
			ordered = append(ordered, *call)
		}
	}

	return &generator.Response{
		Text:         b.String(),
		ToolCalls:    toToolCalls(ordered),
		FinishReason: toFinishReason(finish),
	}, nil
}

func (g *openAIGenerator) request(req generator.Request, stream bool) openai.ChatCompletionRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.options.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if len(req.System) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == generator.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	request := openai.ChatCompletionRequest{
		Model:     g.options.Model,
		MaxTokens: maxTokens,
		Messages:  messages,
		Stream:    stream,
	}

	for _, tool := range req.Tools {
		request.Tools = append(request.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	return request
}

func toToolCalls(calls []openai.ToolCall) []generator.ToolCall {
	var converted []generator.ToolCall
	for _, call := range calls {
		converted = append(converted, generator.ToolCall{
			Id:   call.ID,
			Name: call.Function.Name,
			Args: json.RawMessage(call.Function.Arguments),
		})
	}
	return converted
}

func toFinishReason(reason openai.FinishReason) generator.FinishReason {
	switch reason {
	case openai.FinishReasonStop:
		return generator.FinishStop
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return generator.FinishToolCalls
	case openai.FinishReasonLength:
		return generator.FinishLength
	default:
		return generator.FinishUnknown
	}
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &openAIGenerator{
		options: options,
	}

	client := openai.NewClient(options.ApiKey)

	g.client = client

	return g
}
