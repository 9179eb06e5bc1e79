package toolhandler

import (
	"context"
	"encoding/json"
	"fmt"
)

type ToolHandler interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

type ToolRequest struct {
	UserId    string         `json:"user_id"`
	Arguments map[string]any `json:"arguments"`
}

type ToolResponse struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DecodeArguments maps loosely-typed tool arguments onto a concrete struct.
func DecodeArguments(args map[string]any, v any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal tool arguments: %w", err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode tool arguments: %w", err)
	}

	return nil
}

// ErrorResult builds the structured failure payload tools return instead of
// an error, so a failed call never fails the turn.
func ErrorResult(message string) ToolResponse {
	b, _ := json.Marshal(map[string]string{
		"status":  "error",
		"message": message,
	})

	return ToolResponse{Content: string(b)}
}

// OkResult builds a structured success payload.
func OkResult(fields map[string]any) ToolResponse {
	payload := map[string]any{"status": "ok"}
	for k, v := range fields {
		payload[k] = v
	}

	b, _ := json.Marshal(payload)

	return ToolResponse{Content: string(b)}
}
