package toolhandler

type ToolSpec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema map[string]any   `json:"input_schema"`
	Examples    []map[string]any `json:"examples,omitempty"`
	// Confirmation marks side-effecting tools that must be persisted as a
	// pending call and approved by the client before execution.
	Confirmation bool `json:"confirmation,omitempty"`
}
