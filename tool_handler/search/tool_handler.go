package search

import (
	"context"
	"encoding/json"

	toolhandler "github.com/berea-ai/berea/tool_handler"
	"github.com/berea-ai/berea/vectorstore"
)

type searchToolHandler struct {
	options toolhandler.Options
	store   vectorstore.Store
}

type arguments struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type hit struct {
	Id       string  `json:"id"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
}

func (th *searchToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        "search_knowledge_base",
		Description: "Search the knowledge base for passages relevant to a query.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer"},
			},
			"required": []string{"query"},
		},
	}
}

func (th *searchToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	var args arguments
	if err := toolhandler.DecodeArguments(req.Arguments, &args); err != nil {
		return toolhandler.ErrorResult("invalid search arguments"), nil
	}

	if len(args.Query) == 0 {
		return toolhandler.ErrorResult("no query given"), nil
	}

	searchOpts := []vectorstore.SearchOption{}
	if args.Limit > 0 {
		searchOpts = append(searchOpts, vectorstore.WithLimit(args.Limit))
	}

	found, err := th.store.SearchDocuments(ctx, args.Query, searchOpts...)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	hits := make([]hit, 0, len(found))
	for _, doc := range found {
		hits = append(hits, hit{
			Id:       doc.Id,
			Content:  doc.Content,
			Distance: doc.Distance,
		})
	}

	b, err := json.Marshal(hits)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	return toolhandler.ToolResponse{
		Content: string(b),
		Metadata: map[string]string{
			"source": "knowledge-base",
		},
	}, nil
}

func NewToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	options := toolhandler.NewOptions(opts...)

	th := &searchToolHandler{
		options: options,
	}

	if s, ok := StoreFrom(options.Context); ok {
		th.store = s
	}

	return th
}
