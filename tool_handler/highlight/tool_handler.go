package highlight

import (
	"context"
	"errors"
	"fmt"

	"github.com/berea-ai/berea/internal/store"
	toolhandler "github.com/berea-ai/berea/tool_handler"
)

type highlightToolHandler struct {
	options toolhandler.Options
	store   store.Store
}

type arguments struct {
	Bible   string `json:"bible"`
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verses  []int  `json:"verses"`
	Color   string `json:"color"`
}

func (th *highlightToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        "highlight_verse",
		Description: "Highlight one or more verses in a chapter with a color. Re-highlighting a verse changes its color.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bible":   map[string]any{"type": "string", "description": "bible abbreviation, e.g. web"},
				"book":    map[string]any{"type": "string"},
				"chapter": map[string]any{"type": "integer"},
				"verses":  map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
				"color":   map[string]any{"type": "string"},
			},
			"required": []string{"bible", "book", "chapter", "verses", "color"},
		},
		Confirmation: true,
	}
}

func (th *highlightToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	var args arguments
	if err := toolhandler.DecodeArguments(req.Arguments, &args); err != nil {
		return toolhandler.ErrorResult("invalid highlight arguments"), nil
	}

	if len(args.Verses) == 0 {
		return toolhandler.ErrorResult("no verses given"), nil
	}

	verses, err := th.store.ListVerses(ctx, args.Bible, args.Book, args.Chapter)
	if errors.Is(err, store.ErrNotFound) {
		return toolhandler.ErrorResult(fmt.Sprintf("could not find %s %d in %s", args.Book, args.Chapter, args.Bible)), nil
	}
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	known := map[int]bool{}
	for _, verse := range verses {
		known[verse.Number] = true
	}

	// every verse must resolve before anything is written
	for _, number := range args.Verses {
		if !known[number] {
			return toolhandler.ErrorResult(fmt.Sprintf("verse %d does not exist in %s %d", number, args.Book, args.Chapter)), nil
		}
	}

	for _, number := range args.Verses {
		if err := th.store.UpsertHighlight(ctx, store.Highlight{
			UserId:      req.UserId,
			BibleAbbrev: args.Bible,
			Book:        args.Book,
			Chapter:     args.Chapter,
			Verse:       number,
			Color:       args.Color,
		}); err != nil {
			return toolhandler.ToolResponse{}, err
		}
	}

	return toolhandler.OkResult(map[string]any{
		"highlighted": len(args.Verses),
		"color":       args.Color,
	}), nil
}

func NewToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	options := toolhandler.NewOptions(opts...)

	th := &highlightToolHandler{
		options: options,
	}

	if s, ok := StoreFrom(options.Context); ok {
		th.store = s
	}

	return th
}
