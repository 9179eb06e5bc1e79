package bookmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/berea-ai/berea/internal/store"
	toolhandler "github.com/berea-ai/berea/tool_handler"
)

type bookmarkToolHandler struct {
	options toolhandler.Options
	store   store.Store
}

type arguments struct {
	Bible   string `json:"bible"`
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	// Verse 0 bookmarks the whole chapter.
	Verse int `json:"verse,omitempty"`
}

func (th *bookmarkToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        "bookmark",
		Description: "Bookmark a verse, or a whole chapter when no verse is given. Bookmarking the same place twice is a no-op.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bible":   map[string]any{"type": "string", "description": "bible abbreviation, e.g. web"},
				"book":    map[string]any{"type": "string"},
				"chapter": map[string]any{"type": "integer"},
				"verse":   map[string]any{"type": "integer"},
			},
			"required": []string{"bible", "book", "chapter"},
		},
		Confirmation: true,
	}
}

func (th *bookmarkToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	var args arguments
	if err := toolhandler.DecodeArguments(req.Arguments, &args); err != nil {
		return toolhandler.ErrorResult("invalid bookmark arguments"), nil
	}

	verses, err := th.store.ListVerses(ctx, args.Bible, args.Book, args.Chapter)
	if errors.Is(err, store.ErrNotFound) {
		return toolhandler.ErrorResult(fmt.Sprintf("could not find %s %d in %s", args.Book, args.Chapter, args.Bible)), nil
	}
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	if args.Verse > 0 {
		found := false
		for _, verse := range verses {
			if verse.Number == args.Verse {
				found = true
				break
			}
		}
		if !found {
			return toolhandler.ErrorResult(fmt.Sprintf("verse %d does not exist in %s %d", args.Verse, args.Book, args.Chapter)), nil
		}
	}

	if err := th.store.UpsertBookmark(ctx, store.Bookmark{
		UserId:      req.UserId,
		BibleAbbrev: args.Bible,
		Book:        args.Book,
		Chapter:     args.Chapter,
		Verse:       args.Verse,
	}); err != nil {
		return toolhandler.ToolResponse{}, err
	}

	return toolhandler.OkResult(nil), nil
}

func NewToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	options := toolhandler.NewOptions(opts...)

	th := &bookmarkToolHandler{
		options: options,
	}

	if s, ok := StoreFrom(options.Context); ok {
		th.store = s
	}

	return th
}
