package highlight

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/berea-ai/berea/internal/store"
	"github.com/berea-ai/berea/internal/store/sqlite"
	toolhandler "github.com/berea-ai/berea/tool_handler"
)

func seededStore(t *testing.T) store.Store {
	t.Helper()

	s := sqlite.NewStore(store.WithLocation(":memory:"))

	bible := &store.Bible{
		Id: "b1", Abbreviation: "web", Name: "World English Bible",
		Books: []store.Book{
			{
				Id: "bk1", Name: "Hebrews", Number: 58,
				Chapters: []store.Chapter{
					{
						Id: "ch1", Number: 6,
						Verses: []store.Verse{
							{Id: "v1", Number: 3, Text: "This will we do..."},
							{Id: "v2", Number: 4, Text: "For concerning those..."},
							{Id: "v3", Number: 19, Text: "This hope we have as an anchor..."},
						},
					},
				},
			},
		},
	}

	if err := s.SeedBible(context.Background(), bible); err != nil {
		t.Fatalf("SeedBible failed: %v", err)
	}

	return s
}

func status(t *testing.T, rsp toolhandler.ToolResponse) string {
	t.Helper()

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(rsp.Content), &payload); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", rsp.Content, err)
	}

	return payload.Status
}

func TestInvokeHighlightsVerses(t *testing.T) {
	s := seededStore(t)
	th := NewToolHandler(WithStore(s))
	ctx := context.Background()

	rsp, err := th.Invoke(ctx, toolhandler.ToolRequest{
		UserId: "u1",
		Arguments: map[string]any{
			"bible": "web", "book": "Hebrews", "chapter": 6,
			"verses": []any{3, 4}, "color": "yellow",
		},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got := status(t, rsp); got != "ok" {
		t.Fatalf("expected ok status, got %q (%s)", got, rsp.Content)
	}

	highlights, err := s.ListHighlights(ctx, "u1")
	if err != nil {
		t.Fatalf("ListHighlights failed: %v", err)
	}
	if len(highlights) != 2 {
		t.Fatalf("expected 2 highlights, got %d", len(highlights))
	}
}

func TestInvokeUnresolvedVerseWritesNothing(t *testing.T) {
	s := seededStore(t)
	th := NewToolHandler(WithStore(s))
	ctx := context.Background()

	rsp, err := th.Invoke(ctx, toolhandler.ToolRequest{
		UserId: "u1",
		Arguments: map[string]any{
			"bible": "web", "book": "Hebrews", "chapter": 6,
			"verses": []any{3, 4, 999}, "color": "yellow",
		},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got := status(t, rsp); got != "error" {
		t.Fatalf("expected error status, got %q", got)
	}

	highlights, err := s.ListHighlights(ctx, "u1")
	if err != nil {
		t.Fatalf("ListHighlights failed: %v", err)
	}
	if len(highlights) != 0 {
		t.Fatalf("expected no highlights, got %d", len(highlights))
	}
}

func TestInvokeRehighlightUpdatesColor(t *testing.T) {
	s := seededStore(t)
	th := NewToolHandler(WithStore(s))
	ctx := context.Background()

	args := map[string]any{
		"bible": "web", "book": "Hebrews", "chapter": 6,
		"verses": []any{19}, "color": "yellow",
	}

	if _, err := th.Invoke(ctx, toolhandler.ToolRequest{UserId: "u1", Arguments: args}); err != nil {
		t.Fatalf("first Invoke failed: %v", err)
	}

	args["color"] = "blue"
	if _, err := th.Invoke(ctx, toolhandler.ToolRequest{UserId: "u1", Arguments: args}); err != nil {
		t.Fatalf("second Invoke failed: %v", err)
	}

	highlights, err := s.ListHighlights(ctx, "u1")
	if err != nil {
		t.Fatalf("ListHighlights failed: %v", err)
	}
	if len(highlights) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(highlights))
	}
	if highlights[0].Color != "blue" {
		t.Fatalf("expected updated color, got %q", highlights[0].Color)
	}
}

func TestInvokeUnknownChapter(t *testing.T) {
	s := seededStore(t)
	th := NewToolHandler(WithStore(s))

	rsp, err := th.Invoke(context.Background(), toolhandler.ToolRequest{
		UserId: "u1",
		Arguments: map[string]any{
			"bible": "web", "book": "Hebrews", "chapter": 99,
			"verses": []any{1}, "color": "yellow",
		},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got := status(t, rsp); got != "error" {
		t.Fatalf("expected error status, got %q", got)
	}
}
