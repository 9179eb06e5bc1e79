package knowledge

import (
	"context"
	"strings"
	"testing"

	embedmock "github.com/berea-ai/berea/embedder/mock"
	"github.com/berea-ai/berea/generator"
	genmock "github.com/berea-ai/berea/generator/mock"
	"github.com/berea-ai/berea/vectorstore"
	"github.com/berea-ai/berea/vectorstore/memory"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T, docs ...vectorstore.Document) vectorstore.Store {
	t.Helper()

	store := memory.NewStore(
		vectorstore.WithEmbedder(embedmock.NewEmbedder(16)),
		vectorstore.WithDimensions(16),
	)

	require.NoError(t, store.AddDocuments(context.Background(), docs))

	return store
}

func TestRunAnswersWithSources(t *testing.T) {
	store := seededStore(t,
		vectorstore.Document{Id: "d1", Content: "hope is an anchor"},
		vectorstore.Document{Id: "d2", Content: "faith and hope endure"},
		vectorstore.Document{Id: "d3", Content: "unrelated shipping manifest"},
	)

	gen := genmock.NewGenerator(
		&generator.Response{
			Text:         `{"queries": ["verses about hope", "hope in scripture"]}`,
			FinishReason: generator.FinishStop,
		},
		&generator.Response{
			Text:         "Hope is described as an anchor.",
			FinishReason: generator.FinishStop,
		},
	)

	c := NewChain(
		WithGenerator(gen),
		WithStore(store),
		WithLimit(2),
	)

	var streamed strings.Builder
	out, err := c.Run(context.Background(), "what is hope?", nil, func(text string) {
		streamed.WriteString(text)
	})
	require.NoError(t, err)

	require.Equal(t, "Hope is described as an anchor.", out.Answer)
	require.Equal(t, out.Answer, streamed.String())
	require.NotEmpty(t, out.SourceDocuments)

	seen := map[string]bool{}
	for _, doc := range out.SourceDocuments {
		require.False(t, seen[doc.Id], "duplicate source document %s", doc.Id)
		seen[doc.Id] = true
	}
}

func TestRunExpansionFailureFallsBackToQuery(t *testing.T) {
	store := seededStore(t,
		vectorstore.Document{Id: "d1", Content: "hope is an anchor"},
	)

	gen := genmock.NewGenerator(
		&generator.Response{
			Text:         "sorry, I cannot produce JSON today",
			FinishReason: generator.FinishStop,
		},
		&generator.Response{
			Text:         "Hope is an anchor.",
			FinishReason: generator.FinishStop,
		},
	)

	c := NewChain(
		WithGenerator(gen),
		WithStore(store),
		WithLimit(1),
	)

	out, err := c.Run(context.Background(), "what is hope?", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Hope is an anchor.", out.Answer)
	require.Len(t, out.SourceDocuments, 1)
}

func TestRunCompressionDropsEmptyDocuments(t *testing.T) {
	store := seededStore(t,
		vectorstore.Document{Id: "d1", Content: "hope is an anchor for the soul"},
		vectorstore.Document{Id: "d2", Content: "a list of shipping ports"},
	)

	gen := genmock.NewGenerator(
		&generator.Response{
			Text:         "not json",
			FinishReason: generator.FinishStop,
		},
	)

	// One compression call per retrieved document, ranked by distance, then
	// the final answer.
	first, err := store.SearchDocuments(context.Background(), "what is hope?", vectorstore.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, first, 2)

	for _, doc := range first {
		if doc.Id == "d1" {
			gen.Enqueue(&generator.Response{Text: "hope is an anchor", FinishReason: generator.FinishStop})
		} else {
			gen.Enqueue(&generator.Response{Text: "NO_OUTPUT", FinishReason: generator.FinishStop})
		}
	}

	gen.Enqueue(&generator.Response{Text: "Hope anchors the soul.", FinishReason: generator.FinishStop})

	c := NewChain(
		WithGenerator(gen),
		WithStore(store),
		WithLimit(2),
		WithCompression(),
	)

	out, err := c.Run(context.Background(), "what is hope?", nil, nil)
	require.NoError(t, err)
	require.Len(t, out.SourceDocuments, 1)
	require.Equal(t, "d1", out.SourceDocuments[0].Id)
	require.Equal(t, "hope is an anchor", out.SourceDocuments[0].Content)
}

func TestRunPropagatesToolCalls(t *testing.T) {
	store := seededStore(t,
		vectorstore.Document{Id: "d1", Content: "hope is an anchor"},
	)

	gen := genmock.NewGenerator(
		&generator.Response{Text: "not json", FinishReason: generator.FinishStop},
		&generator.Response{
			Text: "Highlighting that for you.",
			ToolCalls: []generator.ToolCall{
				{Id: "t1", Name: "highlight_verse", Args: []byte(`{"book":"Hebrews"}`)},
			},
			FinishReason: generator.FinishToolCalls,
		},
	)

	c := NewChain(
		WithGenerator(gen),
		WithStore(store),
		WithLimit(1),
	)

	out, err := c.Run(context.Background(), "highlight Hebrews 6:19", nil, nil)
	require.NoError(t, err)
	require.Equal(t, generator.FinishToolCalls, out.FinishReason)
	require.Len(t, out.ToolCalls, 1)
	require.Equal(t, "highlight_verse", out.ToolCalls[0].Name)
}
