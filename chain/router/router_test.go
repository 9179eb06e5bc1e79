package router

import (
	"context"
	"errors"
	"testing"

	"github.com/berea-ai/berea/generator"
	"github.com/berea-ai/berea/generator/mock"
	"github.com/stretchr/testify/require"
)

func TestRouteParsesDestination(t *testing.T) {
	gen := mock.NewGenerator(&generator.Response{
		Text:         `{"destination": "chat-history", "next_inputs": {"query": "what did I ask before?"}}`,
		FinishReason: generator.FinishStop,
	})

	r := NewRouter(WithGenerator(gen))

	decision, err := r.Route(context.Background(), "what did I say?", "user: hello")
	require.NoError(t, err)
	require.Equal(t, ChatHistory, decision.Destination)
	require.Equal(t, "what did I ask before?", decision.NextQuery)
}

func TestRouteStripsMarkdownFences(t *testing.T) {
	gen := mock.NewGenerator(&generator.Response{
		Text:         "```json\n{\"destination\": \"identity\", \"next_inputs\": {\"query\": \"who are you?\"}}\n```",
		FinishReason: generator.FinishStop,
	})

	r := NewRouter(WithGenerator(gen))

	decision, err := r.Route(context.Background(), "who are you", "")
	require.NoError(t, err)
	require.Equal(t, Identity, decision.Destination)
}

func TestRouteUnparseableFallsBackToDefault(t *testing.T) {
	gen := mock.NewGenerator(&generator.Response{
		Text:         "I think this should go to the knowledge base.",
		FinishReason: generator.FinishStop,
	})

	r := NewRouter(WithGenerator(gen))

	decision, err := r.Route(context.Background(), "what is hope?", "")
	require.NoError(t, err)
	require.Equal(t, Default, decision.Destination)
	require.Equal(t, "what is hope?", decision.NextQuery)
}

func TestRouteUnknownDestinationFallsBackToDefault(t *testing.T) {
	gen := mock.NewGenerator(&generator.Response{
		Text:         `{"destination": "weather", "next_inputs": {"query": "forecast"}}`,
		FinishReason: generator.FinishStop,
	})

	r := NewRouter(WithGenerator(gen))

	decision, err := r.Route(context.Background(), "what is hope?", "")
	require.NoError(t, err)
	require.Equal(t, KnowledgeBase, decision.Destination)
}

func TestRouteDefaultLiteral(t *testing.T) {
	gen := mock.NewGenerator(&generator.Response{
		Text:         `{"destination": "DEFAULT", "next_inputs": {"query": "what is hope?"}}`,
		FinishReason: generator.FinishStop,
	})

	r := NewRouter(WithGenerator(gen))

	decision, err := r.Route(context.Background(), "what is hope?", "")
	require.NoError(t, err)
	require.Equal(t, KnowledgeBase, decision.Destination)
}

func TestRouteEmptyNextQueryKeepsOriginal(t *testing.T) {
	gen := mock.NewGenerator(&generator.Response{
		Text:         `{"destination": "knowledge-base", "next_inputs": {"query": ""}}`,
		FinishReason: generator.FinishStop,
	})

	r := NewRouter(WithGenerator(gen))

	decision, err := r.Route(context.Background(), "original", "")
	require.NoError(t, err)
	require.Equal(t, "original", decision.NextQuery)
}

func TestRouteGeneratorError(t *testing.T) {
	gen := mock.NewFailingGenerator(errors.New("upstream down"))

	r := NewRouter(WithGenerator(gen))

	_, err := r.Route(context.Background(), "what is hope?", "")
	require.Error(t, err)
}
