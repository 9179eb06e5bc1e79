package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/berea-ai/berea/generator"
)

// Destination is the closed set of workflows a query can route to.
type Destination int

const (
	KnowledgeBase Destination = iota
	Identity
	ChatHistory
)

// Default receives every query the classifier cannot place.
const Default = KnowledgeBase

func (d Destination) String() string {
	switch d {
	case Identity:
		return "identity"
	case ChatHistory:
		return "chat-history"
	default:
		return "knowledge-base"
	}
}

func parseDestination(name string) Destination {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "identity":
		return Identity
	case "chat-history":
		return ChatHistory
	case "knowledge-base":
		return KnowledgeBase
	default:
		return Default
	}
}

type Decision struct {
	Destination Destination
	NextQuery   string
}

type Router interface {
	Route(ctx context.Context, query string, transcript string) (*Decision, error)
}

type routerChain struct {
	options Options
}

func (r *routerChain) Route(ctx context.Context, query string, transcript string) (*Decision, error) {
	rsp, err := r.options.Generator.Generate(ctx, generator.Request{
		System: routerSystem,
		Messages: []generator.Message{
			{
				Role:    generator.RoleUser,
				Content: fmt.Sprintf(routerTemplate, transcript, query),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify query: %w", err)
	}

	decision := &Decision{
		Destination: Default,
		NextQuery:   query,
	}

	var parsed struct {
		Destination string `json:"destination"`
		NextInputs  struct {
			Query string `json:"query"`
		} `json:"next_inputs"`
	}

	if err := json.Unmarshal([]byte(extractObject(rsp.Text)), &parsed); err != nil {
		return decision, nil
	}

	decision.Destination = parseDestination(parsed.Destination)

	if len(strings.TrimSpace(parsed.NextInputs.Query)) > 0 {
		decision.NextQuery = parsed.NextInputs.Query
	}

	return decision, nil
}

// extractObject pulls the first JSON object out of a response that may be
// wrapped in markdown fences or prose.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

const routerSystem = `You are a query classifier. Given a conversation and the latest ` +
	`query, select the single best destination from the candidates below and rephrase ` +
	`the query so the destination can answer it standalone.

Candidates:
identity: questions about who the assistant is, what it can do, or how it works
chat-history: questions about earlier messages in this conversation
knowledge-base: questions answerable from the document corpus

Respond with JSON only, in the form
{"destination": "<candidate name or DEFAULT>", "next_inputs": {"query": "<rephrased query>"}}
Use "DEFAULT" if none of the candidates fit.`

const routerTemplate = `Conversation so far:
%s

Latest query: %s`

func NewRouter(opts ...Option) Router {
	options := NewOptions(opts...)

	return &routerChain{
		options: options,
	}
}
