package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/berea-ai/berea/generator"
	"github.com/berea-ai/berea/vectorstore"
	"golang.org/x/sync/errgroup"
)

type Output struct {
	Answer          string
	SourceDocuments []vectorstore.DocumentWithScore
	ToolCalls       []generator.ToolCall
	FinishReason    generator.FinishReason
}

type Chain interface {
	Run(ctx context.Context, query string, history []generator.Message, onDelta func(text string)) (*Output, error)
}

type knowledgeChain struct {
	options Options
}

func (c *knowledgeChain) Run(ctx context.Context, query string, history []generator.Message, onDelta func(text string)) (*Output, error) {
	phrases := c.expand(ctx, query)

	docs, err := c.retrieve(ctx, phrases)
	if err != nil {
		return nil, err
	}

	if c.options.Compress {
		docs = c.compress(ctx, query, docs)
	}

	rsp, err := c.answer(ctx, query, history, docs, onDelta)
	if err != nil {
		return nil, err
	}

	return &Output{
		Answer:          rsp.Text,
		SourceDocuments: docs,
		ToolCalls:       rsp.ToolCalls,
		FinishReason:    rsp.FinishReason,
	}, nil
}

// expand asks the generator for alternative search phrases. The original
// query always leads; any failure falls back to the original alone.
func (c *knowledgeChain) expand(ctx context.Context, query string) []string {
	phrases := []string{query}

	rsp, err := c.options.Generator.Generate(ctx, generator.Request{
		System: expansionSystem,
		Messages: []generator.Message{
			{
				Role:    generator.RoleUser,
				Content: fmt.Sprintf(expansionTemplate, c.options.Expansions, query),
			},
		},
	})
	if err != nil {
		return phrases
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}

	if err := json.Unmarshal([]byte(extractObject(rsp.Text)), &parsed); err != nil {
		return phrases
	}

	for _, phrase := range parsed.Queries {
		if len(strings.TrimSpace(phrase)) > 0 {
			phrases = append(phrases, phrase)
		}
	}

	return phrases
}

// retrieve searches the store once per phrase with bounded concurrency, then
// dedups by document ID in phrase order, first occurrence kept.
func (c *knowledgeChain) retrieve(ctx context.Context, phrases []string) ([]vectorstore.DocumentWithScore, error) {
	perPhrase := make([][]vectorstore.DocumentWithScore, len(phrases))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.options.Expansions)

	var mtx sync.Mutex

	for i, phrase := range phrases {
		i, phrase := i, phrase
		g.Go(func() error {
			searchOpts := []vectorstore.SearchOption{
				vectorstore.WithLimit(c.options.Limit),
			}
			if len(c.options.Filter) > 0 {
				searchOpts = append(searchOpts, vectorstore.WithFilter(c.options.Filter))
			}

			found, err := c.options.Store.SearchDocuments(groupCtx, phrase, searchOpts...)
			if err != nil {
				return fmt.Errorf("failed to search for %q: %w", phrase, err)
			}

			mtx.Lock()
			perPhrase[i] = found
			mtx.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var docs []vectorstore.DocumentWithScore

	for _, found := range perPhrase {
		for _, doc := range found {
			if seen[doc.Id] {
				continue
			}
			seen[doc.Id] = true
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

// compress extracts query-relevant spans per document. Documents that
// compress to nothing are dropped; a compression failure keeps the original.
func (c *knowledgeChain) compress(ctx context.Context, query string, docs []vectorstore.DocumentWithScore) []vectorstore.DocumentWithScore {
	var kept []vectorstore.DocumentWithScore

	for _, doc := range docs {
		rsp, err := c.options.Generator.Generate(ctx, generator.Request{
			System: compressionSystem,
			Messages: []generator.Message{
				{
					Role:    generator.RoleUser,
					Content: fmt.Sprintf(compressionTemplate, query, doc.Content),
				},
			},
		})
		if err != nil {
			kept = append(kept, doc)
			continue
		}

		extracted := strings.TrimSpace(rsp.Text)
		if len(extracted) == 0 || extracted == noOutput {
			continue
		}

		doc.Content = extracted
		kept = append(kept, doc)
	}

	return kept
}

func (c *knowledgeChain) answer(ctx context.Context, query string, history []generator.Message, docs []vectorstore.DocumentWithScore, onDelta func(text string)) (*generator.Response, error) {
	var evidence strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&evidence, "[%d] %s\n", i+1, doc.Content)
	}

	messages := make([]generator.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, generator.Message{
		Role:    generator.RoleUser,
		Content: fmt.Sprintf(answerTemplate, evidence.String(), query),
	})

	rsp, err := c.options.Generator.Stream(ctx, generator.Request{
		System:   answerSystem,
		Messages: messages,
		Tools:    c.options.Tools,
	}, onDelta)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return rsp, nil
}

func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

const noOutput = "NO_OUTPUT"

const expansionSystem = `You generate alternative search phrasings for a retrieval ` +
	`system. Respond with JSON only, in the form {"queries": ["...", "..."]}.`

const expansionTemplate = `Produce %d alternative search phrases for the query below. ` +
	`Vary wording and emphasis, not meaning.

Query: %s`

const compressionSystem = `You extract the parts of a document relevant to a query. ` +
	`Return only the relevant spans verbatim. If nothing is relevant, return ` + noOutput + `.`

const compressionTemplate = `Query: %s

Document:
%s`

const answerSystem = `Answer using only the provided evidence. If the evidence is ` +
	`insufficient, say you don't know rather than guessing.`

const answerTemplate = `Evidence:
%s
Question: %s`

func NewChain(opts ...Option) Chain {
	options := NewOptions(opts...)

	return &knowledgeChain{
		options: options,
	}
}
