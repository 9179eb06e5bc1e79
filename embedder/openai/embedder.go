package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/berea-ai/berea/embedder"
	"github.com/sashabaranov/go-openai"
)

type openAIEmbedder struct {
	options embedder.Options
	client  *openai.Client
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vecs[0], nil
}

func (e *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.options.Model),
	}
	if e.options.Dimensions > 0 {
		req.Dimensions = e.options.Dimensions
	}

	rsp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(rsp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings from OpenAI but got %d", len(texts), len(rsp.Data))
	}

	vecs := make([][]float32, len(rsp.Data))
	for _, item := range rsp.Data {
		if len(item.Embedding) == 0 {
			return nil, errors.New("no response from OpenAI")
		}
		vecs[item.Index] = item.Embedding
	}

	return vecs, nil
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	e := &openAIEmbedder{
		options: options,
	}

	client := openai.NewClient(options.ApiKey)

	e.client = client

	return e
}
