package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/berea-ai/berea/generator"
)

// mockGenerator replays a scripted queue of responses and records every
// request it sees. Intended for chain and orchestrator tests.
type mockGenerator struct {
	queue    []*generator.Response
	requests []generator.Request
	err      error
	mtx      sync.Mutex
}

func (g *mockGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Response, error) {
	return g.next(req, nil)
}

func (g *mockGenerator) Stream(ctx context.Context, req generator.Request, onDelta func(text string)) (*generator.Response, error) {
	return g.next(req, onDelta)
}

func (g *mockGenerator) next(req generator.Request, onDelta func(text string)) (*generator.Response, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.requests = append(g.requests, req)

	if g.err != nil {
		return nil, g.err
	}

	if len(g.queue) == 0 {
		return nil, errors.New("mock generator has no scripted responses left")
	}

	rsp := g.queue[0]
	g.queue = g.queue[1:]

	if onDelta != nil && len(rsp.Text) > 0 {
		onDelta(rsp.Text)
	}

	return rsp, nil
}

// Requests returns a copy of every request seen so far.
func (g *mockGenerator) Requests() []generator.Request {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	copied := make([]generator.Request, len(g.requests))
	copy(copied, g.requests)
	return copied
}

type Generator struct {
	*mockGenerator
}

func NewGenerator(responses ...*generator.Response) *Generator {
	return &Generator{&mockGenerator{queue: responses}}
}

func NewFailingGenerator(err error) *Generator {
	return &Generator{&mockGenerator{err: err}}
}

// Enqueue appends further scripted responses.
func (g *Generator) Enqueue(responses ...*generator.Response) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.queue = append(g.queue, responses...)
}
