package timeweighted

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/berea-ai/berea/retriever"
	getsafe "github.com/berea-ai/berea/util/get_safe"
	"github.com/berea-ai/berea/vectorstore"
)

// timeWeightedRetriever keeps one backing vector store with two access
// patterns over it: by recency through the append-only stream index, and by
// similarity through the store itself. Documents are not duplicated; the
// stream records point at the same metadata written through to the store.
type timeWeightedRetriever struct {
	options retriever.Options
	stream  []*retriever.MemoryRecord
	mtx     sync.Mutex
}

func (r *timeWeightedRetriever) AddDocuments(ctx context.Context, docs []vectorstore.Document) error {
	r.mtx.Lock()

	now := r.options.Now()
	records := make([]*retriever.MemoryRecord, 0, len(docs))
	stored := make([]vectorstore.Document, 0, len(docs))

	for _, doc := range docs {
		idx := len(r.stream) + len(records)

		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		doc.Metadata[retriever.BufferIndexKey] = idx

		records = append(records, &retriever.MemoryRecord{
			Document:       doc,
			CreatedAt:      now,
			LastAccessedAt: now,
			BufferIndex:    idx,
		})
		stored = append(stored, doc)
	}

	r.stream = append(r.stream, records...)
	r.mtx.Unlock()

	return r.options.Store.AddDocuments(ctx, stored)
}

func (r *timeWeightedRetriever) Retrieve(ctx context.Context, query string) ([]*retriever.MemoryRecord, error) {
	r.mtx.Lock()
	streamLen := len(r.stream)
	r.mtx.Unlock()

	if streamLen == 0 {
		return nil, nil
	}

	// Relevance per buffer index. The K most recent records enter at the
	// default salience; similarity hits override with their real score.
	relevance := map[int]float64{}

	start := max(streamLen-r.options.K, 0)
	for idx := start; idx < streamLen; idx++ {
		relevance[idx] = r.options.DefaultSalience
	}

	hits, err := r.options.Store.SearchDocuments(
		ctx,
		query,
		vectorstore.WithLimit(streamLen),
		vectorstore.WithMetadata(),
	)
	if err != nil {
		return nil, err
	}

	for _, hit := range hits {
		idx, err := bufferIndex(hit.Metadata)
		if err != nil {
			return nil, fmt.Errorf("memory record %s: %w", hit.Id, err)
		}
		relevance[idx] = 1.0 - float64(hit.Distance)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	now := r.options.Now()

	type scored struct {
		record *retriever.MemoryRecord
		score  float64
	}

	candidates := make([]scored, 0, len(relevance))
	for idx, rel := range relevance {
		if idx < 0 || idx >= len(r.stream) {
			return nil, fmt.Errorf("buffer index %d out of range", idx)
		}

		record := r.stream[idx]
		hours := now.Sub(record.LastAccessedAt).Hours()

		candidates = append(candidates, scored{
			record: record,
			score:  combinedScore(r.options.DecayRate, hours, rel, r.otherScores(record)),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > r.options.K {
		candidates = candidates[:r.options.K]
	}

	// Recall resets the effective age of the selected records only.
	selected := make([]*retriever.MemoryRecord, 0, len(candidates))
	for _, cand := range candidates {
		cand.record.LastAccessedAt = now
		selected = append(selected, cand.record)
	}

	return selected, nil
}

func (r *timeWeightedRetriever) otherScores(record *retriever.MemoryRecord) float64 {
	var sum float64
	for _, key := range r.options.OtherScoreKeys {
		sum += getsafe.Float(record.Metadata, key)
	}
	return sum
}

// combinedScore is exponential recency decay plus the additive relevance
// terms. Decay is independent of relevance, so a recently accessed record
// resists fading even when its similarity is middling.
func combinedScore(decayRate, hoursSinceAccess, relevance, other float64) float64 {
	if hoursSinceAccess < 0 {
		hoursSinceAccess = 0
	}
	return math.Pow(1.0-decayRate, hoursSinceAccess) + relevance + other
}

func bufferIndex(meta map[string]any) (int, error) {
	raw, ok := meta[retriever.BufferIndexKey]
	if !ok {
		return 0, fmt.Errorf("missing %s metadata", retriever.BufferIndexKey)
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		idx, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("malformed %s metadata: %w", retriever.BufferIndexKey, err)
		}
		return idx, nil
	default:
		return 0, fmt.Errorf("malformed %s metadata of type %T", retriever.BufferIndexKey, raw)
	}
}

func NewRetriever(opts ...retriever.Option) retriever.Retriever {
	options := retriever.NewOptions(opts...)

	r := &timeWeightedRetriever{
		options: options,
		stream:  []*retriever.MemoryRecord{},
		mtx:     sync.Mutex{},
	}

	return r
}
