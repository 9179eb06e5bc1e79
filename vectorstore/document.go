package vectorstore

// Document is one embedded unit of corpus content. Embedding may be empty on
// the way into a store, in which case the store embeds it, but its length is
// fixed per store configuration once set.
type Document struct {
	Id        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// DocumentWithScore pairs a document with its distance from a query vector.
// Lower distance means higher relevance.
type DocumentWithScore struct {
	Document
	Distance float32 `json:"distance"`
	Metric   string  `json:"distance_metric"`
}

const MetricCosine = "cosine"
