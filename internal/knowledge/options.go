package knowledge

import "time"

// DefaultTopK is the number of evidence chunks retrieved per query when not
// overridden.
const DefaultTopK = 3

// maxTopK bounds the per-query cutoff regardless of caller input.
const maxTopK = 10

// defaultSearchTimeout caps the combined embedding and vector search time
// for one retrieval.
const defaultSearchTimeout = 10 * time.Second

// SearchOption configures a retrieval using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int32
	sources []string
	timeout time.Duration
}

// WithTopK sets the top-N cutoff for a retrieval. Values outside [1, 10]
// fall back to the default.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k >= 1 && k <= maxTopK {
			c.topK = int32(k)
		}
	}
}

// WithSources restricts retrieval to evidence whose source_id is in the
// given set. An empty set means no restriction.
func WithSources(sourceIDs ...string) SearchOption {
	return func(c *searchConfig) {
		c.sources = sourceIDs
	}
}

// WithTimeout overrides the retrieval timeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    DefaultTopK,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
