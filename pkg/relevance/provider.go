package relevance

import "context"

// Provider supplies relevance context for a connection under
// exploration. Implementations must be safe for concurrent calls; the
// aggregator issues vector and graph lookups in parallel.
type Provider interface {
	// GetVectorContext ranks tables against a natural-language query.
	GetVectorContext(ctx context.Context, query, connectionID, userID string) VectorContext

	// GetGraphContext returns relationship structure around the given
	// tables up to maxDepth hops.
	GetGraphContext(ctx context.Context, connectionID string, tableNames []string, maxDepth int) GraphContext
}

// NoopProvider returns empty successful context. It stands in where no
// analysis backend is configured.
type NoopProvider struct{}

var _ Provider = NoopProvider{}

func (NoopProvider) GetVectorContext(context.Context, string, string, string) VectorContext {
	return VectorContext{Success: true}
}

func (NoopProvider) GetGraphContext(context.Context, string, []string, int) GraphContext {
	return GraphContext{Success: true}
}
