package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth bounds graph traversal when the caller does not ask
// for a specific depth.
const DefaultMaxDepth = 2

// Aggregator merges vector and graph relevance from a Provider into a
// CombinedContext. Lookups run concurrently; a failure on one axis is
// recorded in that axis's sub-result and never aborts the other.
type Aggregator struct {
	provider Provider
	maxDepth int
}

// NewAggregator creates an aggregator over the given provider.
func NewAggregator(provider Provider) *Aggregator {
	return &Aggregator{provider: provider, maxDepth: DefaultMaxDepth}
}

// GetCombinedContext fans out vector and graph lookups and merges the
// results. The bundle succeeds if at least one axis succeeded.
func (a *Aggregator) GetCombinedContext(ctx context.Context, query, connectionID, userID string) CombinedContext {
	var (
		vector VectorContext
		graph  GraphContext
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector = a.provider.GetVectorContext(gctx, query, connectionID, userID)
		return nil
	})
	g.Go(func() error {
		graph = a.provider.GetGraphContext(gctx, connectionID, nil, a.maxDepth)
		return nil
	})
	// Goroutines report failures through their sub-results, never as
	// errors, so the sibling lookup always runs to completion.
	_ = g.Wait()

	combined := CombinedContext{
		Vector:  vector,
		Graph:   graph,
		Success: vector.Success || graph.Success,
	}

	if !vector.Success {
		slog.Warn("vector context lookup failed",
			"connection_id", connectionID, "error", vector.Error)
	}
	if !graph.Success {
		slog.Warn("graph context lookup failed",
			"connection_id", connectionID, "error", graph.Error)
	}

	combined.JoinOrder = joinOrder(vector, graph)
	combined.Hints = hints(vector, graph, combined.JoinOrder)
	return combined
}

// joinOrder ranks tables by vector score, then appends tables that the
// graph connects to the ranked set but the vector lookup missed.
func joinOrder(vector VectorContext, graph GraphContext) []string {
	ranked := make([]RankedTable, len(vector.Tables))
	copy(ranked, vector.Tables)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	seen := make(map[string]bool, len(ranked))
	var order []string
	for _, t := range ranked {
		if !seen[t.Name] {
			seen[t.Name] = true
			order = append(order, t.Name)
		}
	}

	if graph.Success {
		for _, base := range order {
			for _, neighbor := range graph.Adjacency[base] {
				if !seen[neighbor] {
					seen[neighbor] = true
					order = append(order, neighbor)
				}
			}
		}
	}

	return order
}

// hints renders human-readable join guidance from graph paths between
// tables that made it into the join order.
func hints(vector VectorContext, graph GraphContext, order []string) []string {
	var out []string

	if !vector.Success {
		out = append(out, "table ranking unavailable; join order is graph-derived only")
	}
	if !graph.Success {
		out = append(out, "relationship data unavailable; joins may need manual keys")
		return out
	}

	inOrder := make(map[string]bool, len(order))
	for _, name := range order {
		inOrder[name] = true
	}

	for _, path := range graph.Paths {
		if !inOrder[path.From] || !inOrder[path.To] {
			continue
		}
		if len(path.Via) == 0 {
			out = append(out, fmt.Sprintf("join %s directly to %s", path.From, path.To))
		} else {
			out = append(out, fmt.Sprintf("join %s to %s via %s",
				path.From, path.To, strings.Join(path.Via, ", ")))
		}
	}

	return out
}
