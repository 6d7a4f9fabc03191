// Package relevance defines the context-provider contract and the
// aggregator that merges vector and graph relevance into a single
// context bundle for query augmentation.
package relevance

// RankedTable is a table scored against a natural-language query.
type RankedTable struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// VectorContext is the result of a vector-similarity lookup. A failed
// lookup sets Success false and Error; Tables is empty in that case.
type VectorContext struct {
	Tables  []RankedTable `json:"tables,omitempty"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

// RelationshipPath is a join path between two tables.
type RelationshipPath struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Via   []string `json:"via,omitempty"`
	Depth int      `json:"depth"`
}

// GraphContext is the result of a graph-relationship lookup.
type GraphContext struct {
	Adjacency map[string][]string `json:"adjacency,omitempty"`
	Paths     []RelationshipPath  `json:"paths,omitempty"`
	Success   bool                `json:"success"`
	Error     string              `json:"error,omitempty"`
}

// CombinedContext merges vector and graph relevance. Success means the
// bundle is usable for query augmentation; a single failed axis does
// not make the bundle unusable as long as the other axis succeeded.
type CombinedContext struct {
	Vector    VectorContext `json:"vector_context"`
	Graph     GraphContext  `json:"graph_context"`
	JoinOrder []string      `json:"join_order,omitempty"`
	Hints     []string      `json:"hints,omitempty"`
	Success   bool          `json:"success"`
}
