// Package analysis assembles the data-analysis node: schema tracking
// for announced explorations plus vector, graph, and combined relevance
// context services.
package analysis

import (
	"github.com/querygate/querygate/pkg/connection"
)

// Command kinds accepted by the analysis node.
const (
	AnnounceExplorationKind = "announce-exploration"
	GetSchemaKind           = "get-schema"
	GetVectorContextKind    = "get-vector-context"
	GetGraphContextKind     = "get-graph-context"
	GetCombinedContextKind  = "get-combined-context"
)

// AnnounceExploration tells the analysis node that a connection is now
// open for exploration. Sent by the core node's db-communication
// service over the wired cross-node reference.
type AnnounceExploration struct {
	ConnectionID string
	Descriptor   connection.Descriptor
}

func (AnnounceExploration) Kind() string { return AnnounceExplorationKind }

// GetSchema returns what the node knows about an announced connection.
type GetSchema struct {
	ConnectionID string
}

func (GetSchema) Kind() string { return GetSchemaKind }

// GetVectorContext ranks tables against a natural-language query.
type GetVectorContext struct {
	Query        string
	ConnectionID string
	UserID       string
}

func (GetVectorContext) Kind() string { return GetVectorContextKind }

// GetGraphContext returns relationship structure around the given tables.
type GetGraphContext struct {
	ConnectionID string
	TableNames   []string
	MaxDepth     int
}

func (GetGraphContext) Kind() string { return GetGraphContextKind }

// GetCombinedContext merges vector and graph relevance for a query.
type GetCombinedContext struct {
	Query        string
	ConnectionID string
	UserID       string
}

func (GetCombinedContext) Kind() string { return GetCombinedContextKind }

// SchemaInfo is what the schema service records per announced connection.
type SchemaInfo struct {
	ConnectionID string
	DatabaseType connection.Kind
	Database     string
	Host         string
	AnnouncedAt  int64
}
