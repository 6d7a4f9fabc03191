package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querygate/querygate/pkg/node"
	"github.com/querygate/querygate/pkg/relevance"
)

// NodeName is the registry name of the data-analysis node.
const NodeName = "data-analysis"

// Service names hosted by the analysis node.
const (
	SchemaService     = "schema-analysis"
	VectorService     = "vector-analysis"
	GraphService      = "graph-analysis"
	AggregatorService = "context-aggregation"
)

// Deps are the collaborators the analysis node is built from.
type Deps struct {
	// Provider supplies vector and graph relevance. Required; use
	// relevance.NoopProvider when no backend is configured.
	Provider relevance.Provider
}

// NewNode assembles the data-analysis node.
func NewNode(deps Deps, cfg node.Config) (*node.Node, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("relevance provider is required")
	}

	n := node.New(NodeName, cfg)

	n.AddService(node.ServiceSpec{
		Name:  SchemaService,
		Build: func() (node.Handler, error) { return newSchemaHandler(), nil },
	})
	n.AddService(node.ServiceSpec{
		Name:  VectorService,
		Build: func() (node.Handler, error) { return vectorHandler(deps.Provider), nil },
	})
	n.AddService(node.ServiceSpec{
		Name:  GraphService,
		Build: func() (node.Handler, error) { return graphHandler(deps.Provider), nil },
	})
	n.AddService(node.ServiceSpec{
		Name:  AggregatorService,
		Build: func() (node.Handler, error) {
			return aggregatorHandler(relevance.NewAggregator(deps.Provider)), nil
		},
	})

	n.AddRoute(AnnounceExplorationKind, node.Route{
		Service: SchemaService,
		Validate: func(cmd node.Command) error {
			announce := cmd.(AnnounceExploration)
			if announce.ConnectionID == "" {
				return fmt.Errorf("connection id is required")
			}
			return nil
		},
	})
	n.AddRoute(GetSchemaKind, node.Route{
		Service: SchemaService,
		Validate: func(cmd node.Command) error {
			if cmd.(GetSchema).ConnectionID == "" {
				return fmt.Errorf("connection id is required")
			}
			return nil
		},
	})
	n.AddRoute(GetVectorContextKind, node.Route{
		Service:  VectorService,
		Validate: validateContextQuery,
	})
	n.AddRoute(GetGraphContextKind, node.Route{
		Service: GraphService,
		Validate: func(cmd node.Command) error {
			if cmd.(GetGraphContext).ConnectionID == "" {
				return fmt.Errorf("connection id is required")
			}
			return nil
		},
	})
	n.AddRoute(GetCombinedContextKind, node.Route{
		Service:  AggregatorService,
		Validate: validateContextQuery,
	})

	return n, nil
}

func validateContextQuery(cmd node.Command) error {
	switch c := cmd.(type) {
	case GetVectorContext:
		if c.Query == "" {
			return fmt.Errorf("query is required")
		}
		if c.ConnectionID == "" {
			return fmt.Errorf("connection id is required")
		}
	case GetCombinedContext:
		if c.Query == "" {
			return fmt.Errorf("query is required")
		}
		if c.ConnectionID == "" {
			return fmt.Errorf("connection id is required")
		}
	}
	return nil
}

// newSchemaHandler tracks announced explorations. State lives on the
// actor goroutine, so no locking is needed.
func newSchemaHandler() node.Handler {
	announced := make(map[string]SchemaInfo)

	return func(_ context.Context, cmd any) (any, error) {
		switch c := cmd.(type) {
		case AnnounceExploration:
			info := SchemaInfo{
				ConnectionID: c.ConnectionID,
				DatabaseType: c.Descriptor.Kind,
				Database:     c.Descriptor.Database,
				Host:         c.Descriptor.Host,
				AnnouncedAt:  time.Now().Unix(),
			}
			announced[c.ConnectionID] = info
			slog.Info("exploration announced",
				"connection_id", c.ConnectionID,
				"database_type", c.Descriptor.Kind)
			return info, nil

		case GetSchema:
			info, ok := announced[c.ConnectionID]
			if !ok {
				return nil, fmt.Errorf("connection %q has not been announced", c.ConnectionID)
			}
			return info, nil

		default:
			return nil, fmt.Errorf("%w: schema service cannot handle %T", node.ErrInvalidRequest, cmd)
		}
	}
}

func vectorHandler(provider relevance.Provider) node.Handler {
	return func(ctx context.Context, cmd any) (any, error) {
		c, ok := cmd.(GetVectorContext)
		if !ok {
			return nil, fmt.Errorf("%w: vector service cannot handle %T", node.ErrInvalidRequest, cmd)
		}
		return provider.GetVectorContext(ctx, c.Query, c.ConnectionID, c.UserID), nil
	}
}

func graphHandler(provider relevance.Provider) node.Handler {
	return func(ctx context.Context, cmd any) (any, error) {
		c, ok := cmd.(GetGraphContext)
		if !ok {
			return nil, fmt.Errorf("%w: graph service cannot handle %T", node.ErrInvalidRequest, cmd)
		}
		maxDepth := c.MaxDepth
		if maxDepth <= 0 {
			maxDepth = relevance.DefaultMaxDepth
		}
		return provider.GetGraphContext(ctx, c.ConnectionID, c.TableNames, maxDepth), nil
	}
}

func aggregatorHandler(agg *relevance.Aggregator) node.Handler {
	return func(ctx context.Context, cmd any) (any, error) {
		c, ok := cmd.(GetCombinedContext)
		if !ok {
			return nil, fmt.Errorf("%w: aggregation service cannot handle %T", node.ErrInvalidRequest, cmd)
		}
		return agg.GetCombinedContext(ctx, c.Query, c.ConnectionID, c.UserID), nil
	}
}
