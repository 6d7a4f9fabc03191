package llmproc

import (
	"context"
	"fmt"
	"time"

	"github.com/querygate/querygate/pkg/llm"
	"github.com/querygate/querygate/pkg/node"
	"github.com/querygate/querygate/pkg/nodes/analysis"
	"github.com/querygate/querygate/pkg/nodes/core"
	"github.com/querygate/querygate/pkg/relevance"
	"github.com/querygate/querygate/pkg/session"
)

// NodeName is the registry name of the LLM-processing node.
const NodeName = "llm-processing"

// OrchestratorService is the service name hosting query orchestration.
const OrchestratorService = "query-orchestration"

// Reference names the orchestrator expects to be wired with.
const (
	SessionRefName = core.SessionService
	ContextRefName = analysis.AggregatorService
)

// Deps are the collaborators the LLM node is built from.
type Deps struct {
	// Completer turns prompts into completions. Required; use
	// llm.NoopCompleter when no provider is configured.
	Completer llm.Completer
}

// NewNode assembles the LLM-processing node.
func NewNode(deps Deps, cfg node.Config) (*node.Node, error) {
	if deps.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}

	askTimeout := cfg.AskTimeout
	if askTimeout <= 0 {
		askTimeout = 10 * time.Second
	}

	n := node.New(NodeName, cfg)

	n.AddService(node.ServiceSpec{
		Name:  OrchestratorService,
		Build: func() (node.Handler, error) { return orchestratorHandler(deps.Completer, askTimeout), nil },
	})

	n.AddRoute(ProcessQueryKind, node.Route{
		Service: OrchestratorService,
		Validate: func(cmd node.Command) error {
			q := cmd.(ProcessQuery)
			if q.SessionID == "" {
				return fmt.Errorf("sessionId is required")
			}
			if q.ConnectionID == "" {
				return fmt.Errorf("connection id is required")
			}
			if q.Question == "" {
				return fmt.Errorf("question is required")
			}
			return nil
		},
		Translate: translateQuery,
	})

	return n, nil
}

// orchestratorHandler validates the session through the wired session
// reference, gathers relevance context through the wired aggregation
// reference, and renders a completion into SQL.
func orchestratorHandler(completer llm.Completer, askTimeout time.Duration) node.Handler {
	refs := node.NewRefSet()

	return func(ctx context.Context, cmd any) (any, error) {
		switch c := cmd.(type) {
		case node.SetReference:
			refs.Set(c.Name, c.Ref)
			return nil, nil //nolint:nilnil // wiring has no payload

		case ProcessQuery:
			return processQuery(ctx, refs, completer, c, askTimeout)

		default:
			return nil, fmt.Errorf("%w: query orchestration cannot handle %T", node.ErrInvalidRequest, cmd)
		}
	}
}

func processQuery(ctx context.Context, refs *node.RefSet, completer llm.Completer, q ProcessQuery, askTimeout time.Duration) (QueryResult, error) {
	userID, err := validateSession(ctx, refs, q.SessionID, askTimeout)
	if err != nil {
		return QueryResult{}, err
	}

	cctx, err := fetchContext(ctx, refs, q, userID, askTimeout)
	if err != nil {
		return QueryResult{}, err
	}

	prompt := llm.BuildQueryPrompt(q.Question, cctx)
	completion, err := completer.Complete(ctx, llm.Request{
		System: llm.QuerySystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		return QueryResult{}, fmt.Errorf("generating query: %w", err)
	}

	sql, explanation := llm.ParseCompletion(completion)
	return QueryResult{
		Success:     true,
		SQL:         sql,
		Explanation: explanation,
		Context:     cctx,
		Message:     "query generated",
	}, nil
}

// validateSession asks the wired session service to validate the
// session and returns the owning user id.
func validateSession(ctx context.Context, refs *node.RefSet, sessionID string, askTimeout time.Duration) (string, error) {
	sessionRef, err := refs.Get(SessionRefName)
	if err != nil {
		return "", fmt.Errorf("%w: session service not wired", node.ErrDependencyUnavailable)
	}

	rep, err := sessionRef.Ask(ctx, core.ValidateSession{SessionID: sessionID}, askTimeout)
	if err != nil {
		return "", fmt.Errorf("validating session: %w", err)
	}
	if !rep.OK {
		return "", fmt.Errorf("session rejected: %s", rep.Message)
	}

	// The session actor replies with its native payload; translation to
	// SessionResult only happens on the core node's supervisor path.
	if sess, ok := rep.Payload.(*session.Session); ok {
		return sess.UserID, nil
	}
	return "", nil
}

// fetchContext asks the wired aggregation service for merged relevance
// context. A degraded context (both axes failed) is still usable for
// prompting; only transport failures abort the query.
func fetchContext(ctx context.Context, refs *node.RefSet, q ProcessQuery, userID string, askTimeout time.Duration) (relevance.CombinedContext, error) {
	contextRef, err := refs.Get(ContextRefName)
	if err != nil {
		return relevance.CombinedContext{}, fmt.Errorf("%w: context aggregation not wired", node.ErrDependencyUnavailable)
	}

	rep, err := contextRef.Ask(ctx, analysis.GetCombinedContext{
		Query:        q.Question,
		ConnectionID: q.ConnectionID,
		UserID:       userID,
	}, askTimeout)
	if err != nil {
		return relevance.CombinedContext{}, fmt.Errorf("fetching context: %w", err)
	}
	if !rep.OK {
		return relevance.CombinedContext{}, fmt.Errorf("fetching context: %s", rep.Message)
	}

	cctx, ok := rep.Payload.(relevance.CombinedContext)
	if !ok {
		return relevance.CombinedContext{}, fmt.Errorf("unexpected context payload %T", rep.Payload)
	}
	return cctx, nil
}
