// Package llmproc assembles the LLM-processing node, which turns
// natural-language questions into SQL using session validation, merged
// relevance context, and a prompt-to-completion backend.
package llmproc

import (
	"github.com/querygate/querygate/pkg/node"
	"github.com/querygate/querygate/pkg/relevance"
)

// ProcessQueryKind is the command kind for query orchestration.
const ProcessQueryKind = "process-query"

// ProcessQuery asks the node to translate a natural-language question
// into SQL for the given connection, on behalf of a session.
type ProcessQuery struct {
	SessionID    string
	ConnectionID string
	Question     string
}

func (ProcessQuery) Kind() string { return ProcessQueryKind }

// QueryResult is the external reply payload for ProcessQuery.
type QueryResult struct {
	Success     bool
	SQL         string
	Explanation string
	Context     relevance.CombinedContext
	Message     string
}

// QueryResultFrom extracts the QueryResult from a reply, mapping
// replies that never reached the orchestrator onto a failed result.
func QueryResultFrom(rep node.Reply) QueryResult {
	if res, ok := rep.Payload.(QueryResult); ok {
		return res
	}
	return QueryResult{Success: rep.OK, Message: rep.Message}
}

func translateQuery(rep node.Reply) node.Reply {
	if res, ok := rep.Payload.(QueryResult); ok {
		rep.Payload = res
		return rep
	}
	rep.Payload = QueryResult{Success: rep.OK, Message: rep.Message}
	return rep
}
