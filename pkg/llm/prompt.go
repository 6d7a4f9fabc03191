package llm

import (
	"fmt"
	"strings"

	"github.com/querygate/querygate/pkg/relevance"
)

// QuerySystemPrompt establishes the model's role for SQL generation.
const QuerySystemPrompt = "You are a SQL generation assistant. Given a natural-language " +
	"question and relevance context about the target database, respond with a single " +
	"SQL query in a ```sql fenced block followed by a short explanation. Only reference " +
	"tables named in the context."

// BuildQueryPrompt renders a SQL-generation prompt from the user's
// question and the merged relevance context.
func BuildQueryPrompt(question string, cctx relevance.CombinedContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n\n", question)

	if cctx.Vector.Success && len(cctx.Vector.Tables) > 0 {
		b.WriteString("Relevant tables (ranked):\n")
		for _, t := range cctx.Vector.Tables {
			fmt.Fprintf(&b, "- %s (score %.2f)", t.Name, t.Score)
			if t.Reason != "" {
				fmt.Fprintf(&b, ": %s", t.Reason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if cctx.Graph.Success && len(cctx.Graph.Paths) > 0 {
		b.WriteString("Table relationships:\n")
		for _, p := range cctx.Graph.Paths {
			if len(p.Via) > 0 {
				fmt.Fprintf(&b, "- %s -> %s via %s\n", p.From, p.To, strings.Join(p.Via, ", "))
			} else {
				fmt.Fprintf(&b, "- %s -> %s\n", p.From, p.To)
			}
		}
		b.WriteString("\n")
	}

	if len(cctx.JoinOrder) > 0 {
		fmt.Fprintf(&b, "Suggested join order: %s\n", strings.Join(cctx.JoinOrder, ", "))
	}
	for _, hint := range cctx.Hints {
		fmt.Fprintf(&b, "Hint: %s\n", hint)
	}

	return b.String()
}

// ParseCompletion splits a completion into the SQL statement and the
// surrounding explanation. SQL is taken from the first ```sql fenced
// block; when no fence is present the whole completion is treated as
// SQL with no explanation.
func ParseCompletion(completion string) (sql, explanation string) {
	const fence = "```sql"

	start := strings.Index(completion, fence)
	if start < 0 {
		return strings.TrimSpace(completion), ""
	}

	rest := completion[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest), strings.TrimSpace(completion[:start])
	}

	sql = strings.TrimSpace(rest[:end])
	explanation = strings.TrimSpace(completion[:start] + rest[end+3:])
	return sql, explanation
}
