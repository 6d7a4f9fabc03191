package platform

import (
	"github.com/querygate/querygate/pkg/connection"
	"github.com/querygate/querygate/pkg/llm"
	"github.com/querygate/querygate/pkg/relevance"
	"github.com/querygate/querygate/pkg/session"
)

// Option overrides a platform collaborator that would otherwise be
// built from configuration.
type Option func(*options)

type options struct {
	sessionStore session.Store
	tokenSource  session.TokenSource
	completer    llm.Completer
	provider     relevance.Provider
	prober       connection.Prober
	connStore    connection.Store
}

// WithSessionStore injects a session store, bypassing the configured
// store selection.
func WithSessionStore(store session.Store) Option {
	return func(o *options) { o.sessionStore = store }
}

// WithTokenSource injects the refresh-token source.
func WithTokenSource(src session.TokenSource) Option {
	return func(o *options) { o.tokenSource = src }
}

// WithCompleter injects the LLM completion backend.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithProvider injects the relevance context provider.
func WithProvider(p relevance.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithProber injects the database reachability prober.
func WithProber(p connection.Prober) Option {
	return func(o *options) { o.prober = p }
}

// WithConnectionStore injects the connection descriptor store.
func WithConnectionStore(store connection.Store) Option {
	return func(o *options) { o.connStore = store }
}
