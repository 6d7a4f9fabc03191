package platform

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/querygate/querygate/pkg/auth"
	"github.com/querygate/querygate/pkg/connection"
	"github.com/querygate/querygate/pkg/health"
	"github.com/querygate/querygate/pkg/llm"
	"github.com/querygate/querygate/pkg/node"
	"github.com/querygate/querygate/pkg/nodes/analysis"
	"github.com/querygate/querygate/pkg/nodes/core"
	"github.com/querygate/querygate/pkg/nodes/llmproc"
	"github.com/querygate/querygate/pkg/relevance"
	"github.com/querygate/querygate/pkg/session"
	"github.com/querygate/querygate/pkg/wiring"
)

// Platform owns the three subsystem nodes and the wiring between them.
// Start brings the nodes up concurrently, then injects the cross-node
// references; Stop tears everything down in reverse.
type Platform struct {
	cfg *Config

	lifecycle   *Lifecycle
	registry    *wiring.Registry
	coordinator *wiring.Coordinator

	coreNode     *node.Node
	analysisNode *node.Node
	llmNode      *node.Node

	sessions  *session.Manager
	directory *auth.Directory
	checker   *health.Checker
}

// New assembles a platform from configuration. Options inject concrete
// collaborators (stores, completers, providers) in place of the ones
// the configuration selects.
func New(cfg *Config, opts ...Option) (*Platform, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := resolveDefaults(cfg, &o); err != nil {
		return nil, err
	}

	directory, err := seedDirectory(cfg.Auth.Users)
	if err != nil {
		return nil, err
	}

	managerOpts := []session.ManagerOption{session.WithTTL(cfg.Session.TTL)}
	if o.tokenSource != nil {
		managerOpts = append(managerOpts, session.WithTokenSource(o.tokenSource))
	}
	sessions := session.NewManager(o.sessionStore, managerOpts...)

	nodeCfg := node.Config{AskTimeout: cfg.Server.AskTimeout}

	coreNode, err := core.NewNode(core.Deps{
		Directory:   directory,
		Sessions:    sessions,
		Connections: connection.NewManager(o.connStore, o.prober),
	}, nodeCfg)
	if err != nil {
		return nil, fmt.Errorf("building core node: %w", err)
	}

	analysisNode, err := analysis.NewNode(analysis.Deps{Provider: o.provider}, nodeCfg)
	if err != nil {
		return nil, fmt.Errorf("building analysis node: %w", err)
	}

	llmNode, err := llmproc.NewNode(llmproc.Deps{Completer: o.completer}, nodeCfg)
	if err != nil {
		return nil, fmt.Errorf("building llm node: %w", err)
	}

	registry := wiring.NewRegistry()
	for _, n := range []*node.Node{coreNode, analysisNode, llmNode} {
		if err := registry.Register(n); err != nil {
			return nil, err
		}
	}

	p := &Platform{
		cfg:          cfg,
		lifecycle:    NewLifecycle(),
		registry:     registry,
		coordinator:  wiring.NewCoordinator(registry, cfg.Wiring.RetryInterval),
		coreNode:     coreNode,
		analysisNode: analysisNode,
		llmNode:      llmNode,
		sessions:     sessions,
		directory:    directory,
		checker:      health.NewChecker(registry),
	}
	p.registerLifecycle()

	return p, nil
}

// resolveDefaults fills collaborators not supplied through options from
// the configuration.
func resolveDefaults(cfg *Config, o *options) error {
	if o.sessionStore == nil {
		if cfg.Session.Store != "memory" {
			return fmt.Errorf("session store %q must be constructed by the caller and injected with WithSessionStore", cfg.Session.Store)
		}
		o.sessionStore = session.NewMemoryStore()
	}

	if o.tokenSource == nil && cfg.Auth.SigningKey != "" {
		issuer := cfg.Auth.TokenIssuer
		if issuer == "" {
			issuer = cfg.Server.Name
		}
		src, err := auth.NewJWTSource(issuer, []byte(cfg.Auth.SigningKey))
		if err != nil {
			return fmt.Errorf("building token source: %w", err)
		}
		o.tokenSource = src
	}

	if o.completer == nil {
		switch cfg.LLM.Provider {
		case "anthropic":
			c, err := llm.NewAnthropicFromAPIKey(cfg.LLM.APIKey, llm.AnthropicOptions{
				Model:     cfg.LLM.Model,
				MaxTokens: cfg.LLM.MaxTokens,
			})
			if err != nil {
				return fmt.Errorf("building anthropic completer: %w", err)
			}
			o.completer = c
		default:
			o.completer = llm.NoopCompleter{}
		}
	}

	if o.provider == nil {
		o.provider = relevance.NoopProvider{}
	}
	if o.prober == nil {
		o.prober = connection.NewDriverProber()
	}
	if o.connStore == nil {
		o.connStore = connection.NewMemoryStore()
	}
	return nil
}

// seedDirectory creates the configured user accounts.
func seedDirectory(users []SeedUser) (*auth.Directory, error) {
	directory := auth.NewDirectory()
	for _, u := range users {
		role := auth.Role(u.Role)
		if u.Role == "" {
			role = auth.RoleUser
		}
		if _, err := directory.AddUser(u.Username, u.Password, role); err != nil {
			return nil, fmt.Errorf("seeding user %q: %w", u.Username, err)
		}
	}
	return directory, nil
}

// registerLifecycle wires the startup and shutdown sequence: nodes up
// concurrently, cross-node references injected, session cleanup running.
func (p *Platform) registerLifecycle() {
	nodes := []*node.Node{p.coreNode, p.analysisNode, p.llmNode}

	p.lifecycle.Register(
		func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			for _, n := range nodes {
				g.Go(func() error { return n.Start(ctx) })
			}
			return g.Wait()
		},
		func(ctx context.Context) error {
			// Reverse of start: the llm node goes first so nothing is
			// still calling into core or analysis.
			for i := len(nodes) - 1; i >= 0; i-- {
				if err := nodes[i].Stop(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	)

	p.lifecycle.OnStart(func(ctx context.Context) error {
		if err := p.coordinator.WireAll(ctx, p.wiringSpecs()); err != nil {
			return err
		}
		p.checker.SetReady()
		return nil
	})

	p.lifecycle.Register(
		func(_ context.Context) error {
			p.sessions.StartCleanup(p.cfg.Session.CleanupInterval)
			return nil
		},
		func(_ context.Context) error {
			return p.sessions.Close()
		},
	)

	// Registered last so it runs first on Stop: the platform reports
	// draining before anything begins to shut down.
	p.lifecycle.OnStop(func(_ context.Context) error {
		p.checker.SetDraining()
		return nil
	})
}

// wiringSpecs declares every cross-node reference the platform needs.
func (p *Platform) wiringSpecs() []wiring.Spec {
	return []wiring.Spec{
		{
			Source:  wiring.Endpoint{Node: core.NodeName, Service: core.DBService},
			RefName: analysis.SchemaService,
			Target:  wiring.Endpoint{Node: analysis.NodeName, Service: analysis.SchemaService},
		},
		{
			Source:  wiring.Endpoint{Node: llmproc.NodeName, Service: llmproc.OrchestratorService},
			RefName: llmproc.SessionRefName,
			Target:  wiring.Endpoint{Node: core.NodeName, Service: core.SessionService},
		},
		{
			Source:  wiring.Endpoint{Node: llmproc.NodeName, Service: llmproc.OrchestratorService},
			RefName: llmproc.ContextRefName,
			Target:  wiring.Endpoint{Node: analysis.NodeName, Service: analysis.AggregatorService},
		},
	}
}

// Start brings the platform up. On failure, components already started
// are rolled back.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return err
	}
	slog.Info("platform started",
		"name", p.cfg.Server.Name,
		"version", p.cfg.Server.Version,
		"session_store", p.cfg.Session.Store,
		"llm_provider", p.cfg.LLM.Provider)
	return nil
}

// Stop tears the platform down in reverse start order.
func (p *Platform) Stop(ctx context.Context) error {
	err := p.lifecycle.Stop(ctx)
	slog.Info("platform stopped", "name", p.cfg.Server.Name)
	return err
}

// CoreNode returns the core-services node.
func (p *Platform) CoreNode() *node.Node { return p.coreNode }

// AnalysisNode returns the data-analysis node.
func (p *Platform) AnalysisNode() *node.Node { return p.analysisNode }

// LLMNode returns the LLM-processing node.
func (p *Platform) LLMNode() *node.Node { return p.llmNode }

// Sessions returns the session lifecycle manager.
func (p *Platform) Sessions() *session.Manager { return p.sessions }

// Directory returns the user directory.
func (p *Platform) Directory() *auth.Directory { return p.directory }

// Health returns the readiness checker over the registered nodes.
func (p *Platform) Health() *health.Checker { return p.checker }
