package oauth

import (
	"sort"

	"OAuthDropins/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// Registry manages flows for the supported providers.
type Registry struct {
	flows  map[string]Flow
	logger *log.Helper
}

// NewRegistry creates a registry holding the given flows.
func NewRegistry(logger log.Logger, flows ...Flow) *Registry {
	r := &Registry{
		flows:  make(map[string]Flow),
		logger: log.NewHelper(logger),
	}
	for _, f := range flows {
		r.Register(f)
	}
	return r
}

// NewDefaultRegistry registers every built-in flow.
func NewDefaultRegistry(reddit *biz.RedditFlow, logger log.Logger) *Registry {
	return NewRegistry(logger, reddit)
}

// Register registers a flow under its provider name, replacing any earlier one.
func (r *Registry) Register(flow Flow) {
	r.flows[flow.Provider()] = flow
	r.logger.Infof("Registered OAuth flow for provider: %s", flow.Provider())
}

// Get returns the flow for provider.
func (r *Registry) Get(provider string) (Flow, error) {
	flow, ok := r.flows[provider]
	if !ok {
		return nil, biz.ErrorProviderNotFound(provider)
	}
	return flow, nil
}

// Flows returns every registered flow ordered by provider name.
func (r *Registry) Flows() []Flow {
	flows := make([]Flow, 0, len(r.flows))
	for _, f := range r.flows {
		flows = append(flows, f)
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].Provider() < flows[j].Provider() })
	return flows
}
