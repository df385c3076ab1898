package chainspec

import "fmt"

// UnknownChainError reports a chain id without a registered fork schedule.
type UnknownChainError struct {
	ChainID uint64
}

func (e *UnknownChainError) Error() string {
	return fmt.Sprintf("chainspec: unknown chain id %d", e.ChainID)
}

// Provider hands out execution-environment configurations keyed by chain
// id. It is immutable after construction; concurrent verification runs
// share one Provider without locking.
type Provider struct {
	chains map[uint64]*Config
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// WithChain registers (or replaces) the schedule for cfg.ChainID.
func WithChain(cfg *Config) Option {
	return func(p *Provider) {
		p.chains[cfg.ChainID] = cfg.Copy()
	}
}

// WithForkOverride forces fork f active from genesis on every registered
// chain, disabling later forks. Applied after all WithChain options.
func WithForkOverride(f Fork) Option {
	return func(p *Provider) {
		for id, cfg := range p.chains {
			p.chains[id] = applyOverride(cfg, f)
		}
	}
}

// NewProvider builds a provider over the well-known chains plus any
// options. Options apply in order.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{chains: map[uint64]*Config{
		MainnetChainID: MainnetConfig(),
		SepoliaChainID: SepoliaConfig(),
		DevChainID:     DevConfig(),
	}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ConfigFor returns the configuration governing the block at the given
// number and timestamp on chainID. Unknown chains are an error, never a
// default schedule.
func (p *Provider) ConfigFor(chainID, number, time uint64) (*Config, error) {
	cfg, ok := p.chains[chainID]
	if !ok {
		return nil, &UnknownChainError{ChainID: chainID}
	}
	return cfg, nil
}
