package config

import "sync"

// Provider holds the active configuration and an optional staged
// reload. Games always run under the active config; a staged config is
// promoted only while the engine resets to warmup, never mid-game.
type Provider struct {
	mu     sync.RWMutex
	path   string
	active Config
	staged *Config
}

// NewProvider loads and validates the configuration at path.
func NewProvider(path string) (*Provider, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		path:   path,
		active: *cfg,
	}, nil
}

// Active returns the configuration games currently run under.
func (p *Provider) Active() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Stage re-reads and validates the config file, holding the result for
// the next game reset. An invalid file leaves the staged and active
// configs untouched.
func (p *Provider) Stage() error {
	cfg, err := Load(p.path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.staged = cfg
	p.mu.Unlock()
	return nil
}

// HasStaged reports whether a reload is waiting for the next reset.
func (p *Provider) HasStaged() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.staged != nil
}

// Promote makes any staged configuration active and returns the
// configuration the next game should run under.
func (p *Provider) Promote() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.staged != nil {
		p.active = *p.staged
		p.staged = nil
	}
	return p.active
}
