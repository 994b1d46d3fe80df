package realtime

import (
	"errors"
	"sync"

	"github.com/rickgao/realtime-client/internal/config"
)

// ErrProviderClosed is returned by Get after Close.
var ErrProviderClosed = errors.New("realtime provider closed")

// Provider builds one Client on first use and returns it to every caller.
// Construction errors are cached too, so an unsupported runtime is reported
// the same way each time.
type Provider struct {
	build func() (*Client, error)

	once   sync.Once
	mu     sync.Mutex
	client *Client
	err    error
}

// NewProvider returns a Provider that builds its Client from cfg.
func NewProvider(cfg config.Config, opts ...Option) *Provider {
	return &Provider{
		build: func() (*Client, error) { return New(cfg, opts...) },
	}
}

// Get returns the shared Client, building it on the first call.
func (p *Provider) Get() (*Client, error) {
	p.once.Do(func() {
		client, err := p.build()
		p.mu.Lock()
		p.client, p.err = client, err
		p.mu.Unlock()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client, p.err
}

// Close tears down the shared Client, if one was built. Later calls to Get
// return ErrProviderClosed.
func (p *Provider) Close() {
	p.once.Do(func() {})

	p.mu.Lock()
	client := p.client
	p.client, p.err = nil, ErrProviderClosed
	p.mu.Unlock()

	if client != nil {
		client.Close()
	}
}
