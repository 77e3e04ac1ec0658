package transport

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Pool is a registry of pooled HTTP sessions keyed by remote origin.
//
// The first use per origin pays connection-establishment cost; subsequent
// uses reuse the existing keep-alive session. Insertion is guarded by a
// mutex so concurrent first use for the same origin cannot create duplicate
// sessions.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewPool creates an empty session pool.
func NewPool() *Pool {
	return &Pool{clients: make(map[string]*http.Client)}
}

// DefaultPool is the process-wide session pool shared by clients that do not
// inject their own. Tests tear it down with ResetPool.
var DefaultPool = NewPool()

// ResetPool forcibly closes and clears all sessions in the default pool.
// Intended for test teardown.
func ResetPool() {
	DefaultPool.Reset()
}

// Get returns the pooled session for origin, creating it on first use.
func (p *Pool) Get(origin string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[origin]; ok {
		return client
	}

	client := &http.Client{Transport: newPooledTransport()}
	p.clients[origin] = client
	return client
}

// Reset forcibly closes idle connections of all pooled sessions and clears
// the registry. In-flight requests on a removed session complete normally.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, client := range p.clients {
		client.CloseIdleConnections()
	}
	p.clients = make(map[string]*http.Client)
}

// Len returns the number of pooled sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// newPooledTransport builds an HTTP transport tuned for a single remote
// origin reused across many logical requests. Per-request deadlines come
// from the request context, not from here.
func newPooledTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}
