package mesh

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Discovery maps logical services to the URLs they are currently served on.
// Entries come from static configuration or from the Directory service;
// once a non-empty URL list is known for a service it is kept for the
// lifetime of the process unless explicitly replaced or invalidated.
type Discovery struct {
	mu   sync.RWMutex
	urls map[ServiceType][]string

	// lookup queries the Directory service; set by the owning Client.
	lookup func(ctx context.Context, service ServiceType) ([]string, error)

	logger *zap.Logger
}

func newDiscovery() *Discovery {
	return &Discovery{
		urls:   make(map[ServiceType][]string),
		logger: zap.NewNop(),
	}
}

// Resolve returns the URLs for service. Locally known URLs win; otherwise
// the Directory is queried and a non-empty result is cached. An empty result
// is valid and is returned uncached, so a service that registers later is
// found on a subsequent call. Failures are never cached.
func (d *Discovery) Resolve(ctx context.Context, service ServiceType) ([]string, error) {
	d.mu.RLock()
	urls, ok := d.urls[service]
	d.mu.RUnlock()
	if ok && len(urls) > 0 {
		recordDiscoveryLookup(service, "local")
		return append([]string(nil), urls...), nil
	}

	// The Directory cannot be asked where the Directory is.
	if service == ServiceDirectory {
		return nil, fmt.Errorf("resolve %s: %w", service, ErrNoKnownURL)
	}
	if d.lookup == nil {
		return nil, fmt.Errorf("resolve %s: no directory lookup configured", service)
	}

	found, err := d.lookup(ctx, service)
	if err != nil {
		recordDiscoveryLookup(service, "error")
		return nil, fmt.Errorf("resolve %s: %w", service, err)
	}
	recordDiscoveryLookup(service, "directory")

	if len(found) > 0 {
		d.mu.Lock()
		d.urls[service] = append([]string(nil), found...)
		d.mu.Unlock()
		d.logger.Debug("discovered service",
			zap.Stringer("service", service),
			zap.Strings("urls", found),
		)
	}
	return found, nil
}

// SetServiceURL replaces the URL list for service with the single given URL.
func (d *Discovery) SetServiceURL(service ServiceType, url string) {
	d.mu.Lock()
	d.urls[service] = []string{url}
	d.mu.Unlock()
}

// AddServiceURL appends a URL to the list for service.
func (d *Discovery) AddServiceURL(service ServiceType, url string) {
	d.mu.Lock()
	d.urls[service] = append(d.urls[service], url)
	d.mu.Unlock()
}

// Invalidate forgets the URL list for service, forcing the next Resolve to
// query the Directory again.
func (d *Discovery) Invalidate(service ServiceType) {
	d.mu.Lock()
	delete(d.urls, service)
	d.mu.Unlock()
}

// Known returns a snapshot of every locally known service URL list.
func (d *Discovery) Known() map[ServiceType][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[ServiceType][]string, len(d.urls))
	for s, u := range d.urls {
		out[s] = append([]string(nil), u...)
	}
	return out
}
