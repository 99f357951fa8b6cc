package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Directory is the interface to the Directory service, the mesh's registry
// of which URLs currently provide which services.
type Directory struct {
	c *Client
}

// ServiceProvider is one Directory advertisement for a service. Either
// field may be absent; an advertisement without a URL is unusable for
// discovery and is filtered out by ServiceURLs.
type ServiceProvider struct {
	Device *uuid.UUID `json:"device,omitempty"`
	URL    *string    `json:"url,omitempty"`
}

// ServiceURLs returns the URLs currently advertised for service.
func (d *Directory) ServiceURLs(ctx context.Context, service ServiceType) ([]string, error) {
	return d.ServiceURLsByID(ctx, service.UUID())
}

// ServiceURLsByID is ServiceURLs for a raw service identifier, for services
// outside the fixed ServiceType enumeration. An unknown service yields an
// empty list, not an error.
func (d *Directory) ServiceURLsByID(ctx context.Context, service uuid.UUID) ([]string, error) {
	resp, err := d.c.Fetch(ctx, Request{
		Service: ServiceDirectory,
		Path:    "/v1/service/" + service.String(),
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Status == http.StatusNotFound:
		return nil, nil
	case !resp.OK():
		return nil, &ServiceError{
			Service: ServiceDirectory,
			Status:  resp.Status,
			Message: fmt.Sprintf("look up service %s", service),
		}
	}

	var providers []ServiceProvider
	if err := json.Unmarshal(resp.Body, &providers); err != nil {
		return nil, fmt.Errorf("decode service providers: %w", err)
	}

	urls := make([]string, 0, len(providers))
	for _, p := range providers {
		if p.URL != nil && *p.URL != "" {
			urls = append(urls, *p.URL)
		}
	}
	return urls, nil
}

// Advertise registers serviceURL as a provider of service in the Directory,
// replacing this principal's previous advertisement for it.
func (d *Directory) Advertise(ctx context.Context, service uuid.UUID, serviceURL string) error {
	body, err := json.Marshal(map[string]string{"url": serviceURL})
	if err != nil {
		return fmt.Errorf("encode advertisement: %w", err)
	}

	resp, err := d.c.Fetch(ctx, Request{
		Service: ServiceDirectory,
		Method:  http.MethodPut,
		Path:    "/v1/service/" + service.String() + "/advertisement",
		Body:    body,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceDirectory,
			Status:  resp.Status,
			Message: fmt.Sprintf("advertise service %s", service),
		}
	}
	return nil
}
