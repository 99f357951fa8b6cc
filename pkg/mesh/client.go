// Package mesh provides the PlantMesh Go SDK for calling services on a
// federated plant service mesh.
//
// A Client is constructed against the Directory service and resolves every
// other service through it. Requests are authenticated with bearer tokens
// obtained from each service's token endpoint using the client's service
// credentials; tokens are cached per service and replaced automatically when
// a service rejects one.
package mesh

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the SDK entry point. It holds the shared credentials, the
// discovery state, and the token cache used by every service interface.
type Client struct {
	username string
	password string

	httpClient *http.Client
	discovery  *Discovery
	tokens     *tokenStore
	limiter    *rate.Limiter
	logger     *zap.Logger

	rootPrincipal   string
	permissionGroup uuid.UUID

	telemetryBuffer int
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding the default timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the timeout on the client's default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// WithLogger attaches a zap logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		if l == nil {
			return errors.New("nil logger")
		}
		c.logger = l
		return nil
	}
}

// WithStaticURL pins a service to a URL, bypassing the Directory for it.
func WithStaticURL(service ServiceType, url string) Option {
	return func(c *Client) error {
		if url == "" {
			return errors.New("empty static URL")
		}
		c.discovery.AddServiceURL(service, url)
		return nil
	}
}

// WithRateLimit caps outbound requests at rps per second with the given
// burst. Requests over the cap wait rather than fail.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithRootPrincipal records the deployment's root principal for use by
// callers that manage access control.
func WithRootPrincipal(principal string) Option {
	return func(c *Client) error {
		c.rootPrincipal = principal
		return nil
	}
}

// WithPermissionGroup sets the permission group consulted by Auth.CheckACL.
func WithPermissionGroup(group uuid.UUID) Option {
	return func(c *Client) error {
		c.permissionGroup = group
		return nil
	}
}

// WithTelemetryBuffer sets the delivery buffer of telemetry streams opened
// by this client.
func WithTelemetryBuffer(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			return errors.New("telemetry buffer must be at least 1")
		}
		c.telemetryBuffer = n
		return nil
	}
}

// New creates a Client that bootstraps from the Directory at directoryURL
// and authenticates everywhere with the given service credentials.
//
//	c, err := mesh.New("https://directory.plant.example", "svc-edge1", password,
//	    mesh.WithLogger(logger),
//	    mesh.WithStaticURL(mesh.ServiceConfigStore, "https://configstore.plant.example"),
//	)
func New(directoryURL, username, password string, opts ...Option) (*Client, error) {
	if directoryURL == "" {
		return nil, errors.New("directory URL is required")
	}

	c := &Client{
		username:        username,
		password:        password,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		tokens:          newTokenStore(),
		discovery:       newDiscovery(),
		logger:          zap.NewNop(),
		telemetryBuffer: 64,
	}
	c.discovery.SetServiceURL(ServiceDirectory, directoryURL)

	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}

	c.discovery.logger = c.logger
	c.discovery.lookup = func(ctx context.Context, service ServiceType) ([]string, error) {
		return c.Directory().ServiceURLs(ctx, service)
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(directoryURL, username, password string, opts ...Option) *Client {
	c, err := New(directoryURL, username, password, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Discovery exposes the client's service URL state for inspection and
// administrative overrides.
func (c *Client) Discovery() *Discovery { return c.discovery }

// Directory returns the interface to the Directory service.
func (c *Client) Directory() *Directory { return &Directory{c: c} }

// ConfigStore returns the interface to the configuration store.
func (c *Client) ConfigStore() *ConfigStore { return &ConfigStore{c: c} }

// Auth returns the interface to the Authentication service.
func (c *Client) Auth() *Auth { return &Auth{c: c} }

// CmdEsc returns the interface to the Command Escalation service.
func (c *Client) CmdEsc() *CmdEsc { return &CmdEsc{c: c} }

// Telemetry returns the interface to the telemetry transport.
func (c *Client) Telemetry() *Telemetry { return &Telemetry{c: c} }

// RootPrincipal returns the configured root principal, or "".
func (c *Client) RootPrincipal() string { return c.rootPrincipal }

// PermissionGroup returns the configured ACL group, or uuid.Nil.
func (c *Client) PermissionGroup() uuid.UUID { return c.permissionGroup }

// HasToken reports whether a token is currently cached for service.
func (c *Client) HasToken(service ServiceType) bool {
	_, ok := c.tokens.peek(service)
	return ok
}

// TokenExpiry returns the advisory expiry of the cached token for service.
// The second result is false when no token is cached.
func (c *Client) TokenExpiry(service ServiceType) (time.Time, bool) {
	tok, ok := c.tokens.peek(service)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(tok.Expiry, 0), true
}

// Token returns a live bearer token for service, acquiring one when the
// cache is empty. Fetch attaches tokens itself; this is for embedding mesh
// credentials in transports the client does not own.
func (c *Client) Token(ctx context.Context, service ServiceType) (Token, error) {
	return c.serviceToken(ctx, service)
}

// ReAuth discards any cached token for service and acquires a fresh one.
func (c *Client) ReAuth(ctx context.Context, service ServiceType) error {
	c.tokens.invalidate(service)
	_, err := c.serviceToken(ctx, service)
	return err
}
