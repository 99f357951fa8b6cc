package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxResponseBody caps how much of a service response is read into memory.
const maxResponseBody = 1 << 20

var supportedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
	http.MethodHead:   {},
}

// Request describes one call to a mesh service. Path is joined to the
// service base URL resolved through discovery; Method defaults to GET.
type Request struct {
	Service ServiceType
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Headers http.Header
}

// Response is a completed HTTP exchange with a service. Any status code can
// appear here: only transport failures are reported as errors.
type Response struct {
	Status int
	Body   []byte
	ETag   string
	Header http.Header
}

// OK reports whether the response status is in the 2xx range.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error { return json.Unmarshal(r.Body, v) }

// PingResponse is the result of probing a service's ping endpoint.
type PingResponse struct {
	Service ServiceType
	Status  int
	Content string
}

// OK reports whether the probe was answered with a 2xx status.
func (p *PingResponse) OK() bool { return p.Status >= 200 && p.Status < 300 }

// Fetch performs an authenticated request against a mesh service.
//
// The service base URL comes from discovery, a bearer token from the token
// cache. When the service answers 401 the cached token is dropped, a fresh
// one is acquired, and the request is retried exactly once; a second 401 is
// returned to the caller as a normal Response.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	// 1. Validate the method before touching the network.
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if _, ok := supportedMethods[method]; !ok {
		return nil, &FetchError{Message: fmt.Sprintf("unsupported method %q", req.Method)}
	}

	// 2. Resolve the target URL.
	base, err := c.serviceBase(ctx, req.Service)
	if err != nil {
		return nil, err
	}
	target := joinURL(base, req.Path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	headers := normalizeHeaders(req.Headers, len(req.Body) > 0)

	// 3. Acquire a token and perform the exchange.
	tok, err := c.serviceToken(ctx, req.Service)
	if err != nil {
		return nil, err
	}
	resp, err := c.execute(ctx, req.Service, method, target, req.Body, headers, tok.Value)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized {
		recordFetch(req.Service, resp.Status)
		return resp, nil
	}

	// 4. The token was rejected. Drop it, acquire a fresh one, and retry
	// once. Whatever the retry produces is the final answer.
	c.tokens.invalidate(req.Service)
	recordAuthRetry(req.Service)
	c.logger.Debug("token rejected, re-authenticating",
		zap.Stringer("service", req.Service),
		zap.String("url", target),
	)

	tok, err = c.serviceToken(ctx, req.Service)
	if err != nil {
		return nil, err
	}
	resp, err = c.execute(ctx, req.Service, method, target, req.Body, headers, tok.Value)
	if err != nil {
		return nil, err
	}
	recordFetch(req.Service, resp.Status)
	return resp, nil
}

// Ping probes the service's ping endpoint through the full pipeline, so a
// successful probe also proves discovery and token acquisition work.
func (c *Client) Ping(ctx context.Context, service ServiceType) (*PingResponse, error) {
	resp, err := c.Fetch(ctx, Request{Service: service, Path: "/ping"})
	if err != nil {
		recordPing(service, "error")
		return nil, err
	}
	if resp.OK() {
		recordPing(service, "ok")
	} else {
		recordPing(service, "fail")
	}
	return &PingResponse{
		Service: service,
		Status:  resp.Status,
		Content: string(resp.Body),
	}, nil
}

// execute performs a single HTTP exchange. Completed exchanges are returned
// as a Response regardless of status; only transport failures are errors.
func (c *Client) execute(ctx context.Context, service ServiceType, method, target string, body []byte, headers http.Header, token string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: target, Err: err}
		}
	}

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	for k, vs := range headers {
		req.Header[k] = vs
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer res.Body.Close()
	observeFetchDuration(service, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, &FetchError{URL: target, Message: "read response body", Err: err}
	}

	return &Response{
		Status: res.StatusCode,
		Body:   data,
		ETag:   res.Header.Get("Etag"),
		Header: res.Header,
	}, nil
}

// serviceBase resolves the base URL for service, preferring the first known
// URL. ErrNoKnownURL is returned when neither static configuration nor the
// Directory knows the service.
func (c *Client) serviceBase(ctx context.Context, service ServiceType) (string, error) {
	urls, err := c.discovery.Resolve(ctx, service)
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", &FetchError{Message: service.String() + " service", Err: ErrNoKnownURL}
	}
	return urls[0], nil
}

// serviceToken returns the cached token for service, acquiring one on a
// miss. The acquisition is detached from the caller's cancellation so that
// concurrent waiters sharing it still receive a result.
func (c *Client) serviceToken(ctx context.Context, service ServiceType) (Token, error) {
	acquireCtx := context.WithoutCancel(ctx)
	return c.tokens.get(ctx, service, func() (Token, error) {
		return c.fetchToken(acquireCtx, service)
	})
}

// fetchToken asks the service's token endpoint for a fresh bearer token,
// authenticating with the client's basic credentials.
func (c *Client) fetchToken(ctx context.Context, service ServiceType) (Token, error) {
	base, err := c.serviceBase(ctx, service)
	if err != nil {
		recordTokenAcquisition(service, "error")
		return Token{}, err
	}
	target := joinURL(base, "token")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			recordTokenAcquisition(service, "error")
			return Token{}, &FetchError{URL: target, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		recordTokenAcquisition(service, "error")
		return Token{}, &FetchError{URL: target, Err: err}
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		recordTokenAcquisition(service, "error")
		return Token{}, &FetchError{URL: target, Message: "request token", Err: err}
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		recordTokenAcquisition(service, "denied")
		return Token{}, &FetchError{URL: target, Err: ErrTokenUnauthorized}
	case http.StatusNotFound:
		recordTokenAcquisition(service, "error")
		return Token{}, &FetchError{URL: target, Err: ErrTokenEndpointNotFound}
	case http.StatusInternalServerError:
		recordTokenAcquisition(service, "error")
		return Token{}, &FetchError{URL: target, Err: ErrTokenServerError}
	default:
		recordTokenAcquisition(service, "error")
		return Token{}, &FetchError{URL: target, Message: fmt.Sprintf("token request returned HTTP %d", res.StatusCode)}
	}

	var tok Token
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBody)).Decode(&tok); err != nil {
		recordTokenAcquisition(service, "error")
		return Token{}, &FetchError{URL: target, Message: "decode token response", Err: err}
	}
	if tok.Value == "" {
		recordTokenAcquisition(service, "error")
		return Token{}, &FetchError{URL: target, Message: "token response carried no token"}
	}

	recordTokenAcquisition(service, "ok")
	c.logger.Debug("acquired service token",
		zap.Stringer("service", service),
		zap.Time("expiry", time.Unix(tok.Expiry, 0)),
	)
	return tok, nil
}

// joinURL joins a base URL and a path without doubling or dropping slashes.
func joinURL(base, path string) string {
	if path == "" {
		return strings.TrimRight(base, "/")
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// normalizeHeaders clones h and fills in content negotiation defaults.
// Caller-supplied values are never overwritten.
func normalizeHeaders(h http.Header, hasBody bool) http.Header {
	out := make(http.Header, len(h)+2)
	for k, vs := range h {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if out.Get("Accept") == "" {
		out.Set("Accept", "application/json")
	}
	if hasBody && out.Get("Content-Type") == "" {
		out.Set("Content-Type", "application/json")
	}
	return out
}
