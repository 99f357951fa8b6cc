package mesh

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying failures with errors.Is.
var (
	// ErrNoKnownURL is returned when discovery holds no provider URL for the
	// target service.
	ErrNoKnownURL = errors.New("no known URL for service")

	// ErrTokenUnauthorized is returned when the token endpoint rejects the
	// configured credentials with 401.
	ErrTokenUnauthorized = errors.New("token request rejected: 401 unauthorized")

	// ErrTokenEndpointNotFound is returned when the token endpoint answers 404.
	ErrTokenEndpointNotFound = errors.New("token endpoint not found: 404")

	// ErrTokenServerError is returned when the token endpoint answers 500.
	ErrTokenServerError = errors.New("token endpoint failed: 500 server error")

	// ErrConnectionRejected is returned when the telemetry broker refuses a
	// connection attempt.
	ErrConnectionRejected = errors.New("broker rejected the connection")
)

// FetchError reports a failure to complete an exchange: the request could not
// be built, sent, or its response read. Completed exchanges with an error
// status are not FetchErrors; they are returned as a Response.
type FetchError struct {
	URL     string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ServiceError reports that a service answered an operation with a status the
// operation's contract does not accept.
type ServiceError struct {
	Service ServiceType
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service: %s (HTTP %d)", e.Service, e.Message, e.Status)
}

// TransportError reports a telemetry transport failure: no broker could be
// found, the broker refused the session, or a subscription was not accepted.
type TransportError struct {
	Broker string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Broker == "" {
		return fmt.Sprintf("telemetry transport: %v", e.Err)
	}
	return fmt.Sprintf("telemetry transport %s: %v", e.Broker, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
