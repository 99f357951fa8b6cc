package mesh

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/plantmesh/plantmesh-go/pkg/wellknown"
)

// ServiceType names a logical role on the mesh. The set is closed: every
// deployment carries exactly these services, identified by the fixed UUIDs in
// pkg/wellknown.
type ServiceType int

const (
	ServiceDirectory ServiceType = iota + 1
	ServiceConfigStore
	ServiceAuthentication
	ServiceCommandEscalation
	ServiceTelemetry
)

// Services returns every service role on the mesh.
func Services() []ServiceType {
	return []ServiceType{
		ServiceDirectory,
		ServiceConfigStore,
		ServiceAuthentication,
		ServiceCommandEscalation,
		ServiceTelemetry,
	}
}

// UUID returns the fixed identifier the service is registered under. The
// mapping is total over the enumeration.
func (s ServiceType) UUID() uuid.UUID {
	switch s {
	case ServiceDirectory:
		return wellknown.ServiceDirectory
	case ServiceConfigStore:
		return wellknown.ServiceConfigStore
	case ServiceAuthentication:
		return wellknown.ServiceAuthentication
	case ServiceCommandEscalation:
		return wellknown.ServiceCommandEscalation
	case ServiceTelemetry:
		return wellknown.ServiceTelemetry
	default:
		return uuid.Nil
	}
}

func (s ServiceType) String() string {
	switch s {
	case ServiceDirectory:
		return "Directory"
	case ServiceConfigStore:
		return "ConfigStore"
	case ServiceAuthentication:
		return "Authentication"
	case ServiceCommandEscalation:
		return "CommandEscalation"
	case ServiceTelemetry:
		return "Telemetry"
	default:
		return fmt.Sprintf("ServiceType(%d)", int(s))
	}
}

// ParseServiceType maps a role name to its ServiceType. It accepts the
// canonical names plus the short forms used on the command line.
func ParseServiceType(s string) (ServiceType, error) {
	switch s {
	case "directory", "Directory":
		return ServiceDirectory, nil
	case "configstore", "config-store", "ConfigStore":
		return ServiceConfigStore, nil
	case "auth", "authentication", "Authentication":
		return ServiceAuthentication, nil
	case "cmdesc", "command-escalation", "CommandEscalation":
		return ServiceCommandEscalation, nil
	case "telemetry", "mqtt", "Telemetry":
		return ServiceTelemetry, nil
	default:
		return 0, fmt.Errorf("unknown service %q", s)
	}
}
