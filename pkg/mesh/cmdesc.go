package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plantmesh/plantmesh-go/pkg/address"
)

// CmdEsc is the interface to the Command Escalation service, which relays
// metric writes to nodes and devices on behalf of principals holding the
// matching permission.
type CmdEsc struct {
	c *Client
}

// Command is one metric write. Type names the Sparkplug metric type and
// Value must encode to a JSON value of that type.
type Command struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// IssueCommand asks the escalation service to deliver cmd to addr.
func (e *CmdEsc) IssueCommand(ctx context.Context, addr address.Address, cmd Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	resp, err := e.c.Fetch(ctx, Request{
		Service: ServiceCommandEscalation,
		Method:  http.MethodPost,
		Path:    "/v1/address/" + addr.String(),
		Body:    body,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceCommandEscalation,
			Status:  resp.Status,
			Message: fmt.Sprintf("issue %s to %s", cmd.Name, addr),
		}
	}
	return nil
}

// Rebirth asks the node or device at addr to republish its birth
// certificate, re-announcing every metric it carries.
func (e *CmdEsc) Rebirth(ctx context.Context, addr address.Address) error {
	ctrl := "Node Control"
	if addr.IsDevice() {
		ctrl = "Device Control"
	}
	return e.IssueCommand(ctx, addr, Command{
		Name:  ctrl + "/Rebirth",
		Type:  "Boolean",
		Value: true,
	})
}
