package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/plantmesh/plantmesh-go/pkg/address"
	"github.com/plantmesh/plantmesh-go/pkg/wellknown"
)

// Auth is the interface to the Authentication service's authorisation API.
// Token issuance itself happens per service through the fetch pipeline;
// this surface manages principals, groups and access control entries.
type Auth struct {
	c *Client
}

// ACE is one access control entry: principal holds permission on target.
// The target wellknown.Null acts as a wildcard grant.
type ACE struct {
	Permission uuid.UUID `json:"permission"`
	Target     uuid.UUID `json:"target"`
	Principal  uuid.UUID `json:"principal,omitempty"`
	Kerberos   string    `json:"kerberos,omitempty"`
}

// PrincipalMapping ties a principal's identities together: its mesh UUID,
// its Kerberos UPN and, for edge agents, its Sparkplug address.
type PrincipalMapping struct {
	UUID      uuid.UUID        `json:"uuid"`
	Kerberos  string           `json:"kerberos,omitempty"`
	Sparkplug *address.Address `json:"sparkplug,omitempty"`
}

// ACL returns the access control entries granted to principal for the given
// permission or permission group. By default principal is a Kerberos UPN;
// set byUUID when passing a mesh UUID instead.
func (a *Auth) ACL(ctx context.Context, principal string, permission uuid.UUID, byUUID bool) ([]ACE, error) {
	query := url.Values{}
	query.Set("principal", principal)
	query.Set("permission", permission.String())
	if byUUID {
		query.Set("by-uuid", strconv.FormatBool(byUUID))
	}

	resp, err := a.c.Fetch(ctx, Request{
		Service: ServiceAuthentication,
		Path:    "/authz/acl",
		Query:   query,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("fetch ACL for %s", principal),
		}
	}

	var acl []ACE
	if err := json.Unmarshal(resp.Body, &acl); err != nil {
		return nil, fmt.Errorf("decode ACL: %w", err)
	}
	return acl, nil
}

// CheckACL reports whether principal holds permission on target. When wild
// is set, an entry granting the permission on wellknown.Null counts for any
// target. The ACL is fetched under the client's configured permission
// group when one is set, otherwise under the permission itself.
func (a *Auth) CheckACL(ctx context.Context, principal string, permission, target uuid.UUID, wild bool) (bool, error) {
	group := a.c.permissionGroup
	if group == uuid.Nil {
		group = permission
	}
	acl, err := a.ACL(ctx, principal, group, false)
	if err != nil {
		return false, err
	}
	for _, ace := range acl {
		if ace.Permission != permission {
			continue
		}
		if ace.Target == target || (wild && ace.Target == wellknown.Null) {
			return true, nil
		}
	}
	return false, nil
}

// ResolvePrincipal looks up the mesh UUID registered for a Kerberos UPN.
func (a *Auth) ResolvePrincipal(ctx context.Context, kerberos string) (uuid.UUID, error) {
	query := url.Values{}
	query.Set("kerberos", kerberos)

	resp, err := a.c.Fetch(ctx, Request{
		Service: ServiceAuthentication,
		Path:    "/authz/principal",
		Query:   query,
	})
	if err != nil {
		return uuid.Nil, err
	}
	if resp.Status == http.StatusNotFound {
		return uuid.Nil, &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("no principal for %s", kerberos),
		}
	}
	if !resp.OK() {
		return uuid.Nil, &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("resolve principal %s", kerberos),
		}
	}

	var mapping PrincipalMapping
	if err := json.Unmarshal(resp.Body, &mapping); err != nil {
		return uuid.Nil, fmt.Errorf("decode principal mapping: %w", err)
	}
	return mapping.UUID, nil
}

// FindPrincipal fetches the full identity mapping for a principal UUID.
func (a *Auth) FindPrincipal(ctx context.Context, principal uuid.UUID) (*PrincipalMapping, error) {
	resp, err := a.c.Fetch(ctx, Request{
		Service: ServiceAuthentication,
		Path:    "/authz/principal/" + principal.String(),
	})
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusNotFound {
		return nil, &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("no principal %s", principal),
		}
	}
	if !resp.OK() {
		return nil, &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("find principal %s", principal),
		}
	}

	var mapping PrincipalMapping
	if err := json.Unmarshal(resp.Body, &mapping); err != nil {
		return nil, fmt.Errorf("decode principal mapping: %w", err)
	}
	return &mapping, nil
}

// CreatePrincipal registers a new principal identity mapping.
func (a *Auth) CreatePrincipal(ctx context.Context, mapping PrincipalMapping) error {
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encode principal mapping: %w", err)
	}

	resp, err := a.c.Fetch(ctx, Request{
		Service: ServiceAuthentication,
		Method:  http.MethodPost,
		Path:    "/authz/principal",
		Body:    body,
	})
	if err != nil {
		return err
	}
	if resp.Status == http.StatusConflict {
		return &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("principal %s already exists", mapping.UUID),
		}
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("create principal %s", mapping.UUID),
		}
	}
	return nil
}

// AddACE grants ace.
func (a *Auth) AddACE(ctx context.Context, ace ACE) error {
	return a.editACE(ctx, "add", ace)
}

// DeleteACE revokes ace.
func (a *Auth) DeleteACE(ctx context.Context, ace ACE) error {
	return a.editACE(ctx, "delete", ace)
}

func (a *Auth) editACE(ctx context.Context, action string, ace ACE) error {
	body, err := json.Marshal(struct {
		Action string `json:"action"`
		ACE
	}{Action: action, ACE: ace})
	if err != nil {
		return fmt.Errorf("encode ACE request: %w", err)
	}

	resp, err := a.c.Fetch(ctx, Request{
		Service: ServiceAuthentication,
		Method:  http.MethodPost,
		Path:    "/authz/ace",
		Body:    body,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("%s ACE for %s", action, ace.Principal),
		}
	}
	return nil
}

// AddToGroup makes member part of group.
func (a *Auth) AddToGroup(ctx context.Context, group, member uuid.UUID) error {
	return a.editGroup(ctx, http.MethodPut, group, member)
}

// RemoveFromGroup removes member from group.
func (a *Auth) RemoveFromGroup(ctx context.Context, group, member uuid.UUID) error {
	return a.editGroup(ctx, http.MethodDelete, group, member)
}

func (a *Auth) editGroup(ctx context.Context, method string, group, member uuid.UUID) error {
	resp, err := a.c.Fetch(ctx, Request{
		Service: ServiceAuthentication,
		Method:  method,
		Path:    "/authz/group/" + group.String() + "/" + member.String(),
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceAuthentication,
			Status:  resp.Status,
			Message: fmt.Sprintf("update group %s membership", group),
		}
	}
	return nil
}
