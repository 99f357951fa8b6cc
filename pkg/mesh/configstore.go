package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/plantmesh/plantmesh-go/pkg/address"
	"github.com/plantmesh/plantmesh-go/pkg/wellknown"
)

// ConfigStore is the interface to the configuration store, which keeps one
// JSON document per (application, object) pair and an object registry
// grouping objects into classes.
type ConfigStore struct {
	c *Client
}

func configPath(app, obj uuid.UUID) string {
	return "/v1/app/" + app.String() + "/object/" + obj.String()
}

// GetConfig fetches the config entry for obj under application app and
// decodes it into out.
func (s *ConfigStore) GetConfig(ctx context.Context, app, obj uuid.UUID, out any) error {
	resp, err := s.c.Fetch(ctx, Request{
		Service: ServiceConfigStore,
		Path:    configPath(app, obj),
	})
	if err != nil {
		return err
	}
	if resp.Status == http.StatusNotFound {
		return &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("no config for object %s under app %s", obj, app),
		}
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("get config for object %s", obj),
		}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode config entry: %w", err)
	}
	return nil
}

// PutConfig stores config as the entry for obj under application app,
// replacing any previous entry.
func (s *ConfigStore) PutConfig(ctx context.Context, app, obj uuid.UUID, config any) error {
	body, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode config entry: %w", err)
	}
	resp, err := s.c.Fetch(ctx, Request{
		Service: ServiceConfigStore,
		Method:  http.MethodPut,
		Path:    configPath(app, obj),
		Body:    body,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("put config for object %s", obj),
		}
	}
	return nil
}

// PatchConfig applies a JSON merge patch to the entry for obj under app.
// Keys present in patch replace the stored values; null keys delete them.
func (s *ConfigStore) PatchConfig(ctx context.Context, app, obj uuid.UUID, patch any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode merge patch: %w", err)
	}
	resp, err := s.c.Fetch(ctx, Request{
		Service: ServiceConfigStore,
		Method:  http.MethodPatch,
		Path:    configPath(app, obj),
		Body:    body,
		Headers: http.Header{"Content-Type": []string{"application/merge-patch+json"}},
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("patch config for object %s", obj),
		}
	}
	return nil
}

// DeleteConfig removes the entry for obj under application app.
func (s *ConfigStore) DeleteConfig(ctx context.Context, app, obj uuid.UUID) error {
	resp, err := s.c.Fetch(ctx, Request{
		Service: ServiceConfigStore,
		Method:  http.MethodDelete,
		Path:    configPath(app, obj),
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("delete config for object %s", obj),
		}
	}
	return nil
}

// CreateObject registers an object of the given class and returns its
// identifier. A zero obj asks the store to mint one. When obj already
// exists the registration is idempotent unless exclusive is set, in which
// case the existing object is reported as a conflict.
func (s *ConfigStore) CreateObject(ctx context.Context, class, obj uuid.UUID, exclusive bool) (uuid.UUID, error) {
	reg := map[string]any{"class": class}
	if obj != uuid.Nil {
		reg["uuid"] = obj
	}
	body, err := json.Marshal(reg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode object registration: %w", err)
	}

	resp, err := s.c.Fetch(ctx, Request{
		Service: ServiceConfigStore,
		Method:  http.MethodPost,
		Path:    "/v1/object",
		Body:    body,
	})
	if err != nil {
		return uuid.Nil, err
	}

	switch resp.Status {
	case http.StatusCreated:
	case http.StatusOK:
		if exclusive {
			return uuid.Nil, &ServiceError{
				Service: ServiceConfigStore,
				Status:  http.StatusConflict,
				Message: fmt.Sprintf("object %s already exists", obj),
			}
		}
	case http.StatusConflict:
		return uuid.Nil, &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("object %s already exists", obj),
		}
	default:
		return uuid.Nil, &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: "create object",
		}
	}

	var created struct {
		UUID uuid.UUID `json:"uuid"`
	}
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return uuid.Nil, fmt.Errorf("decode object registration: %w", err)
	}
	return created.UUID, nil
}

// DeleteObject removes obj from the object registry.
func (s *ConfigStore) DeleteObject(ctx context.Context, obj uuid.UUID) error {
	resp, err := s.c.Fetch(ctx, Request{
		Service: ServiceConfigStore,
		Method:  http.MethodDelete,
		Path:    "/v1/object/" + obj.String(),
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("delete object %s", obj),
		}
	}
	return nil
}

// Search returns the objects whose config entry under app matches every
// property filter in where. Filter keys are property paths, values are
// compared as JSON. A non-nil class restricts the search to that class.
func (s *ConfigStore) Search(ctx context.Context, app uuid.UUID, class *uuid.UUID, where map[string]any) ([]uuid.UUID, error) {
	query := url.Values{}
	for k, v := range where {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode search filter %q: %w", k, err)
		}
		query.Set(k, string(enc))
	}

	path := "/v1/app/" + app.String() + "/search"
	if class != nil {
		path = "/v1/app/" + app.String() + "/class/" + class.String() + "/search"
	}

	resp, err := s.c.Fetch(ctx, Request{
		Service: ServiceConfigStore,
		Path:    path,
		Query:   query,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &ServiceError{
			Service: ServiceConfigStore,
			Status:  resp.Status,
			Message: fmt.Sprintf("search app %s", app),
		}
	}

	var matches []uuid.UUID
	if err := json.Unmarshal(resp.Body, &matches); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	return matches, nil
}

// Resolve is Search for callers that expect exactly one match. Zero
// matches is reported as not found, several as a conflict.
func (s *ConfigStore) Resolve(ctx context.Context, app uuid.UUID, class *uuid.UUID, where map[string]any) (uuid.UUID, error) {
	matches, err := s.Search(ctx, app, class, where)
	if err != nil {
		return uuid.Nil, err
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return uuid.Nil, &ServiceError{
			Service: ServiceConfigStore,
			Status:  http.StatusNotFound,
			Message: "no object matches the search",
		}
	default:
		return uuid.Nil, &ServiceError{
			Service: ServiceConfigStore,
			Status:  http.StatusConflict,
			Message: fmt.Sprintf("%d objects match the search", len(matches)),
		}
	}
}

// SparkplugAddress returns the Sparkplug address registered for obj.
func (s *ConfigStore) SparkplugAddress(ctx context.Context, obj uuid.UUID) (address.Address, error) {
	var entry struct {
		GroupID  string `json:"group_id"`
		NodeID   string `json:"node_id"`
		DeviceID string `json:"device_id"`
	}
	if err := s.GetConfig(ctx, wellknown.AppSparkplugAddress, obj, &entry); err != nil {
		return address.Address{}, err
	}
	if entry.DeviceID != "" {
		return address.Device(entry.GroupID, entry.NodeID, entry.DeviceID)
	}
	return address.Node(entry.GroupID, entry.NodeID)
}
