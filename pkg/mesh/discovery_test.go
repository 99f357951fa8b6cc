package mesh_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/plantmesh/plantmesh-go/pkg/mesh"
)

// ── Stub directory ───────────────────────────────────────────────────────

// stubDirectory serves a token endpoint plus /v1/service/{uuid} lookups
// answered from providers, counting lookup hits.
func stubDirectory(t *testing.T, lookups *int, providers map[string][]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "dir-token", "expiry": 0})
	})
	mux.HandleFunc("/v1/service/", func(w http.ResponseWriter, r *http.Request) {
		*lookups++
		id := strings.TrimPrefix(r.URL.Path, "/v1/service/")
		entry, ok := providers[id]
		if !ok {
			http.Error(w, `{"error":"unknown service"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(entry)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestResolve_staticURLWins(t *testing.T) {
	lookups := 0
	srv := stubDirectory(t, &lookups, map[string][]map[string]any{
		mesh.ServiceConfigStore.UUID().String(): {{"url": "http://cs.directory"}},
	})

	c, err := mesh.New(srv.URL, "u", "p",
		mesh.WithStaticURL(mesh.ServiceConfigStore, "http://cs.static"),
	)
	if err != nil {
		t.Fatal(err)
	}

	urls, err := c.Discovery().Resolve(context.Background(), mesh.ServiceConfigStore)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(urls, []string{"http://cs.static"}) {
		t.Errorf("unexpected urls: %v", urls)
	}
	if lookups != 0 {
		t.Errorf("directory consulted despite static URL: %d lookups", lookups)
	}
}

func TestResolve_directoryResultCached(t *testing.T) {
	lookups := 0
	srv := stubDirectory(t, &lookups, map[string][]map[string]any{
		mesh.ServiceConfigStore.UUID().String(): {{"url": "http://cs.example"}},
	})

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		urls, err := c.Discovery().Resolve(context.Background(), mesh.ServiceConfigStore)
		if err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
		if !reflect.DeepEqual(urls, []string{"http://cs.example"}) {
			t.Errorf("unexpected urls: %v", urls)
		}
	}
	if lookups != 1 {
		t.Errorf("expected a single directory lookup, got %d", lookups)
	}
}

func TestResolve_emptyResultNotCached(t *testing.T) {
	lookups := 0
	srv := stubDirectory(t, &lookups, map[string][]map[string]any{
		mesh.ServiceCommandEscalation.UUID().String(): {},
	})

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		urls, err := c.Discovery().Resolve(context.Background(), mesh.ServiceCommandEscalation)
		if err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
		if len(urls) != 0 {
			t.Errorf("expected no urls, got %v", urls)
		}
	}
	if lookups != 2 {
		t.Errorf("empty result must not be cached: %d lookups", lookups)
	}
}

func TestResolve_advertisementsWithoutURLFiltered(t *testing.T) {
	lookups := 0
	srv := stubDirectory(t, &lookups, map[string][]map[string]any{
		mesh.ServiceAuthentication.UUID().String(): {
			{"device": "5a8a9386-f1b4-4a21-b5b8-e1e57d3e23b6"},
			{"url": "http://auth-1.example"},
			{"device": "d7c41b19-17f9-4c21-bc4e-bd8bdee23a7e", "url": "http://auth-2.example"},
		},
	})

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	urls, err := c.Discovery().Resolve(context.Background(), mesh.ServiceAuthentication)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"http://auth-1.example", "http://auth-2.example"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("expected %v, got %v", want, urls)
	}
}

func TestResolve_unknownServiceIsEmptyNotError(t *testing.T) {
	lookups := 0
	srv := stubDirectory(t, &lookups, map[string][]map[string]any{})

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	urls, err := c.Discovery().Resolve(context.Background(), mesh.ServiceTelemetry)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("expected no urls for unknown service, got %v", urls)
	}
}

func TestDiscovery_adminOverrides(t *testing.T) {
	lookups := 0
	srv := stubDirectory(t, &lookups, map[string][]map[string]any{
		mesh.ServiceConfigStore.UUID().String(): {{"url": "http://cs.directory"}},
	})

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}
	d := c.Discovery()

	d.SetServiceURL(mesh.ServiceConfigStore, "http://cs.primary")
	d.AddServiceURL(mesh.ServiceConfigStore, "http://cs.standby")

	urls, err := d.Resolve(context.Background(), mesh.ServiceConfigStore)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"http://cs.primary", "http://cs.standby"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("expected %v, got %v", want, urls)
	}
	if lookups != 0 {
		t.Errorf("directory consulted despite overrides: %d", lookups)
	}

	// Invalidate forgets local state and the next resolve asks the
	// Directory again.
	d.Invalidate(mesh.ServiceConfigStore)
	urls, err = d.Resolve(context.Background(), mesh.ServiceConfigStore)
	if err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if !reflect.DeepEqual(urls, []string{"http://cs.directory"}) {
		t.Errorf("unexpected urls after invalidate: %v", urls)
	}
	if lookups != 1 {
		t.Errorf("expected one lookup after invalidate, got %d", lookups)
	}
}

func TestResolve_directoryNeverLookedUpRemotely(t *testing.T) {
	lookups := 0
	srv := stubDirectory(t, &lookups, map[string][]map[string]any{})

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}
	d := c.Discovery()

	// With the seed in place the Directory resolves locally.
	urls, err := d.Resolve(context.Background(), mesh.ServiceDirectory)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(urls, []string{srv.URL}) {
		t.Errorf("unexpected urls: %v", urls)
	}

	// Without it the resolve fails instead of asking the Directory where
	// the Directory is.
	d.Invalidate(mesh.ServiceDirectory)
	if _, err := d.Resolve(context.Background(), mesh.ServiceDirectory); !errors.Is(err, mesh.ErrNoKnownURL) {
		t.Errorf("expected ErrNoKnownURL, got %v", err)
	}
	if lookups != 0 {
		t.Errorf("directory queried about itself: %d lookups", lookups)
	}
}

func TestDiscovery_knownSnapshot(t *testing.T) {
	c, err := mesh.New("http://directory.example", "u", "p",
		mesh.WithStaticURL(mesh.ServiceTelemetry, "tcp://broker.example:1883"),
	)
	if err != nil {
		t.Fatal(err)
	}

	known := c.Discovery().Known()
	if !reflect.DeepEqual(known[mesh.ServiceDirectory], []string{"http://directory.example"}) {
		t.Errorf("directory seed missing: %v", known)
	}
	if !reflect.DeepEqual(known[mesh.ServiceTelemetry], []string{"tcp://broker.example:1883"}) {
		t.Errorf("static telemetry URL missing: %v", known)
	}

	// Mutating the snapshot must not affect the client's state.
	known[mesh.ServiceDirectory][0] = "http://mangled.example"
	again := c.Discovery().Known()
	if again[mesh.ServiceDirectory][0] != "http://directory.example" {
		t.Error("Known returned a live reference")
	}
}
