package mesh_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/plantmesh/plantmesh-go/pkg/mesh"
)

func TestDirectory_advertise(t *testing.T) {
	service := uuid.MustParse("9f3a2c47-9d67-4cc5-9cc2-c67cbb4218f3")

	var gotMethod, gotPath string
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "t", "expiry": 0})
	})
	mux.HandleFunc("/v1/service/", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Directory().Advertise(context.Background(), service, "https://edge1.example"); err != nil {
		t.Fatalf("Advertise: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("unexpected method: %s", gotMethod)
	}
	if want := "/v1/service/" + service.String() + "/advertisement"; gotPath != want {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotBody["url"] != "https://edge1.example" {
		t.Errorf("unexpected body: %v", gotBody)
	}
}

func TestDirectory_serviceURLsServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "t", "expiry": 0})
	})
	mux.HandleFunc("/v1/service/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := mesh.New(srv.URL, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Directory().ServiceURLs(context.Background(), mesh.ServiceConfigStore)
	var se *mesh.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError {
		t.Errorf("unexpected status in error: %d", se.Status)
	}
	if se.Service != mesh.ServiceDirectory {
		t.Errorf("unexpected service in error: %s", se.Service)
	}
}
