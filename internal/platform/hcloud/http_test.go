package hcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/schema"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// obj is a raw JSON object in a mocked API response.
type obj = map[string]any

// testServer creates an httptest server that can be used to mock Hetzner Cloud API responses.
type testServer struct {
	server *httptest.Server
	mux    *http.ServeMux

	mu       sync.Mutex
	requests map[string]int
	bodies   map[string][]byte
}

// newTestServer creates a new test server for mocking the Hetzner Cloud API.
// The token check endpoint is always served.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		mux:      http.NewServeMux(),
		requests: make(map[string]int),
		bodies:   make(map[string][]byte),
	}
	ts.server = httptest.NewServer(http.HandlerFunc(ts.serve))
	t.Cleanup(ts.server.Close)
	ts.handleFunc("GET /locations", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.LocationListResponse{
			Locations: []schema.Location{{ID: 1, Name: "fsn1"}},
		})
	})
	return ts
}

func (ts *testServer) serve(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	ts.mu.Lock()
	key := r.Method + " " + r.URL.Path
	ts.requests[key]++
	if len(body) > 0 {
		ts.bodies[key] = body
	}
	ts.mu.Unlock()
	ts.mux.ServeHTTP(w, r)
}

// count returns how often "METHOD /path" was requested.
func (ts *testServer) count(key string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.requests[key]
}

// body decodes the last request body sent to "METHOD /path".
func (ts *testServer) body(t *testing.T, key string) obj {
	t.Helper()
	ts.mu.Lock()
	raw := ts.bodies[key]
	ts.mu.Unlock()
	require.NotNil(t, raw, "no body recorded for %s", key)
	var out obj
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// client returns an hcloud.Client configured to use the test server.
func (ts *testServer) client() *hcloud.Client {
	return hcloud.NewClient(
		hcloud.WithToken("test-token"),
		hcloud.WithEndpoint(ts.server.URL),
	)
}

// backend returns a Backend talking to the test server.
func (ts *testServer) backend(opts ...Option) *Backend {
	return New(append([]Option{
		WithEndpoint(ts.server.URL),
		WithLocation("fsn1"),
		WithProject("42", "acme"),
	}, opts...)...)
}

// scoped authenticates against the test server and scopes to the project.
func (ts *testServer) scoped(t *testing.T, opts ...Option) cloudapi.ScopedConnection {
	t.Helper()
	ctx := context.Background()
	conn, err := ts.backend(opts...).WithToken(ctx, "test-token")
	require.NoError(t, err)
	sc, err := conn.Scoped(ctx, "42")
	require.NoError(t, err)
	return sc
}

// handleFunc registers a handler for a specific pattern.
func (ts *testServer) handleFunc(pattern string, handler http.HandlerFunc) {
	ts.mux.HandleFunc(pattern, handler)
}

// jsonResponse writes a JSON response with the given status code and body.
func jsonResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func errorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	jsonResponse(w, statusCode, schema.ErrorResponse{Error: schema.Error{Code: code, Message: message}})
}

func successAction(id int64, command string) obj {
	return obj{
		"id": id, "command": command, "status": "success", "progress": 100,
		"started": "2024-03-01T00:00:00Z", "finished": "2024-03-01T00:00:01Z",
		"resources": []obj{},
	}
}

func serverJSON(id int64, name, status string, privateNetworks ...int64) obj {
	var private []obj
	for i, n := range privateNetworks {
		private = append(private, obj{"network": n, "ip": fmt.Sprintf("10.0.0.%d", i+2), "alias_ips": []string{}})
	}
	return obj{
		"id":      id,
		"name":    name,
		"status":  status,
		"created": "2024-03-01T00:00:00Z",
		"public_net": obj{
			"ipv4":         obj{"ip": "203.0.113.10"},
			"ipv6":         obj{"ip": "2001:db8::/64"},
			"floating_ips": []int64{},
		},
		"private_net": private,
		"server_type": obj{"id": 1, "name": "cx22", "cores": 2, "memory": 4.0, "disk": 40},
		"datacenter":  obj{"id": 1, "name": "fsn1-dc14", "location": obj{"id": 1, "name": "fsn1"}},
		"image":       obj{"id": 7, "name": "ubuntu-24.04", "type": "system", "status": "available"},
		"labels":      obj{"portal_tenant_name": "acme", labelKeypair: "alice"},
		"volumes":     []int64{},
	}
}

func networkJSON(id int64, name string, labels obj) obj {
	return obj{"id": id, "name": name, "ip_range": "10.0.0.0/16", "subnets": []obj{}, "routes": []obj{}, "servers": []int64{}, "labels": labels}
}

func floatingIPJSON(id int64, ip string, server *int64) obj {
	return obj{"id": id, "name": "fip", "ip": ip, "type": "ipv4", "server": server, "home_location": obj{"id": 1, "name": "fsn1"}, "labels": obj{}}
}

func volumeJSON(id int64, name string, server *int64) obj {
	return obj{
		"id": id, "name": name, "size": 10, "status": "available", "server": server,
		"linux_device": "/dev/disk/by-id/scsi-0HC_Volume_" + name,
		"location":     obj{"id": 1, "name": "fsn1"}, "labels": obj{},
	}
}
