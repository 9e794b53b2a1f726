package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/statline/statline/internal/auth"
	"github.com/statline/statline/internal/config"
	"github.com/statline/statline/internal/registry"
)

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func testConfig(t *testing.T, overrides map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("statline-api", mapLookup(overrides))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func newTestRegistry(t *testing.T, specs ...registry.Spec) *registry.Registry {
	t.Helper()
	byID := make(map[string]registry.Spec, len(specs))
	for _, spec := range specs {
		byID[spec.DatasetID] = spec
	}
	catalog := registry.New()
	catalog.Swap(byID)
	return catalog
}

func pitchingSpec() registry.Spec {
	return registry.Spec{
		DatasetID:   "marts_baseball.pitching_outings",
		DisplayName: "Pitching Outings",
		Description: "One row per pitching appearance.",
		Schema:      "marts_baseball",
		Table:       "pitching_outings",
		PrimaryKey:  []string{"player_id", "game_date"},
		Columns: []registry.Column{
			{Name: "player_id", Type: registry.TypeString},
			{Name: "player_name", Type: registry.TypeString},
			{Name: "game_date", Type: registry.TypeDate},
			{Name: "season", Type: registry.TypeInteger},
			{Name: "era", Type: registry.TypeFloat, Units: "runs/9ip"},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{
		Readiness: func(_ context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointFailsOnEmptyRegistry(t *testing.T) {
	empty := registry.New()
	h := NewHandler(testConfig(t, nil), Dependencies{
		Registry:  empty,
		Readiness: CheckRegistryNonEmpty(empty),
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("empty registry status = %d", rr.Code)
	}

	loaded := newTestRegistry(t, pitchingSpec())
	h = NewHandler(testConfig(t, nil), Dependencies{
		Registry:  loaded,
		Readiness: CheckRegistryNonEmpty(loaded),
	})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("loaded registry status = %d", rr.Code)
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"STATLINE_AUTH_REQUIRED": "true",
	})
	validator, err := auth.NewStaticAPIKeyValidator("agent-key:reader")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Registry:       newTestRegistry(t, pitchingSpec()),
	})

	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, httptest.NewRequest(http.MethodGet, "/v1/datasets", nil))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	authReq := httptest.NewRequest(http.MethodGet, "/v1/datasets", nil)
	authReq.Header.Set("X-API-Key", "agent-key")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusOK {
		t.Fatalf("auth status = %d", authResp.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(authResp.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if _, ok := body["datasets"]; !ok {
		t.Fatalf("body = %v, missing datasets", body)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}
