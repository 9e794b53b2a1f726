package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticAPIKeyValidatorParsesEntries(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("agent-key:reader, ops-key:admin|reader")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}

	identity, ok := validator.Validate(context.Background(), "agent-key")
	if !ok {
		t.Fatal("agent-key should validate")
	}
	if !identity.HasRole(RoleReader) || identity.HasRole(RoleAdmin) {
		t.Fatalf("agent-key roles = %v", identity.Roles)
	}

	identity, ok = validator.Validate(context.Background(), "ops-key")
	if !ok {
		t.Fatal("ops-key should validate")
	}
	if !identity.HasRole(RoleAdmin) || !identity.HasRole(RoleReader) {
		t.Fatalf("ops-key roles = %v", identity.Roles)
	}

	if _, ok := validator.Validate(context.Background(), "unknown"); ok {
		t.Fatal("unknown key should not validate")
	}
}

func TestStaticAPIKeyValidatorRejectsMalformedEntries(t *testing.T) {
	cases := []string{
		"no-roles",
		"key:",
		":reader",
		"key:reader:extra",
		"key:|",
	}
	for _, spec := range cases {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("spec %q should be rejected", spec)
		}
	}
}

func TestStaticAPIKeyValidatorAllowsEmptySpec(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("  ")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	if _, ok := validator.Validate(context.Background(), "anything"); ok {
		t.Fatal("empty spec should validate nothing")
	}
}

func TestMiddlewareAcceptsHeaderAndBearerKeys(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("agent-key:reader")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	var seen Identity
	handler := Middleware(nil, validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	missing := httptest.NewRecorder()
	handler.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/v1/datasets", nil))
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d", missing.Code)
	}

	headerReq := httptest.NewRequest(http.MethodGet, "/v1/datasets", nil)
	headerReq.Header.Set("X-API-Key", "agent-key")
	headerResp := httptest.NewRecorder()
	handler.ServeHTTP(headerResp, headerReq)
	if headerResp.Code != http.StatusOK {
		t.Fatalf("header key status = %d", headerResp.Code)
	}
	if seen.Name != "agent-key" {
		t.Fatalf("identity = %+v", seen)
	}

	bearerReq := httptest.NewRequest(http.MethodGet, "/v1/datasets", nil)
	bearerReq.Header.Set("Authorization", "Bearer agent-key")
	bearerResp := httptest.NewRecorder()
	handler.ServeHTTP(bearerResp, bearerReq)
	if bearerResp.Code != http.StatusOK {
		t.Fatalf("bearer key status = %d", bearerResp.Code)
	}

	wrongReq := httptest.NewRequest(http.MethodGet, "/v1/datasets", nil)
	wrongReq.Header.Set("X-API-Key", "wrong")
	wrongResp := httptest.NewRecorder()
	handler.ServeHTTP(wrongResp, wrongReq)
	if wrongResp.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d", wrongResp.Code)
	}
}
