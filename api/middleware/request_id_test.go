package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDKeepsSafeInboundIDs(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	cases := map[string]bool{
		"abc-123.def_4": true,
		"has space":     false,
		"<script>":      false,
		"":              false,
	}
	for inbound, keep := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header.Set("X-Request-Id", inbound)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		got := resp.Header().Get("X-Request-Id")
		if got == "" {
			t.Fatalf("%q: expected a request id", inbound)
		}
		if (got == inbound) != keep {
			t.Fatalf("%q: keep=%v but got %q", inbound, keep, got)
		}
	}
}

func TestRecovererWritesEnvelopeWithRequestID(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	handler := RequestID(nil)(Recoverer(nil)(panicking))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "trace-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "INTERNAL_ERROR" || body.Error.RequestID != "trace-1" {
		t.Fatalf("unexpected envelope %+v", body.Error)
	}
}

func TestRequireRoleAnonymousIsUnauthorized(t *testing.T) {
	resp := httptest.NewRecorder()
	RequireRole(nil, "admin")(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
