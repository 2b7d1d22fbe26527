package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/stratadoc/internal/app/system/auth"
	"github.com/dalemusser/stratadoc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestPrincipal returns an authenticated caller of tenant for handler tests
// that bypass the token middleware.
func TestPrincipal(tenant string) *auth.Principal {
	return &auth.Principal{
		User: &models.User{
			ID:    primitive.NewObjectID(),
			Email: "tester@example.com",
		},
		Token:  "test-token",
		Tenant: tenant,
	}
}

// WithPrincipal adds a principal to the request context.
func WithPrincipal(r *http.Request, p *auth.Principal) *http.Request {
	return auth.WithTestPrincipal(r, p)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is body encoded as JSON.
// A string or []byte body is sent verbatim.
func NewJSONRequest(t testing.TB, method, target string, body any) *http.Request {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		var err error
		if raw, err = json.Marshal(b); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithToken sets the x-auth header.
func WithToken(r *http.Request, token string) *http.Request {
	r.Header.Set(auth.HeaderToken, token)
	return r
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t testing.TB, expected int) {
	t.Helper()
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t testing.TB, expected string) {
	t.Helper()
	if body := r.Body.String(); !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON decodes the response body into v, failing the test on error.
func (r *ResponseRecorder) DecodeJSON(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}
