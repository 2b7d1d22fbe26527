package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubValidator struct {
	tenant string
	token  string
	user   *models.User
	err    error
}

func (s stubValidator) Validate(_ context.Context, tenant, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token == "" || tenant != s.tenant || token != s.token {
		return nil, apierr.ErrUnauthorized
	}
	return s.user, nil
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	p, ok := CurrentUser(req)
	if ok || p != nil {
		t.Fatal("CurrentUser() should report nothing for a bare request")
	}

	want := &Principal{
		User:   &models.User{ID: primitive.NewObjectID(), Email: "a@x.com"},
		Token:  "tok",
		Tenant: "acme",
	}
	p, ok = CurrentUser(WithTestPrincipal(req, want))
	if !ok {
		t.Fatal("CurrentUser() should find the injected principal")
	}
	if p.User.ID != want.User.ID || p.Token != "tok" || p.Tenant != "acme" {
		t.Errorf("CurrentUser() = %+v, want %+v", p, want)
	}
}

// serve mounts the middleware under /{tenant} like the real router does.
func serve(v TokenValidator, req *http.Request) (*httptest.ResponseRecorder, *Principal) {
	var seen *Principal
	r := chi.NewRouter()
	r.Route("/{tenant}", func(r chi.Router) {
		r.Use(RequireToken(v, zap.NewNop(), nil))
		r.Get("/things", func(w http.ResponseWriter, r *http.Request) {
			seen, _ = CurrentUser(r)
			w.WriteHeader(http.StatusOK)
		})
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireToken(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "a@x.com"}
	v := stubValidator{tenant: "acme", token: "good", user: user}

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"valid token", "/acme/things", "good", http.StatusOK},
		{"missing header", "/acme/things", "", http.StatusUnauthorized},
		{"unknown token", "/acme/things", "bad", http.StatusUnauthorized},
		{"token of another tenant", "/other/things", "good", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set(HeaderToken, tt.token)
			}
			rec, seen := serve(v, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				if seen != nil {
					t.Error("handler should not run for a rejected request")
				}
				var env apierr.Envelope
				if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
					t.Fatalf("decode envelope: %v", err)
				}
				if env.StatusCode != http.StatusUnauthorized || env.Error != "Unauthorized" {
					t.Errorf("envelope = %+v", env)
				}
				return
			}
			if seen == nil || seen.User != user || seen.Token != "good" || seen.Tenant != "acme" {
				t.Errorf("principal = %+v", seen)
			}
		})
	}
}

func TestRequireToken_StorageFailure(t *testing.T) {
	req := httptest.NewRequest("GET", "/acme/things", nil)
	req.Header.Set(HeaderToken, "good")
	rec, seen := serve(stubValidator{err: errors.New("connection refused")}, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if seen != nil {
		t.Error("handler should not run when validation fails")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		key    string
		header string
		status int
	}{
		{"valid", "s3cret", "Bearer s3cret", http.StatusOK},
		{"scheme is case-insensitive", "s3cret", "bearer s3cret", http.StatusOK},
		{"wrong key", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"basic scheme", "s3cret", "Basic s3cret", http.StatusUnauthorized},
		{"not configured", "", "Bearer anything", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.key, zap.NewNop())(ok).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
