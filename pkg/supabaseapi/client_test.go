package supabaseapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nciso/server/pkg/supabaseapi"
)

func newClient(t *testing.T, h http.Handler) *supabaseapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := supabaseapi.NewClient(supabaseapi.Config{URL: srv.URL, AnonKey: "anon", ServiceRoleKey: "service"})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKeys(t *testing.T) {
	tests := []struct {
		name string
		cfg  supabaseapi.Config
	}{
		{"empty", supabaseapi.Config{}},
		{"no anon key", supabaseapi.Config{URL: "https://x.supabase.co", ServiceRoleKey: "s"}},
		{"no service key", supabaseapi.Config{URL: "https://x.supabase.co", AnonKey: "a"}},
		{"no url", supabaseapi.Config{AnonKey: "a", ServiceRoleKey: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := supabaseapi.NewClient(tt.cfg)
			assert.ErrorIs(t, err, supabaseapi.ErrNotConfigured)
		})
	}
}

func TestUpload(t *testing.T) {
	var (
		gotPath, gotType, gotAuth, gotKey string
		gotBody                           []byte
	)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"Key":"docs/a.txt"}`))
	}))

	err := c.Bucket("technical-documents").Upload(context.Background(), "tenant/external/a b.txt", "text/plain", []byte("olá"))
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/technical-documents/tenant/external/a%20b.txt", gotPath)
	assert.Equal(t, "text/plain", gotType)
	assert.Equal(t, "Bearer service", gotAuth)
	assert.Equal(t, "service", gotKey)
	assert.Equal(t, "olá", string(gotBody))
}

func TestUploadError(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`))
	}))

	err := c.Bucket("docs").Upload(context.Background(), "a.txt", "text/plain", []byte("x"))
	var apiErr *supabaseapi.APIError
	require.True(t, errors.As(err, &apiErr), "%v", err)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Duplicate", apiErr.Code)
	assert.Equal(t, "supabase: The resource already exists", err.Error())
}

func TestSignedURL(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/sign/docs/t/a.pdf", r.URL.Path)
		var body map[string]int
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 600, body["expiresIn"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signedURL":"/object/sign/docs/t/a.pdf?token=abc"}`))
	}))

	url, err := c.Bucket("docs").SignedURL(context.Background(), "t/a.pdf", 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/storage/v1/object/sign/docs/t/a.pdf?token=abc")
}

func TestGetUser(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer user-token" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token","message":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u-1","email":"ana@example.com","role":"authenticated","app_metadata":{"tenant_id":"t-1","role":"auditor"}}`))
	}))

	user, err := c.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "auditor", user.AppMetadata["role"])

	_, err = c.GetUser(context.Background(), "bad")
	var apiErr *supabaseapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
