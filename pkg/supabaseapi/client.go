// Package supabaseapi is a small Supabase client covering Storage uploads and
// Auth user lookup.
package supabaseapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
)

// Config names a Supabase project and its API keys.
type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
}

// ErrNotConfigured is returned by NewClient when the URL or a key is missing.
var ErrNotConfigured = errors.New("supabase: url, anon key and service role key are required")

// APIError is a non-2xx answer from Supabase.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return "supabase: " + msg
}

// Client talks to one Supabase project.
type Client struct {
	baseURL string
	anonKey string
	http    *resty.Client
}

// NewClient builds a client. Storage calls authenticate with the service role key.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" || cfg.ServiceRoleKey == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(cfg.URL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Wrap(err, "supabase url")
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("apikey", cfg.ServiceRoleKey).
		SetAuthToken(cfg.ServiceRoleKey)

	return &Client{baseURL: base, anonKey: cfg.AnonKey, http: rc}, nil
}

func apiError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}
	if e, ok := resp.Error().(*APIError); ok && e != nil {
		apiErr.Code, apiErr.Message = e.Code, e.Message
	}
	return apiErr
}

// User is the Auth record of an access token's owner.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// GetUser resolves accessToken through the Auth API.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("apikey", c.anonKey).
		SetAuthToken(accessToken).
		SetResult(&user).
		SetError(&APIError{}).
		Get("/auth/v1/user")
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &user, nil
}

// Bucket is one Storage bucket.
type Bucket struct {
	client *Client
	name   string
}

// Bucket returns a handle on the named bucket.
func (c *Client) Bucket(name string) *Bucket {
	return &Bucket{client: c, name: name}
}

func (b *Bucket) objectPath(objectPath string) string {
	return "/storage/v1/object/" + url.PathEscape(b.name) + "/" + escapePath(objectPath)
}

func escapePath(p string) string {
	parts := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// Upload stores body at objectPath. An existing object is not overwritten.
func (b *Bucket) Upload(ctx context.Context, objectPath, contentType string, body []byte) error {
	resp, err := b.client.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(body).
		SetError(&APIError{}).
		Post(b.objectPath(objectPath))
	if err != nil {
		return errors.Wrapf(err, "upload %s", objectPath)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

// SignedURL returns a time-limited download link for objectPath.
func (b *Bucket) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	var out signResponse
	resp, err := b.client.http.R().
		SetContext(ctx).
		SetBody(signRequest{ExpiresIn: int(ttl.Seconds())}).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/storage/v1/object/sign/" + url.PathEscape(b.name) + "/" + escapePath(objectPath))
	if err != nil {
		return "", errors.Wrapf(err, "sign %s", objectPath)
	}
	if resp.IsError() {
		return "", apiError(resp)
	}
	if out.SignedURL == "" {
		return "", errors.New("supabase: empty signed url")
	}
	return b.client.baseURL + "/storage/v1" + out.SignedURL, nil
}
