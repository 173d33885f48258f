// Package middleware holds the HTTP middleware chain: bearer authentication,
// role authorization, rate limiting, panic recovery, request metrics and the
// MCP JSON-RPC transport.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nciso/server/internal/auth"
	"nciso/server/internal/broker"
	"nciso/server/internal/observability"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// AuthContextKey is the context key for auth context
	AuthContextKey ContextKey = "authContext"
	// RequestIDKey is the context key for request tracing ID
	RequestIDKey ContextKey = "requestID"
)

// AuthContext is the authenticated caller of a request.
type AuthContext struct {
	UserID   string
	Email    string
	TenantID string
	Role     string
}

// CanInvoke checks the policy table for the caller's role.
func (ctx *AuthContext) CanInvoke(operation string) error {
	if Allowed(ctx.Role, operation) {
		return nil
	}
	return &AuthError{
		Code:    "PERMISSION_DENIED",
		Message: fmt.Sprintf("Papel '%s' não pode executar '%s'", ctx.Role, operation),
		Status:  http.StatusForbidden,
	}
}

// CheckTenant rejects a tenant_id that differs from the caller's tenant.
// An empty tenantID passes; required-argument checks happen elsewhere.
func (ctx *AuthContext) CheckTenant(tenantID string) error {
	if tenantID == "" || tenantID == ctx.TenantID {
		return nil
	}
	return &AuthError{
		Code:    "TENANT_MISMATCH",
		Message: "tenant_id não corresponde ao tenant do usuário",
		Status:  http.StatusForbidden,
	}
}

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// MembershipResolver completes an identity whose token lacks tenant or role.
type MembershipResolver interface {
	Resolve(ctx context.Context, id auth.Identity) (auth.Identity, error)
}

// Authorizer handles authentication of incoming requests.
type Authorizer struct {
	verifier TokenVerifier
	members  MembershipResolver
}

// NewAuthorizer creates a new authorizer.
func NewAuthorizer(verifier TokenVerifier, members MembershipResolver) *Authorizer {
	return &Authorizer{verifier: verifier, members: members}
}

// Authorize is HTTP middleware that authenticates the bearer token and stores
// the caller in the request context.
func (a *Authorizer) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Generate or propagate request ID for tracing
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		authCtx, err := a.ValidateRequest(r.WithContext(ctx))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuthContext(ctx, authCtx)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// ValidateRequest runs bearer extraction, verification and tenant/role resolution.
func (a *Authorizer) ValidateRequest(r *http.Request) (*AuthContext, error) {
	requestID := GetRequestID(r.Context())

	token := bearerToken(r)
	if token == "" {
		observability.LogSecurityEvent(requestID, "", "missing_bearer_token", map[string]any{
			"remote_addr": r.RemoteAddr,
		})
		return nil, &AuthError{
			Code:    "MISSING_TOKEN",
			Message: "Token de acesso ausente",
			Status:  http.StatusUnauthorized,
		}
	}

	claims, err := a.verifier.VerifyToken(token)
	if err != nil {
		observability.LogSecurityEvent(requestID, "", "invalid_bearer_token", map[string]any{
			"remote_addr": r.RemoteAddr,
			"error":       err.Error(),
		})
		return nil, &AuthError{
			Code:    "INVALID_TOKEN",
			Message: "Token de acesso inválido",
			Status:  http.StatusUnauthorized,
		}
	}

	id, err := a.members.Resolve(r.Context(), claims.Identity())
	if errors.Is(err, broker.ErrNoMembership) {
		observability.LogSecurityEvent(requestID, id.UserID, "no_tenant_membership", nil)
		return nil, &AuthError{
			Code:    "NO_TENANT",
			Message: "Usuário não pertence a nenhum tenant",
			Status:  http.StatusForbidden,
		}
	}
	if err != nil {
		observability.L().Error("resolve membership", zap.String("user_id", id.UserID), zap.Error(err))
		return nil, &AuthError{
			Code:    "CONTEXT_ERROR",
			Message: "Falha ao verificar o tenant do usuário",
			Status:  http.StatusInternalServerError,
		}
	}

	if !ValidRole(id.Role) {
		observability.LogSecurityEvent(requestID, id.UserID, "unknown_role", map[string]any{"role": id.Role})
		return nil, &AuthError{
			Code:    "UNKNOWN_ROLE",
			Message: fmt.Sprintf("Papel desconhecido: '%s'", id.Role),
			Status:  http.StatusForbidden,
		}
	}

	return &AuthContext{
		UserID:   id.UserID,
		Email:    id.Email,
		TenantID: id.TenantID,
		Role:     id.Role,
	}, nil
}

// AuthError represents an authentication or authorization failure.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// writeAuthError writes the failure in the REST envelope shape.
func writeAuthError(w http.ResponseWriter, err error) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		authErr = &AuthError{
			Code:    "AUTHORIZATION_ERROR",
			Message: err.Error(),
			Status:  http.StatusInternalServerError,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   authErr.Message,
		"code":    authErr.Code,
	})
}

// WithAuthContext returns ctx carrying authCtx.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// WithRequestID returns ctx carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetAuthContext extracts auth context from request context
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, _ := ctx.Value(AuthContextKey).(*AuthContext)
	return authCtx
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
