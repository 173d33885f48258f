// Package auth verifies bearer tokens issued by the hosted auth provider and
// turns their claims into a caller identity.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of an auth-provider access token the server reads.
// Tenant and ISMS role may sit at the top level or inside app_metadata.
type Claims struct {
	jwt.RegisteredClaims
	Email       string      `json:"email,omitempty"`
	TenantID    string      `json:"tenant_id,omitempty"`
	ISMSRole    string      `json:"isms_role,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata"`
}

// AppMetadata is the provider-managed metadata block; users cannot edit it.
type AppMetadata struct {
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Identity is the authenticated caller. TenantID and Role are empty when the
// token does not carry them; the membership broker fills them in.
type Identity struct {
	UserID   string
	Email    string
	TenantID string
	Role     string
}

// Identity extracts the caller identity. Top-level claims win over app_metadata.
func (c *Claims) Identity() Identity {
	id := Identity{
		UserID:   c.Subject,
		Email:    c.Email,
		TenantID: c.TenantID,
		Role:     c.ISMSRole,
	}
	if id.TenantID == "" {
		id.TenantID = c.AppMetadata.TenantID
	}
	if id.Role == "" {
		id.Role = c.AppMetadata.Role
	}
	return id
}
