package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssueToken signs an HS256 access token for id, shaped like the provider's
// own tokens. It backs the `token` command and tests; production tokens come
// from the auth provider.
func IssueToken(secret string, id Identity, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret not configured")
	}
	if id.UserID == "" {
		return "", errors.New("user id is required")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Email: id.Email,
		AppMetadata: AppMetadata{
			TenantID: id.TenantID,
			Role:     id.Role,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
