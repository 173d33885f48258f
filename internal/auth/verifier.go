package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"nciso/server/internal/observability"
)

// ErrNoVerifier means neither a shared secret nor a JWKS URL was configured.
var ErrNoVerifier = errors.New("no token verification method configured")

type jwksKey struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	N   string `json:"n"`
	E   string `json:"e"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// VerifierConfig selects the verification material. Secret enables HS256
// tokens; JWKSURL enables ES256/RS256 tokens with rotating keys. Both may be set.
type VerifierConfig struct {
	Secret   string
	JWKSURL  string
	Issuer   string
	Audience string
}

// Verifier checks access-token signatures and standard claims.
type Verifier struct {
	secret   []byte
	jwksURL  string
	issuer   string
	audience string
	http     *resty.Client

	mu        sync.RWMutex
	keys      map[string]any
	fetchedAt time.Time
	cacheTTL  time.Duration
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Secret == "" && cfg.JWKSURL == "" {
		return nil, ErrNoVerifier
	}
	return &Verifier{
		secret:   []byte(cfg.Secret),
		jwksURL:  cfg.JWKSURL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		http:     resty.New().SetTimeout(10 * time.Second),
		keys:     make(map[string]any),
		cacheTTL: 5 * time.Minute,
	}, nil
}

// VerifyToken validates tokenString and returns its claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(5 * time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"HS256", "ES256", "RS256"}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "token verification failed")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, errors.New("HS256 tokens are not accepted")
		}
		return v.secret, nil
	case *jwt.SigningMethodECDSA, *jwt.SigningMethodRSA:
		if v.jwksURL == "" {
			return nil, errors.Errorf("%v tokens are not accepted", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid in token header")
		}
		return v.getKey(kid)
	default:
		return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
}

// getKey returns the public key for kid, fetching JWKS when the cache is
// empty or expired. An unknown kid forces a refetch to follow key rotation.
func (v *Verifier) getKey(kid string) (any, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	expired := time.Since(v.fetchedAt) > v.cacheTTL
	v.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	if err := v.fetchJWKS(); err != nil {
		// Serve a stale key rather than fail while the provider is unreachable.
		if ok {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()

	if !ok {
		return nil, errors.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

func (v *Verifier) fetchJWKS() error {
	var jwks jwksResponse
	resp, err := v.http.R().SetResult(&jwks).Get(v.jwksURL)
	if err != nil {
		return errors.Wrapf(err, "fetch JWKS from %s", v.jwksURL)
	}
	if resp.IsError() {
		return errors.Errorf("JWKS fetch returned status %d", resp.StatusCode())
	}

	keys := make(map[string]any)
	for _, k := range jwks.Keys {
		pub, err := k.publicKey()
		if err != nil {
			observability.L().Warn("skipping JWKS key", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()

	observability.L().Info("JWKS refreshed", zap.Int("keys", len(keys)), zap.String("url", v.jwksURL))
	return nil
}

func b64int(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (k jwksKey) publicKey() (any, error) {
	switch k.Kty {
	case "EC":
		if k.Crv != "P-256" {
			return nil, errors.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := b64int(k.X)
		if err != nil {
			return nil, errors.Wrap(err, "decode x")
		}
		y, err := b64int(k.Y)
		if err != nil {
			return nil, errors.Wrap(err, "decode y")
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	case "RSA":
		n, err := b64int(k.N)
		if err != nil {
			return nil, errors.Wrap(err, "decode n")
		}
		e, err := b64int(k.E)
		if err != nil {
			return nil, errors.Wrap(err, "decode e")
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	default:
		return nil, errors.Errorf("unsupported key type %q", k.Kty)
	}
}
