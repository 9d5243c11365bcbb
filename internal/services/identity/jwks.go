package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/killallgit/transcript-sync/internal/models"
)

// ErrForbidden is returned for valid tokens that lack the required permission
var ErrForbidden = errors.New("token lacks the required permission")

// Verifier turns a bearer token into the writer it names
type Verifier interface {
	Verify(tokenString string) (*models.User, error)
}

var (
	_ Verifier = (*Tokens)(nil)
	_ Verifier = (*KeySet)(nil)
)

// ProviderClaims are the claims of tokens issued by an external identity
// provider. Permissions live in app_metadata.
type ProviderClaims struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	AppMetadata struct {
		Permissions []string `json:"permissions"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// JWK is one ES256 public key of a JSON Web Key Set
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// JWKS is a JSON Web Key Set document
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// KeySet verifies ES256 tokens against the keys published at a JWKS URL.
// Keys are cached and refetched when stale or when an unknown kid shows up.
type KeySet struct {
	url        string
	permission string
	client     *http.Client
	maxAge     time.Duration

	mu        sync.RWMutex
	keys      map[string]*ecdsa.PublicKey
	lastFetch time.Time
}

// NewKeySet fetches the key set once and returns a verifier for it. A
// non-empty permission must appear in every accepted token.
func NewKeySet(ctx context.Context, url, permission string) (*KeySet, error) {
	if url == "" {
		return nil, fmt.Errorf("JWKS URL is required")
	}
	ks := &KeySet{
		url:        url,
		permission: permission,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxAge:     time.Hour,
		keys:       make(map[string]*ecdsa.PublicKey),
	}
	if err := ks.refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch initial JWKS: %w", err)
	}
	return ks, nil
}

func (ks *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return err
	}
	resp, err := ks.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*ecdsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "EC" || jwk.Alg != "ES256" {
			continue
		}
		key, err := parseECKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = key
	}

	ks.mu.Lock()
	ks.keys = keys
	ks.lastFetch = time.Now()
	ks.mu.Unlock()
	return nil
}

func parseECKey(jwk JWK) (*ecdsa.PublicKey, error) {
	x, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("failed to decode X coordinate: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Y coordinate: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}

func (ks *KeySet) publicKey(kid string) (*ecdsa.PublicKey, error) {
	ks.mu.RLock()
	key, ok := ks.keys[kid]
	stale := time.Since(ks.lastFetch) > ks.maxAge
	ks.mu.RUnlock()

	if !ok || stale {
		if err := ks.refresh(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
		}
		ks.mu.RLock()
		key, ok = ks.keys[kid]
		ks.mu.RUnlock()
	}
	if !ok {
		return nil, fmt.Errorf("key with id %s not found", kid)
	}
	return key, nil
}

// Verify checks an ES256 token and returns the user it names
func (ks *KeySet) Verify(tokenString string) (*models.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ProviderClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("no kid found in token header")
		}
		return ks.publicKey(kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ProviderClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingUser
	}
	if ks.permission != "" && !slices.Contains(claims.AppMetadata.Permissions, ks.permission) {
		return nil, ErrForbidden
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	if name == "" {
		name = claims.Subject
	}
	return &models.User{ID: claims.Subject, DisplayName: name}, nil
}
