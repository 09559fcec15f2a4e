package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

var ErrKeyNotFound = errors.New("jwks key not found")

// minRefreshInterval bounds refetches triggered by unknown key ids.
const minRefreshInterval = 10 * time.Second

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSClient resolves RS256 verification keys from the identity provider's
// key set. The last good set is served while a refresh fails.
type JWKSClient struct {
	url  string
	ttl  time.Duration
	http *http.Client
	now  func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSClient(url string, ttl time.Duration, client *http.Client) *JWKSClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &JWKSClient{url: url, ttl: ttl, http: client, now: time.Now}
}

func (c *JWKSClient) Get(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	age := c.now().Sub(c.fetchedAt)
	key, known := c.keys[keyID]
	switch {
	case known && age < c.ttl:
		return key, nil
	case !known && c.keys != nil && age < minRefreshInterval:
		return nil, ErrKeyNotFound
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		if known {
			return key, nil
		}
		return nil, fmt.Errorf("refresh jwks: %w", err)
	}
	c.keys = keys
	c.fetchedAt = c.now()

	if key, ok := keys[keyID]; ok {
		return key, nil
	}
	return nil, ErrKeyNotFound
}

func (c *JWKSClient) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if !k.usable() {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func (k jwk) usable() bool {
	if k.Kty != "RSA" || k.Kid == "" || k.N == "" || k.E == "" {
		return false
	}
	if k.Use != "" && k.Use != "sig" {
		return false
	}
	return k.Alg == "" || k.Alg == "RS256"
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, errors.New("invalid jwk exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func decodeBigInt(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
