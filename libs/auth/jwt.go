package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the portal access-token claims. PractitionerID links a staff account directly to
// its practitioner record and is empty for owners.
type Claims struct {
	Role           string `json:"role"`
	PractitionerID string `json:"practitioner_id,omitempty"`
	jwt.RegisteredClaims
}

func NewClaims(subject, role, practitionerID string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Role:           role,
		PractitionerID: practitionerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func SignHS256(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func SignRS256(claims Claims, key *rsa.PrivateKey, kid string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	return token.SignedString(key)
}

// KeySource resolves RSA public keys by key id.
type KeySource interface {
	Get(ctx context.Context, keyID string) (*rsa.PublicKey, error)
}

// Verifier validates bearer tokens. HS256 uses Secret; RS256 tokens carrying a kid are checked
// against Keys when it is set.
type Verifier struct {
	Secret string
	Keys   KeySource
	Leeway time.Duration
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		switch t.Method.Alg() {
		case jwt.SigningMethodHS256.Alg():
			if v.Secret == "" {
				return nil, errors.New("hs256 secret not configured")
			}
			return []byte(v.Secret), nil
		case jwt.SigningMethodRS256.Alg():
			kid, _ := t.Header["kid"].(string)
			if v.Keys == nil || kid == "" {
				return nil, errors.New("rs256 key not resolvable")
			}
			return v.Keys.Get(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.Leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func FromRequest(r *http.Request) (string, bool) {
	return BearerToken(r.Header.Get("Authorization"))
}
