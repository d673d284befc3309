// Package identity turns an inbound HTTP request into an account id. Tokens
// are issued elsewhere; this package only verifies them.
package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wfunc/relicroom/apperr"
)

// HeaderAccountID carries the account id in header mode.
const HeaderAccountID = "X-Account-ID"

var ErrInvalidToken = apperr.New(apperr.CodePermission, "invalid or missing credentials")

// Resolver yields the account id behind a request.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// JWTResolver accepts HS256 tokens and uses the subject claim as the
// account id. The token comes from the Authorization bearer header or the
// "token" query parameter, since browsers cannot set headers on websocket
// upgrades.
type JWTResolver struct {
	secretKey []byte
}

func NewJWTResolver(secretKey string) *JWTResolver {
	return &JWTResolver{secretKey: []byte(secretKey)}
}

func (j *JWTResolver) Resolve(r *http.Request) (string, error) {
	raw := bearer(r)
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return "", ErrInvalidToken
	}
	return j.Verify(raw)
}

// Verify checks a token string and returns its subject.
func (j *JWTResolver) Verify(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Sign issues a token for account. Used by the dev client and tests.
func (j *JWTResolver) Sign(account string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   account,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// HeaderResolver trusts the X-Account-ID header. Only for development
// behind a trusted proxy.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (string, error) {
	account := strings.TrimSpace(r.Header.Get(HeaderAccountID))
	if account == "" {
		account = strings.TrimSpace(r.URL.Query().Get("account"))
	}
	if account == "" {
		return "", ErrInvalidToken
	}
	return account, nil
}

// New picks a resolver by mode name.
func New(mode, secret string) (Resolver, error) {
	switch mode {
	case "jwt":
		if secret == "" {
			return nil, errors.New("identity: jwt mode needs a secret")
		}
		return NewJWTResolver(secret), nil
	case "header":
		return HeaderResolver{}, nil
	default:
		return nil, errors.New("identity: unknown mode " + mode)
	}
}
