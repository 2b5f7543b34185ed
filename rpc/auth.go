package rpc

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthConfig controls access to mutating RPC methods. A static bearer token
// (for the trusted distribution caller) and HS256 JWTs (for operator tooling)
// are both accepted; with neither configured the server refuses every
// mutating call rather than running open.
type AuthConfig struct {
	BearerToken string
	JWTSecret   string
	Issuer      string
	Audience    string
	ClockSkew   time.Duration
}

// Authenticator validates the Authorization header of mutating requests.
type Authenticator struct {
	bearer    string
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
}

// NewAuthenticator builds an authenticator from the supplied configuration.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 2 * time.Minute
	}
	return &Authenticator{
		bearer:    strings.TrimSpace(cfg.BearerToken),
		secret:    []byte(strings.TrimSpace(cfg.JWTSecret)),
		issuer:    strings.TrimSpace(cfg.Issuer),
		audience:  strings.TrimSpace(cfg.Audience),
		clockSkew: skew,
	}
}

// Authorize checks the request's bearer credential.
func (a *Authenticator) Authorize(r *http.Request) error {
	token := extractBearer(r.Header.Get("Authorization"))
	if token == "" {
		return errors.New("missing bearer token")
	}
	if a.bearer != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.bearer)) == 1 {
		return nil
	}
	if len(a.secret) > 0 {
		if err := a.validateJWT(token); err == nil {
			return nil
		}
	}
	return errors.New("invalid credentials")
}

func (a *Authenticator) validateJWT(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(a.clockSkew))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("unexpected claims type")
	}
	if a.issuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != a.issuer {
			return errors.New("issuer mismatch")
		}
	}
	if a.audience != "" {
		audience, err := claims.GetAudience()
		if err != nil {
			return errors.New("audience missing")
		}
		found := false
		for _, aud := range audience {
			if aud == a.audience {
				found = true
				break
			}
		}
		if !found {
			return errors.New("audience mismatch")
		}
	}
	return nil
}

func extractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	const prefix = "bearer "
	if len(trimmed) > len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return strings.TrimSpace(trimmed[len(prefix):])
	}
	return ""
}
