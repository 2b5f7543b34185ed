package rpc

import (
	"net/http"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func requestWithToken(token string) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func signJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return signed
}

func TestAuthorizeStaticBearer(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{BearerToken: "s3cret"})

	if err := auth.Authorize(requestWithToken("s3cret")); err != nil {
		t.Fatalf("expected valid bearer accepted, got %v", err)
	}
	if err := auth.Authorize(requestWithToken("wrong")); err == nil {
		t.Fatalf("expected wrong bearer rejected")
	}
	if err := auth.Authorize(requestWithToken("")); err == nil {
		t.Fatalf("expected missing header rejected")
	}
}

func TestAuthorizeJWT(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		JWTSecret: "hmac-secret",
		Issuer:    "prizeboost-ops",
		Audience:  "boostd",
	})

	valid := signJWT(t, "hmac-secret", jwt.MapClaims{
		"iss": "prizeboost-ops",
		"aud": "boostd",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if err := auth.Authorize(requestWithToken(valid)); err != nil {
		t.Fatalf("expected valid jwt accepted, got %v", err)
	}

	wrongIssuer := signJWT(t, "hmac-secret", jwt.MapClaims{
		"iss": "someone-else",
		"aud": "boostd",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if err := auth.Authorize(requestWithToken(wrongIssuer)); err == nil {
		t.Fatalf("expected issuer mismatch rejected")
	}

	wrongAudience := signJWT(t, "hmac-secret", jwt.MapClaims{
		"iss": "prizeboost-ops",
		"aud": "other-service",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if err := auth.Authorize(requestWithToken(wrongAudience)); err == nil {
		t.Fatalf("expected audience mismatch rejected")
	}

	expired := signJWT(t, "hmac-secret", jwt.MapClaims{
		"iss": "prizeboost-ops",
		"aud": "boostd",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	if err := auth.Authorize(requestWithToken(expired)); err == nil {
		t.Fatalf("expected expired token rejected")
	}

	wrongKey := signJWT(t, "other-secret", jwt.MapClaims{
		"iss": "prizeboost-ops",
		"aud": "boostd",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if err := auth.Authorize(requestWithToken(wrongKey)); err == nil {
		t.Fatalf("expected token with wrong key rejected")
	}
}

func TestAuthorizeNothingConfigured(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{})
	if err := auth.Authorize(requestWithToken("anything")); err == nil {
		t.Fatalf("expected all credentials rejected when nothing configured")
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		if got := extractBearer(tc.header); got != tc.want {
			t.Fatalf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
