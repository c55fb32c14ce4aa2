package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleRespondent},
	}
}

// serve runs mw around a handler that records the identity it saw.
func serve(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (userID string, roles []string, err error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err = mw(func(c echo.Context) error {
		userID = UserIDFromContext(c.Request().Context())
		roles = RolesFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})(c)
	return userID, roles, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, _, err := serve(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := serve(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), tt.header)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := createTestToken(t, validClaims(), testSigningKey)
	uid, roles, err := serve(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if uid != "user-123" {
		t.Errorf("expected user_id user-123, got %q", uid)
	}
	if len(roles) != 1 || roles[0] != RoleRespondent {
		t.Errorf("expected [respondent], got %v", roles)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := createTestToken(t, validClaims(), []byte("another-key"))
	_, _, err := serve(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_Expired(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := createTestToken(t, claims, testSigningKey)
	_, _, err := serve(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_IssuerAndAudience(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "wellcheck", Audience: "api"}
	claims := validClaims()
	claims.Issuer = "someone-else"
	claims.Audience = jwt.ClaimStrings{"api"}
	_, _, err := serve(t, JWTMiddleware(cfg), "Bearer "+createTestToken(t, claims, testSigningKey))
	expectStatus(t, err, http.StatusUnauthorized)

	claims.Issuer = "wellcheck"
	_, _, err = serve(t, JWTMiddleware(cfg), "Bearer "+createTestToken(t, claims, testSigningKey))
	if err != nil {
		t.Errorf("expected matching issuer to pass, got %v", err)
	}
}

func TestJWTMiddleware_MissingSubject(t *testing.T) {
	claims := validClaims()
	claims.Subject = ""
	_, _, err := serve(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "Bearer "+createTestToken(t, claims, testSigningKey))
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestIssueToken_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "wellcheck", Audience: "api"}
	token, err := IssueToken(cfg, "clin-7", []string{RoleClinician}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	uid, roles, err := serve(t, JWTMiddleware(cfg), "Bearer "+token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if uid != "clin-7" || len(roles) != 1 || roles[0] != RoleClinician {
		t.Errorf("unexpected identity %q %v", uid, roles)
	}
}

func TestDevAuthMiddleware_Anonymous(t *testing.T) {
	uid, roles, err := serve(t, DevAuthMiddleware(JWTConfig{}), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if uid != "dev-user" {
		t.Errorf("expected dev-user, got %q", uid)
	}
	if len(roles) != 3 {
		t.Errorf("expected all roles, got %v", roles)
	}
}

func TestDevAuthMiddleware_ValidatesPresentedToken(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}
	_, _, err := serve(t, DevAuthMiddleware(cfg), "Bearer not-a-token")
	expectStatus(t, err, http.StatusUnauthorized)

	token := createTestToken(t, validClaims(), testSigningKey)
	uid, _, err := serve(t, DevAuthMiddleware(cfg), "Bearer "+token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if uid != "user-123" {
		t.Errorf("expected token subject, got %q", uid)
	}
}
