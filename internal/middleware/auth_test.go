package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
	"mmcore/internal/config"
)

const testIssuer = "https://auth.example.com"

type staticFetcher struct {
	set jwk.Set
	err error
}

func (f staticFetcher) Fetch(ctx context.Context, url string) (jwk.Set, error) {
	return f.set, f.err
}

func testSettings() *config.Settings {
	return &config.Settings{
		APIKey:     "service-secret",
		AppEnv:     "development",
		AllowedDBs: []string{"tln_db", "hris_db"},
		IdpIssuer:  testIssuer,
	}
}

func newSigningKey(t *testing.T) (jwk.Key, jwk.Set) {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := key.PublicKey()
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return key, set
}

func signToken(t *testing.T, key jwk.Key, email string, groups []string) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer(testIssuer).
		Subject("user-1").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Claim("email", email).
		Claim("groups", groups).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	require.NoError(t, err)
	return string(signed)
}

func newTestRouter(settings *config.Settings, verifier *JWKSVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireAuth(settings, verifier), func(c *gin.Context) {
		ac, _ := GetAuthContext(c)
		c.JSON(http.StatusOK, gin.H{"actor": ac.Actor, "role": ac.Role, "bu": ac.BusinessUnit})
	})
	return router
}

func TestRequireAuthMissingCredentials(t *testing.T) {
	router := newTestRouter(testSettings(), NewJWKSVerifier("", testIssuer, "", zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeAuthentication, body["error"])
	assert.NotEmpty(t, body["message"])
	assert.NotNil(t, body["details"])
}

func TestRequireAuthAPIKey(t *testing.T) {
	router := newTestRouter(testSettings(), NewJWKSVerifier("", testIssuer, "", zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "service-secret")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "api_key", body["actor"])
	assert.Equal(t, "service", body["role"])
}

func TestRequireAuthWrongAPIKey(t *testing.T) {
	router := newTestRouter(testSettings(), NewJWKSVerifier("", testIssuer, "", zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "wrong")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthBearerToken(t *testing.T) {
	key, set := newSigningKey(t)
	verifier := NewJWKSVerifier("https://auth.example.com/jwks", testIssuer, "", zap.NewNop()).
		WithFetcher(staticFetcher{set: set})
	router := newTestRouter(testSettings(), verifier)

	token := signToken(t, key, "budi@example.com", []string{"ak-bu-tln", "ak-role-finance"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "budi@example.com", body["actor"])
	assert.Equal(t, "finance", body["role"])
	assert.Equal(t, "tln", body["bu"])
}

func TestRequireAuthRejectsWrongIssuer(t *testing.T) {
	key, set := newSigningKey(t)
	verifier := NewJWKSVerifier("https://auth.example.com/jwks", "https://other-issuer.example.com", "", zap.NewNop()).
		WithFetcher(staticFetcher{set: set})
	router := newTestRouter(testSettings(), verifier)

	token := signToken(t, key, "budi@example.com", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	key, set := newSigningKey(t)
	verifier := NewJWKSVerifier("https://auth.example.com/jwks", testIssuer, "", zap.NewNop()).
		WithFetcher(staticFetcher{set: set})
	router := newTestRouter(testSettings(), verifier)

	tok, err := jwt.NewBuilder().
		Issuer(testIssuer).
		Subject("user-1").
		Expiration(time.Now().Add(-time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+string(signed))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthBearerWhenJWKSUnavailable(t *testing.T) {
	key, _ := newSigningKey(t)
	verifier := NewJWKSVerifier("https://auth.example.com/jwks", testIssuer, "", zap.NewNop()).
		WithFetcher(staticFetcher{err: errors.New("connection refused")})
	router := newTestRouter(testSettings(), verifier)

	token := signToken(t, key, "budi@example.com", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	// An unreachable provider with an empty key cache is the caller's
	// authentication failure, not a 500.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeAuthentication, body["error"])
}

func TestJWKSServesStaleKeysWhenRefreshFails(t *testing.T) {
	key, set := newSigningKey(t)
	verifier := NewJWKSVerifier("https://auth.example.com/jwks", testIssuer, "", zap.NewNop()).
		WithFetcher(staticFetcher{err: errors.New("connection refused")})
	verifier.keySet = set
	verifier.fetchedAt = time.Now().Add(-2 * time.Hour)

	ac, err := verifier.Verify(context.Background(), signToken(t, key, "budi@example.com", nil))
	require.NoError(t, err, "expired cache plus failing refresh still serves the last good keys")
	assert.Equal(t, "budi@example.com", ac.Actor)
}

func TestVerifySlashToken(t *testing.T) {
	settings := testSettings()
	settings.SlashToken = "slash-token"

	assert.NoError(t, VerifySlashToken(settings, "slash-token"))
	assert.Error(t, VerifySlashToken(settings, "wrong"))

	// An unset token passes only in development.
	settings.SlashToken = ""
	assert.NoError(t, VerifySlashToken(settings, "anything"))
	settings.AppEnv = "production"
	assert.Error(t, VerifySlashToken(settings, "anything"))
}

func TestRequireValidDB(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/q", RequireValidDB(testSettings()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"db": c.GetString("erpDB")})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q?db=tln_db", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q?db=prod_db", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
