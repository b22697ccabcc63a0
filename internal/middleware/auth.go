package middleware

import (
	"context"
	"crypto/hmac"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
	"mmcore/internal/config"
	"mmcore/pkg/response"
)

// AuthContext identifies the caller for the rest of the request.
type AuthContext struct {
	Actor        string // email for users, "api_key" for service calls
	Role         string
	BusinessUnit string
	IsService    bool
}

const authContextKey = "authContext"

// GetAuthContext returns the caller identity set by RequireAuth.
func GetAuthContext(c *gin.Context) (AuthContext, bool) {
	v, ok := c.Get(authContextKey)
	if !ok {
		return AuthContext{}, false
	}
	ac, ok := v.(AuthContext)
	return ac, ok
}

// JWKSFetcher retrieves the identity provider's key set. Split out so
// tests can serve keys without a live provider.
type JWKSFetcher interface {
	Fetch(ctx context.Context, url string) (jwk.Set, error)
}

type httpJWKSFetcher struct{}

func (httpJWKSFetcher) Fetch(ctx context.Context, url string) (jwk.Set, error) {
	return jwk.Fetch(ctx, url)
}

// JWKSVerifier validates RS256 bearer tokens against the identity
// provider's published keys, caching the key set for keyTTL.
type JWKSVerifier struct {
	jwksURL  string
	issuer   string
	audience string
	fetcher  JWKSFetcher
	keyTTL   time.Duration

	mu        sync.Mutex
	keySet    jwk.Set
	fetchedAt time.Time

	logger *zap.Logger
}

// NewJWKSVerifier builds a verifier with a one hour key cache. audience
// may be empty, in which case the aud claim is not checked.
func NewJWKSVerifier(jwksURL, issuer, audience string, logger *zap.Logger) *JWKSVerifier {
	return &JWKSVerifier{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
		fetcher:  httpJWKSFetcher{},
		keyTTL:   time.Hour,
		logger:   logger,
	}
}

// WithFetcher replaces the key fetcher, for tests.
func (v *JWKSVerifier) WithFetcher(f JWKSFetcher) *JWKSVerifier {
	v.fetcher = f
	return v
}

func (v *JWKSVerifier) keys(ctx context.Context) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keySet != nil && time.Since(v.fetchedAt) < v.keyTTL {
		return v.keySet, nil
	}
	set, err := v.fetcher.Fetch(ctx, v.jwksURL)
	if err != nil {
		// Serve stale keys over failing every request while the
		// provider is unreachable.
		if v.keySet != nil {
			v.logger.Warn("jwks refresh failed, serving cached keys", zap.Error(err))
			return v.keySet, nil
		}
		// No keys means no token can be validated, which is an
		// authentication failure from the caller's point of view.
		return nil, apperr.Authentication("identity provider key set unavailable").WithCause(err)
	}
	v.keySet = set
	v.fetchedAt = time.Now()
	return set, nil
}

// Verify parses and validates a bearer token, returning the caller
// identity derived from its claims.
func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (AuthContext, error) {
	set, err := v.keys(ctx)
	if err != nil {
		return AuthContext{}, err
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithIssuer(v.issuer),
		jwt.WithValidate(true),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return AuthContext{}, apperr.Authentication("invalid bearer token").WithCause(err)
	}

	ac := AuthContext{Role: "service"}
	if email, ok := token.Get("email"); ok {
		if s, ok := email.(string); ok {
			ac.Actor = s
		}
	}
	if ac.Actor == "" {
		ac.Actor = token.Subject()
	}

	// Group conventions from the identity provider: ak-role-* carries the
	// business role, ak-bu-* the business unit.
	if rawGroups, ok := token.Get("groups"); ok {
		if groups, ok := rawGroups.([]interface{}); ok {
			for _, g := range groups {
				name, ok := g.(string)
				if !ok {
					continue
				}
				if strings.HasPrefix(name, "ak-role-") && ac.Role == "service" {
					ac.Role = strings.TrimPrefix(name, "ak-role-")
				}
				if strings.HasPrefix(name, "ak-bu-") && ac.BusinessUnit == "" {
					ac.BusinessUnit = strings.TrimPrefix(name, "ak-bu-")
				}
			}
		}
	}
	return ac, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		response.Error(apperr.CodeAuthentication, message, nil))
}

// RequireAuth accepts either the shared X-API-Key header (service
// integrations) or a bearer token issued by the identity provider.
// The API key path is checked first; it is the hot path for workflow
// automation calls.
func RequireAuth(settings *config.Settings, verifier *JWKSVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" {
			if hmac.Equal([]byte(key), []byte(settings.APIKey)) {
				c.Set(authContextKey, AuthContext{
					Actor:     "api_key",
					Role:      "service",
					IsService: true,
				})
				c.Next()
				return
			}
			abortUnauthorized(c, "invalid API key")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing credentials: provide X-API-Key or a bearer token")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization format, expected 'Bearer <token>'")
			return
		}

		ac, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			appErr := apperr.From(err)
			c.AbortWithStatusJSON(appErr.Status,
				response.Error(appErr.Code, appErr.Message, appErr.Details))
			return
		}
		c.Set(authContextKey, ac)
		c.Next()
	}
}

// VerifySlashToken checks the per-deployment slash command token with a
// constant-time compare. An empty configured token is accepted only in
// development.
func VerifySlashToken(settings *config.Settings, presented string) error {
	if settings.SlashToken == "" {
		if settings.IsDevelopment() {
			return nil
		}
		return apperr.Authentication("slash command token not configured")
	}
	if !hmac.Equal([]byte(presented), []byte(settings.SlashToken)) {
		return apperr.Authentication("invalid slash command token")
	}
	return nil
}

// RequireValidDB validates the db query parameter against the configured
// allow-list and stores it in the context.
func RequireValidDB(settings *config.Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := c.Query("db")
		if db == "" || !settings.IsAllowedDB(db) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity,
				response.Error(apperr.CodeValidation,
					"db must be one of the configured databases",
					map[string]any{"db": db, "allowed": settings.AllowedDBs}))
			return
		}
		c.Set("erpDB", db)
		c.Next()
	}
}
