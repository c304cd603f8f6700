package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
)

// DefaultMinAuthDuration pads API key verification so that unknown
// prefixes and wrong secrets take the same time.
const DefaultMinAuthDuration = 200 * time.Millisecond

// APIKeyLookup resolves API key candidates.
type APIKeyLookup interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthContextCache memoizes verified API key identities.
type AuthContextCache interface {
	GetAuthContext(ctx context.Context, prefix, fingerprint string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, prefix, fingerprint string, auth *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Tokens  *auth.TokenManager
	Keys    APIKeyLookup
	Cache   AuthContextCache // optional
	Metrics metrics.Recorder // optional
	// MinDuration pads the API key path; zero disables padding.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates API requests.
//
// A Bearer credential shaped like a JWT must be a valid access token and
// grants the session scopes. Anything else is treated as an API key, from
// either the Authorization or the X-API-Key header. The resolved identity
// is stored in the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := extractCredential(r)
			if credential == "" {
				rejectAuth(w, r, cfg, "missing_credentials")
				return
			}

			var (
				authCtx *model.AuthContext
				reason  string
			)
			if auth.LooksLikeJWT(credential) {
				authCtx, reason = authenticateToken(cfg, credential)
			} else {
				authCtx, reason = authenticateAPIKey(r, cfg, credential)
			}
			if authCtx == nil {
				rejectAuth(w, r, cfg, reason)
				return
			}

			noteCaller(r.Context(), authCtx.UserID, string(authCtx.Method))
			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticateToken(cfg AuthConfig, token string) (*model.AuthContext, string) {
	if cfg.Tokens == nil {
		return nil, "tokens_disabled"
	}
	claims, err := cfg.Tokens.Verify(token, auth.TokenTypeAccess)
	if err != nil {
		return nil, "invalid_token"
	}
	return &model.AuthContext{
		Method:        model.AuthMethodToken,
		UserID:        claims.UserID,
		Scopes:        model.SessionScopes,
		RateLimitTier: model.TierFree,
	}, ""
}

func authenticateAPIKey(r *http.Request, cfg AuthConfig, key string) (*model.AuthContext, string) {
	start := time.Now()
	defer func() {
		if elapsed := time.Since(start); elapsed < cfg.MinDuration {
			time.Sleep(cfg.MinDuration - elapsed)
		}
	}()

	if cfg.Keys == nil {
		return nil, "api_keys_disabled"
	}

	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	ctx := r.Context()
	fingerprint := auth.QuickHash(key)
	if cfg.Cache != nil {
		if cached, _ := cfg.Cache.GetAuthContext(ctx, parsed.Prefix, fingerprint); cached != nil {
			return cached, ""
		}
	}

	candidates, err := cfg.Keys.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("database error during auth",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, "lookup_failed"
	}

	// Several keys may share a prefix.
	var matched *model.APIKey
	for _, k := range candidates {
		if ok, err := auth.VerifyPassword(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	authCtx := matched.AuthContext()

	if cfg.Cache != nil {
		_ = cfg.Cache.SetAuthContext(ctx, parsed.Prefix, fingerprint, authCtx)
	}

	go func(id string) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = cfg.Keys.UpdateAPIKeyLastUsed(bg, id)
	}(matched.ID)

	return authCtx, ""
}

func rejectAuth(w http.ResponseWriter, r *http.Request, cfg AuthConfig, reason string) {
	cfg.Metrics.IncAuthFailure()
	cfg.Logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, MsgUnauthorized)
}

// extractCredential reads "Authorization: Bearer <credential>", falling
// back to the X-API-Key header.
func extractCredential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
