// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"satonic/internal/backend"
	"satonic/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// TokenVerifier resolves a bearer token to the backend user that owns it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*backend.User, error)
}

// BackendVerifier checks tokens against the backend profile endpoint.
type BackendVerifier struct {
	Client *backend.Client
}

func (v BackendVerifier) VerifyToken(ctx context.Context, token string) (*backend.User, error) {
	return v.Client.WithToken(token).GetProfile(ctx)
}

// NewBackendVerifier wraps client as a TokenVerifier.
func NewBackendVerifier(client *backend.Client) TokenVerifier {
	return BackendVerifier{Client: client}
}

// AuthMiddleware requires a bearer token the backend accepts. Verified
// tokens are cached for ttl so each request does not hit the backend.
func AuthMiddleware(verifier TokenVerifier, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = time.Minute
	}
	verified := cache.New(ttl, 2*ttl)
	log := logger.Named("auth_middleware")

	return func(c *gin.Context) {
		token := common.GetTokenFromContext(c)
		if token == "" {
			log.Debug("Bearer token missing")
			common.RespondLegacyError(c, http.StatusUnauthorized, "Authorization header must be 'Bearer <token>'.")
			return
		}

		var user *backend.User
		if cached, ok := verified.Get(token); ok {
			user = cached.(*backend.User)
		} else {
			u, err := verifier.VerifyToken(c.Request.Context(), token)
			if err != nil {
				if errors.Is(err, backend.ErrAuthRequired) {
					log.Debug("Token rejected by backend")
					common.RespondLegacyError(c, http.StatusUnauthorized, backend.ErrAuthRequired.Error())
					return
				}
				var apiErr *backend.APIError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
					common.RespondLegacyError(c, http.StatusUnauthorized, apiErr.Message)
					return
				}
				log.Warn("Token verification failed", zap.Error(err))
				common.RespondLegacyError(c, http.StatusServiceUnavailable, "Unable to verify session. Please try again.")
				return
			}
			user = u
			verified.SetDefault(token, user)
		}

		c.Set(common.UserIDKey, user.ID)
		c.Set(common.WalletAddressKey, user.PrimaryWallet())
		c.Set(common.TokenKey, token)
		c.Next()
	}
}
