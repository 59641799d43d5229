// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AuthorizationHeader     = "Authorization"
	AuthorizationTypeBearer = "Bearer"

	// Gin context keys
	LoggerKey        = "logger"
	UserIDKey        = "userID"
	WalletAddressKey = "walletAddress"
	TokenKey         = "authToken"
)

// GetTokenFromContext returns the trimmed bearer token of the request, or "".
func GetTokenFromContext(c *gin.Context) string {
	return ParseBearer(c.GetHeader(AuthorizationHeader))
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" value.
func ParseBearer(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetUserIDFromContext returns the backend user ID set by the auth middleware.
func GetUserIDFromContext(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetWalletAddressFromContext returns the first wallet address of the authenticated user.
func GetWalletAddressFromContext(c *gin.Context) string {
	return c.GetString(WalletAddressKey)
}
