package api

import (
	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/gin-gonic/gin"
)

// gatewayUserHeader carries the worker id when the API gateway has already
// authenticated the request.
const gatewayUserHeader = "X-User-ID"

// AuthMiddleware authenticates every tracker route. Worker attribution only
// needs the token subject; requests arriving through the gateway skip token
// validation and trust the forwarded id instead.
func AuthMiddleware() gin.HandlerFunc {
	config := keycloakauth.DefaultConfig()
	config.LoadFromEnv() // Loads KEYCLOAK_URL and KEYCLOAK_REALM

	config.SkipPaths = []string{"/health"}
	config.RequiredClaims = []string{"sub"}

	tokenAuth := keycloakauth.SimpleAuthMiddleware(config)

	return func(c *gin.Context) {
		if workerID := c.GetHeader(gatewayUserHeader); workerID != "" {
			c.Set("userID", workerID)
			c.Next()
			return
		}

		// Direct calls still carry a Keycloak token.
		tokenAuth(c)
	}
}
