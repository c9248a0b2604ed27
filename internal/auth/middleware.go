package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/pkg/logging"
)

const identityKey = "lumen.identity"

// Identity is the acting user of a request
type Identity struct {
	UserID string
	Role   models.Role
}

// Optional attaches the identity carried by a valid bearer token. Requests
// without a token, or with an invalid one, continue anonymously.
func Optional(signer *Signer) gin.HandlerFunc {
	logger := logging.WithComponent("auth")
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		claims, err := signer.Parse(token)
		if err != nil {
			logger.Debug("ignoring invalid session token", zap.Error(err))
			c.Next()
			return
		}
		c.Set(identityKey, Identity{UserID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

// FromContext returns the identity attached by Optional. The zero Identity
// (empty UserID) means anonymous.
func FromContext(c *gin.Context) Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}
	}
	id, _ := v.(Identity)
	return id
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
