package identity

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ownerHeader   = "X-Owner-Key"
	sessionHeader = "X-Session-ID"

	contextKey = "identity"
)

// Identity is the caller as resolved by the auth layer in front of this
// service. Verification of credentials happens there; this package only
// consumes the result and hands anonymous callers a session handle.
type Identity struct {
	Authenticated bool
	OwnerKey      string
}

// Middleware resolves the caller identity for every request. Authenticated
// callers arrive with a verified owner key; anonymous callers get a session
// id minted on first contact and echoed back so they can hold on to it.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if owner := c.GetHeader(ownerHeader); owner != "" {
			c.Set(contextKey, Identity{Authenticated: true, OwnerKey: owner})
			c.Next()
			return
		}
		sid := c.GetHeader(sessionHeader)
		if sid == "" {
			sid = uuid.NewString()
		}
		c.Writer.Header().Set(sessionHeader, sid)
		c.Set(contextKey, Identity{Authenticated: false, OwnerKey: sid})
		c.Next()
	}
}

// FromContext returns the identity placed by Middleware. The zero value is
// returned when the middleware did not run.
func FromContext(c *gin.Context) Identity {
	v, ok := c.Get(contextKey)
	if !ok {
		return Identity{}
	}
	id, _ := v.(Identity)
	return id
}
