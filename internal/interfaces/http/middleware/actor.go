package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
)

// ActorKey is the gin context key holding the resolved audit actor
const ActorKey = "audit_actor"

// ActorHeader names the operator behind a request. The deployment sits
// behind the office network, so a header is the whole identity story.
const ActorHeader = "X-Actor"

const defaultActorName = "anonymous"

// Actor resolves the audit attribution of every request from the actor
// header and the client address
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(ActorHeader))
		if name == "" {
			name = defaultActorName
		}
		c.Set(ActorKey, audit.Actor{
			Name:     name,
			SourceIP: c.ClientIP(),
		})
		c.Next()
	}
}

// GetActor returns the audit actor resolved for this request
func GetActor(c *gin.Context) audit.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(audit.Actor); ok {
			return actor
		}
	}
	return audit.Actor{Name: defaultActorName, SourceIP: c.ClientIP()}
}
