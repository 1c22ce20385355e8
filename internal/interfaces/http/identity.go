package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmanzanog/service-catalog/internal/domain"
)

// Identity headers, set by the authenticating edge. The service itself
// never authenticates; it only deserializes an already-resolved
// identity.
const (
	HeaderUser   = "X-Catalog-User"
	HeaderGroups = "X-Catalog-Groups"
	HeaderAdmin  = "X-Catalog-Admin"
)

const principalKey = "principal"

// Identity extracts the principal from request headers. Requests
// without a user header are rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(HeaderUser)
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing " + HeaderUser + " header"})
			return
		}

		var groups []string
		if raw := c.GetHeader(HeaderGroups); raw != "" {
			for _, g := range strings.Split(raw, ",") {
				if g = strings.TrimSpace(g); g != "" {
					groups = append(groups, g)
				}
			}
		}

		c.Set(principalKey, domain.Principal{
			ID:     user,
			Groups: groups,
			Admin:  c.GetHeader(HeaderAdmin) == "true",
		})
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) domain.Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(domain.Principal)
	return principal
}
