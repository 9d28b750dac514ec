package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ValidUserKey = "validuser"

// Middleware puts the validated session claims under "validuser". Requests
// without a usable token pass through; handlers decide what needs one.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie("jwt"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString != "" {
			claims, err := ValidateToken(tokenString)
			if err == nil && claims.GetCmd() == CmdSession {
				c.Set(ValidUserKey, claims)
			}
		}

		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// ValidUser returns the session claims of the request, with the http status
// to answer with when there are none.
func ValidUser(c *gin.Context) (*Claims, int) {
	vuser, ok := c.Get(ValidUserKey)
	if !ok {
		return nil, http.StatusUnauthorized
	}

	claims := vuser.(*Claims)
	if claims.IsExpired() {
		return nil, http.StatusUnauthorized
	}

	return claims, http.StatusOK
}
