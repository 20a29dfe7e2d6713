package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
	"github.com/noah-isme/material-submission-api/pkg/response"
)

// Self lets a caller through when the :id route parameter is their own user id.
const Self = "SELF"

// RequireProfiles allows callers whose profile name matches one of allowed, case-insensitively.
func RequireProfiles(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	profiles := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		profiles[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := profiles[strings.ToLower(claims.ProfileName)]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == strconv.FormatInt(claims.UserID, 10) {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "profile "+claims.ProfileName+" cannot access this resource"))
		c.Abort()
	}
}
