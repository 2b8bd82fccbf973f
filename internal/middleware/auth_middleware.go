package middleware

import (
	"strings"

	"go-leave/internal/auth/token"
	"go-leave/internal/shared/contextutil"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the bearer token (or the access_token cookie) and
// exposes the claims as user_id, employee_id, role and department.
func AuthMiddleware(tokens *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}

		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		claims, err := tokens.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("employee_id", claims.EmployeeID)
		c.Set("role", claims.Role)
		c.Set("department", claims.Department)

		ctx := contextutil.WithUserID(c.Request.Context(), claims.UserID)
		reqLogger := contextutil.GetLogger(ctx, zap.L()).With(zap.String("employee_id", claims.EmployeeID))
		c.Request = c.Request.WithContext(contextutil.WithLogger(ctx, reqLogger))

		c.Next()
	}
}
