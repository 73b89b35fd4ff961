package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"almox/internal/core/apperror"
	appctx "almox/internal/core/context"
	"almox/internal/core/tenant"
)

// JWTValidator validates tokens and returns the authenticated user.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware validates the Bearer token and injects UserContext.
// Must run after TenantDB so the token's tenant can be matched against
// the resolved tenant.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, apperror.NewUnauthorized("Missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, apperror.NewUnauthorized("Invalid authorization header format"))
			return
		}

		user, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortWithError(c, apperror.NewUnauthorized("Invalid or expired token"))
			return
		}

		// A token issued for one tenant must not open another tenant's data.
		if tid := tenant.GetTenantID(c.Request.Context()); tid != "" && user.TenantID != tid {
			abortWithError(c, apperror.NewAccessDenied("Token does not match tenant"))
			return
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", user.UserID)

		c.Next()
	}
}

// RequireRole aborts unless the authenticated user carries one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		for _, role := range roles {
			if appctx.HasRole(ctx, role) {
				c.Next()
				return
			}
		}
		abortWithError(c, apperror.NewAccessDenied("Insufficient role"))
	}
}

// RequirePermission aborts unless the user carries at least one permission.
func RequirePermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if appctx.HasRole(c.Request.Context(), appctx.RoleSuperAdmin) ||
			appctx.HasAnyPermission(c.Request.Context(), perms...) {
			c.Next()
			return
		}
		abortWithError(c, apperror.NewAccessDenied("Insufficient permissions"))
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
