package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/tenantctx"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/jwtutil"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/logger"
)

// AdminRole is the role claim required for cross-tenant administrative
// endpoints
const AdminRole = "system_admin"

// JWTAuthMiddleware validates the bearer token and binds the request to the
// tenant the token was issued for. Every downstream database operation reads
// the tenant from the request context; a request that never passed here
// fails closed at the storage layer.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			// Extract the token from the Authorization header
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing authorization header"})
			}

			// Check if the header format is valid
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid authorization header format"})
			}

			// Validate the token
			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}

			// The tenant claim was validated at token issuance; bind the
			// request scope to it
			tenantID, err := claims.TenantUUID()
			if err != nil {
				log.Warn("Token carries no usable tenant claim", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Token is not bound to a tenant"})
			}

			ctx := c.Request().Context()
			if tenantID == tenantctx.SystemTenantID() {
				// System tokens carry the zero tenant and get no scope
				// here; only SystemScopeMiddleware on the provisioning
				// routes grants one. Everywhere else they fail closed.
				if claims.Role != AdminRole {
					log.Warn("Zero tenant claim on a non-admin token")
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Token is not bound to a tenant"})
				}
			} else {
				ctx, err = tenantctx.Begin(ctx, tenantID)
				if err != nil {
					log.Warn("Failed to establish tenant scope", zap.Error(err))
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Token is not bound to a tenant"})
				}
			}
			c.SetRequest(c.Request().WithContext(ctx))

			// Store the claims in the context for later use
			c.Set("user", claims)
			log.Debug("JWT token validated successfully",
				zap.String("user_id", claims.UserID),
				zap.String("tenant_id", claims.TenantID),
				zap.String("email", claims.Email))

			err = next(c)

			// Clear the scope so nothing running after the handler can reuse it
			c.SetRequest(c.Request().WithContext(tenantctx.End(ctx)))
			return err
		}
	}
}

// SystemScopeMiddleware upgrades a request to the administrative system
// scope. Requires a validated token carrying the admin role; regular tenant
// tokens are rejected. Applied only to the narrow set of provisioning
// endpoints, never globally.
func SystemScopeMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			claims, ok := c.Get("user").(*jwtutil.UserClaims)
			if !ok {
				log.Warn("System endpoint hit without validated claims")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
			}
			if claims.Role != AdminRole {
				log.Warn("System endpoint rejected for non-admin role",
					zap.String("role", claims.Role),
					zap.String("user_id", claims.UserID))
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Administrative role required"})
			}

			ctx := tenantctx.WithSystem(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
