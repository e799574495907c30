package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/sigcolegio/backend/core/user"
)

// Roles allowed per kind of access.
var (
	readRoles    = user.StaffRoles
	recordRoles  = []string{user.RoleRector, user.RoleSecretary}
	settingRoles = []string{user.RoleRector}
)

// rolesMiddleware lets through the users having one of roles.
// Role checks are skipped when auth is turned off.
func (a *authenticator) rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !a.conf.Server.RequireAuth {
				return next(ctx)
			}
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
