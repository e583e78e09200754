package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// adminMiddleware refuses any caller whose claims do not carry a portal admin
// role. It fails closed: missing or malformed claims are refused too.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth, err := getAuthContext(ctx)
			if err != nil {
				return errors.Wrap(err, "getting auth context")
			}
			if !auth.CanAdminister() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
