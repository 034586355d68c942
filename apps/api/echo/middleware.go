package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nocheto/libretas/core/school"
)

const requestSeqHeader = "X-Request-Seq"

// userMiddleware loads the authenticated user from the directory.
// A token whose user has left the directory is rejected.
func userMiddleware(users school.Identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			usr, err := users.User(claims.Subject)
			if err != nil {
				if errors.Cause(err) == school.ErrUserNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func principalMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if _, ok := usr.Role.(school.Principal); !ok {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// requestSeqMiddleware echoes the client sequence number so that a client can drop stale responses.
func requestSeqMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if seq := ctx.Request().Header.Get(requestSeqHeader); seq != "" {
			ctx.Response().Header().Set(requestSeqHeader, seq)
		}
		return next(ctx)
	}
}

func canView(ctx echo.Context, section string) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !school.CanView(usr.Role, section) {
		return errHttpForbidden
	}
	return nil
}
