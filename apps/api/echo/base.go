package echoapi

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/user"
)

// baseApi holds what every resource API needs.
type baseApi struct {
	validate *validator.Validate
	users    *user.Service
	pub      publisher
}

func (api baseApi) claims(ctx echo.Context) (Claims, error) {
	claims, err := getContextClaims(ctx)
	return claims, errors.Wrap(err, "getting context claims")
}

func (api baseApi) bind(ctx echo.Context, v interface{}, name string) error {
	if err := ctx.Bind(v); err != nil {
		return errors.Wrap(err, "binding to "+name)
	}
	return nil
}

// clubManager is what resource APIs need to know about clubs.
type clubManager interface {
	CanManage(ctx context.Context, clubID, userID string, isAdmin bool) (bool, error)
	IsMember(ctx context.Context, clubID, userID string) (bool, error)
}

// mustManage fails unless the context user leads the club or is an admin.
func mustManage(ctx echo.Context, clubs clubManager, clubID string, claims Claims) error {
	ok, err := clubs.CanManage(ctx.Request().Context(), clubID, claims.Subject, claims.IsAdmin)
	if err != nil {
		return errors.Wrap(err, "checking club management")
	}
	if !ok {
		return errHttpForbidden
	}
	return nil
}
