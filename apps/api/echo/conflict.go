package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/conflict"
)

type conflictApi struct {
	baseApi
	svc *conflict.Service
}

func registerConflictAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *conflict.Service) {
	api := conflictApi{baseApi: base, svc: svc}

	cg := g.Group("/conflicts", jwt, managerMiddleware())
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/resolve", api.resolve, adminMiddleware())
	cg.POST("/:id/reopen", api.reopen, adminMiddleware())
}

func (api *conflictApi) query(ctx echo.Context) error {
	filter := conflict.QueryFilter{
		From: queryTime(ctx, "from"),
		To:   queryTime(ctx, "to"),
		Kind: conflict.Kind(ctx.QueryParam("kind")),
	}
	if sts := queryStatuses(ctx, "status"); len(sts) > 0 {
		filter.Status = sts[0]
	}
	_ = filter.MinSeverity.UnmarshalText([]byte(ctx.QueryParam("min_severity"))) // unknown is no minimum

	conflicts, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying conflicts")
	}
	return ctx.JSON(http.StatusOK, conflicts)
}

func (api *conflictApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting conflict")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *conflictApi) resolve(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data conflict.ResolveRequest
	if err := api.bind(ctx, &data, "ResolveRequest"); err != nil {
		return err
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	c, err := api.svc.Resolve(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "resolving conflict")
	}
	api.pub.publish(ctx, broadcast.Conflicts, broadcast.OpUpdate, c.ID, nil, nil)
	return ctx.JSON(http.StatusOK, c)
}

func (api *conflictApi) reopen(ctx echo.Context) error {
	c, err := api.svc.Reopen(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "reopening conflict")
	}
	api.pub.publish(ctx, broadcast.Conflicts, broadcast.OpUpdate, c.ID, nil, nil)
	return ctx.JSON(http.StatusOK, c)
}
