package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/status"
)

type clubApi struct {
	baseApi
	svc *club.Service
}

func registerClubAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *club.Service) {
	api := clubApi{baseApi: base, svc: svc}

	cg := g.Group("/clubs", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, managerMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.PUT("/:id/status", api.setStatus, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())
	cg.POST("/:id/join", api.join)
	cg.DELETE("/:id/join", api.leave)
	cg.GET("/:id/members", api.members)
}

func (api *clubApi) query(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	filter := club.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Category: ctx.QueryParam("category"),
		Tag:      ctx.QueryParam("tag"),
	}
	if sts := queryStatuses(ctx, "status"); len(sts) > 0 {
		filter.Status = sts[0]
	}
	if b := queryBool(ctx, "joined"); b != nil && *b {
		filter.MemberID = claims.Subject
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	clubs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying clubs")
	}
	if clubs == nil {
		clubs = []club.Club{}
	}
	return ctx.JSON(http.StatusOK, clubs)
}

func (api *clubApi) create(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data club.NewClub
	if err := api.bind(ctx, &data, "NewClub"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	// only admins appoint leads
	if !claims.IsAdmin {
		data.LeadID = ""
	}

	c, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject, claims.IsAdmin)
	if err != nil {
		return errors.Wrap(err, "creating club")
	}
	api.pub.publish(ctx, broadcast.Clubs, broadcast.OpCreate, c.ID, nil, nil)
	return ctx.JSON(http.StatusCreated, c)
}

func (api *clubApi) retrieve(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting club")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) update(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	before, err := api.svc.Get(ctx.Request().Context(), id, "")
	if err != nil {
		return errors.Wrap(err, "getting club")
	}
	if err := mustManage(ctx, api.svc, id, claims); err != nil {
		return err
	}

	var data club.UpdateClub
	if err := api.bind(ctx, &data, "UpdateClub"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if !claims.IsAdmin && data.LeadID != "" && data.LeadID != before.LeadID {
		return errHttpForbidden
	}

	c, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating club")
	}
	api.pub.publish(ctx, broadcast.Clubs, broadcast.OpUpdate, id, before, c)
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) setStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := api.bind(ctx, &data, "StatusRequest"); err != nil {
		return err
	}
	if !(data.Status == status.Active || data.Status == status.Inactive) {
		return errInvalidStatus
	}

	id := ctx.Param("id")
	before, err := api.svc.Get(ctx.Request().Context(), id, "")
	if err != nil {
		return errors.Wrap(err, "getting club")
	}
	c, err := api.svc.SetStatus(ctx.Request().Context(), id, data.Status)
	if err != nil {
		return errors.Wrap(err, "setting club status")
	}
	api.pub.publish(ctx, broadcast.Clubs, broadcast.OpUpdate, id, before, c)
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := api.svc.Get(ctx.Request().Context(), id, ""); err != nil {
		return errors.Wrap(err, "getting club")
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting club")
	}
	api.pub.publish(ctx, broadcast.Clubs, broadcast.OpDelete, id, nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *clubApi) join(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Join(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "joining club")
	}
	api.pub.publish(ctx, broadcast.Clubs, broadcast.OpUpdate, c.ID, nil, nil)
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) leave(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Leave(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "leaving club")
	}
	api.pub.publish(ctx, broadcast.Clubs, broadcast.OpUpdate, c.ID, nil, nil)
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) members(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if err := mustManage(ctx, api.svc, id, claims); err != nil {
		return err
	}
	members, err := api.svc.Members(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing members")
	}
	if members == nil {
		members = []club.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}
