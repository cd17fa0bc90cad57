package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/budget"
)

type budgetApi struct {
	baseApi
	svc   *budget.Service
	clubs clubManager
}

func registerBudgetAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *budget.Service, clubs clubManager) {
	api := budgetApi{baseApi: base, svc: svc, clubs: clubs}

	bg := g.Group("/budgets", jwt, managerMiddleware())
	bg.GET("/requests", api.query)
	bg.POST("/requests", api.create)
	bg.GET("/requests/:id", api.retrieve)
	bg.POST("/requests/:id/review", api.review, adminMiddleware())
	bg.POST("/requests/:id/cancel", api.cancel)
	bg.DELETE("/requests/:id", api.destroy, adminMiddleware())
	bg.GET("/allocations", api.allocations, adminMiddleware())
	bg.PUT("/allocations/:club_id", api.setAllocation, adminMiddleware())
	bg.GET("/summary", api.summary)
}

// query lists the requests of a club (`?club=`). Leads only see the clubs they manage,
// admins see every club when no club is given.
func (api *budgetApi) query(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	filter := budget.QueryFilter{
		ClubID:   ctx.QueryParam("club"),
		Statuses: queryStatuses(ctx, "status"),
		Category: ctx.QueryParam("category"),
		Search:   ctx.QueryParam("search"),
	}
	if !claims.IsAdmin {
		if filter.ClubID == "" {
			return errHttpForbidden
		}
		if err := mustManage(ctx, api.clubs, filter.ClubID, claims); err != nil {
			return err
		}
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reqs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying budget requests")
	}
	if reqs == nil {
		reqs = []budget.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *budgetApi) create(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data budget.NewRequest
	if err := api.bind(ctx, &data, "NewRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := mustManage(ctx, api.clubs, data.ClubID, claims); err != nil {
		return err
	}

	r, err := api.svc.CreateRequest(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating budget request")
	}
	api.pub.publish(ctx, broadcast.Budgets, broadcast.OpCreate, r.ID, nil, nil)
	return ctx.JSON(http.StatusCreated, r)
}

// managed loads the request of the path and checks that the context user manages its club.
func (api *budgetApi) managed(ctx echo.Context, claims Claims) (budget.Request, error) {
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return budget.Request{}, errors.Wrap(err, "getting budget request")
	}
	if err := mustManage(ctx, api.clubs, r.ClubID, claims); err != nil {
		return budget.Request{}, err
	}
	return r, nil
}

func (api *budgetApi) retrieve(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	r, err := api.managed(ctx, claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *budgetApi) review(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data budget.ReviewRequest
	if err := api.bind(ctx, &data, "ReviewRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id := ctx.Param("id")
	before, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting budget request")
	}
	r, err := api.svc.Review(ctx.Request().Context(), id, data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "reviewing budget request")
	}
	api.pub.publish(ctx, broadcast.Budgets, broadcast.OpUpdate, id, before, r)
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpCreate, "", nil, nil)
	return ctx.JSON(http.StatusOK, r)
}

func (api *budgetApi) cancel(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	before, err := api.managed(ctx, claims)
	if err != nil {
		return err
	}
	r, err := api.svc.Cancel(ctx.Request().Context(), before.ID)
	if err != nil {
		return errors.Wrap(err, "cancelling budget request")
	}
	api.pub.publish(ctx, broadcast.Budgets, broadcast.OpUpdate, r.ID, before, r)
	return ctx.JSON(http.StatusOK, r)
}

func (api *budgetApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := api.svc.Get(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "getting budget request")
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting budget request")
	}
	api.pub.publish(ctx, broadcast.Budgets, broadcast.OpDelete, id, nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *budgetApi) allocations(ctx echo.Context) error {
	as, err := api.svc.Allocations(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying allocations")
	}
	if as == nil {
		as = []budget.Allocation{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *budgetApi) setAllocation(ctx echo.Context) error {
	var data budget.SetAllocation
	if err := api.bind(ctx, &data, "SetAllocation"); err != nil {
		return err
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	a, err := api.svc.SetAllocation(ctx.Request().Context(), ctx.Param("club_id"), data)
	if err != nil {
		return errors.Wrap(err, "setting allocation")
	}
	api.pub.publish(ctx, broadcast.Budgets, broadcast.OpUpdate, "", nil, nil)
	return ctx.JSON(http.StatusOK, a)
}

// summary aggregates the requests of a club (`?club=`), or of every club for admins.
func (api *budgetApi) summary(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	clubID := ctx.QueryParam("club")
	if !claims.IsAdmin {
		if clubID == "" {
			return errHttpForbidden
		}
		if err := mustManage(ctx, api.clubs, clubID, claims); err != nil {
			return err
		}
	}
	s, err := api.svc.Summary(ctx.Request().Context(), clubID)
	if err != nil {
		return errors.Wrap(err, "summarizing budget")
	}
	return ctx.JSON(http.StatusOK, s)
}
