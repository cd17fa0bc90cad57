package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/event"
)

type eventApi struct {
	baseApi
	svc   *event.Service
	clubs clubManager
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *event.Service, clubs clubManager) {
	api := eventApi{baseApi: base, svc: svc, clubs: clubs}

	eg := g.Group("/events", jwt)
	eg.GET("", api.query)
	eg.POST("", api.create, managerMiddleware())
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, managerMiddleware())
	eg.POST("/:id/review", api.review, adminMiddleware())
	eg.POST("/:id/cancel", api.cancel, managerMiddleware())
	eg.DELETE("/:id", api.destroy, adminMiddleware())
	eg.POST("/:id/registration", api.register)
	eg.DELETE("/:id/registration", api.unregister)
	eg.GET("/:id/attendees", api.attendees, managerMiddleware())

	g.GET("/registrations", api.registrations, jwt)
}

func (api *eventApi) query(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	filter := event.QueryFilter{
		ClubID:   ctx.QueryParam("club"),
		VenueID:  ctx.QueryParam("venue"),
		Statuses: queryStatuses(ctx, "status"),
		From:     queryTime(ctx, "from"),
		To:       queryTime(ctx, "to"),
		Search:   ctx.QueryParam("search"),
		Tag:      ctx.QueryParam("tag"),
	}
	if b := queryBool(ctx, "registered"); b != nil {
		filter.RegisteredOnly = *b
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) create(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data event.NewEvent
	if err := api.bind(ctx, &data, "NewEvent"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := mustManage(ctx, api.clubs, data.ClubID, claims); err != nil {
		return err
	}

	e, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	api.pub.publish(ctx, broadcast.Events, broadcast.OpCreate, e.ID, nil, nil)
	api.pub.publish(ctx, broadcast.Conflicts, broadcast.OpUpdate, "", nil, nil)
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, e)
}

// managed loads the event of the path and checks that the context user manages its club.
func (api *eventApi) managed(ctx echo.Context, claims Claims) (event.Event, error) {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), "")
	if err != nil {
		return event.Event{}, errors.Wrap(err, "getting event")
	}
	if err := mustManage(ctx, api.clubs, e.ClubID, claims); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (api *eventApi) update(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	before, err := api.managed(ctx, claims)
	if err != nil {
		return err
	}

	var data event.UpdateEvent
	if err := api.bind(ctx, &data, "UpdateEvent"); err != nil {
		return err
	}
	data.ClubID = before.ClubID // events do not move between clubs
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Update(ctx.Request().Context(), before.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	api.pub.publish(ctx, broadcast.Events, broadcast.OpUpdate, e.ID, before, e)
	api.pub.publish(ctx, broadcast.Conflicts, broadcast.OpUpdate, "", nil, nil)
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) review(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data event.ReviewRequest
	if err := api.bind(ctx, &data, "ReviewRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id := ctx.Param("id")
	before, err := api.svc.Get(ctx.Request().Context(), id, "")
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	e, err := api.svc.Review(ctx.Request().Context(), id, data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "reviewing event")
	}
	api.pub.publish(ctx, broadcast.Events, broadcast.OpUpdate, id, before, e)
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpCreate, "", nil, nil)
	api.pub.publish(ctx, broadcast.Conflicts, broadcast.OpUpdate, "", nil, nil)
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) cancel(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	before, err := api.managed(ctx, claims)
	if err != nil {
		return err
	}

	e, err := api.svc.Cancel(ctx.Request().Context(), before.ID, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "cancelling event")
	}
	api.pub.publish(ctx, broadcast.Events, broadcast.OpUpdate, e.ID, before, e)
	api.pub.publish(ctx, broadcast.Registrations, broadcast.OpUpdate, "", nil, nil)
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpCreate, "", nil, nil)
	api.pub.publish(ctx, broadcast.Conflicts, broadcast.OpUpdate, "", nil, nil)
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := api.svc.Get(ctx.Request().Context(), id, ""); err != nil {
		return errors.Wrap(err, "getting event")
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	api.pub.publish(ctx, broadcast.Events, broadcast.OpDelete, id, nil, nil)
	api.pub.publish(ctx, broadcast.Conflicts, broadcast.OpUpdate, "", nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) register(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var form event.RegistrationForm
	if err := api.bind(ctx, &form, "RegistrationForm"); err != nil {
		return err
	}

	e, err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), claims.Subject, form)
	if err != nil {
		return errors.Wrap(err, "registering")
	}
	api.pub.publish(ctx, broadcast.Registrations, broadcast.OpCreate, e.ID, nil, nil)
	api.pub.publish(ctx, broadcast.Events, broadcast.OpUpdate, e.ID, nil, nil)
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) unregister(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Unregister(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "unregistering")
	}
	api.pub.publish(ctx, broadcast.Registrations, broadcast.OpDelete, e.ID, nil, nil)
	api.pub.publish(ctx, broadcast.Events, broadcast.OpUpdate, e.ID, nil, nil)
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) attendees(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	e, err := api.managed(ctx, claims)
	if err != nil {
		return err
	}
	regs, err := api.svc.Attendees(ctx.Request().Context(), e.ID)
	if err != nil {
		return errors.Wrap(err, "listing attendees")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *eventApi) registrations(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	regs, err := api.svc.Registrations(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing registrations")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}
