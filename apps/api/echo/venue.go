package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/campus"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/venue"
)

type venueApi struct {
	baseApi
	svc    *venue.Service
	events *event.Service
}

func registerVenueAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *venue.Service, events *event.Service) {
	api := venueApi{baseApi: base, svc: svc, events: events}

	vg := g.Group("/venues", jwt)
	vg.GET("", api.query)
	vg.GET("/map", api.campusMap)
	vg.POST("", api.create, adminMiddleware())
	vg.GET("/:id", api.retrieve)
	vg.PUT("/:id", api.update, adminMiddleware())
	vg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *venueApi) query(ctx echo.Context) error {
	filter := venue.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Facility: ctx.QueryParam("facility"),
	}
	if n, err := strconv.Atoi(ctx.QueryParam("min_capacity")); err == nil {
		filter.MinCapacity = n
	}

	venues, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying venues")
	}
	if venues == nil {
		venues = []venue.Venue{}
	}
	return ctx.JSON(http.StatusOK, venues)
}

// campusMap returns the venue markers with the events booked in the `from`/`to` window.
func (api *venueApi) campusMap(ctx echo.Context) error {
	from, to := queryTime(ctx, "from"), queryTime(ctx, "to")

	venues, err := api.svc.Query(ctx.Request().Context(), venue.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying venues")
	}
	events, err := api.events.Query(ctx.Request().Context(), event.QueryFilter{
		Statuses: []status.Status{status.Pending, status.Approved},
		From:     from,
		To:       to,
	}, nil, "")
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, campus.BuildMap(venues, events, from, to))
}

func (api *venueApi) create(ctx echo.Context) error {
	var data venue.NewVenue
	if err := api.bind(ctx, &data, "NewVenue"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating venue")
	}
	api.pub.publish(ctx, broadcast.Venues, broadcast.OpCreate, v.ID, nil, nil)
	return ctx.JSON(http.StatusCreated, v)
}

func (api *venueApi) retrieve(ctx echo.Context) error {
	v, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting venue")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *venueApi) update(ctx echo.Context) error {
	id := ctx.Param("id")
	before, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting venue")
	}

	var data venue.UpdateVenue
	if err := api.bind(ctx, &data, "UpdateVenue"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating venue")
	}
	api.pub.publish(ctx, broadcast.Venues, broadcast.OpUpdate, id, before, v)
	return ctx.JSON(http.StatusOK, v)
}

func (api *venueApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := api.svc.Get(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "getting venue")
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting venue")
	}
	api.pub.publish(ctx, broadcast.Venues, broadcast.OpDelete, id, nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}
