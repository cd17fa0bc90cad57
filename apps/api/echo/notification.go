package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/notification"
)

type notificationApi struct {
	baseApi
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *notification.Service) {
	api := notificationApi{baseApi: base, svc: svc}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("/read-all", api.readAll)
	ng.POST("/:id/read", api.read)
	ng.DELETE("", api.destroyMultiple)
	ng.DELETE("/:id", api.destroy)
}

// query lists the notifications of the context user, newest first.
func (api *notificationApi) query(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	filter := notification.QueryFilter{UserID: claims.Subject, Kind: ctx.QueryParam("kind")}
	if b := queryBool(ctx, "unread"); b != nil {
		filter.UnreadOnly = *b
	}

	ns, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *notificationApi) read(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpUpdate, n.ID, nil, nil)
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) readAll(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkAllRead(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	if n > 0 {
		api.pub.publish(ctx, broadcast.Notifications, broadcast.OpUpdate, "", nil, nil)
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: int(n)})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if _, err := api.svc.Get(ctx.Request().Context(), id, claims.Subject); err != nil {
		return errors.Wrap(err, "getting notification")
	}
	if err := api.svc.Delete(ctx.Request().Context(), claims.Subject, id); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpDelete, id, nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) destroyMultiple(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var query DestroyMultipleRequest
	if err := api.bind(ctx, &query, "DestroyMultipleRequest"); err != nil {
		return err
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), claims.Subject, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting notifications")
	}
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpDelete, "", nil, nil)
	return ctx.NoContent(http.StatusNoContent)
}

type CountResponse struct {
	Count int `json:"count"`
}
