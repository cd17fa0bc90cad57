package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/message"
)

type messageApi struct {
	baseApi
	svc   *message.Service
	clubs clubManager
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, base baseApi, svc *message.Service, clubs clubManager) {
	api := messageApi{baseApi: base, svc: svc, clubs: clubs}

	mg := g.Group("/messages", jwt, managerMiddleware())
	mg.GET("", api.query)
	mg.POST("", api.send)
}

// query lists the messages sent by the context user, every message for admins.
func (api *messageApi) query(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	senderID := claims.Subject
	if claims.IsAdmin {
		senderID = ctx.QueryParam("sender")
	}
	msgs, err := api.svc.Query(ctx.Request().Context(), senderID)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

// send broadcasts a message. Leads can only reach the members of their clubs.
func (api *messageApi) send(ctx echo.Context) error {
	claims, err := api.claims(ctx)
	if err != nil {
		return err
	}
	var data message.NewMessage
	if err := api.bind(ctx, &data, "NewMessage"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if data.Audience != message.AudienceClub && !claims.IsAdmin {
		return errHttpForbidden
	}
	if data.Audience == message.AudienceClub {
		if err := mustManage(ctx, api.clubs, data.ClubID, claims); err != nil {
			return err
		}
	}

	sender, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	m, err := api.svc.Send(ctx.Request().Context(), data, sender)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	api.pub.publish(ctx, broadcast.Messages, broadcast.OpCreate, m.ID, nil, nil)
	api.pub.publish(ctx, broadcast.Notifications, broadcast.OpCreate, "", nil, nil)
	return ctx.JSON(http.StatusCreated, m)
}
