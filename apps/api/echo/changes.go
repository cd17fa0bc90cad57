package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
)

const (
	originHeader = "X-Origin"

	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// publisher turns successful writes into broadcast changes.
type publisher struct {
	hub    *broadcast.Hub
	logger core.Logger
}

// publish signals a change of entity. When before and after are both given the change
// carries the JSON patch between them.
func (p publisher) publish(ctx echo.Context, entity broadcast.Entity, op broadcast.Op, recordID string, before, after interface{}) {
	if p.hub == nil {
		return
	}
	change := broadcast.NewChange(entity, op, recordID).WithOrigin(ctx.Request().Header.Get(originHeader))
	if op == broadcast.OpUpdate && before != nil && after != nil {
		var err error
		if change, err = change.WithPatch(before, after); err != nil {
			p.logger.Warn("computing change patch", err)
		}
	}
	p.hub.Publish(change)
}

type changesApi struct {
	hub      *broadcast.Hub
	metrics  *metrics
	logger   core.Logger
	upgrader websocket.Upgrader
}

func registerChangesAPI(g *echo.Group, jwt echo.MiddlewareFunc, hub *broadcast.Hub, m *metrics, logger core.Logger) {
	api := changesApi{
		hub:     hub,
		metrics: m,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // authenticated by token
		},
	}
	g.GET("/changes", api.stream, jwt)
}

// stream pushes the changes of the requested entities (`?entities=events,posts`, all by
// default) to the websocket client until it disconnects.
func (api *changesApi) stream(ctx echo.Context) error {
	var entities []broadcast.Entity
	if val := ctx.QueryParam("entities"); val != "" {
		for _, name := range strings.Split(val, ",") {
			if e, ok := broadcast.ParseEntity(strings.TrimSpace(name)); ok {
				entities = append(entities, e)
			}
		}
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	defer conn.Close()

	sub := api.hub.Subscribe(entities...)
	defer sub.Close()

	api.metrics.changeClients.Inc()
	defer api.metrics.changeClients.Dec()

	// reader: only pongs and the close frame are expected
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case change, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return nil
			}
			if err := conn.WriteJSON(change); err != nil {
				return nil
			}
			api.metrics.changesSent.Inc()
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
