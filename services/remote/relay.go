package remotesvc

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
)

const (
	relayMinBackoff = 500 * time.Millisecond
	relayMaxBackoff = 30 * time.Second
)

// Relay republishes the API change feed into a local hub, where the views listen.
type Relay struct {
	client   *Client
	hub      *broadcast.Hub
	logger   core.Logger
	entities []broadcast.Entity
	dialer   *websocket.Dialer

	MinBackoff time.Duration
	MaxBackoff time.Duration
	// OnConnect is called every time the feed is (re)connected.
	OnConnect func()
}

// Relay relays the changes of entities (all of them when none is given) into hub.
func (c *Client) Relay(hub *broadcast.Hub, logger core.Logger, entities ...broadcast.Entity) *Relay {
	return &Relay{
		client:     c,
		hub:        hub,
		logger:     logger,
		entities:   entities,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		MinBackoff: relayMinBackoff,
		MaxBackoff: relayMaxBackoff,
	}
}

// URL returns the websocket address of the change feed, token included.
func (r *Relay) URL() (string, error) {
	u, err := url.Parse(r.client.BaseURL() + "/v1/changes")
	if err != nil {
		return "", errors.Wrap(err, "parsing base url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}

	q := u.Query()
	q.Set("token", r.client.Token())
	if len(r.entities) > 0 {
		names := make([]string, len(r.entities))
		for i, e := range r.entities {
			names[i] = string(e)
		}
		q.Set("entities", strings.Join(names, ","))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run relays changes until ctx is done, reconnecting with an exponential backoff.
// It gives up on authentication errors only.
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.MinBackoff
	for {
		connected, err := r.relay(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if IsUnauthorized(err) || IsForbidden(err) {
			return err
		}
		if connected {
			backoff = r.MinBackoff
		}
		r.logger.Warn("change feed disconnected", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > r.MaxBackoff {
			backoff = r.MaxBackoff
		}
	}
}

func (r *Relay) relay(ctx context.Context) (bool, error) {
	addr, err := r.URL()
	if err != nil {
		return false, err
	}
	conn, resp, err := r.dialer.DialContext(ctx, addr, nil)
	if err != nil {
		if resp != nil {
			return false, &Error{StatusCode: resp.StatusCode, Message: strings.ToLower(http.StatusText(resp.StatusCode))}
		}
		return false, errors.Wrap(err, "dialing change feed")
	}
	defer conn.Close()
	if r.OnConnect != nil {
		r.OnConnect()
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var change broadcast.Change
		if err := conn.ReadJSON(&change); err != nil {
			return true, errors.Wrap(err, "reading change")
		}
		r.hub.Publish(change)
	}
}
