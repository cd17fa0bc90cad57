package echoapi_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/club"
)

func dialChanges(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/changes" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readChange(t *testing.T, conn *websocket.Conn) broadcast.Change {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change broadcast.Change
	require.NoError(t, conn.ReadJSON(&change))
	return change
}

func Test_changesApi(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.app)
	defer srv.Close()

	t.Run("token required", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/changes"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	conn := dialChanges(t, srv, "?entities=clubs,nope&token="+f.token(t, f.alice))
	require.Eventually(t, func() bool { return f.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// posts are filtered out
	f.hub.Publish(broadcast.NewChange(broadcast.Posts, broadcast.OpCreate, "p1"))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/clubs/"+f.club.ID+"/join", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token(t, f.alice))
	req.Header.Set("X-Origin", "view-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	change := readChange(t, conn)
	assert.Equal(t, broadcast.Clubs, change.Entity)
	assert.Equal(t, broadcast.OpUpdate, change.Op)
	assert.Equal(t, f.club.ID, change.RecordID)
	assert.Equal(t, "view-1", change.Origin)

	// updates carry the patch
	desc := "We build robots"
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/clubs/"+f.club.ID, f.token(t, f.lead), club.UpdateClub{Description: &desc}, nil))
	change = readChange(t, conn)
	require.NotEmpty(t, change.Patch)
	var paths []string
	for _, op := range change.Patch {
		paths = append(paths, op.Path)
	}
	assert.Contains(t, paths, "/description")

	// metrics
	scrape := func() string {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}
	assert.Eventually(t, func() bool {
		return strings.Contains(scrape(), "nexussync_api_changes_sent_total 2")
	}, 2*time.Second, 10*time.Millisecond)
	metrics := scrape()
	assert.Contains(t, metrics, "nexussync_api_requests_total")
	assert.Contains(t, metrics, "nexussync_api_change_clients 1")

	// shutting down releases the clients
	ctx, cancel := context.WithTimeout(ctxBg, time.Second)
	defer cancel()
	require.NoError(t, f.app.Shutdown(ctx))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "err = %v", err)
}
