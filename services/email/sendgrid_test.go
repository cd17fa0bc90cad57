package emailsvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync"
	"testing"
	"time"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core"
)

type sendgridStub struct {
	mu       sync.Mutex
	statuses []int
	bodies   []map[string]interface{}
	auth     []string
}

func (s *sendgridStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := ioutil.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)
	s.bodies = append(s.bodies, body)
	s.auth = append(s.auth, r.Header.Get("Authorization"))

	code := http.StatusAccepted
	if len(s.statuses) > 0 {
		code, s.statuses = s.statuses[0], s.statuses[1:]
	}
	w.WriteHeader(code)
}

func newTestSendgrid(t *testing.T, stub *sendgridStub) *sendgridService {
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	conf := core.NewTestConfig()
	conf.Email.SendgridApiKey = "sg-key"
	svc := NewSendgridService(conf, new(testLogger))
	svc.host = srv.URL
	svc.retryWait = time.Millisecond
	return svc
}

func TestSendgridPrepare(t *testing.T) {
	svc := newTestSendgrid(t, new(sendgridStub))
	m := svc.prepare(core.EmailMessage{
		To:           []mail.Address{{Name: "Alice", Address: "alice@example.com"}},
		Bcc:          []mail.Address{{Address: "audit@example.com"}},
		Subject:      "Meetup",
		TemplateName: "club_message",
		TextContent:  "Friday 6pm",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Contains(t, p.Subject, "Meetup")
	require.Len(t, p.To, 1)
	assert.Equal(t, "alice@example.com", p.To[0].Address)
	assert.Empty(t, p.CC)
	require.Len(t, p.BCC, 1)
	assert.Equal(t, []string{sendgridCategory, "club_message"}, m.Categories)
	// no html part when the message has none
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}

func TestSendgridSend(t *testing.T) {
	ctx := context.Background()
	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "alice@example.com"}},
		Subject:     "Meetup",
		TextContent: "Friday 6pm",
	}

	t.Run("retries unavailable", func(t *testing.T) {
		stub := &sendgridStub{statuses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests}}
		svc := newTestSendgrid(t, stub)
		require.NoError(t, svc.send(ctx, sgmail.GetRequestBody(svc.prepare(msg))))
		require.Len(t, stub.bodies, 3)
		assert.Equal(t, "Bearer sg-key", stub.auth[0])
		assert.Equal(t, []interface{}{sendgridCategory}, stub.bodies[2]["categories"])
	})

	t.Run("gives up after retries", func(t *testing.T) {
		stub := &sendgridStub{statuses: []int{500, 500, 500, 500}}
		svc := newTestSendgrid(t, stub)
		err := svc.send(ctx, sgmail.GetRequestBody(svc.prepare(msg)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sendgrid status 500")
		assert.Len(t, stub.bodies, 1+svc.retries)
	})

	t.Run("client errors are final", func(t *testing.T) {
		stub := &sendgridStub{statuses: []int{http.StatusBadRequest}}
		svc := newTestSendgrid(t, stub)
		assert.Error(t, svc.send(ctx, sgmail.GetRequestBody(svc.prepare(msg))))
		assert.Len(t, stub.bodies, 1)
	})
}
