package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core/message"
	"github.com/nexussync/clubs/core/notification"
	"github.com/nexussync/clubs/core/user"
)

func Test_messageApi(t *testing.T) {
	f := setup(t)
	adminToken := f.token(t, f.admin)
	leadToken := f.token(t, f.lead)
	aliceToken := f.token(t, f.alice)

	toClub := message.NewMessage{
		Audience:  message.AudienceClub,
		ClubID:    f.club.ID,
		Subject:   "Kickoff",
		Body:      "First meeting on Friday.",
		SendEmail: true,
	}

	runHTTPTests(t, f, []httpTest{
		{name: "students cannot send", method: http.MethodPost, path: "/v1/messages", token: aliceToken,
			body: marshalObj(t, toClub), wantCode: http.StatusForbidden},
		{name: "leads reach their clubs only", method: http.MethodPost, path: "/v1/messages", token: leadToken,
			body: marshalObj(t, message.NewMessage{Audience: message.AudienceAll, Subject: "Hi", Body: "all"}), wantCode: http.StatusForbidden},
		{name: "club audience needs a club", method: http.MethodPost, path: "/v1/messages", token: leadToken,
			body:     marshalObj(t, message.NewMessage{Audience: message.AudienceClub, Subject: "Hi", Body: "?"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"club_id": "this field is required"})},
		{name: "unknown role", method: http.MethodPost, path: "/v1/messages", token: adminToken,
			body:     marshalObj(t, message.NewMessage{Audience: message.AudienceRole, Role: "teacher", Subject: "Hi", Body: "?"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"role": "unknown role"})},
		{name: "empty club", method: http.MethodPost, path: "/v1/messages", token: leadToken,
			body: marshalObj(t, toClub), wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "the audience has no recipients"})},
	})

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/clubs/"+f.club.ID+"/join", aliceToken, nil, nil))

	var m message.Message
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/messages", leadToken, toClub, &m))
	assert.Equal(t, 1, m.RecipientCount)
	assert.Equal(t, f.lead.ID, m.SenderID)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "club_message", sent[0].TemplateName)
	assert.Equal(t, "alice@campus.edu", sent[0].To[0].Address)

	var ns []notification.Notification
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/notifications?kind=message", aliceToken, nil, &ns))
	require.Len(t, ns, 1)
	assert.Equal(t, "Kickoff", ns[0].Title)

	// inactive users are left out
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/messages", adminToken, message.NewMessage{
		Audience: message.AudienceRole, Role: user.RoleStudent, Subject: "Fair", Body: "Club fair next week",
	}, &m))
	assert.Equal(t, 1, m.RecipientCount)
	assert.Len(t, f.mailSvc.SentMessages(), 1)

	var msgs []message.Message
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/messages", leadToken, nil, &msgs))
	require.Len(t, msgs, 1)
	msgs = nil
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/messages", adminToken, nil, &msgs))
	require.Len(t, msgs, 2)
	msgs = nil
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/messages?sender="+f.lead.ID, adminToken, nil, &msgs))
	require.Len(t, msgs, 1)
}
