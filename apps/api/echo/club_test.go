package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/nexussync/clubs/apps/api/echo"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/status"
)

func Test_clubApi(t *testing.T) {
	f := setup(t)
	leadToken := f.token(t, f.lead)
	aliceToken := f.token(t, f.alice)
	adminToken := f.token(t, f.admin)

	runHTTPTests(t, f, []httpTest{
		{name: "auth required", path: "/v1/clubs", wantCode: http.StatusUnauthorized},
		{
			name: "students cannot create", method: http.MethodPost, path: "/v1/clubs", token: aliceToken,
			body: marshalObj(t, club.NewClub{Name: "Chess", Category: "social"}), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown category", method: http.MethodPost, path: "/v1/clubs", token: leadToken,
			body:     marshalObj(t, club.NewClub{Name: "Chess", Category: "board games"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"category": "unknown category"}),
		},
		{
			name: "name taken", method: http.MethodPost, path: "/v1/clubs", token: leadToken,
			body:     marshalObj(t, club.NewClub{Name: "Robotics", Category: "technical"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"name": "a club with this name already exists"}),
		},
		{name: "unknown club", path: "/v1/clubs/nope", token: aliceToken, wantCode: http.StatusNotFound},
		{
			name: "members are for managers", path: "/v1/clubs/" + f.club.ID + "/members", token: aliceToken,
			wantCode: http.StatusForbidden,
		},
	})

	// clubs created by leads wait for review
	var chess club.Club
	code := f.do(t, http.MethodPost, "/v1/clubs", leadToken, club.NewClub{Name: "Chess", Category: "social", Tags: []string{"Board", "board"}}, &chess)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, status.Pending, chess.Status)
	assert.Equal(t, club.CategorySocial, chess.Category)
	assert.Equal(t, f.lead.ID, chess.LeadID)
	assert.Len(t, chess.Tags, 1)

	var errResp httpErr
	require.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/clubs/"+chess.ID+"/join", aliceToken, nil, &errResp))
	assert.Equal(t, "club is not active", errResp.Error)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, "/v1/clubs/"+chess.ID+"/status", leadToken, StatusRequest{Status: status.Active}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/v1/clubs/"+chess.ID+"/status", adminToken, StatusRequest{Status: status.Approved}, nil))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/clubs/"+chess.ID+"/status", adminToken, StatusRequest{Status: status.Active}, &chess))
	assert.Equal(t, status.Active, chess.Status)

	// membership
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/clubs/"+chess.ID+"/join", aliceToken, nil, &chess))
	assert.True(t, chess.Joined)
	assert.Equal(t, 1, chess.MemberCount.Int())
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/clubs/"+chess.ID+"/join", aliceToken, nil, nil))

	var members []club.Member
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/clubs/"+chess.ID+"/members", leadToken, nil, &members))
	require.Len(t, members, 1)
	assert.Equal(t, "Alice", members[0].Name)

	var joined []club.Club
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/clubs?joined=true", aliceToken, nil, &joined))
	require.Len(t, joined, 1)
	assert.Equal(t, chess.ID, joined[0].ID)

	var all []club.Club
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/clubs?category=TECHNICAL", aliceToken, nil, &all))
	require.Len(t, all, 1)
	assert.Equal(t, f.club.ID, all[0].ID)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/v1/clubs/"+chess.ID+"/join", aliceToken, nil, &chess))
	assert.False(t, chess.Joined)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodDelete, "/v1/clubs/"+chess.ID+"/join", aliceToken, nil, nil))

	// updates
	desc := "Openings and endgames"
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, "/v1/clubs/"+chess.ID, aliceToken, club.UpdateClub{Description: &desc}, nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, "/v1/clubs/"+chess.ID, leadToken, club.UpdateClub{LeadID: f.alice.ID}, nil))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/clubs/"+chess.ID, leadToken, club.UpdateClub{Description: &desc}, &chess))
	assert.Equal(t, desc, chess.Description)
	assert.Equal(t, "Chess", chess.Name)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/v1/clubs/"+chess.ID, leadToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/clubs/"+chess.ID, adminToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/clubs/"+chess.ID, adminToken, nil, nil))
}
