package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/nexussync/clubs/apps/api/echo"
	"github.com/nexussync/clubs/core/user"
)

func userIDs(users []user.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func Test_userApi_login(t *testing.T) {
	f := setup(t)

	tests := []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "nobody", Password: "Pass-w0rd!"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "alice", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "bob", Password: "Pass-w0rd!"}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runHTTPTests(t, f, tests)

	for _, uname := range []string{"alice", " ALICE ", "alice@campus.edu"} {
		t.Run("login as "+uname, func(t *testing.T) {
			var resp LoginResponse
			code := f.do(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: uname, Password: "Pass-w0rd!"}, &resp)
			require.Equal(t, http.StatusOK, code)
			require.NotEmpty(t, resp.Token)

			var me user.User
			require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/users/me", resp.Token, nil, &me))
			assert.Equal(t, f.alice.ID, me.ID)
			assert.False(t, me.LastLogin.IsZero())
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	f := setup(t)

	req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
	f.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp LoginResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/users/token-refresh", f.token(t, f.alice), nil, &resp))
	assert.NotEmpty(t, resp.Token)

	// deactivated since the token was issued
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/v1/users/token-refresh", f.token(t, f.bob), nil, nil))
}

func Test_userApi_query(t *testing.T) {
	f := setup(t)
	adminToken := f.token(t, f.admin)

	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/v1/users?" + v.Encode()
	}

	runHTTPTests(t, f, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: f.token(t, f.alice),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
	})

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"all (by name)", path(), []string{f.admin.ID, f.alice.ID, f.bob.ID, f.lead.ID}},
		{"ordering", path("ordering", "-username"), []string{f.lead.ID, f.bob.ID, f.alice.ID, f.admin.ID}},
		{"search", path("search", "LEA"), []string{f.lead.ID}},
		{"search unknown", path("search", "lol"), []string{}},
		{"role", path("role", user.RoleAdmin), []string{f.admin.ID}},
		{"inactive", path("is_active", "false"), []string{f.bob.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var users []user.User
			require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, tt.path, adminToken, nil, &users))
			assert.Equal(t, tt.want, userIDs(users))
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	f := setup(t)
	aliceToken := f.token(t, f.alice)
	adminToken := f.token(t, f.admin)

	runHTTPTests(t, f, []httpTest{
		{name: "other user hidden", path: "/v1/users/" + f.lead.ID, token: aliceToken, wantCode: http.StatusNotFound},
		{name: "own profile", path: "/v1/users/" + f.alice.ID, token: aliceToken, wantCode: http.StatusOK},
		{name: "admin sees all", path: "/v1/users/" + f.lead.ID, token: adminToken, wantCode: http.StatusOK},
		{
			name: "students cannot change roles", method: http.MethodPut, path: "/v1/users/" + f.alice.ID, token: aliceToken,
			body: marshalObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}), wantCode: http.StatusForbidden,
		},
		{
			name: "admins cannot deactivate themselves", method: http.MethodPut, path: "/v1/users/" + f.admin.ID + "/status",
			token: adminToken, body: []byte(`{"is_active": false}`), wantCode: http.StatusForbidden,
		},
		{
			name: "admins cannot delete themselves", method: http.MethodDelete, path: "/v1/users/" + f.admin.ID,
			token: adminToken, wantCode: http.StatusForbidden,
		},
	})

	var updated user.User
	dept := "Physics"
	code := f.do(t, http.MethodPut, "/v1/users/"+f.alice.ID, aliceToken, user.UpdateUser{Name: "Alice B.", Department: &dept}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alice B.", updated.Name)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "Physics", updated.Department)

	code = f.do(t, http.MethodPut, "/v1/users/"+f.alice.ID+"/status", adminToken, map[string]bool{"is_active": false}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, updated.IsActive)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/users/"+f.alice.ID, adminToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/users/"+f.alice.ID, adminToken, nil, nil))
}

func Test_userApi_create(t *testing.T) {
	f := setup(t)
	adminToken := f.token(t, f.admin)

	nu := user.NewUser{
		Name:            "Carol",
		Username:        "carol",
		Email:           "carol@campus.edu",
		Password:        "Zebra-Lamp-42",
		PasswordConfirm: "Zebra-Lamp-42",
	}
	var created user.User
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/users/register", adminToken, nu, &created))
	assert.Equal(t, []string{user.RoleStudent}, created.Roles)
	assert.True(t, created.IsActive)

	var errs map[string]string
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/users/register", adminToken, nu, &errs))
	assert.Contains(t, errs, "username")

	nu.Username, nu.Email, nu.Roles = "dave", "dave@campus.edu", []string{user.RoleAdminOwner}
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/users/register", adminToken, nu, &errs))
	assert.Equal(t, "not enough rights to set these roles", errs["roles"])
}

func Test_userApi_passwordReset(t *testing.T) {
	f := setup(t)

	var ok SuccessResponse
	for _, email := range []string{"nobody@campus.edu", "bob@campus.edu", "alice@campus.edu"} {
		code := f.do(t, http.MethodPost, "/v1/users/password-reset", "", PasswordResetRequest{Email: email}, &ok)
		require.Equal(t, http.StatusOK, code)
	}

	// only the active account gets an email
	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@campus.edu", sent[0].To[0].Address)
	data := sent[0].TemplateData.(map[string]interface{})

	reset := user.ResetUserPassword{
		UID:             "garbage",
		Token:           data["Token"].(string),
		Password:        "Newer-Pass-7",
		PasswordConfirm: "Newer-Pass-7",
	}
	var errResp httpErr
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/users/password-reset-confirm", "", reset, &errResp))
	assert.Equal(t, "invalid token", errResp.Error)

	reset.UID = data["UID"].(string)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/users/password-reset-confirm", "", reset, &ok))

	var resp LoginResponse
	code := f.do(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "alice", Password: "Newer-Pass-7"}, &resp)
	assert.Equal(t, http.StatusOK, code)
}
