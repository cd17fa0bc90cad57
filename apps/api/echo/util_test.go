package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/nexussync/clubs/apps/api/echo"
	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/conflict"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/message"
	"github.com/nexussync/clubs/core/notification"
	"github.com/nexussync/clubs/core/post"
	"github.com/nexussync/clubs/core/quiz"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/user"
	"github.com/nexussync/clubs/core/venue"
	emailsvc "github.com/nexussync/clubs/services/email"
	sqlxrepos "github.com/nexussync/clubs/storage/database/sqlx"
	testutil "github.com/nexussync/clubs/tests"
)

var (
	ctxBg = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type testLogger struct{ errs []string }

func (l *testLogger) Debug(string, ...interface{})       {}
func (l *testLogger) Info(string, ...interface{})        {}
func (l *testLogger) Warn(string, ...interface{})        {}
func (l *testLogger) Error(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }

type fixture struct {
	app     *Server
	hub     *broadcast.Hub
	mailSvc *emailsvc.ConsoleServiceMock
	usrRepo user.Repository
	clubSvc *club.Service

	admin, lead, alice, bob user.User
	club                    club.Club
}

// setup serves the API over a fresh database holding an admin, a club lead,
// two students (bob is inactive) and one active club led by the lead.
func setup(t *testing.T) *fixture {
	t.Helper()
	conf := core.NewTestConfig()
	logger := new(testLogger)
	db := testutil.PrepareDB(t)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	club.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db))
	clubSvc := club.NewService(sqlxrepos.NewClubRepository(db))
	venueSvc := venue.NewService(sqlxrepos.NewVenueRepository(db))
	eventSvc := event.NewService(sqlxrepos.NewEventRepository(db), venueSvc, usrSvc, notifSvc, mailSvc, logger)
	hub := broadcast.NewHub(64)

	app := NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		Hub:             hub,
		UserSvc:         usrSvc,
		ClubSvc:         clubSvc,
		VenueSvc:        venueSvc,
		EventSvc:        eventSvc,
		PostSvc:         post.NewService(sqlxrepos.NewPostRepository(db), notifSvc),
		NotificationSvc: notifSvc,
		BudgetSvc:       budget.NewService(sqlxrepos.NewBudgetRepository(db), notifSvc, logger),
		ConflictSvc:     conflict.NewService(sqlxrepos.NewConflictRepository(db), eventSvc),
		QuizSvc:         quiz.NewService(sqlxrepos.NewQuizRepository(db)),
		MessageSvc:      message.NewService(sqlxrepos.NewMessageRepository(db), usrSvc, clubSvc, notifSvc, mailSvc),
	})
	t.Cleanup(func() { _ = app.Close() })

	f := &fixture{app: app, hub: hub, mailSvc: mailSvc, usrRepo: usrRepo, clubSvc: clubSvc}
	f.admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@campus.edu", "Pass-w0rd!", []string{user.RoleAdmin}, true)
	f.lead = testutil.CreateUser(t, usrRepo, "Lea Lead", "lead", "lead@campus.edu", "Pass-w0rd!", []string{user.RoleLead}, true)
	f.alice = testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@campus.edu", "Pass-w0rd!", []string{user.RoleStudent}, true)
	f.bob = testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@campus.edu", "Pass-w0rd!", []string{user.RoleStudent}, false)

	c, err := clubSvc.Create(ctxBg, club.NewClub{Name: "Robotics", Category: club.CategoryTechnical, LeadID: f.lead.ID}, f.admin.ID, true)
	require.NoError(t, err)
	require.Equal(t, status.Active, c.Status)
	f.club = c
	return f
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := f.app.Auth().Token(f.app.Auth().Claims(usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do serves a request and decodes the JSON response into out, when given.
func (f *fixture) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var data []byte
	if body != nil {
		data = marshalObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	f.app.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, f *fixture, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
