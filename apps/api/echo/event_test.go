package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/nexussync/clubs/apps/api/echo"
	"github.com/nexussync/clubs/core/campus"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/notification"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/venue"
)

func Test_venueApi(t *testing.T) {
	f := setup(t)
	adminToken := f.token(t, f.admin)
	aliceToken := f.token(t, f.alice)

	hall := venue.NewVenue{Name: "Main Hall", Building: "A", Latitude: 12.9, Longitude: 77.5, Capacity: 200, Facilities: []string{"Projector"}}
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/v1/venues", aliceToken, hall, nil))

	var v venue.Venue
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/venues", adminToken, hall, &v))
	assert.Equal(t, "Main Hall", v.Name)

	var errs map[string]string
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/venues", adminToken, hall, &errs))
	assert.Equal(t, "a venue with this name already exists", errs["name"])

	lab := venue.NewVenue{Name: "Lab 2", Building: "B", Latitude: 12.95, Longitude: 77.6, Capacity: 30}
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/venues", adminToken, lab, nil))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all, by name", "", []string{"Lab 2", "Main Hall"}},
		{"search building", "?search=b", []string{"Lab 2"}},
		{"facility", "?facility=projector", []string{"Main Hall"}},
		{"min capacity", "?min_capacity=50", []string{"Main Hall"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var venues []venue.Venue
			require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/venues"+tt.query, aliceToken, nil, &venues))
			names := make([]string, 0, len(venues))
			for _, v := range venues {
				names = append(names, v.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	hall.Capacity = 250
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/venues/"+v.ID, adminToken, hall, &v))
	assert.Equal(t, 250, v.Capacity)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/venues/"+v.ID, adminToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/venues/"+v.ID, aliceToken, nil, nil))
}

func Test_eventApi(t *testing.T) {
	f := setup(t)
	adminToken := f.token(t, f.admin)
	leadToken := f.token(t, f.lead)
	aliceToken := f.token(t, f.alice)

	var room venue.Venue
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/venues", adminToken,
		venue.NewVenue{Name: "Seminar Room", Latitude: 12.9, Longitude: 77.5, Capacity: 10}, &room))

	startsAt := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	ne := event.NewEvent{
		ClubID:   f.club.ID,
		Title:    "Line follower workshop",
		VenueID:  room.ID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(2 * time.Hour),
		Capacity: 1,
		Tags:     []string{"workshop"},
	}

	t.Run("validation", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/v1/events", aliceToken, ne, nil))

		bad := ne
		bad.EndsAt = bad.StartsAt.Add(-time.Hour)
		var errs map[string]string
		require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/events", leadToken, bad, &errs))
		assert.Contains(t, errs, "ends_at")

		bad = ne
		bad.Capacity = 11
		errs = nil
		require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/events", leadToken, bad, &errs))
		assert.Equal(t, "capacity exceeds the venue capacity (10)", errs["capacity"])
	})

	var e event.Event
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/events", leadToken, ne, &e))
	assert.Equal(t, status.Pending, e.Status)
	assert.Equal(t, f.lead.ID, e.CreatedBy)

	// pending events are not open yet
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/registration", aliceToken, nil, nil))

	ue := ne
	ue.Title = "Line follower workshop (beginners)"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/events/"+e.ID, leadToken, ue, &e))
	assert.Equal(t, ue.Title, e.Title)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/review", leadToken,
		event.ReviewRequest{Decision: event.DecisionApprove}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/review", adminToken,
		event.ReviewRequest{Decision: "maybe"}, nil))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/review", adminToken,
		event.ReviewRequest{Decision: "Approve", Note: "enjoy"}, &e))
	assert.Equal(t, status.Approved, e.Status)
	assert.Equal(t, f.admin.ID, e.ReviewedBy)

	// the creator hears about the review
	require.Len(t, f.mailSvc.SentMessages(), 1)
	assert.Equal(t, "event_reviewed", f.mailSvc.SentMessages()[0].TemplateName)
	var count CountResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/notifications/unread-count", leadToken, nil, &count))
	assert.Equal(t, 1, count.Count)

	// approved events are no longer editable
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPut, "/v1/events/"+e.ID, leadToken, ue, nil))

	// registration
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/registration", aliceToken,
		event.RegistrationForm{Answers: map[string]string{" diet ": " none "}}, &e))
	assert.True(t, e.Registered)
	assert.Equal(t, 1, e.RegisteredCount.Int())

	var errResp httpErr
	require.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/registration", aliceToken, nil, &errResp))
	assert.Equal(t, "already registered for this event", errResp.Error)
	require.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/registration", leadToken, nil, &errResp))
	assert.Equal(t, "event is full", errResp.Error)

	var regs []event.Registration
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/registrations", aliceToken, nil, &regs))
	require.Len(t, regs, 1)
	assert.Equal(t, e.ID, regs[0].EventID)
	assert.Equal(t, map[string]string{"diet": "none"}, regs[0].Answers)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/events/"+e.ID+"/attendees", aliceToken, nil, nil))
	regs = nil
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/events/"+e.ID+"/attendees", leadToken, nil, &regs))
	require.Len(t, regs, 1)
	assert.Equal(t, f.alice.ID, regs[0].UserID)

	// listing
	var events []event.Event
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/events?registered=true", aliceToken, nil, &events))
	require.Len(t, events, 1)
	events = nil
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/events?status=pending", aliceToken, nil, &events))
	assert.Empty(t, events)

	// campus map
	var m campus.Map
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/venues/map?from="+startsAt.Format(time.RFC3339), aliceToken, nil, &m))
	require.Len(t, m.Markers, 1)
	require.Len(t, m.Markers[0].Events, 1)
	assert.Equal(t, e.ID, m.Markers[0].Events[0].ID)
	m = campus.Map{}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/venues/map?to="+startsAt.Format("2006-01-02"), aliceToken, nil, &m))
	require.Len(t, m.Markers, 1)
	assert.Empty(t, m.Markers[0].Events)

	// cancelling tells the attendees
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/cancel", leadToken, nil, &e))
	assert.Equal(t, status.Cancelled, e.Status)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/cancel", leadToken, nil, nil))

	var ns []notification.Notification
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/notifications?kind=event", aliceToken, nil, &ns))
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Title, "was cancelled")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/v1/events/"+e.ID, leadToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/events/"+e.ID, adminToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/events/"+e.ID, aliceToken, nil, nil))
}

func Test_notificationApi(t *testing.T) {
	f := setup(t)
	aliceToken := f.token(t, f.alice)

	// reviews notify the creator of the event
	adminToken := f.token(t, f.admin)
	leadToken := f.token(t, f.lead)
	startsAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	for _, title := range []string{"Meetup", "Demo day"} {
		var e event.Event
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/events", leadToken, event.NewEvent{
			ClubID: f.club.ID, Title: title, StartsAt: startsAt, EndsAt: startsAt.Add(time.Hour),
		}, &e))
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/events/"+e.ID+"/review", adminToken,
			event.ReviewRequest{Decision: event.DecisionReject}, nil))
	}

	var ns []notification.Notification
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/notifications", leadToken, nil, &ns))
	require.Len(t, ns, 2)
	assert.False(t, ns[0].Read)

	// notifications are private
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/v1/notifications/"+ns[0].ID+"/read", aliceToken, nil, nil))

	var n notification.Notification
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/notifications/"+ns[0].ID+"/read", leadToken, nil, &n))
	assert.True(t, n.Read)

	var unread []notification.Notification
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/notifications?unread=true", leadToken, nil, &unread))
	require.Len(t, unread, 1)
	assert.Equal(t, ns[1].ID, unread[0].ID)

	var count CountResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/notifications/read-all", leadToken, nil, &count))
	assert.Equal(t, 1, count.Count)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/notifications/unread-count", leadToken, nil, &count))
	assert.Equal(t, 0, count.Count)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/notifications/"+ns[0].ID, leadToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/notifications?id="+ns[1].ID, leadToken, nil, nil))
	ns = nil
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/notifications", leadToken, nil, &ns))
	assert.Empty(t, ns)
}
