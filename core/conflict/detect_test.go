package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/tags"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func ev(id string, fromH, toH int, mods ...func(*event.Event)) event.Event {
	e := event.Event{
		ID:       id,
		Title:    "event " + id,
		StartsAt: t0.Add(time.Duration(fromH) * time.Hour),
		EndsAt:   t0.Add(time.Duration(toH) * time.Hour),
		Status:   status.Approved,
	}
	for _, mod := range mods {
		mod(&e)
	}
	return e
}

func venue(id string) func(*event.Event) { return func(e *event.Event) { e.VenueID = id } }
func club(id string) func(*event.Event)  { return func(e *event.Event) { e.ClubID = id } }
func resources(rs ...string) func(*event.Event) {
	return func(e *event.Event) { e.Resources = tags.List(rs) }
}
func withStatus(st status.Status) func(*event.Event) { return func(e *event.Event) { e.Status = st } }

func ids(cs []Conflict) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		events []event.Event
		want   []string
	}{
		{name: "none", want: []string{}},
		{
			name:   "same venue overlapping",
			events: []event.Event{ev("b", 0, 2, venue("v1")), ev("a", 1, 3, venue("v1"))},
			want:   []string{"venue:a:b"},
		},
		{
			name:   "touching intervals do not overlap",
			events: []event.Event{ev("a", 0, 1, venue("v1")), ev("b", 1, 2, venue("v1"))},
			want:   []string{},
		},
		{
			name:   "different venues",
			events: []event.Event{ev("a", 0, 2, venue("v1")), ev("b", 1, 3, venue("v2"))},
			want:   []string{},
		},
		{
			name: "every dimension sorted by severity",
			events: []event.Event{
				ev("a", 0, 4, venue("v1"), club("c1"), resources("Projector", "mic")),
				ev("b", 2, 5, venue("v1"), club("c1"), resources("projector")),
			},
			want: []string{"venue:a:b", "resource:a:b", "club:a:b"},
		},
		{
			name: "rejected and cancelled are ignored",
			events: []event.Event{
				ev("a", 0, 4, venue("v1")),
				ev("b", 1, 2, venue("v1"), withStatus(status.Rejected)),
				ev("c", 1, 2, venue("v1"), withStatus(status.Cancelled)),
				ev("d", 1, 2, venue("v1"), withStatus(status.Pending)),
			},
			want: []string{"venue:a:d"},
		},
		{
			name: "long event against a chain",
			events: []event.Event{
				ev("long", 0, 10, club("c1")),
				ev("x", 1, 2, club("c1")),
				ev("y", 3, 4, club("c1")),
				ev("z", 11, 12, club("c1")),
			},
			want: []string{"club:long:x", "club:long:y"},
		},
		{
			name: "same severity by overlap start",
			events: []event.Event{
				ev("a", 0, 10, venue("v1")),
				ev("c", 5, 6, venue("v1")),
				ev("b", 2, 3, venue("v1")),
			},
			want: []string{"venue:a:b", "venue:a:c"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Detect(tc.events)))
		})
	}
}

func TestDetectDetails(t *testing.T) {
	cs := Detect([]event.Event{
		ev("b", 0, 3, resources("mic", "Chairs")),
		ev("a", 1, 5, resources("chairs", "MIC")),
	})
	require.Len(t, cs, 1)
	c := cs[0]
	assert.Equal(t, KindResource, c.Kind)
	assert.Equal(t, SeverityMedium, c.Severity)
	assert.Equal(t, "a", c.EventA)
	assert.Equal(t, "event a", c.TitleA)
	assert.Equal(t, "b", c.EventB)
	assert.Equal(t, "mic, Chairs", c.Subject)
	assert.Equal(t, t0.Add(time.Hour), c.Start)
	assert.Equal(t, t0.Add(3*time.Hour), c.End)
	assert.Equal(t, status.Open, c.Status)
}

func TestSeverityText(t *testing.T) {
	b, err := SeverityHigh.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "high", string(b))

	var s Severity
	require.NoError(t, s.UnmarshalText([]byte(" Medium ")))
	assert.Equal(t, SeverityMedium, s)
	assert.Equal(t, "unknown", Severity(9).String())
}

type memResolutions map[string]Resolution

func (m memResolutions) QueryResolutions(_ context.Context, ids ...string) ([]Resolution, error) {
	var out []Resolution
	for id, r := range m {
		if len(ids) == 0 || contains(ids, id) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memResolutions) SaveResolution(_ context.Context, r Resolution) error {
	m[r.ConflictID] = r
	return nil
}

func (m memResolutions) DeleteResolution(_ context.Context, id string) error {
	delete(m, id)
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

type staticEvents []event.Event

func (s staticEvents) Query(_ context.Context, filter event.QueryFilter, _ []core.DBOrdering, _ string) ([]event.Event, error) {
	var out []event.Event
	for _, e := range s {
		if event.Match(e, filter) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestServiceResolveReopen(t *testing.T) {
	ctx := context.Background()
	repo := memResolutions{}
	svc := NewService(repo, staticEvents{
		ev("a", 0, 2, venue("v1"), club("c1")),
		ev("b", 1, 3, venue("v1"), club("c1")),
	})

	all, err := svc.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"venue:a:b", "club:a:b"}, ids(all))

	c, err := svc.Resolve(ctx, "venue:a:b", ResolveRequest{Note: " moved to hall B "}, "admin")
	require.NoError(t, err)
	assert.Equal(t, status.Resolved, c.Status)
	assert.Equal(t, "moved to hall B", c.Note)
	require.NotNil(t, c.ResolvedAt)

	_, err = svc.Resolve(ctx, "venue:a:b", ResolveRequest{}, "admin")
	assert.Equal(t, ErrStatusTransition, err)

	open, err := svc.Query(ctx, QueryFilter{Status: status.Open})
	require.NoError(t, err)
	assert.Equal(t, []string{"club:a:b"}, ids(open))

	high, err := svc.Query(ctx, QueryFilter{MinSeverity: SeverityHigh})
	require.NoError(t, err)
	assert.Equal(t, []string{"venue:a:b"}, ids(high))
	assert.Equal(t, "admin", high[0].ResolvedBy)

	c, err = svc.Reopen(ctx, "venue:a:b")
	require.NoError(t, err)
	assert.Equal(t, status.Open, c.Status)
	assert.Empty(t, repo)

	// outside the window
	none, err := svc.Query(ctx, QueryFilter{From: t0.Add(4 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.Get(ctx, "venue:a:z")
	assert.True(t, core.IsNotFound(err))
}
