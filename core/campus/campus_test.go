package campus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/venue"
)

func TestBuildMap(t *testing.T) {
	t0 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	venues := []venue.Venue{
		{ID: "lib", Name: "library", Latitude: 12.5, Longitude: -3},
		{ID: "aud", Name: "Auditorium", Latitude: 12.1, Longitude: -2.5},
		{ID: "field", Name: "Sports field"},
	}
	ev := func(id, venueID string, startH int, st status.Status) event.Event {
		start := t0.Add(time.Duration(startH) * time.Hour)
		return event.Event{ID: id, VenueID: venueID, StartsAt: start, EndsAt: start.Add(time.Hour), Status: st}
	}
	events := []event.Event{
		ev("late", "aud", 5, status.Approved),
		ev("early", "aud", 1, status.Pending),
		ev("rejected", "aud", 2, status.Rejected),
		ev("outside", "lib", 30, status.Approved),
		ev("nowhere", "", 1, status.Approved),
	}

	m := BuildMap(venues, events, t0, t0.Add(24*time.Hour))
	require.Len(t, m.Markers, 3)
	assert.Equal(t, "aud", m.Markers[0].Venue.ID)
	assert.Equal(t, "lib", m.Markers[1].Venue.ID)
	assert.Equal(t, "field", m.Markers[2].Venue.ID)

	aud := m.Markers[0]
	require.Len(t, aud.Events, 2)
	assert.Equal(t, "early", aud.Events[0].ID)
	assert.Equal(t, "late", aud.Events[1].ID)
	assert.True(t, aud.Busy())
	assert.False(t, m.Markers[1].Busy())
	assert.NotNil(t, m.Markers[2].Events)

	assert.Equal(t, Bounds{MinLatitude: 12.1, MinLongitude: -3, MaxLatitude: 12.5, MaxLongitude: -2.5}, m.Bounds)

	// open window
	m = BuildMap(venues, events, time.Time{}, time.Time{})
	assert.Len(t, m.Markers[1].Events, 1)
}
