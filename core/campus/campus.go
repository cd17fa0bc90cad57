// Package campus lays venues and their events out for the campus map.
package campus

import (
	"sort"
	"strings"
	"time"

	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/venue"
)

type Marker struct {
	Venue  venue.Venue   `json:"venue"`
	Events []event.Event `json:"events"`
}

// Busy reports whether an event is scheduled at the venue within the map window.
func (m Marker) Busy() bool { return len(m.Events) > 0 }

type Bounds struct {
	MinLatitude  float64 `json:"min_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MaxLongitude float64 `json:"max_longitude"`
}

type Map struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Markers []Marker  `json:"markers"`
	Bounds  Bounds    `json:"bounds"`
}

// BuildMap returns one marker per venue, by name, holding the pending and approved events
// overlapping [from, to) sorted by start. Zero bounds are open.
// Venues at (0, 0) are treated as not located and left out of Bounds.
func BuildMap(venues []venue.Venue, events []event.Event, from, to time.Time) Map {
	byVenue := make(map[string][]event.Event, len(venues))
	for _, e := range events {
		if e.VenueID == "" || !(e.Status == status.Pending || e.Status == status.Approved) {
			continue
		}
		if e.Overlaps(from, to) {
			byVenue[e.VenueID] = append(byVenue[e.VenueID], e)
		}
	}

	m := Map{From: from, To: to, Markers: make([]Marker, 0, len(venues))}
	located := false
	for _, v := range venues {
		evs := byVenue[v.ID]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].StartsAt.Before(evs[j].StartsAt) })
		if evs == nil {
			evs = []event.Event{}
		}
		m.Markers = append(m.Markers, Marker{Venue: v, Events: evs})

		if v.Latitude == 0 && v.Longitude == 0 {
			continue
		}
		if !located {
			m.Bounds = Bounds{v.Latitude, v.Longitude, v.Latitude, v.Longitude}
			located = true
			continue
		}
		if v.Latitude < m.Bounds.MinLatitude {
			m.Bounds.MinLatitude = v.Latitude
		}
		if v.Latitude > m.Bounds.MaxLatitude {
			m.Bounds.MaxLatitude = v.Latitude
		}
		if v.Longitude < m.Bounds.MinLongitude {
			m.Bounds.MinLongitude = v.Longitude
		}
		if v.Longitude > m.Bounds.MaxLongitude {
			m.Bounds.MaxLongitude = v.Longitude
		}
	}
	sort.SliceStable(m.Markers, func(i, j int) bool {
		return strings.ToLower(m.Markers[i].Venue.Name) < strings.ToLower(m.Markers[j].Venue.Name)
	})
	return m
}
