// ABOUTME: Wire model for race legs published by the game API
// ABOUTME: Converts a leg into the race record kept by the store

package leg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/2389/races/internal/store"
)

// Checkpoint display modes and gate sides
const (
	DisplayNone = "none"
	DisplayBuoy = "buoy"
	DisplayGate = "gate"

	SideStbd = "stbd"
	SidePort = "port"
)

// EndWaypointName names the finish waypoint appended to every converted leg
const EndWaypointName = "end"

// Millis is a timestamp encoded as milliseconds since the Unix epoch.
type Millis struct {
	time.Time
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		m.Time = time.Time{}
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		// Some payloads carry fractional milliseconds
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil {
			return fmt.Errorf("millisecond timestamp %s: %w", data, err)
		}
		ms = int64(f)
	}
	m.Time = time.UnixMilli(ms).UTC()
	return nil
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.UnixMilli(), 10)), nil
}

// ID identifies a leg: the race and, for multi-leg races, the leg number.
type ID struct {
	RaceID int  `json:"race_id"`
	Num    *int `json:"num,omitempty"`
}

// String renders "<race_id>" or "<race_id>.<num>".
func (id ID) String() string {
	if id.Num == nil {
		return strconv.Itoa(id.RaceID)
	}
	return fmt.Sprintf("%d.%d", id.RaceID, *id.Num)
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p LatLon) toStore() store.LatLon {
	return store.LatLon{Lat: p.Lat, Lon: p.Lon}
}

type Start struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Date    Millis  `json:"date"`
	Heading int     `json:"heading,omitempty"`
}

type End struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Name   string  `json:"name"`
	Date   Millis  `json:"date"`
	Radius uint8   `json:"radius"`
}

// Checkpoint is a course mark. Gates are crossed between Start and End.
type Checkpoint struct {
	ID      int    `json:"id"`
	Group   int    `json:"group"`
	Name    string `json:"name"`
	Start   LatLon `json:"start"`
	End     LatLon `json:"end"`
	Engine  bool   `json:"engine"`
	Display string `json:"display"`
	Side    string `json:"side"`
}

type Limits struct {
	North  []LatLon `json:"north"`
	South  []LatLon `json:"south"`
	MaxLat float64  `json:"maxLat"`
	MinLat float64  `json:"minLat"`
}

type Race struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Boat struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	PolarID int    `json:"polar_id"`
}

// Leg is the subset of a published leg the service understands. Unknown keys are ignored.
type Leg struct {
	ID          ID           `json:"_id"`
	Name        string       `json:"name"`
	Start       Start        `json:"start"`
	End         End          `json:"end"`
	Checkpoints []Checkpoint `json:"checkpoints"`
	IceLimits   *Limits      `json:"ice_limits,omitempty"`
	Race        Race         `json:"race"`
	Boat        Boat         `json:"boat"`
}

// Decode parses a leg document.
func Decode(data []byte) (*Leg, error) {
	var l Leg
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding leg: %w", err)
	}
	return &l, nil
}

// ToRace converts the leg into a race record. Boat is left empty for the caller to resolve.
func (l *Leg) ToRace() *store.Race {
	start := l.Start.Date.Truncate(time.Second)
	end := l.End.Date.Truncate(time.Second)

	race := &store.Race{
		ID:        store.DeriveID(l.Race.Name),
		RaceID:    l.ID.String(),
		Name:      l.Race.Name,
		ShortName: l.Race.Name,
		StartTime: &start,
		EndTime:   &end,
		Start:     store.LatLon{Lat: l.Start.Lat, Lon: l.Start.Lon},
		Waypoints: make([]store.Waypoint, 0, len(l.Checkpoints)+1),
	}

	n := 0
	for _, cp := range l.Checkpoints {
		if cp.Display == DisplayNone {
			continue
		}
		n++

		latlons := []store.LatLon{cp.Start.toStore(), cp.End.toStore()}
		if cp.Side == SideStbd {
			latlons[0], latlons[1] = latlons[1], latlons[0]
		}
		race.Waypoints = append(race.Waypoints, store.Waypoint{
			Name:    strconv.Itoa(n),
			LatLons: latlons,
		})
	}

	radius := l.End.Radius
	race.Waypoints = append(race.Waypoints, store.Waypoint{
		Name:    EndWaypointName,
		Radius:  &radius,
		LatLons: []store.LatLon{{Lat: l.End.Lat, Lon: l.End.Lon}},
	})

	if l.IceLimits != nil {
		race.IceLimits = &store.Limits{
			North:  convertPoints(l.IceLimits.North),
			South:  convertPoints(l.IceLimits.South),
			MaxLat: l.IceLimits.MaxLat,
			MinLat: l.IceLimits.MinLat,
		}
	}

	return race
}

func convertPoints(points []LatLon) []store.LatLon {
	out := make([]store.LatLon, len(points))
	for i, p := range points {
		out[i] = p.toStore()
	}
	return out
}
