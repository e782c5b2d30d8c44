// ABOUTME: Store interface and data types for race record persistence
// ABOUTME: Defines Race, Waypoint, Limits and the sentinel errors callers map to responses

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Operations wrap them in *Error so the identifier travels with the failure.
var (
	// ErrNotFound is returned when no file exists for the requested identifier
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when the target directory already holds the identifier
	ErrAlreadyExists = errors.New("already exists")

	// ErrIdentifierRequired is returned when a record is created without an identifier
	ErrIdentifierRequired = errors.New("identifier is mandatory")

	// ErrInvalidIdentifier is returned when an identifier cannot be used as a file name
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Error describes a failed store operation on a single race.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("race %s does not exist", e.ID)
	case errors.Is(e.Err, ErrAlreadyExists):
		return fmt.Sprintf("race %s already exists", e.ID)
	case errors.Is(e.Err, ErrIdentifierRequired):
		return "race id is mandatory"
	case errors.Is(e.Err, ErrInvalidIdentifier):
		return fmt.Sprintf("invalid race id %q", e.ID)
	}
	return fmt.Sprintf("%s race %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func opError(op, id string, err error) error {
	return &Error{Op: op, ID: id, Err: err}
}

// Scope selects which directory a listing reads from
type Scope int

const (
	ScopeActive Scope = iota
	ScopeArchived
)

func (s Scope) String() string {
	if s == ScopeArchived {
		return "archived"
	}
	return "active"
}

// LatLon is a geographic point in decimal degrees
type LatLon struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Waypoint is a course control point. LatLons describes the gate or line, in sailing order.
type Waypoint struct {
	Name    string        `json:"name" yaml:"name"`
	Radius  *uint8        `json:"radius,omitempty" yaml:"radius,omitempty"`
	LatLons []LatLon      `json:"latlons" yaml:"latlons"`
	ToAvoid [][][]float64 `json:"toAvoid,omitempty" yaml:"toAvoid,omitempty"`
}

// Limits holds the ice boundary polylines and latitude bounds of a course
type Limits struct {
	North  []LatLon `json:"north" yaml:"north"`
	South  []LatLon `json:"south" yaml:"south"`
	MaxLat float64  `json:"maxLat" yaml:"maxLat"`
	MinLat float64  `json:"minLat" yaml:"minLat"`
}

// Race is a race definition. ID and Archived are never written to disk: they are projected
// from the file name and the directory holding the file.
type Race struct {
	ID        string     `json:"id" yaml:"-"`
	RaceID    string     `json:"race_id,omitempty" yaml:"race_id,omitempty"`
	Archived  bool       `json:"archived" yaml:"-"`
	Name      string     `json:"name" yaml:"name"`
	ShortName string     `json:"shortName,omitempty" yaml:"shortName,omitempty"`
	Boat      string     `json:"boat" yaml:"boat"`
	StartTime *time.Time `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Start     LatLon     `json:"start" yaml:"start"`
	Waypoints []Waypoint `json:"waypoints" yaml:"waypoints"`
	IceLimits *Limits    `json:"ice_limits,omitempty" yaml:"ice_limits,omitempty"`
}

// Normalize puts r in the form it has after a write and a read: empty sequences that the file
// always spells out become non-nil, avoid zones that the file omits when empty become nil, and
// times are expressed in UTC.
func (r *Race) Normalize() {
	if r.StartTime != nil {
		t := r.StartTime.UTC()
		r.StartTime = &t
	}
	if r.EndTime != nil {
		t := r.EndTime.UTC()
		r.EndTime = &t
	}

	if r.Waypoints == nil {
		r.Waypoints = []Waypoint{}
	}
	for i := range r.Waypoints {
		wp := &r.Waypoints[i]
		if wp.LatLons == nil {
			wp.LatLons = []LatLon{}
		}
		if len(wp.ToAvoid) == 0 {
			wp.ToAvoid = nil
		}
	}

	if r.IceLimits != nil {
		if r.IceLimits.North == nil {
			r.IceLimits.North = []LatLon{}
		}
		if r.IceLimits.South == nil {
			r.IceLimits.South = []LatLon{}
		}
	}
}

// Store defines the race record operations
type Store interface {
	// List returns the races of one scope, most recent start first
	List(ctx context.Context, scope Scope) ([]*Race, error)

	// Get looks in the active set first, then the archived set
	Get(ctx context.Context, id string) (*Race, error)

	// Create and Update normalize race in place before writing it
	Create(ctx context.Context, race *Race) error
	Update(ctx context.Context, id string, race *Race) error
	Delete(ctx context.Context, id string) error

	// Lifecycle transitions
	Archive(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error

	// Check reports whether both directories are still usable
	Check(ctx context.Context) error
}
