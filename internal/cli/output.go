// ABOUTME: Text and JSON rendering for CLI results
// ABOUTME: Text output is colorized with fatih/color and aligned with tabwriter

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/races/internal/store"
)

// Printer renders command results in the selected format.
type Printer struct {
	Format string
	Writer io.Writer
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Races prints a race listing.
func (p *Printer) Races(races []store.Race) error {
	if p.Format == "json" {
		if races == nil {
			races = []store.Race{}
		}
		return p.JSON(races)
	}

	if len(races) == 0 {
		_, err := fmt.Fprintln(p.Writer, color.HiBlackString("no races"))
		return err
	}

	tw := tabwriter.NewWriter(p.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.New(color.Bold).Sprint("ID\tNAME\tBOAT\tSTART\tSTATE"))
	for _, r := range races {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			color.CyanString(r.ID), r.Name, r.Boat, formatTime(r.StartTime), state(r.Archived))
	}
	return tw.Flush()
}

// Race prints one race in detail.
func (p *Printer) Race(r *store.Race) error {
	if p.Format == "json" {
		return p.JSON(r)
	}

	label := color.New(color.FgGreen)
	line := func(name, value string) {
		label.Fprintf(p.Writer, "%-11s", name)
		fmt.Fprintln(p.Writer, value)
	}

	line("id", color.CyanString(r.ID))
	line("race_id", r.RaceID)
	line("name", r.Name)
	if r.ShortName != "" {
		line("short name", r.ShortName)
	}
	line("boat", r.Boat)
	line("state", state(r.Archived))
	line("start", fmt.Sprintf("%s (%g, %g)", formatTime(r.StartTime), r.Start.Lat, r.Start.Lon))
	line("end", formatTime(r.EndTime))
	line("waypoints", fmt.Sprintf("%d", len(r.Waypoints)))
	for _, wp := range r.Waypoints {
		fmt.Fprintf(p.Writer, "  %s %s", color.HiBlackString("-"), wp.Name)
		if wp.Radius != nil {
			fmt.Fprintf(p.Writer, " r=%d", *wp.Radius)
		}
		for _, ll := range wp.LatLons {
			fmt.Fprintf(p.Writer, " (%g, %g)", ll.Lat, ll.Lon)
		}
		fmt.Fprintln(p.Writer)
	}
	return nil
}

// Done reports a completed action on a race.
func (p *Printer) Done(action, id string) error {
	if p.Format == "json" {
		return p.JSON(map[string]string{"id": id, "result": action})
	}
	green := color.New(color.FgGreen)
	green.Fprint(p.Writer, "✓ ")
	_, err := fmt.Fprintf(p.Writer, "%s %s\n", action, color.CyanString(id))
	return err
}

func state(archived bool) string {
	if archived {
		return color.YellowString("archived")
	}
	return color.GreenString("active")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
