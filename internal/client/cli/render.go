package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/dmitrijs2005/postkeeper/internal/client/reconcile"
)

const (
	timeLayout     = "2006-01-02 15:04"
	previewRunes   = 40
	previewEllipse = "..."
)

func preview(p models.Post) string {
	text := p.Title
	if text == "" {
		text = strings.Join(strings.Fields(p.Content), " ")
	}
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes-len(previewEllipse)]) + previewEllipse
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func printPostTable(w io.Writer, posts []models.Post) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tUPDATED\tSCHEDULED\tTEXT")
	for _, p := range posts {
		scheduled := "-"
		if p.ScheduledAt != nil {
			scheduled = formatTime(*p.ScheduledAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.LocalID, models.Classify(p), formatTime(p.ComparisonTime()), scheduled, preview(p))
	}
	tw.Flush()
}

func printPost(w io.Writer, p models.Post) {
	fmt.Fprintln(w, "ID:       ", p.LocalID)
	fmt.Fprintln(w, "State:    ", models.Classify(p))
	if p.RemoteID != "" {
		fmt.Fprintln(w, "Remote ID:", p.RemoteID)
	}
	if p.Title != "" {
		fmt.Fprintln(w, "Title:    ", p.Title)
	}
	fmt.Fprintln(w, "Created:  ", formatTime(p.CreatedAt))
	fmt.Fprintln(w, "Updated:  ", formatTime(p.UpdatedAt))
	if p.ScheduledAt != nil {
		fmt.Fprintln(w, "Scheduled:", formatTime(*p.ScheduledAt))
	}
	if p.Place != nil {
		fmt.Fprintf(w, "Place:     %.5f, %.5f %s\n", p.Place.Lat, p.Place.Lng, p.Place.Address)
	}
	if p.Visibility != "" {
		fmt.Fprintln(w, "Visibility:", p.Visibility)
	}
	for _, path := range p.LocalImagePaths {
		fmt.Fprintln(w, "Image:    ", path)
	}
	for _, url := range p.CloudImageURLs {
		fmt.Fprintln(w, "Image URL:", url)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, p.Content)
}

// printResults lists the posts that changed or need attention.
func printResults(w io.Writer, results []reconcile.Result) {
	shown := 0
	for _, r := range results {
		if r.Outcome == reconcile.Unchanged {
			continue
		}
		shown++
		if r.Reason != "" {
			fmt.Fprintf(w, "%s: %s (%s)\n", r.LocalID, r.Outcome, r.Reason)
		} else {
			fmt.Fprintf(w, "%s: %s\n", r.LocalID, r.Outcome)
		}
	}
	fmt.Fprintf(w, "Checked %d post(s), %d changed or need attention\n", len(results), shown)
}
