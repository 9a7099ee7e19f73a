package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/dmitrijs2005/postkeeper/internal/client/services"
	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/filex"
)

var errUsage = errors.New("wrong usage")

// getMultiline and checkImage are test seams.
var getMultiline = GetMultiline
var checkImage = filex.CheckImage

// scheduleLayouts are tried in order for absolute times, in the local zone.
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

func (a *App) usage(text string) error {
	fmt.Fprintln(a.writer(), "Usage:", text)
	return errUsage
}

func (a *App) fail(err error) error {
	fmt.Fprintln(a.writer(), "Error:", err)
	return err
}

func (a *App) readPostText() (string, string, error) {
	title, err := getSimpleText(a.reader, "Enter title (optional)", a.writer())
	if err != nil {
		return "", "", err
	}
	content, err := getMultiline(a.reader, "Enter content", a.writer())
	if err != nil {
		return "", "", err
	}
	if n := len([]rune(content)); n > common.MaxPostLength {
		fmt.Fprintf(a.writer(), "Warning: content is %d characters, the server accepts at most %d\n", n, common.MaxPostLength)
	}
	return title, content, nil
}

// New creates a draft from interactive input.
func (a *App) New(ctx context.Context, _ []string) error {
	title, content, err := a.readPostText()
	if err != nil {
		return a.fail(err)
	}
	p, err := a.postService.CreateDraft(ctx, title, content)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.writer(), "Draft created:", p.LocalID)
	return nil
}

// Edit replaces title and content of a post that is not published yet.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("edit <id>")
	}
	title, content, err := a.readPostText()
	if err != nil {
		return a.fail(err)
	}
	p, err := a.postService.Edit(ctx, args[0], title, content)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.writer(), "Saved")
	a.hintResubmit(p)
	return nil
}

// hintResubmit tells the user the server still holds an older version.
func (a *App) hintResubmit(p models.Post) {
	if p.HasUnsubmittedChanges() {
		fmt.Fprintf(a.writer(), "Changes are local only, run resubmit %s to send them\n", p.LocalID)
	}
}

// Attach adds a local image to a post.
func (a *App) Attach(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("attach <id> <image path>")
	}
	path, err := checkImage(args[1])
	if err != nil {
		return a.fail(err)
	}
	p, err := a.postService.AttachImage(ctx, args[0], path)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.writer(), "Attached, %d image(s)\n", len(p.LocalImagePaths))
	a.hintResubmit(p)
	return nil
}

// Place sets or clears the location of a post.
//
//	place <id> <lat> <lng> [address...]
//	place <id> clear
func (a *App) Place(ctx context.Context, args []string) error {
	const usage = "place <id> <lat> <lng> [address] | place <id> clear"
	if len(args) < 2 {
		return a.usage(usage)
	}

	var place *models.Place
	if !(len(args) == 2 && args[1] == "clear") {
		if len(args) < 3 {
			return a.usage(usage)
		}
		p, err := parsePlace(args[1], args[2], strings.Join(args[3:], " "))
		if err != nil {
			return a.fail(err)
		}
		place = p
	}

	p, err := a.postService.SetPlace(ctx, args[0], place)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.writer(), "Saved")
	a.hintResubmit(p)
	return nil
}

func parsePlace(latS, lngS, address string) (*models.Place, error) {
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid latitude %q", latS)
	}
	lng, err := strconv.ParseFloat(lngS, 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("invalid longitude %q", lngS)
	}
	return &models.Place{Lat: lat, Lng: lng, Address: address}, nil
}

// parseScheduleTime accepts a relative "+1h30m" or an absolute time in one of
// scheduleLayouts.
func parseScheduleTime(s string, now time.Time) (time.Time, error) {
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid duration %q: %w", rest, err)
		}
		return now.Add(d), nil
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// Schedule sets the publication time and hands the post to the server.
func (a *App) Schedule(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("schedule <id> <+duration | YYYY-MM-DD HH:MM | RFC3339>")
	}
	at, err := parseScheduleTime(strings.Join(args[1:], " "), a.clock())
	if err != nil {
		return a.fail(err)
	}

	st, err := a.postService.Schedule(ctx, args[0], at)
	return a.reportSubmit(st, err)
}

// Resubmit hands an already scheduled post to the server again.
func (a *App) Resubmit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("resubmit <id>")
	}
	st, err := a.postService.Resubmit(ctx, args[0])
	return a.reportSubmit(st, err)
}

func (a *App) reportSubmit(st models.RemoteStatus, err error) error {
	if errors.Is(err, services.ErrNotSubmitted) {
		fmt.Fprintln(a.writer(), "Scheduled locally, not submitted yet. Use 'resubmit' when online.")
		fmt.Fprintln(a.writer(), "Reason:", err)
		return err
	}
	if err != nil {
		return a.fail(err)
	}
	switch st.State {
	case models.RemoteFailed:
		fmt.Fprintln(a.writer(), "Rejected by server:", st.Reason)
	default:
		fmt.Fprintln(a.writer(), "Submitted, server state:", st.State)
	}
	return nil
}

// List prints posts filtered by window and lifecycle, in either order:
//
//	list [today|week|month|all] [draft|scheduled|published]
func (a *App) List(ctx context.Context, args []string) error {
	w := models.WindowAllTime
	var lifecycle *models.Lifecycle

	for _, arg := range args {
		if parsed, err := models.ParseWindow(arg); err == nil {
			w = parsed
			continue
		}
		l, err := models.ParseLifecycle(arg)
		if err != nil {
			return a.usage("list [today|week|month|all] [draft|scheduled|published]")
		}
		lifecycle = &l
	}

	posts, err := a.postService.List(ctx, w, lifecycle)
	if err != nil {
		return a.fail(err)
	}
	if len(posts) == 0 {
		fmt.Fprintln(a.writer(), "No posts")
		return nil
	}
	printPostTable(a.writer(), posts)
	return nil
}

// Show prints one post in full.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("show <id>")
	}
	p, err := a.postService.Get(ctx, args[0])
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Fprintln(a.writer(), "Post not found")
			return err
		}
		return a.fail(err)
	}
	printPost(a.writer(), p)
	return nil
}

// Delete removes a post from this device.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("delete <id>")
	}
	if err := a.postService.Delete(ctx, args[0]); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.writer(), "Deleted")
	return nil
}

// Sync runs a reconciliation pass and prints what changed.
func (a *App) Sync(ctx context.Context, _ []string) error {
	if m := a.Mode(); m == ModeOffline || m == ModeDisabled {
		fmt.Fprintln(a.writer(), "Sync needs the server, currently", m)
		return nil
	}
	results, err := a.postService.Reconcile(ctx)
	if err != nil {
		return a.fail(err)
	}
	printResults(a.writer(), results)
	return nil
}
