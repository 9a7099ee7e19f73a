package models

import (
	"fmt"
	"strings"
)

// Lifecycle is the state a post is in, derived from its fields.
type Lifecycle int

const (
	LifecycleDraft Lifecycle = iota
	LifecycleScheduled
	LifecyclePublished
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleDraft:
		return "draft"
	case LifecycleScheduled:
		return "scheduled"
	case LifecyclePublished:
		return "published"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// ParseLifecycle is the inverse of Lifecycle.String.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft", "drafts":
		return LifecycleDraft, nil
	case "scheduled":
		return LifecycleScheduled, nil
	case "published":
		return LifecyclePublished, nil
	default:
		return 0, fmt.Errorf("unknown lifecycle %q", s)
	}
}

// Classify derives the lifecycle of p. First match wins:
//
//  1. a remote id means Published;
//  2. a scheduled time means Scheduled, even when it is already in the past;
//  3. anything else is a Draft.
//
// Classify is pure and total.
func Classify(p Post) Lifecycle {
	switch {
	case p.RemoteID != "":
		return LifecyclePublished
	case p.ScheduledAt != nil:
		return LifecycleScheduled
	default:
		return LifecycleDraft
	}
}

// FilterByLifecycle keeps the posts classified as l, preserving order.
func FilterByLifecycle(posts []Post, l Lifecycle) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if Classify(p) == l {
			out = append(out, p)
		}
	}
	return out
}
