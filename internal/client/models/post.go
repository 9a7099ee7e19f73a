// Package models defines the client-side post model and the pure functions
// that derive a post's lifecycle state and bucket posts by time window.
package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrValidationDefect marks a post that breaks the model invariants. It is a
// data-corruption signal, not a user input error.
var ErrValidationDefect = errors.New("post validation defect")

// Place is a location attached to a post.
type Place struct {
	Lat     float64
	Lng     float64
	Address string
}

// Post is one user-authored post, stored locally first and linked to the
// server once publication is confirmed.
//
// The lifecycle state is never stored; use Classify.
type Post struct {
	// LocalID is generated on the device and never changes.
	LocalID string
	// RemoteID is set once the server confirms publication. Empty means absent.
	RemoteID string

	Content string
	// Title is an optional label, used for drafts.
	Title string

	CreatedAt time.Time
	UpdatedAt time.Time

	// ScheduledAt, when set, is the intended publication time.
	ScheduledAt *time.Time
	// SubmittedAt is the UpdatedAt of the version the server last accepted.
	SubmittedAt *time.Time

	LocalImagePaths []string
	// CloudImageURLs are filled in only after a confirmed publication.
	CloudImageURLs []string

	Place *Place

	// Visibility is passed through untouched.
	Visibility string
}

// NewDraft returns a fresh draft created at now.
func NewDraft(localID, title, content string, now time.Time) Post {
	return Post{
		LocalID:   localID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ComparisonTime is the timestamp used for time-window bucketing: UpdatedAt
// when set, CreatedAt otherwise.
func (p Post) ComparisonTime() time.Time {
	if !p.UpdatedAt.IsZero() {
		return p.UpdatedAt
	}
	return p.CreatedAt
}

// touch bumps UpdatedAt, keeping it monotonic and never before CreatedAt.
func (p *Post) touch(now time.Time) {
	if now.Before(p.CreatedAt) {
		now = p.CreatedAt
	}
	if now.Before(p.UpdatedAt) {
		now = p.UpdatedAt
	}
	p.UpdatedAt = now
}

// Edit replaces title and content.
func (p *Post) Edit(title, content string, now time.Time) {
	p.Title = title
	p.Content = content
	p.touch(now)
}

// AttachImage appends a local image reference.
func (p *Post) AttachImage(path string, now time.Time) {
	p.LocalImagePaths = append(p.LocalImagePaths, path)
	p.touch(now)
}

// SetPlace attaches a place, or removes it when place is nil.
func (p *Post) SetPlace(place *Place, now time.Time) {
	p.Place = place
	p.touch(now)
}

// ScheduleAt sets the intended publication time.
func (p *Post) ScheduleAt(at time.Time, now time.Time) {
	p.ScheduledAt = &at
	p.touch(now)
}

// MarkPublished links the post to its remote counterpart. The cloud image
// URLs replace the local image linkage.
func (p *Post) MarkPublished(remoteID string, cloudImageURLs []string, now time.Time) {
	p.RemoteID = remoteID
	p.CloudImageURLs = slices.Clone(cloudImageURLs)
	p.LocalImagePaths = nil
	p.touch(now)
}

// MarkSubmitted records that the version stamped version was accepted by the
// server. It does not touch UpdatedAt.
func (p *Post) MarkSubmitted(version time.Time) {
	p.SubmittedAt = &version
}

// HasUnsubmittedChanges reports whether the post changed locally after the
// server last accepted it.
func (p Post) HasUnsubmittedChanges() bool {
	return p.SubmittedAt != nil && p.UpdatedAt.After(*p.SubmittedAt)
}

// Clone returns a deep copy so callers can mutate it freely.
func (p Post) Clone() Post {
	c := p
	c.LocalImagePaths = slices.Clone(p.LocalImagePaths)
	c.CloudImageURLs = slices.Clone(p.CloudImageURLs)
	if p.ScheduledAt != nil {
		at := *p.ScheduledAt
		c.ScheduledAt = &at
	}
	if p.SubmittedAt != nil {
		sub := *p.SubmittedAt
		c.SubmittedAt = &sub
	}
	if p.Place != nil {
		pl := *p.Place
		c.Place = &pl
	}
	return c
}

// Validate checks the model invariants. Violations wrap ErrValidationDefect.
func Validate(p Post) error {
	if p.LocalID == "" {
		return fmt.Errorf("%w: empty local id", ErrValidationDefect)
	}
	if p.CreatedAt.IsZero() && p.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: post %s has no timestamps", ErrValidationDefect, p.LocalID)
	}
	if !p.CreatedAt.IsZero() && !p.UpdatedAt.IsZero() && p.UpdatedAt.Before(p.CreatedAt) {
		return fmt.Errorf("%w: post %s updated before it was created", ErrValidationDefect, p.LocalID)
	}
	return nil
}
