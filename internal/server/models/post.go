package models

import "time"

// PostStatus is the server-side publication state of a post.
type PostStatus string

const (
	// StatusPending posts wait for their scheduled time.
	StatusPending   PostStatus = "pending"
	StatusPublished PostStatus = "published"
	// StatusFailed posts were rejected; Reason says why.
	StatusFailed PostStatus = "failed"
)

type Place struct {
	Lat     float64 `validate:"gte=-90,lte=90"`
	Lng     float64 `validate:"gte=-180,lte=180"`
	Address string  `validate:"max=512"`
}

// Post is a submitted post. ID becomes the remote id reported to the
// client once the post is published.
type Post struct {
	ID          string
	UserID      string
	LocalID     string    `validate:"required,max=128"`
	Title       string    `validate:"max=256"`
	Content     string    `validate:"required,postlen"`
	ScheduledAt time.Time `validate:"required"`
	Place       *Place
	Visibility  string   `validate:"max=32"`
	MediaKeys   []string `validate:"max=10,dive,required"`
	Status      PostStatus
	Reason      string
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
