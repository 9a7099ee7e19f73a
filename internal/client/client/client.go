package client

import (
	"context"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
)

// Client is what the CLI needs from the PostKeeper server.
type Client interface {
	Close() error
	Register(ctx context.Context, username string, salt []byte, key []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, key []byte) error
	Ping(ctx context.Context) error

	// GetUploadURL returns a storage key and a presigned URL to PUT an image to.
	GetUploadURL(ctx context.Context, contentType string) (key string, url string, err error)
	// SubmitPost hands a scheduled post to the server and returns the state
	// the server put it in.
	SubmitPost(ctx context.Context, s models.Submission) (models.RemoteStatus, error)
	FetchStatus(ctx context.Context, refs []models.PostRef) ([]models.RemoteStatus, error)
}
