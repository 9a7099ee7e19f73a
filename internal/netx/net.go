// Package netx uploads post images to presigned storage URLs.
package netx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUploadTimeout = 60 * time.Second

// Uploader PUTs bytes to presigned URLs.
type Uploader struct {
	client *resty.Client
}

func NewUploader(timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &Uploader{client: resty.New().SetTimeout(timeout)}
}

// Put uploads body to url. Any non-2xx answer is an error carrying the
// status and the response body.
func (u *Uploader) Put(ctx context.Context, url, contentType string, body []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Put(url)
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status(), resp.String())
	}
	return nil
}

// UploadToS3PresignedURL uploads file with a default Uploader.
func UploadToS3PresignedURL(ctx context.Context, url, contentType string, file []byte) error {
	return NewUploader(0).Put(ctx, url, contentType, file)
}
