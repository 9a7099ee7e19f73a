package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	sc "github.com/dmitrijs2005/postkeeper/internal/server/config"
	"github.com/google/uuid"
)

// ErrForeignMedia is returned for a media key that was not issued to the user.
var ErrForeignMedia = errors.New("media key does not belong to user")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectAPI is the part of *s3.Client the service needs.
type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// presignAPI is the part of *s3.PresignClient the service needs.
type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// MediaService hands out presigned upload URLs for post images and resolves
// stored keys to public URLs.
type MediaService struct {
	config *sc.Config
	now    func() time.Time
	newID  func() string

	mu      sync.Mutex
	objects objectAPI
	presign presignAPI
}

func NewMediaService(cfg *sc.Config) *MediaService {
	return &MediaService{config: cfg, now: time.Now, newID: uuid.NewString}
}

// clients builds the S3 clients on first use. A failed build is not cached,
// so the next call tries again. The caller's cancellation does not apply to
// the shared build.
func (s *MediaService) clients(ctx context.Context) (objectAPI, presignAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects != nil && s.presign != nil {
		return s.objects, s.presign, nil
	}

	cfg, err := loadDefaultAWSConfig(context.WithoutCancel(ctx),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, nil, fmt.Errorf("aws config: %w", err)
	}
	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	s.objects = client
	s.presign = s3.NewPresignClient(client)
	return s.objects, s.presign, nil
}

func userPrefix(userID string) string {
	return "users/" + userID + "/"
}

// OwnsKey reports whether key was issued to userID.
func (s *MediaService) OwnsKey(userID, key string) bool {
	return strings.HasPrefix(key, userPrefix(userID))
}

func (s *MediaService) newKey(userID string) string {
	d := s.now().UTC()
	return fmt.Sprintf("%s%d/%02d/%02d/%s", userPrefix(userID), d.Year(), d.Month(), d.Day(), s.newID())
}

// GetUploadURL reserves a storage key for userID and returns it with a
// presigned PUT URL.
func (s *MediaService) GetUploadURL(ctx context.Context, userID, contentType string) (string, string, error) {
	_, presign, err := s.clients(ctx)
	if err != nil {
		return "", "", err
	}

	key := s.newKey(userID)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presign.PresignPutObject(ctx, in, s3.WithPresignExpires(s.config.UploadURLValidity))
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}
	return key, req.URL, nil
}

// Exists reports whether the object behind key was uploaded.
func (s *MediaService) Exists(ctx context.Context, key string) (bool, error) {
	objects, _, err := s.clients(ctx)
	if err != nil {
		return false, err
	}

	_, err = objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, fmt.Errorf("head object %s: %w", key, err)
}

// PublicURL maps a storage key to the URL clients display.
func (s *MediaService) PublicURL(key string) string {
	base := s.config.MediaPublicBaseURL
	if base == "" {
		base = strings.TrimRight(s.config.S3BaseEndpoint, "/") + "/" + s.config.S3Bucket
	}
	return strings.TrimRight(base, "/") + "/" + key
}

// PublicURLs maps every key with PublicURL.
func (s *MediaService) PublicURLs(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.PublicURL(k)
	}
	return out
}
