package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/client"
	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/dmitrijs2005/postkeeper/internal/client/reconcile"
	"github.com/dmitrijs2005/postkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/postkeeper/internal/client/repositories/posts"
	"github.com/dmitrijs2005/postkeeper/internal/filex"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/google/uuid"
)

var (
	ErrAlreadyPublished = errors.New("post is already published")
	ErrNotScheduled     = errors.New("post is not scheduled")
	ErrScheduleInPast   = errors.New("scheduled time must be in the future")
	ErrEmptyContent     = errors.New("post content is empty")
	// ErrNotSubmitted means the post is scheduled locally but the server has
	// not accepted it yet. Resubmit retries.
	ErrNotSubmitted = errors.New("post saved locally but not submitted")
)

// PostService is what the CLI uses to work with posts.
type PostService interface {
	CreateDraft(ctx context.Context, title, content string) (models.Post, error)
	Edit(ctx context.Context, id, title, content string) (models.Post, error)
	AttachImage(ctx context.Context, id, path string) (models.Post, error)
	SetPlace(ctx context.Context, id string, place *models.Place) (models.Post, error)
	Schedule(ctx context.Context, id string, at time.Time) (models.RemoteStatus, error)
	Resubmit(ctx context.Context, id string) (models.RemoteStatus, error)
	Get(ctx context.Context, id string) (models.Post, error)
	// List filters by window relative to now and, when lifecycle is not nil,
	// by lifecycle.
	List(ctx context.Context, w models.Window, lifecycle *models.Lifecycle) ([]models.Post, error)
	Delete(ctx context.Context, id string) error
	Reconcile(ctx context.Context) ([]reconcile.Result, error)
	LastReconcile(ctx context.Context) (time.Time, error)
}

// Reconciler runs a reconciliation pass.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]reconcile.Result, error)
}

// Uploader PUTs image bytes to a presigned URL.
type Uploader interface {
	Put(ctx context.Context, url, contentType string, body []byte) error
}

type postService struct {
	client     client.Client
	posts      posts.Repository
	meta       metadata.Repository
	reconciler Reconciler
	uploader   Uploader
	logger     logging.Logger

	now       func() time.Time
	newID     func() string
	readImage func(path string) ([]byte, string, error)
}

type PostServiceOption func(*postService)

func WithPostClock(now func() time.Time) PostServiceOption {
	return func(s *postService) { s.now = now }
}

func WithIDGenerator(f func() string) PostServiceOption {
	return func(s *postService) { s.newID = f }
}

func WithImageReader(f func(path string) ([]byte, string, error)) PostServiceOption {
	return func(s *postService) { s.readImage = f }
}

func NewPostService(c client.Client, repo posts.Repository, meta metadata.Repository, rec Reconciler,
	up Uploader, logger logging.Logger, opts ...PostServiceOption) PostService {

	if logger == nil {
		logger = logging.Nop{}
	}
	s := &postService{
		client:     c,
		posts:      repo,
		meta:       meta,
		reconciler: rec,
		uploader:   up,
		logger:     logger.With("module", "post_service"),
		now:        time.Now,
		newID:      uuid.NewString,
		readImage:  filex.ReadImage,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *postService) CreateDraft(ctx context.Context, title, content string) (models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return models.Post{}, ErrEmptyContent
	}
	p := models.NewDraft(s.newID(), title, content, s.now())
	if err := s.posts.Upsert(ctx, p); err != nil {
		return models.Post{}, fmt.Errorf("saving error: %w", err)
	}
	s.logger.Debug(ctx, "draft created", "local_id", p.LocalID)
	return p, nil
}

// mutate loads a post that is not published yet, applies fn and stores the
// result as a whole.
func (s *postService) mutate(ctx context.Context, id string, fn func(p *models.Post) error) (models.Post, error) {
	cur, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	if models.Classify(*cur) == models.LifecyclePublished {
		return models.Post{}, ErrAlreadyPublished
	}

	p := cur.Clone()
	if err := fn(&p); err != nil {
		return models.Post{}, err
	}
	if err := s.posts.Upsert(ctx, p); err != nil {
		return models.Post{}, fmt.Errorf("saving error: %w", err)
	}
	return p, nil
}

func (s *postService) Edit(ctx context.Context, id, title, content string) (models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return models.Post{}, ErrEmptyContent
	}
	return s.mutate(ctx, id, func(p *models.Post) error {
		p.Edit(title, content, s.now())
		return nil
	})
}

func (s *postService) AttachImage(ctx context.Context, id, path string) (models.Post, error) {
	return s.mutate(ctx, id, func(p *models.Post) error {
		p.AttachImage(path, s.now())
		return nil
	})
}

func (s *postService) SetPlace(ctx context.Context, id string, place *models.Place) (models.Post, error) {
	return s.mutate(ctx, id, func(p *models.Post) error {
		p.SetPlace(place, s.now())
		return nil
	})
}

// Schedule stores the publication time locally first and then hands the post
// to the server. When the server cannot be reached the post stays Scheduled
// locally and the error wraps ErrNotSubmitted.
func (s *postService) Schedule(ctx context.Context, id string, at time.Time) (models.RemoteStatus, error) {
	now := s.now()
	if !at.After(now) {
		return models.RemoteStatus{}, ErrScheduleInPast
	}

	p, err := s.mutate(ctx, id, func(p *models.Post) error {
		p.ScheduleAt(at, now)
		return nil
	})
	if err != nil {
		return models.RemoteStatus{}, err
	}

	return s.submit(ctx, p)
}

func (s *postService) Resubmit(ctx context.Context, id string) (models.RemoteStatus, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return models.RemoteStatus{}, err
	}
	switch models.Classify(*p) {
	case models.LifecyclePublished:
		return models.RemoteStatus{}, ErrAlreadyPublished
	case models.LifecycleDraft:
		return models.RemoteStatus{}, ErrNotScheduled
	}
	return s.submit(ctx, *p)
}

func (s *postService) submit(ctx context.Context, p models.Post) (models.RemoteStatus, error) {
	keys, err := s.uploadImages(ctx, p)
	if err != nil {
		return models.RemoteStatus{}, fmt.Errorf("%w: %w", ErrNotSubmitted, err)
	}

	st, err := s.client.SubmitPost(ctx, models.Submission{Post: p, MediaKeys: keys})
	if err != nil {
		s.logger.Warn(ctx, "submit failed", "local_id", p.LocalID, "error", err)
		return models.RemoteStatus{}, fmt.Errorf("%w: %w", ErrNotSubmitted, err)
	}

	s.logger.Info(ctx, "post submitted", "local_id", p.LocalID, "state", st.State.String())
	s.stampSubmitted(ctx, p)
	return st, nil
}

// stampSubmitted records which local version the server accepted. The record
// is re-read so a concurrent edit stays newer than the stamp.
func (s *postService) stampSubmitted(ctx context.Context, sent models.Post) {
	cur, err := s.posts.GetByID(ctx, sent.LocalID)
	if err != nil {
		s.logger.Warn(ctx, "could not record submit", "local_id", sent.LocalID, "error", err)
		return
	}
	p := cur.Clone()
	p.MarkSubmitted(sent.UpdatedAt)
	if err := s.posts.Upsert(ctx, p); err != nil {
		s.logger.Warn(ctx, "could not record submit", "local_id", sent.LocalID, "error", err)
	}
}

func (s *postService) uploadImages(ctx context.Context, p models.Post) ([]string, error) {
	keys := make([]string, 0, len(p.LocalImagePaths))
	for _, path := range p.LocalImagePaths {
		data, contentType, err := s.readImage(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		key, url, err := s.client.GetUploadURL(ctx, contentType)
		if err != nil {
			return nil, fmt.Errorf("get upload url: %w", err)
		}
		if err := s.uploader.Put(ctx, url, contentType, data); err != nil {
			return nil, fmt.Errorf("upload %s: %w", path, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *postService) Get(ctx context.Context, id string) (models.Post, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	return *p, nil
}

func (s *postService) List(ctx context.Context, w models.Window, lifecycle *models.Lifecycle) ([]models.Post, error) {
	all, err := s.posts.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if lifecycle != nil {
		all = models.FilterByLifecycle(all, *lifecycle)
	}
	return models.FilterByWindow(all, w, s.now())
}

// Delete removes the post from this device only.
func (s *postService) Delete(ctx context.Context, id string) error {
	return s.posts.DeleteByID(ctx, id)
}

func (s *postService) Reconcile(ctx context.Context) ([]reconcile.Result, error) {
	results, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	stamp := s.now().UTC().Format(time.RFC3339)
	if err := s.meta.Set(ctx, metadata.KeyLastReconcile, []byte(stamp)); err != nil {
		s.logger.Warn(ctx, "could not record reconcile time", "error", err)
	}
	return results, nil
}

// LastReconcile returns the zero time when no pass has completed yet.
func (s *postService) LastReconcile(ctx context.Context) (time.Time, error) {
	v, err := s.meta.Get(ctx, metadata.KeyLastReconcile)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, string(v))
}
