package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
	"github.com/dmitrijs2005/postkeeper/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// StateUnknown is reported for local ids the server has never seen.
const StateUnknown = "unknown"

// publishBatchSize caps the posts handled by one publisher run.
const publishBatchSize = 100

// Media is what PostService needs from object storage.
type Media interface {
	OwnsKey(userID, key string) bool
	Exists(ctx context.Context, key string) (bool, error)
	PublicURLs(keys []string) []string
}

// StatusReport is what the server knows about one post of a user.
type StatusReport struct {
	LocalID   string
	State     string
	RemoteID  string
	ImageURLs []string
	Reason    string
}

// PostService accepts submitted posts, reports their status and publishes
// them when due.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       Media
	validate    *validator.Validate
	logger      logging.Logger
	now         func() time.Time
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, media Media, logger logging.Logger) *PostService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &PostService{
		db:          db,
		repomanager: m,
		media:       media,
		validate:    newPostValidator(),
		logger:      logger.With("module", "post_service"),
		now:         time.Now,
	}
}

func newPostValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("postlen", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= common.MaxPostLength
	})
	return v
}

// fieldName turns a Go field name into words: "ScheduledAt" is "scheduled at".
func fieldName(f string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range f {
		if unicode.IsUpper(r) {
			if prevLower {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
			prevLower = false
		} else {
			prevLower = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rejection turns a validation failure into a reason a user can read.
func rejection(err error) string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return err.Error()
	}
	fe := vErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldName(fe.Field()))
	case "postlen":
		return fmt.Sprintf("content is longer than %d characters", common.MaxPostLength)
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", fieldName(fe.Field()))
	default:
		return fmt.Sprintf("%s failed rule %s", fieldName(fe.Field()), fe.Tag())
	}
}

func (s *PostService) check(userID string, p *models.Post) string {
	if err := s.validate.Struct(p); err != nil {
		return rejection(err)
	}
	for _, key := range p.MediaKeys {
		if !s.media.OwnsKey(userID, key) {
			return ErrForeignMedia.Error()
		}
	}
	return ""
}

// Submit stores the post for publication. A post that fails validation is
// stored as failed with a reason, so the client learns about the rejection
// through the regular status flow. Resubmitting a post that is not yet
// published replaces it; a published post is returned unchanged.
func (s *PostService) Submit(ctx context.Context, userID string, p models.Post) (*models.Post, error) {
	p.UserID = userID
	p.Status = models.StatusPending
	p.Reason = ""
	if reason := s.check(userID, &p); reason != "" {
		p.Status = models.StatusFailed
		p.Reason = reason
	}

	repo := s.repomanager.Posts(s.db)
	saved, err := repo.Upsert(ctx, &p)
	if errors.Is(err, common.ErrorAlreadyExists) {
		existing, err := repo.FindByLocalIDs(ctx, userID, []string{p.LocalID})
		if err != nil {
			return nil, fmt.Errorf("error loading published post: %w", err)
		}
		if len(existing) == 0 {
			return nil, common.ErrorInternal
		}
		return &existing[0], nil
	}
	if err != nil {
		return nil, fmt.Errorf("error saving post: %w", err)
	}

	s.logger.Info(ctx, "post submitted", "user_id", userID, "local_id", p.LocalID, "status", string(saved.Status))
	return saved, nil
}

// Report converts a stored post into its status report.
func (s *PostService) Report(p models.Post) StatusReport {
	r := StatusReport{LocalID: p.LocalID, State: string(p.Status), Reason: p.Reason}
	if p.Status == models.StatusPublished {
		r.RemoteID = p.ID
		r.ImageURLs = s.media.PublicURLs(p.MediaKeys)
	}
	return r
}

// Status reports on every requested local id, in request order. Ids the
// server does not know are reported as StateUnknown.
func (s *PostService) Status(ctx context.Context, userID string, localIDs []string) ([]StatusReport, error) {
	found, err := s.repomanager.Posts(s.db).FindByLocalIDs(ctx, userID, localIDs)
	if err != nil {
		return nil, fmt.Errorf("error loading posts: %w", err)
	}

	byLocal := make(map[string]models.Post, len(found))
	for _, p := range found {
		byLocal[p.LocalID] = p
	}

	out := make([]StatusReport, 0, len(localIDs))
	for _, id := range localIDs {
		p, ok := byLocal[id]
		if !ok {
			out = append(out, StatusReport{LocalID: id, State: StateUnknown})
			continue
		}
		out = append(out, s.Report(p))
	}
	return out, nil
}

// PublishDue publishes pending posts whose time has come. A post whose
// media never arrived in storage fails with a reason.
func (s *PostService) PublishDue(ctx context.Context) (published, failed int, err error) {
	now := s.now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		published, failed = 0, 0
		repo := s.repomanager.Posts(tx)

		due, err := repo.SelectDue(ctx, now, publishBatchSize)
		if err != nil {
			return err
		}

		for _, p := range due {
			missing, err := s.missingMedia(ctx, p.MediaKeys)
			if err != nil {
				return err
			}
			if missing != "" {
				if err := repo.MarkFailed(ctx, p.ID, "media missing: "+missing); err != nil {
					return err
				}
				failed++
				continue
			}
			if err := repo.MarkPublished(ctx, p.ID, now); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("error publishing posts: %w", err)
	}
	if published+failed > 0 {
		s.logger.Info(ctx, "publisher run", "published", published, "failed", failed)
	}
	return published, failed, nil
}

func (s *PostService) missingMedia(ctx context.Context, keys []string) (string, error) {
	for _, key := range keys {
		ok, err := s.media.Exists(ctx, key)
		if err != nil {
			return "", err
		}
		if !ok {
			return key, nil
		}
	}
	return "", nil
}
