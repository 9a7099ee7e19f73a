package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/dmitrijs2005/postkeeper/internal/client/repositories/posts"
	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/rpc"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultGrace     = 15 * time.Minute
	DefaultBatchSize = 50
)

// StatusSource reports what the server knows about a set of posts.
type StatusSource interface {
	FetchStatus(ctx context.Context, refs []models.PostRef) ([]models.RemoteStatus, error)
}

// Reconciler runs reconciliation passes. The zero value is not usable; use New.
type Reconciler struct {
	repo      posts.Repository
	source    StatusSource
	logger    logging.Logger
	now       func() time.Time
	grace     time.Duration
	batchSize int

	group singleflight.Group
}

type Option func(*Reconciler)

// WithGrace sets how long past its scheduled time an unconfirmed post may be
// before it is reported stale.
func WithGrace(d time.Duration) Option {
	return func(r *Reconciler) {
		if d >= 0 {
			r.grace = d
		}
	}
}

// WithBatchSize limits how many refs go into one FetchStatus call. Values
// above rpc.MaxStatusRefs are capped to it.
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = min(n, rpc.MaxStatusRefs)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

func New(repo posts.Repository, source StatusSource, logger logging.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logging.Nop{}
	}
	r := &Reconciler{
		repo:      repo,
		source:    source,
		logger:    logger.With("module", "reconciler"),
		now:       time.Now,
		grace:     DefaultGrace,
		batchSize: DefaultBatchSize,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile runs a pass, or joins the one already running, and returns one
// Result per Scheduled or Published post in ascending LocalID order.
//
// Cancelling ctx makes Reconcile return ctx.Err() right away; the pass itself
// runs to completion so that every post it touched ends up consistent.
// A non-nil error means the pass could not start (the local store could not
// be read); per-post problems are reported in the results.
func (r *Reconciler) Reconcile(ctx context.Context) ([]Result, error) {
	ch := r.group.DoChan("reconcile", func() (any, error) {
		return r.run(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Result)), nil
	}
}

func (r *Reconciler) run(ctx context.Context) ([]Result, error) {
	all, err := r.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	var results []Result
	var candidates []models.Post
	for _, p := range all {
		if models.Classify(p) == models.LifecycleDraft {
			continue
		}
		if err := models.Validate(p); err != nil {
			results = append(results, Result{LocalID: p.LocalID, Outcome: Failed, Reason: "invalid local record", Err: err})
			continue
		}
		candidates = append(candidates, p)
	}

	slices.SortFunc(candidates, func(a, b models.Post) int { return cmp.Compare(a.LocalID, b.LocalID) })

	for batch := range slices.Chunk(candidates, r.batchSize) {
		results = append(results, r.reconcileBatch(ctx, batch)...)
	}

	slices.SortStableFunc(results, func(a, b Result) int { return cmp.Compare(a.LocalID, b.LocalID) })

	r.logSummary(ctx, results)
	return results, nil
}

func (r *Reconciler) reconcileBatch(ctx context.Context, batch []models.Post) []Result {
	refs := make([]models.PostRef, 0, len(batch))
	for _, p := range batch {
		refs = append(refs, p.Ref())
	}

	statuses, err := r.source.FetchStatus(ctx, refs)
	if err != nil {
		r.logger.Warn(ctx, "status fetch failed", "posts", len(batch), "error", err)
		fetchErr := fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		out := make([]Result, 0, len(batch))
		for _, p := range batch {
			out = append(out, Result{LocalID: p.LocalID, Outcome: Failed, Reason: "could not reach server", Err: fetchErr})
		}
		return out
	}

	idx := r.index(ctx, refs, statuses)

	out := make([]Result, 0, len(batch))
	for _, p := range batch {
		st, found := idx.lookup(p.Ref())
		out = append(out, r.merge(ctx, p, st, found))
	}
	return out
}

type statusIndex struct {
	byLocal  map[string]models.RemoteStatus
	byRemote map[string]models.RemoteStatus
}

// lookup prefers the remote id, then falls back to the local id.
func (s statusIndex) lookup(ref models.PostRef) (models.RemoteStatus, bool) {
	if ref.RemoteID != "" {
		if st, ok := s.byRemote[ref.RemoteID]; ok {
			return st, true
		}
	}
	st, ok := s.byLocal[ref.LocalID]
	return st, ok
}

func (r *Reconciler) index(ctx context.Context, refs []models.PostRef, statuses []models.RemoteStatus) statusIndex {
	local := make(map[string]bool, len(refs))
	remote := make(map[string]bool, len(refs))
	for _, ref := range refs {
		local[ref.LocalID] = true
		if ref.RemoteID != "" {
			remote[ref.RemoteID] = true
		}
	}

	idx := statusIndex{
		byLocal:  make(map[string]models.RemoteStatus, len(statuses)),
		byRemote: make(map[string]models.RemoteStatus),
	}
	for _, st := range statuses {
		known := local[st.Ref.LocalID] || (st.Ref.RemoteID != "" && remote[st.Ref.RemoteID])
		if !known {
			r.logger.Warn(ctx, "ignoring status for unknown post", "local_id", st.Ref.LocalID, "remote_id", st.Ref.RemoteID)
			continue
		}
		if _, dup := idx.byLocal[st.Ref.LocalID]; dup {
			r.logger.Warn(ctx, "duplicate status ignored", "local_id", st.Ref.LocalID)
			continue
		}
		idx.byLocal[st.Ref.LocalID] = st
		if st.Ref.RemoteID != "" {
			idx.byRemote[st.Ref.RemoteID] = st
		}
	}
	return idx
}

func (r *Reconciler) merge(ctx context.Context, p models.Post, st models.RemoteStatus, found bool) Result {
	res := Result{LocalID: p.LocalID, Outcome: Unchanged}
	if !found {
		st = models.RemoteStatus{Ref: p.Ref(), State: models.RemoteUnknown}
	}

	if models.Classify(p) == models.LifecyclePublished {
		if st.State == models.RemotePublished && st.RemoteID != "" && st.RemoteID != p.RemoteID {
			res.Outcome = Failed
			res.Reason = fmt.Sprintf("server reports remote id %s, local record has %s", st.RemoteID, p.RemoteID)
			res.Err = ErrConflict
			return res
		}
		if st.State != models.RemotePublished {
			r.logger.Debug(ctx, "published post not confirmed by server, keeping local record", "local_id", p.LocalID, "state", st.State.String())
		}
		return res
	}

	switch st.State {
	case models.RemotePublished:
		return r.confirm(ctx, p.LocalID, st)

	case models.RemoteFailed:
		res.Outcome = Failed
		res.Reason = st.Reason
		if res.Reason == "" {
			res.Reason = "rejected by server"
		}
		res.Err = ErrRejected
		return res

	case models.RemotePending:
		return res

	default:
		now := r.now()
		if p.ScheduledAt != nil && p.ScheduledAt.Add(r.grace).Before(now) {
			res.Outcome = StaleUnconfirmed
			res.Reason = fmt.Sprintf("scheduled for %s, server has no record", p.ScheduledAt.Format(time.RFC3339))
		}
		return res
	}
}

// confirm re-reads the post so edits made since the pass started are kept,
// then writes the published record back in one Upsert. A post edited after
// its last submit is left untouched and reported Failed.
func (r *Reconciler) confirm(ctx context.Context, localID string, st models.RemoteStatus) Result {
	res := Result{LocalID: localID}

	if st.RemoteID == "" {
		res.Outcome = Failed
		res.Reason = "server reported publication without a remote id"
		res.Err = ErrConflict
		return res
	}

	cur, err := r.repo.GetByID(ctx, localID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			r.logger.Info(ctx, "post deleted during reconcile", "local_id", localID)
			res.Outcome = Unchanged
			return res
		}
		res.Outcome = Failed
		res.Reason = "could not read local record"
		res.Err = err
		return res
	}

	if cur.RemoteID != "" {
		if cur.RemoteID == st.RemoteID {
			res.Outcome = Unchanged
			return res
		}
		res.Outcome = Failed
		res.Reason = fmt.Sprintf("server reports remote id %s, local record has %s", st.RemoteID, cur.RemoteID)
		res.Err = ErrConflict
		return res
	}

	if cur.HasUnsubmittedChanges() {
		r.logger.Warn(ctx, "published post has local changes the server never saw", "local_id", localID, "remote_id", st.RemoteID)
		res.Outcome = Failed
		res.Reason = "edited after submit, server published the earlier version; resubmit to accept it"
		res.Err = ErrEditedAfterSubmit
		return res
	}

	updated := cur.Clone()
	updated.MarkPublished(st.RemoteID, st.CloudImageURLs, r.now())

	if err := r.repo.Upsert(ctx, updated); err != nil {
		r.logger.Error(ctx, "write-back failed", "local_id", localID, "error", err)
		res.Outcome = Failed
		res.Reason = "could not save local record"
		res.Err = err
		return res
	}

	r.logger.Info(ctx, "post confirmed published", "local_id", localID, "remote_id", st.RemoteID)
	res.Outcome = ConfirmedPublished
	return res
}

func (r *Reconciler) logSummary(ctx context.Context, results []Result) {
	counts := make(map[Outcome]int, 4)
	for _, res := range results {
		counts[res.Outcome]++
	}
	r.logger.Info(ctx, "reconcile finished",
		"posts", len(results),
		"confirmed", counts[ConfirmedPublished],
		"failed", counts[Failed],
		"stale", counts[StaleUnconfirmed],
	)
}
