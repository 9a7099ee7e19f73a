package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type memRepo struct {
	mu        sync.Mutex
	posts     map[string]models.Post
	upsertErr map[string]error
	getAllErr error
	upserts   int
}

func newMemRepo(ps ...models.Post) *memRepo {
	r := &memRepo{posts: map[string]models.Post{}, upsertErr: map[string]error{}}
	for _, p := range ps {
		r.posts[p.LocalID] = p.Clone()
	}
	return r
}

func (r *memRepo) GetAll(context.Context) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getAllErr != nil {
		return nil, r.getAllErr
	}
	out := make([]models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalID < out[j].LocalID })
	return out, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (r *memRepo) Upsert(_ context.Context, p models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.upsertErr[p.LocalID]; err != nil {
		return err
	}
	r.upserts++
	r.posts[p.LocalID] = p.Clone()
	return nil
}

func (r *memRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *memRepo) get(t *testing.T, id string) models.Post {
	t.Helper()
	p, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	return *p
}

type fakeSource struct {
	mu    sync.Mutex
	calls [][]models.PostRef
	fn    func(refs []models.PostRef) ([]models.RemoteStatus, error)
}

func (f *fakeSource) FetchStatus(_ context.Context, refs []models.PostRef) ([]models.RemoteStatus, error) {
	f.mu.Lock()
	f.calls = append(f.calls, refs)
	f.mu.Unlock()
	return f.fn(refs)
}

// remote answers from a fixed table keyed by local id; missing entries are omitted.
func remote(table map[string]models.RemoteStatus) *fakeSource {
	return &fakeSource{fn: func(refs []models.PostRef) ([]models.RemoteStatus, error) {
		var out []models.RemoteStatus
		for _, ref := range refs {
			if st, ok := table[ref.LocalID]; ok {
				st.Ref = ref
				out = append(out, st)
			}
		}
		return out, nil
	}}
}

// ---- helpers ----

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func scheduled(id string, at time.Time) models.Post {
	p := models.NewDraft(id, "", "content "+id, now.Add(-48*time.Hour))
	p.AttachImage("/img/"+id+".jpg", now.Add(-47*time.Hour))
	p.ScheduleAt(at, now.Add(-46*time.Hour))
	return p
}

func published(id, remoteID string) models.Post {
	p := scheduled(id, now.Add(-24*time.Hour))
	p.MarkPublished(remoteID, []string{"https://cdn/" + id}, now.Add(-23*time.Hour))
	return p
}

func newReconciler(repo *memRepo, src StatusSource, opts ...Option) *Reconciler {
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(repo, src, logging.Nop{}, opts...)
}

func byID(results []Result) map[string]Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		m[r.LocalID] = r
	}
	return m
}

// ---- tests ----

func TestReconcile_ConfirmsPublishedPost(t *testing.T) {
	repo := newMemRepo(scheduled("a", now.Add(-time.Hour)))
	src := remote(map[string]models.RemoteStatus{
		"a": {State: models.RemotePublished, RemoteID: "r-a", CloudImageURLs: []string{"https://cdn/a.jpg"}},
	})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Result{{LocalID: "a", Outcome: ConfirmedPublished}}, results)

	got := repo.get(t, "a")
	assert.Equal(t, "r-a", got.RemoteID)
	assert.Equal(t, []string{"https://cdn/a.jpg"}, got.CloudImageURLs)
	assert.Nil(t, got.LocalImagePaths)
	assert.Equal(t, now, got.UpdatedAt)
	assert.Equal(t, models.LifecyclePublished, models.Classify(got))
}

func TestReconcile_SecondPassIsUnchanged(t *testing.T) {
	repo := newMemRepo(
		scheduled("a", now.Add(-time.Hour)),
		published("b", "r-b"),
	)
	src := remote(map[string]models.RemoteStatus{
		"a": {State: models.RemotePublished, RemoteID: "r-a"},
		"b": {State: models.RemotePublished, RemoteID: "r-b"},
	})
	r := newReconciler(repo, src)

	first, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConfirmedPublished, byID(first)["a"].Outcome)
	assert.Equal(t, Unchanged, byID(first)["b"].Outcome)
	upserts := repo.upserts

	second, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	for _, res := range second {
		assert.Equal(t, Unchanged, res.Outcome, res.LocalID)
	}
	assert.Equal(t, upserts, repo.upserts)
}

func TestReconcile_RemoteFailureKeepsPostScheduled(t *testing.T) {
	p := scheduled("a", now.Add(time.Hour))
	repo := newMemRepo(p)
	src := remote(map[string]models.RemoteStatus{
		"a": {State: models.RemoteFailed, Reason: "content too long"},
	})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, "content too long", res.Reason)
	assert.ErrorIs(t, res.Err, ErrRejected)
	assert.True(t, res.NeedsAttention())

	assert.Equal(t, p, repo.get(t, "a"))
	assert.Equal(t, 0, repo.upserts)
}

func TestReconcile_StaleAndPending(t *testing.T) {
	repo := newMemRepo(
		scheduled("old", now.Add(-time.Hour)),
		scheduled("recent", now.Add(-5*time.Minute)),
		scheduled("future", now.Add(time.Hour)),
		scheduled("pending", now.Add(-2*time.Hour)),
	)
	src := remote(map[string]models.RemoteStatus{
		"pending": {State: models.RemotePending},
		"recent":  {State: models.RemoteUnknown},
	})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)

	m := byID(results)
	assert.Equal(t, StaleUnconfirmed, m["old"].Outcome)
	assert.NotEmpty(t, m["old"].Reason)
	assert.NoError(t, m["old"].Err)
	assert.Equal(t, Unchanged, m["recent"].Outcome)
	assert.Equal(t, Unchanged, m["future"].Outcome)
	assert.Equal(t, Unchanged, m["pending"].Outcome)
	assert.Equal(t, 0, repo.upserts)
}

func TestReconcile_GraceIsConfigurable(t *testing.T) {
	repo := newMemRepo(scheduled("a", now.Add(-5*time.Minute)))
	src := remote(nil)

	results, err := newReconciler(repo, src, WithGrace(time.Minute)).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StaleUnconfirmed, results[0].Outcome)
}

func TestReconcile_PartialFetchFailureIsIsolated(t *testing.T) {
	repo := newMemRepo(
		scheduled("a", now.Add(-time.Hour)),
		scheduled("b", now.Add(-time.Hour)),
		published("c", "r-c"),
	)
	netErr := errors.New("connection reset")
	src := &fakeSource{fn: func(refs []models.PostRef) ([]models.RemoteStatus, error) {
		ref := refs[0]
		switch ref.LocalID {
		case "a":
			return []models.RemoteStatus{{Ref: ref, State: models.RemotePublished, RemoteID: "r-a"}}, nil
		case "b":
			return nil, netErr
		default:
			return []models.RemoteStatus{{Ref: ref, State: models.RemotePublished, RemoteID: "r-c"}}, nil
		}
	}}

	results, err := newReconciler(repo, src, WithBatchSize(1)).Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, src.calls, 3)

	assert.Equal(t, "a", results[0].LocalID)
	assert.Equal(t, ConfirmedPublished, results[0].Outcome)

	assert.Equal(t, "b", results[1].LocalID)
	assert.Equal(t, Failed, results[1].Outcome)
	assert.ErrorIs(t, results[1].Err, ErrRemoteFetch)
	assert.ErrorIs(t, results[1].Err, netErr)

	assert.Equal(t, "c", results[2].LocalID)
	assert.Equal(t, Unchanged, results[2].Outcome)

	assert.Equal(t, "r-a", repo.get(t, "a").RemoteID)
	assert.Empty(t, repo.get(t, "b").RemoteID)
}

func TestReconcile_WriteBackFailureFailsOnlyThatPost(t *testing.T) {
	repo := newMemRepo(
		scheduled("a", now.Add(-time.Hour)),
		scheduled("b", now.Add(-time.Hour)),
	)
	diskErr := errors.New("disk full")
	repo.upsertErr["a"] = diskErr
	src := remote(map[string]models.RemoteStatus{
		"a": {State: models.RemotePublished, RemoteID: "r-a"},
		"b": {State: models.RemotePublished, RemoteID: "r-b"},
	})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)

	m := byID(results)
	assert.Equal(t, Failed, m["a"].Outcome)
	assert.ErrorIs(t, m["a"].Err, diskErr)
	assert.Equal(t, ConfirmedPublished, m["b"].Outcome)

	assert.Empty(t, repo.get(t, "a").RemoteID)
	assert.Equal(t, "r-b", repo.get(t, "b").RemoteID)
}

func TestReconcile_DraftsAreNotSent(t *testing.T) {
	repo := newMemRepo(
		models.NewDraft("d", "", "draft", now.Add(-time.Hour)),
		scheduled("s", now.Add(time.Hour)),
	)
	src := remote(nil)

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s", results[0].LocalID)

	require.Len(t, src.calls, 1)
	assert.Equal(t, []models.PostRef{{LocalID: "s"}}, src.calls[0])
}

func TestReconcile_NoCandidatesMakesNoCalls(t *testing.T) {
	repo := newMemRepo(models.NewDraft("d", "", "draft", now))
	src := remote(nil)

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, src.calls)
}

func TestReconcile_UnrequestedStatusesAreIgnored(t *testing.T) {
	repo := newMemRepo(scheduled("a", now.Add(time.Hour)))
	src := &fakeSource{fn: func(refs []models.PostRef) ([]models.RemoteStatus, error) {
		return []models.RemoteStatus{
			{Ref: models.PostRef{LocalID: "ghost"}, State: models.RemotePublished, RemoteID: "r-ghost"},
			{Ref: refs[0], State: models.RemotePending},
		}, nil
	}}

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Unchanged, results[0].Outcome)

	_, err = repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestReconcile_PublishedLocallyIsAuthoritative(t *testing.T) {
	repo := newMemRepo(
		published("forgotten", "r-1"),
		published("conflict", "r-2"),
		published("rejected", "r-3"),
	)
	src := remote(map[string]models.RemoteStatus{
		"conflict": {State: models.RemotePublished, RemoteID: "r-other"},
		"rejected": {State: models.RemoteFailed, Reason: "gone"},
	})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)

	m := byID(results)
	assert.Equal(t, Unchanged, m["forgotten"].Outcome)
	assert.Equal(t, Unchanged, m["rejected"].Outcome)
	assert.Equal(t, Failed, m["conflict"].Outcome)
	assert.ErrorIs(t, m["conflict"].Err, ErrConflict)
	assert.Equal(t, "r-2", repo.get(t, "conflict").RemoteID)
}

func TestReconcile_PublishedStatusWithoutRemoteIDFails(t *testing.T) {
	repo := newMemRepo(scheduled("a", now.Add(-time.Hour)))
	src := remote(map[string]models.RemoteStatus{"a": {State: models.RemotePublished}})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failed, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ErrConflict)
}

func TestReconcile_InvalidRecordIsReported(t *testing.T) {
	bad := scheduled("bad", now.Add(time.Hour))
	bad.CreatedAt = time.Time{}
	bad.UpdatedAt = time.Time{}
	repo := newMemRepo(bad, scheduled("ok", now.Add(time.Hour)))
	src := remote(nil)

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)

	m := byID(results)
	assert.Equal(t, Failed, m["bad"].Outcome)
	assert.ErrorIs(t, m["bad"].Err, models.ErrValidationDefect)
	assert.Equal(t, Unchanged, m["ok"].Outcome)
	require.Len(t, src.calls, 1)
	assert.Len(t, src.calls[0], 1)
}

func TestReconcile_LoadErrorFailsPass(t *testing.T) {
	repo := newMemRepo()
	repo.getAllErr = errors.New("db closed")

	_, err := newReconciler(repo, remote(nil)).Reconcile(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load posts")
}

func TestReconcile_ResultsSortedByLocalID(t *testing.T) {
	repo := newMemRepo(
		scheduled("c", now.Add(time.Hour)),
		scheduled("a", now.Add(time.Hour)),
		scheduled("b", now.Add(time.Hour)),
	)

	results, err := newReconciler(repo, remote(nil), WithBatchSize(2)).Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].LocalID)
	assert.Equal(t, "b", results[1].LocalID)
	assert.Equal(t, "c", results[2].LocalID)
}

func TestReconcile_ConcurrentCallsShareOnePass(t *testing.T) {
	repo := newMemRepo(scheduled("a", now.Add(-time.Hour)))

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	src := &fakeSource{fn: func(refs []models.PostRef) ([]models.RemoteStatus, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []models.RemoteStatus{{Ref: refs[0], State: models.RemotePublished, RemoteID: "r-a"}}, nil
	}}
	r := newReconciler(repo, src)

	var wg sync.WaitGroup
	out := make([][]Result, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		out[0], _ = r.Reconcile(context.Background())
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		out[1], _ = r.Reconcile(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, out[0], out[1])
	assert.Equal(t, ConfirmedPublished, out[0][0].Outcome)
}

func TestReconcile_CallerCancelDoesNotAbortPass(t *testing.T) {
	repo := newMemRepo(scheduled("a", now.Add(-time.Hour)))

	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{fn: func(refs []models.PostRef) ([]models.RemoteStatus, error) {
		close(started)
		<-release
		return []models.RemoteStatus{{Ref: refs[0], State: models.RemotePublished, RemoteID: "r-a"}}, nil
	}}
	r := newReconciler(repo, src)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx)
		errCh <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		p, err := repo.GetByID(context.Background(), "a")
		return err == nil && p.RemoteID == "r-a"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLifecycle_DraftScheduledPublished(t *testing.T) {
	p := models.NewDraft("x", "", "hello", now.Add(-time.Hour))
	assert.Equal(t, models.LifecycleDraft, models.Classify(p))

	p.ScheduleAt(now.Add(24*time.Hour), now.Add(-30*time.Minute))
	assert.Equal(t, models.LifecycleScheduled, models.Classify(p))

	repo := newMemRepo(p)
	src := remote(map[string]models.RemoteStatus{"x": {State: models.RemotePublished, RemoteID: "r-x"}})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConfirmedPublished, results[0].Outcome)
	assert.Equal(t, models.LifecyclePublished, models.Classify(repo.get(t, "x")))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "confirmed", ConfirmedPublished.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "stale", StaleUnconfirmed.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}

func TestWithBatchSize_CappedToServerLimit(t *testing.T) {
	r := newReconciler(newMemRepo(), remote(nil), WithBatchSize(10_000))
	assert.Equal(t, rpc.MaxStatusRefs, r.batchSize)

	r = newReconciler(newMemRepo(), remote(nil), WithBatchSize(0))
	assert.Equal(t, DefaultBatchSize, r.batchSize)
}

func TestReconcile_EditAfterSubmitIsNotConfirmed(t *testing.T) {
	p := scheduled("a", now.Add(-time.Hour))
	p.MarkSubmitted(p.UpdatedAt)
	p.Edit("", "rewritten", now.Add(-30*time.Hour))
	p.AttachImage("/img/late.jpg", now.Add(-29*time.Hour))

	fresh := scheduled("b", now.Add(-time.Hour))
	fresh.MarkSubmitted(fresh.UpdatedAt)

	repo := newMemRepo(p, fresh)
	src := remote(map[string]models.RemoteStatus{
		"a": {State: models.RemotePublished, RemoteID: "r-a", CloudImageURLs: []string{"https://cdn/a.jpg"}},
		"b": {State: models.RemotePublished, RemoteID: "r-b"},
	})

	results, err := newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	got := byID(results)

	require.Equal(t, Failed, got["a"].Outcome)
	require.ErrorIs(t, got["a"].Err, ErrEditedAfterSubmit)
	assert.True(t, got["a"].NeedsAttention())
	assert.Equal(t, ConfirmedPublished, got["b"].Outcome)

	a := repo.get(t, "a")
	assert.Empty(t, a.RemoteID)
	assert.Equal(t, "rewritten", a.Content)
	assert.Equal(t, []string{"/img/a.jpg", "/img/late.jpg"}, a.LocalImagePaths)
	assert.Nil(t, a.CloudImageURLs)

	// Resubmitting stamps the current version; the next pass confirms it.
	a.MarkSubmitted(a.UpdatedAt)
	require.NoError(t, repo.Upsert(context.Background(), a))
	results, err = newReconciler(repo, src).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ConfirmedPublished, byID(results)["a"].Outcome)
	assert.Equal(t, "r-a", repo.get(t, "a").RemoteID)
}
