package process_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/adapter/persistence/kv"
	"channel-digest/internal/infra/cache"
	"channel-digest/internal/repository"
	"channel-digest/internal/resilience/lease"
	"channel-digest/internal/usecase/process"
)

var longBody = strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", 8))

type stubSummarizer struct {
	mu      sync.Mutex
	calls   int
	inputs  []string
	urls    []string
	summary entity.Summary
	err     error
	panicV  any
	started chan struct{}
	release chan struct{}
}

func (s *stubSummarizer) Summarize(_ context.Context, text, sourceURL string) (entity.Summary, error) {
	s.mu.Lock()
	s.calls++
	s.inputs = append(s.inputs, text)
	s.urls = append(s.urls, sourceURL)
	summary, err, panicV := s.summary, s.err, s.panicV
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if panicV != nil {
		panic(panicV)
	}
	return summary, err
}

func (s *stubSummarizer) set(summary entity.Summary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary, s.err = summary, err
}

func (s *stubSummarizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubFetcher struct {
	content string
	err     error
	calls   int
}

func (f *stubFetcher) FetchContent(context.Context, string) (string, error) {
	f.calls++
	return f.content, f.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *process.Service
	store *cache.Memory
	repos *kv.Repositories
	sum   *stubSummarizer
	clock *clock
}

func newFixture(t *testing.T, mutate func(*process.Config), opts ...process.Option) *fixture {
	t.Helper()
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := cache.NewMemory(cache.WithClock(c.Now))
	repos := kv.New(store, kv.DefaultPrefix, kv.DefaultRetryQueueMax, kv.WithFailureClock(c.Now))
	_, err := repos.Counter.EnsureAPIID(context.Background(), 1000)
	require.NoError(t, err)

	cfg := process.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sum := &stubSummarizer{summary: entity.Summary{Headline: "**Port reopens**", Body: longBody}}
	svc := process.NewService(process.Repositories{
		Articles:  repos.Articles,
		Committer: repos.Articles,
		Ledger:    repos.Ledger,
		Failures:  repos.Failures,
		Counter:   repos.Counter,
	}, lease.NewManager(store, repos.Keys.LockPrefix()), sum, cfg, opts...)

	return &fixture{svc: svc, store: store, repos: repos, sum: sum, clock: c}
}

func linked(id int64) entity.Message {
	return entity.Message{ID: id, Text: "Port reopens https://news.example/post/" + strconv.FormatInt(id, 10)}
}

func TestProcess_StoresArticle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	outcome, err := f.svc.Process(ctx, linked(42))

	require.NoError(t, err)
	assert.Equal(t, process.Stored, outcome)

	list, err := f.repos.Articles.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	a := list[0]
	assert.Equal(t, int64(42), a.ID)
	assert.Equal(t, int64(1001), a.APIID)
	assert.Equal(t, "Port reopens", a.Headline)
	assert.Equal(t, longBody, a.Body)
	assert.Equal(t, "https://news.example/post/42", a.Source)
	assert.Equal(t, entity.ArticleStatusSummarized, a.Status)

	status, err := f.repos.Ledger.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusStored, status)
}

func TestProcess_NoURLSkipsWithoutSummarizing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	outcome, err := f.svc.Process(ctx, entity.Message{ID: 10, Text: "Good morning, subscribers!"})

	require.NoError(t, err)
	assert.Equal(t, process.Skipped, outcome)
	assert.Zero(t, f.sum.Calls())

	processed, err := f.repos.Ledger.IsProcessed(ctx, 10)
	require.NoError(t, err)
	assert.True(t, processed)

	status, err := f.repos.Ledger.Status(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSkippedNoURL, status)

	active, err := f.repos.Failures.Active(ctx, 10)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestProcess_EntityLinkBeatsPlainURL(t *testing.T) {
	f := newFixture(t, nil)

	msg := entity.Message{
		ID:   7,
		Text: "Read more here or at https://plain.example/a",
		Entities: []entity.TextEntity{
			{Type: entity.EntityTypeTextLink, Offset: 10, Length: 4, URL: "https://entity.example/b"},
		},
	}
	outcome, err := f.svc.Process(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, process.Stored, outcome)
	assert.Equal(t, []string{"https://entity.example/b"}, f.sum.urls)
}

func TestProcess_ShortBodyFailsAndStaysRetryable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sum.set(entity.Summary{Headline: "Short", Body: "one two three four five six seven eight nine ten"}, nil)

	outcome, err := f.svc.Process(ctx, linked(11))

	require.NoError(t, err)
	assert.Equal(t, process.Failed, outcome)

	rec, err := f.repos.Failures.Get(ctx, 11)
	require.NoError(t, err)
	assert.Contains(t, rec.Reason, "validation")

	processed, err := f.repos.Ledger.IsProcessed(ctx, 11)
	require.NoError(t, err)
	assert.True(t, processed)

	ids, err := f.repos.Failures.RetryCandidates(ctx, 0, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, ids)

	count, err := f.repos.Articles.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	f.clock.Advance(6*time.Hour + time.Second)

	ids, err = f.repos.Failures.RetryCandidates(ctx, 0, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)

	outcome, err = f.svc.Retry(ctx, linked(11))
	require.NoError(t, err)
	assert.Equal(t, process.Skipped, outcome)
	assert.Equal(t, 1, f.sum.Calls())
}

func TestProcess_RetryBypassesProcessedGateWhileFailureActive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sum.set(entity.Summary{}, errors.New("upstream overloaded"))

	outcome, err := f.svc.Process(ctx, linked(5))
	require.NoError(t, err)
	require.Equal(t, process.Failed, outcome)

	f.sum.set(entity.Summary{Headline: "Recovered", Body: longBody}, nil)
	outcome, err = f.svc.Retry(ctx, linked(5))

	require.NoError(t, err)
	assert.Equal(t, process.Stored, outcome)
	assert.Equal(t, 2, f.sum.Calls())

	active, err := f.repos.Failures.Active(ctx, 5)
	require.NoError(t, err)
	assert.False(t, active, "commit clears the failure record")

	ids, err := f.repos.Failures.RetryCandidates(ctx, 0, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProcess_FailedIDIsNotReprocessedOutsideRetry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sum.set(entity.Summary{}, errors.New("upstream overloaded"))

	outcome, err := f.svc.Process(ctx, linked(6))
	require.NoError(t, err)
	require.Equal(t, process.Failed, outcome)

	f.sum.set(entity.Summary{Headline: "Recovered", Body: longBody}, nil)
	outcome, err = f.svc.Process(ctx, linked(6))

	require.NoError(t, err)
	assert.Equal(t, process.Skipped, outcome)
	assert.Equal(t, 1, f.sum.Calls())
	active, err := f.repos.Failures.Active(ctx, 6)
	require.NoError(t, err)
	assert.True(t, active, "the failure record stays for the retry path")
}

func TestProcess_RepeatedRetryFailureKeepsWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sum.set(entity.Summary{}, errors.New("upstream overloaded"))
	firstExpiry := f.clock.Now().Add(process.DefaultConfig().FailureTTL)

	_, err := f.svc.Process(ctx, linked(7))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Hour)
		outcome, err := f.svc.Retry(ctx, linked(7))
		require.NoError(t, err)
		require.Equal(t, process.Failed, outcome)
	}

	rec, err := f.repos.Failures.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, firstExpiry, rec.ExpiresAt)

	f.clock.Advance(3*time.Hour + time.Second)
	outcome, err := f.svc.Retry(ctx, linked(7))
	require.NoError(t, err)
	assert.Equal(t, process.Skipped, outcome)
	assert.Equal(t, 4, f.sum.Calls())
}

type brokenLedger struct {
	repository.LedgerRepository
	err error
}

func (l brokenLedger) IsProcessed(context.Context, int64) (bool, error) {
	return false, l.err
}

func TestProcess_LedgerErrorSkipsWithoutWriting(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Process(ctx, linked(8))
	require.NoError(t, err)

	svc := process.NewService(process.Repositories{
		Articles:  f.repos.Articles,
		Committer: f.repos.Articles,
		Ledger:    brokenLedger{LedgerRepository: f.repos.Ledger, err: errors.New("connection reset")},
		Failures:  f.repos.Failures,
		Counter:   f.repos.Counter,
	}, lease.NewManager(f.store, f.repos.Keys.LockPrefix()), f.sum, process.DefaultConfig())

	outcome, err := svc.Process(ctx, linked(8))

	require.NoError(t, err)
	assert.Equal(t, process.Skipped, outcome)
	assert.Equal(t, 1, f.sum.Calls())
	status, err := f.repos.Ledger.Status(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusStored, status, "a stored message keeps its status")
	active, err := f.repos.Failures.Active(ctx, 8)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestProcess_AlreadyStoredIsSkipped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Process(ctx, linked(3))
	require.NoError(t, err)

	outcome, err := f.svc.Process(ctx, linked(3))

	require.NoError(t, err)
	assert.Equal(t, process.Skipped, outcome)
	assert.Equal(t, 1, f.sum.Calls())
}

func TestProcess_ConcurrentCallsOnSameID(t *testing.T) {
	f := newFixture(t, nil)
	f.sum.started = make(chan struct{}, 2)
	f.sum.release = make(chan struct{})
	ctx := context.Background()

	results := make(chan process.Outcome, 2)
	go func() {
		outcome, _ := f.svc.Process(ctx, linked(99))
		results <- outcome
	}()

	<-f.sum.started

	second, err := f.svc.Process(ctx, linked(99))
	require.NoError(t, err)
	assert.Equal(t, process.Skipped, second)

	close(f.sum.release)
	assert.Equal(t, process.Stored, <-results)
	assert.Equal(t, 1, f.sum.Calls())

	count, err := f.repos.Articles.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcess_CapacityEvictsOldest(t *testing.T) {
	f := newFixture(t, func(c *process.Config) { c.MaxArticles = 3 })
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3, 4} {
		outcome, err := f.svc.Process(ctx, linked(id))
		require.NoError(t, err)
		require.Equal(t, process.Stored, outcome)
	}

	list, err := f.repos.Articles.List(ctx)
	require.NoError(t, err)
	var ids, apiIDs []int64
	for _, a := range list {
		ids = append(ids, a.ID)
		apiIDs = append(apiIDs, a.APIID)
	}
	assert.Equal(t, []int64{4, 3, 2}, ids)
	assert.Equal(t, []int64{1004, 1003, 1002}, apiIDs)
}

func TestProcess_PanicBecomesFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.sum.panicV = "nil map"
	ctx := context.Background()

	outcome, err := f.svc.Process(ctx, linked(8))

	require.NoError(t, err)
	assert.Equal(t, process.Failed, outcome)

	rec, err := f.repos.Failures.Get(ctx, 8)
	require.NoError(t, err)
	assert.Contains(t, rec.Reason, "panic")

	status, err := f.repos.Ledger.Status(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, status)
}

func TestProcess_FailureReasonIsSanitized(t *testing.T) {
	f := newFixture(t, nil)
	f.sum.set(entity.Summary{}, errors.New("401 invalid key sk-ant-REDACTED"))
	ctx := context.Background()

	_, err := f.svc.Process(ctx, linked(12))
	require.NoError(t, err)

	rec, err := f.repos.Failures.Get(ctx, 12)
	require.NoError(t, err)
	assert.NotContains(t, rec.Reason, "abcdefghijklmnop")
	assert.Contains(t, rec.Reason, "sk-ant-****")
}

func TestProcess_CanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Process(ctx, linked(1))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.sum.Calls())
}

func TestProcess_TruncatesSummaryInput(t *testing.T) {
	f := newFixture(t, func(c *process.Config) { c.SummaryInputMaxChars = 40 })

	msg := entity.Message{ID: 2, Text: "https://news.example/a " + strings.Repeat("ü", 200)}
	_, err := f.svc.Process(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, f.sum.inputs, 1)
	assert.Equal(t, 40, len([]rune(f.sum.inputs[0])))
}

func TestProcess_ShortPostIsEnrichedWithLinkedPage(t *testing.T) {
	fetcher := &stubFetcher{content: "Full story from the linked page."}
	f := newFixture(t, nil, process.WithContentFetcher(fetcher))

	_, err := f.svc.Process(context.Background(), linked(21))
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	require.Len(t, f.sum.inputs, 1)
	assert.Contains(t, f.sum.inputs[0], "Full story from the linked page.")
}

func TestProcess_FetchFailureFallsBackToPostText(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("403")}
	f := newFixture(t, nil, process.WithContentFetcher(fetcher))

	outcome, err := f.svc.Process(context.Background(), linked(22))

	require.NoError(t, err)
	assert.Equal(t, process.Stored, outcome)
	assert.Equal(t, linked(22).Text, f.sum.inputs[0])
}

func TestProcess_LongPostDoesNotFetch(t *testing.T) {
	fetcher := &stubFetcher{content: "page"}
	f := newFixture(t, func(c *process.Config) { c.FetchThreshold = 10 }, process.WithContentFetcher(fetcher))

	_, err := f.svc.Process(context.Background(), linked(23))

	require.NoError(t, err)
	assert.Zero(t, fetcher.calls)
}
