package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/georankers/visibility-agent/internal/models"
	"github.com/georankers/visibility-agent/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher replays a fixed sequence of responses; the last one
// repeats. A nil entry simulates a transport failure.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses []*models.AnalyticsResponse
	calls     int
}

func (f *scriptedFetcher) GetProductAnalytics(ctx context.Context, productID, date string) *models.AnalyticsResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.responses) == 0 {
		return nil
	}
	res := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return res
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memSession is an in-memory stand-in for the sqlite store.
type memSession struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemSession() *memSession {
	return &memSession{data: make(map[string]string)}
}

func (m *memSession) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memSession) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func response(status, updatedAt string) *models.AnalyticsResponse {
	return &models.AnalyticsResponse{
		Analytics: []models.Record{
			{ID: "r1", ProductID: "p1", Status: status, UpdatedAt: updatedAt},
		},
	}
}

func nextEvent(t *testing.T, p *Poller) Event {
	t.Helper()
	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poller event")
		return Event{}
	}
}

func TestPoller_PollsUntilCompleted(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusPending, ""),
		response(models.StatusProcessing, ""),
		response(models.StatusCompleted, "2026-08-29T09:00:00Z"),
	}}
	p := New(fetcher, newMemSession(), 5*time.Millisecond)

	p.Start(context.Background(), "p1", nil)

	assert.Equal(t, StatePolling, nextEvent(t, p).State)
	assert.Equal(t, StatePolling, nextEvent(t, p).State)

	done := nextEvent(t, p)
	assert.Equal(t, StateCompleted, done.State)
	require.NotNil(t, done.Record)
	assert.Equal(t, models.StatusCompleted, done.Record.Status)

	p.Stop()
	// One fetch per observed status, nothing after the terminal one.
	assert.Equal(t, 3, fetcher.callCount())
	assert.Equal(t, StateIdle, p.State())
}

func TestPoller_StopBetweenFetches(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusPending, ""),
	}}
	p := New(fetcher, newMemSession(), time.Hour)

	p.Start(context.Background(), "p1", nil)
	assert.Equal(t, StatePolling, nextEvent(t, p).State)

	// Stop while the loop waits out the interval; the pending timer must be
	// released without a second fetch.
	p.Stop()
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPoller_TransientErrorRetries(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []*models.AnalyticsResponse{
		nil, // transport failure
		response(models.StatusCompleted, "2026-08-29T09:00:00Z"),
	}}
	p := New(fetcher, newMemSession(), 5*time.Millisecond)

	p.Start(context.Background(), "p1", nil)

	done := nextEvent(t, p)
	assert.Equal(t, StateCompleted, done.State)
	p.Stop()
	assert.Equal(t, 2, fetcher.callCount())
}

func TestPoller_FailedIsTerminal(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusFailed, ""),
	}}
	p := New(fetcher, newMemSession(), 5*time.Millisecond)

	p.Start(context.Background(), "p1", nil)

	ev := nextEvent(t, p)
	assert.Equal(t, StateFailed, ev.State)
	assert.False(t, ev.Fresh)

	p.Stop()
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPoller_FreshVersusFirstLoad(t *testing.T) {
	sess := newMemSession()

	// First ever completion: first load, not fresh.
	p := New(&scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusCompleted, "2026-08-29T09:00:00Z"),
	}}, sess, 5*time.Millisecond)
	p.Start(context.Background(), "p1", nil)
	ev := nextEvent(t, p)
	assert.True(t, ev.FirstLoad)
	assert.False(t, ev.Fresh)
	p.Stop()

	// Same timestamp again: neither first load nor fresh.
	p = New(&scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusCompleted, "2026-08-29T09:00:00Z"),
	}}, sess, 5*time.Millisecond)
	p.Start(context.Background(), "p1", nil)
	ev = nextEvent(t, p)
	assert.False(t, ev.FirstLoad)
	assert.False(t, ev.Fresh)
	p.Stop()

	// New timestamp: a fresh analysis landed.
	p = New(&scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusCompleted, "2026-08-30T09:00:00Z"),
	}}, sess, 5*time.Millisecond)
	p.Start(context.Background(), "p1", nil)
	ev = nextEvent(t, p)
	assert.False(t, ev.FirstLoad)
	assert.True(t, ev.Fresh)
	p.Stop()
}

func TestPoller_CompletionPersistsSnapshot(t *testing.T) {
	sess := newMemSession()
	keywords := []models.Keyword{{Keyword: "hiking packs"}, {Keyword: "trail gear"}}

	p := New(&scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusCompleted, "2026-08-29T09:00:00Z"),
	}}, sess, 5*time.Millisecond)
	p.Start(context.Background(), "p1", keywords)
	nextEvent(t, p)
	p.Stop()

	ts, ok := sess.Get(session.KeyLastAnalysisTimestamp)
	require.True(t, ok)
	assert.Equal(t, "2026-08-29T09:00:00Z", ts)

	count, ok := sess.Get(session.KeyKeywordCount)
	require.True(t, ok)
	assert.Equal(t, "2", count)

	stored, ok := sess.Get(session.KeyKeywords)
	require.True(t, ok)
	assert.Contains(t, stored, "hiking packs")
}

func TestPoller_StartSupersedesPreviousRun(t *testing.T) {
	first := &scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusPending, ""),
	}}
	p := New(first, newMemSession(), time.Hour)

	p.Start(context.Background(), "p1", nil)
	assert.Equal(t, StatePolling, nextEvent(t, p).State)

	// Restarting for another product cancels the first run before the new
	// one begins; the superseded loop never fetches again.
	p.Start(context.Background(), "p2", nil)
	defer p.Stop()

	assert.Equal(t, StatePolling, nextEvent(t, p).State)
	assert.Equal(t, 2, first.callCount())
}

func TestPoller_ConcurrentStartLeavesOneRun(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []*models.AnalyticsResponse{
		response(models.StatusPending, ""),
	}}
	p := New(fetcher, newMemSession(), 5*time.Millisecond)

	// Hammer Start from several goroutines; every superseded run must be
	// cancelled, never orphaned by an overwritten cancel func.
	for rep := 0; rep < 20; rep++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Start(context.Background(), "p1", nil)
			}()
		}
		wg.Wait()
	}

	p.Stop()
	assert.Equal(t, StateIdle, p.State())

	// With no leaked loop, fetching stops once Stop returns.
	calls := fetcher.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount())
}

func TestSelectRecord(t *testing.T) {
	t.Run("Prefers completed over newer pending", func(t *testing.T) {
		res := &models.AnalyticsResponse{Analytics: []models.Record{
			{ID: "r2", Status: models.StatusPending},
			{ID: "r1", Status: "Completed"},
		}}
		rec := selectRecord(res)
		require.NotNil(t, rec)
		assert.Equal(t, "r1", rec.ID)
	})

	t.Run("Falls back to first record", func(t *testing.T) {
		res := &models.AnalyticsResponse{Analytics: []models.Record{
			{ID: "r2", Status: models.StatusProcessing},
			{ID: "r1", Status: models.StatusPending},
		}}
		rec := selectRecord(res)
		require.NotNil(t, rec)
		assert.Equal(t, "r2", rec.ID)
	})

	t.Run("Nil and empty responses", func(t *testing.T) {
		assert.Nil(t, selectRecord(nil))
		assert.Nil(t, selectRecord(&models.AnalyticsResponse{}))
	})
}
