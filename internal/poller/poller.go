// Package poller drives the analytics retrieval loop: it repeatedly fetches
// a product's analytics resource until a run reaches a terminal status, then
// stops. Lifecycle is explicit (Start/Stop with context cancellation) rather
// than implied by a consumer's mount state.
package poller

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/georankers/visibility-agent/internal/models"
	"github.com/georankers/visibility-agent/internal/session"
	"github.com/sirupsen/logrus"
)

// State of the polling loop for the current product.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Fetcher is the one API call the poller needs. The gateway client's
// nil-on-failure contract doubles as the transient-error signal here.
type Fetcher interface {
	GetProductAnalytics(ctx context.Context, productID, date string) *models.AnalyticsResponse
}

// SessionStore is the slice of the session store the poller writes its
// completion snapshot through.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Event is emitted on every observed record and on terminal transitions.
type Event struct {
	ProductID string
	State     State
	Record    *models.Record

	// Fresh marks a completed run whose timestamp differs from the one
	// stored in the session: a new analysis landed, as opposed to re-reading
	// an old one. FirstLoad marks the very first completion ever observed
	// for this session; it is not Fresh.
	Fresh     bool
	FirstLoad bool
}

// Poller polls one product at a time. Starting it for a new product cancels
// the previous run first, so at most one timer is pending and a late
// response from a superseded product cannot overwrite newer state.
type Poller struct {
	fetch    Fetcher
	session  SessionStore
	interval time.Duration

	// startMu serializes Start and Stop so a run's cancel func is never
	// overwritten while that run is still live.
	startMu sync.Mutex

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	events chan Event
}

// New creates a poller with the given fetch interval. Zero or negative falls
// back to 30 seconds.
func New(fetch Fetcher, sess SessionStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		fetch:    fetch,
		session:  sess,
		interval: interval,
		state:    StateIdle,
		events:   make(chan Event, 16),
	}
}

// Events streams record observations and terminal transitions.
func (p *Poller) Events() <-chan Event {
	return p.events
}

// State returns the current polling state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start begins polling for productID, superseding any run in progress. The
// keywords snapshot is persisted to the session when the run completes.
// Start returns immediately; progress is reported on Events.
func (p *Poller) Start(ctx context.Context, productID string, keywords []models.Keyword) {
	if productID == "" {
		return
	}

	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.stopCurrent()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.state = StatePolling
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.run(runCtx, productID, keywords)
	}()
}

// Stop cancels the current run and waits for its loop to exit. Pending
// timers are released; no event is emitted after Stop returns.
func (p *Poller) Stop() {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.stopCurrent()
	p.mu.Lock()
	p.state = StateIdle
	p.mu.Unlock()
}

func (p *Poller) stopCurrent() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Poller) run(ctx context.Context, productID string, keywords []models.Keyword) {
	logrus.Infof("Polling analytics for product %s every %v", productID, p.interval)

	for {
		res := p.fetch.GetProductAnalytics(ctx, productID, time.Now().Format("2006-01-02"))
		if ctx.Err() != nil {
			return
		}

		rec := selectRecord(res)
		if rec == nil {
			// Transport failure or empty response: transient. Same delay,
			// no retry cap; polling outlives intermittent backend trouble.
			logrus.Debugf("No analytics record for product %s yet, retrying", productID)
			if !p.sleep(ctx) {
				return
			}
			continue
		}

		if models.IsTerminal(rec.Status) {
			if strings.EqualFold(rec.Status, models.StatusCompleted) {
				fresh, firstLoad := p.recordCompletion(rec, keywords)
				p.setState(StateCompleted)
				p.emit(ctx, Event{ProductID: productID, State: StateCompleted, Record: rec, Fresh: fresh, FirstLoad: firstLoad})
				logrus.Infof("Analysis completed for product %s (fresh=%v)", productID, fresh)
				return
			}
			// Business-level failure, not a transport error: stop without
			// surfacing an error. Consumers see a terminal no-data state.
			p.setState(StateFailed)
			p.emit(ctx, Event{ProductID: productID, State: StateFailed, Record: rec})
			logrus.Infof("Analysis failed for product %s, polling stopped", productID)
			return
		}

		p.emit(ctx, Event{ProductID: productID, State: StatePolling, Record: rec})
		if !p.sleep(ctx) {
			return
		}
	}
}

// selectRecord picks the record the consumer cares about: the most recent
// completed one, falling back to the first record returned.
func selectRecord(res *models.AnalyticsResponse) *models.Record {
	if res == nil || len(res.Analytics) == 0 {
		return nil
	}
	for i := range res.Analytics {
		if strings.EqualFold(res.Analytics[i].Status, models.StatusCompleted) {
			return &res.Analytics[i]
		}
	}
	return &res.Analytics[0]
}

// recordCompletion persists the keyword snapshot and completion timestamp,
// and reports whether this completion is fresh relative to the stored one.
func (p *Poller) recordCompletion(rec *models.Record, keywords []models.Keyword) (fresh, firstLoad bool) {
	timestamp := rec.UpdatedAt
	if timestamp == "" {
		timestamp = rec.Date
	}

	previous, had := p.session.Get(session.KeyLastAnalysisTimestamp)
	firstLoad = !had
	fresh = had && previous != timestamp

	p.session.Set(session.KeyLastAnalysisTimestamp, timestamp)
	if len(keywords) > 0 {
		if data, err := json.Marshal(keywords); err == nil {
			p.session.Set(session.KeyKeywords, string(data))
		}
		p.session.Set(session.KeyKeywordCount, strconv.Itoa(len(keywords)))
	}
	return fresh, firstLoad
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Poller) emit(ctx context.Context, ev Event) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}

// sleep waits one interval; false means the run was cancelled.
func (p *Poller) sleep(ctx context.Context) bool {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
