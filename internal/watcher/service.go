// Package watcher orchestrates the agent's end-to-end flow: session
// resolution, product resolution, polling, report derivation, archival and
// notifications.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/georankers/visibility-agent/internal/analytics"
	"github.com/georankers/visibility-agent/internal/api"
	"github.com/georankers/visibility-agent/internal/config"
	"github.com/georankers/visibility-agent/internal/models"
	"github.com/georankers/visibility-agent/internal/notifications"
	"github.com/georankers/visibility-agent/internal/poller"
	"github.com/georankers/visibility-agent/internal/session"
	"github.com/georankers/visibility-agent/internal/storage"
	"github.com/sirupsen/logrus"
)

// Gateway is the slice of the API client the watcher drives.
type Gateway interface {
	Login(ctx context.Context, req api.LoginRequest) *api.LoginResponse
	Register(ctx context.Context, req api.RegisterRequest) *api.RegisterResponse
	CreateProductWithKeywords(ctx context.Context, req api.ProductRequest) *models.Product
	GenerateWithKeywords(ctx context.Context, req api.ProductRequest) *models.Product
	GetProductsByApplication(ctx context.Context, applicationID string) []models.Product
	GetProductAnalytics(ctx context.Context, productID, date string) *models.AnalyticsResponse
}

// SessionStore is the session surface the watcher needs.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Clear(keys ...string)
	ApplyAuth(accessToken, applicationID string)
	AccessToken() string
	ApplicationID() string
	TokenExpired() bool
}

// Service ties the pipeline together and keeps the latest derived report.
type Service struct {
	config  *config.Config
	gateway Gateway
	session SessionStore
	archive storage.Interface
	notify  notifications.Interface
	poller  *poller.Poller

	metrics *Metrics
	report  *analytics.Report
	product *models.Product
	mu      sync.RWMutex
}

// Metrics holds watcher metrics
type Metrics struct {
	PollCount       int       `json:"poll_count"`
	CompletedCount  int       `json:"completed_count"`
	FailedCount     int       `json:"failed_count"`
	FreshCount      int       `json:"fresh_count"`
	LastStatus      string    `json:"last_status"`
	LastPoll        time.Time `json:"last_poll"`
	LastCompletedAt time.Time `json:"last_completed_at"`
	ErrorCount      int       `json:"error_count"`
}

// NewService creates a new watcher service
func NewService(cfg *config.Config, gateway Gateway, sess SessionStore, archive storage.Interface, notify notifications.Interface) *Service {
	return &Service{
		config:  cfg,
		gateway: gateway,
		session: sess,
		archive: archive,
		notify:  notify,
		poller:  poller.New(gateway, sess, cfg.PollInterval),
		metrics: &Metrics{},
	}
}

// Run resolves the session and product, starts polling and consumes poller
// events until ctx is cancelled. Transient failures are logged and retried;
// Run only returns on cancellation.
func (s *Service) Run(ctx context.Context) error {
	if err := s.EnsureSession(ctx); err != nil {
		return fmt.Errorf("session setup failed: %w", err)
	}

	product, err := s.ResolveProduct(ctx)
	if err != nil {
		return fmt.Errorf("product resolution failed: %w", err)
	}

	s.startPolling(ctx, product)

	for {
		select {
		case <-ctx.Done():
			s.poller.Stop()
			return ctx.Err()
		case ev := <-s.poller.Events():
			s.handleEvent(ev)
		}
	}
}

// EnsureSession makes sure a usable access token is stored: an unexpired
// stored token is kept, otherwise the account logs in, registering first
// when login fails for a never-seen account.
func (s *Service) EnsureSession(ctx context.Context) error {
	if !s.session.TokenExpired() {
		logrus.Debug("Reusing stored access token")
		return nil
	}

	if s.login(ctx) {
		return nil
	}

	logrus.Info("Login failed, attempting registration")
	reg := s.gateway.Register(ctx, api.RegisterRequest{
		Email:     s.config.AccountEmail,
		Password:  api.EncodePassword(s.config.AccountPassword),
		FirstName: s.config.FirstName,
		LastName:  s.config.LastName,
		AppName:   s.config.AppName,
	})
	if reg == nil {
		return fmt.Errorf("both login and registration failed for %s", s.config.AccountEmail)
	}

	// Session mutation happens here, not inside the client.
	s.session.ApplyAuth(reg.AccessToken, reg.Application.ID)
	s.session.Set(session.KeyFirstName, reg.User.FirstName)
	s.session.Set(session.KeyAppInitialized, "true")

	// Log in after registration so both paths share one session shape.
	if !s.login(ctx) {
		logrus.Warn("Post-registration login failed, continuing with registration token")
	}
	return nil
}

func (s *Service) login(ctx context.Context) bool {
	res := s.gateway.Login(ctx, api.LoginRequest{
		Email:    s.config.AccountEmail,
		Password: api.EncodePassword(s.config.AccountPassword),
	})
	if res == nil || res.AccessToken == "" {
		return false
	}

	s.session.ApplyAuth(res.AccessToken, res.ApplicationID())
	if res.User != nil {
		s.session.Set(session.KeyFirstName, res.User.FirstName)
		if len(res.User.OwnedApplications) > 0 {
			if data, err := json.Marshal(res.User.OwnedApplications); err == nil {
				s.session.Set(session.KeyApplications, string(data))
			}
		}
	}
	s.session.Set(session.KeyAppInitialized, "true")
	logrus.Infof("Logged in as %s", s.config.AccountEmail)
	return true
}

// ResolveProduct returns the tracked product: the application's first
// existing product, or a new one created from the configured brand and
// keywords.
func (s *Service) ResolveProduct(ctx context.Context) (*models.Product, error) {
	applicationID := s.session.ApplicationID()
	if applicationID == "" {
		return nil, fmt.Errorf("no application id in session")
	}

	products := s.gateway.GetProductsByApplication(ctx, applicationID)
	if len(products) > 0 {
		product := products[0]
		logrus.Infof("Tracking existing product %s (%s)", product.Name, product.ID)
		s.rememberProduct(&product, products)
		return &product, nil
	}

	if s.config.BrandWebsite == "" || len(s.config.Keywords) == 0 {
		return nil, fmt.Errorf("application %s has no products and BRAND_WEBSITE/KEYWORDS are not configured", applicationID)
	}

	brand := s.config.BrandWebsite
	product := s.gateway.CreateProductWithKeywords(ctx, api.ProductRequest{
		Name:           brand,
		Description:    brand,
		Website:        brand,
		BusinessDomain: brand,
		ApplicationID:  applicationID,
		SearchKeywords: s.config.Keywords,
	})
	if product == nil {
		return nil, fmt.Errorf("failed to create product for %s", brand)
	}

	logrus.Infof("Created product %s (%s), analysis started", product.Name, product.ID)
	s.rememberProduct(product, []models.Product{*product})
	return product, nil
}

func (s *Service) rememberProduct(product *models.Product, all []models.Product) {
	s.mu.Lock()
	s.product = product
	s.mu.Unlock()

	s.session.Set(session.KeyProductID, product.ID)
	if data, err := json.Marshal(product.SearchKeywords); err == nil {
		s.session.Set(session.KeyKeywords, string(data))
	}
	s.session.Set(session.KeyKeywordCount, strconv.Itoa(len(product.SearchKeywords)))
	if data, err := json.Marshal(all); err == nil {
		s.session.Set(session.KeyProducts, string(data))
	}
}

func (s *Service) startPolling(ctx context.Context, product *models.Product) {
	s.poller.Start(ctx, product.ID, product.SearchKeywords)
}

func (s *Service) handleEvent(ev poller.Event) {
	s.mu.Lock()
	s.metrics.PollCount++
	s.metrics.LastPoll = time.Now()
	if ev.Record != nil {
		s.metrics.LastStatus = ev.Record.Status
	}
	s.mu.Unlock()

	switch ev.State {
	case poller.StateCompleted:
		s.handleCompleted(ev)
	case poller.StateFailed:
		s.mu.Lock()
		s.metrics.FailedCount++
		s.mu.Unlock()
		// Terminal failure surfaces as a no-data state only; the report
		// endpoint keeps serving whatever completed run came before.
		logrus.Infof("Analysis for product %s ended in failed status", ev.ProductID)
	}
}

func (s *Service) handleCompleted(ev poller.Event) {
	payload := analytics.NormalizeRecord(ev.Record)
	report := analytics.BuildReport(ev.Record, payload)

	s.mu.Lock()
	s.metrics.CompletedCount++
	s.metrics.LastCompletedAt = time.Now()
	if ev.Fresh {
		s.metrics.FreshCount++
	}
	s.report = report
	s.mu.Unlock()

	if err := s.archiveRecord(ev.Record); err != nil {
		logrus.Errorf("Failed to archive analytics snapshot: %v", err)
		s.mu.Lock()
		s.metrics.ErrorCount++
		s.mu.Unlock()
	}

	// Only a fresh analysis is notification-worthy; re-reading a known run
	// on startup stays quiet.
	if ev.Fresh {
		if err := s.notify.SendReport(report); err != nil {
			logrus.Errorf("Failed to send report notification: %v", err)
			s.mu.Lock()
			s.metrics.ErrorCount++
			s.mu.Unlock()
		}
	}
}

func (s *Service) archiveRecord(rec *models.Record) error {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics record: %w", err)
	}
	filename := fmt.Sprintf("analytics-%s-%s.json", rec.ProductID, time.Now().Format("2006-01-02-15-04-05"))
	return s.archive.Store(filename, data)
}

// TriggerReanalysis asks the backend for a new run of the tracked product
// and restarts polling. Used by the cron schedule and the manual trigger
// endpoint.
func (s *Service) TriggerReanalysis(ctx context.Context) error {
	s.mu.RLock()
	product := s.product
	s.mu.RUnlock()

	if product == nil {
		return fmt.Errorf("no tracked product to regenerate")
	}

	var keywords []string
	for _, k := range product.SearchKeywords {
		keywords = append(keywords, k.Keyword)
	}

	res := s.gateway.GenerateWithKeywords(ctx, api.ProductRequest{
		Name:           product.Name,
		Description:    product.Description,
		Website:        product.Website,
		BusinessDomain: product.BusinessDomain,
		ApplicationID:  product.ApplicationID,
		SearchKeywords: keywords,
	})
	if res == nil {
		return fmt.Errorf("regenerate request for product %s failed", product.ID)
	}

	logrus.Infof("Re-analysis triggered for product %s", product.ID)
	s.poller.Start(ctx, product.ID, product.SearchKeywords)
	return nil
}

// Logout clears every session-derived key.
func (s *Service) Logout() {
	s.session.Clear(session.Keys...)
	logrus.Info("Session cleared")
}

// LatestReport returns the most recently derived report, or nil before the
// first completion.
func (s *Service) LatestReport() *analytics.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
