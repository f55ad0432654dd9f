package api

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/georankers/visibility-agent/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// TokenSource supplies the bearer token and application id at call time.
// Tokens are deliberately not cached inside the client: a re-login takes
// effect on the next request.
type TokenSource interface {
	AccessToken() string
	ApplicationID() string
}

// Client wraps the visibility backend's REST endpoints. Transport failures
// and non-2xx responses are absorbed: every call returns a nil (or empty)
// result instead of an error, so callers use plain nil checks. Nothing is
// retried at this layer; the poller owns retry policy.
type Client struct {
	http   *resty.Client
	tokens TokenSource
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	c := &Client{
		http:   resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(30 * time.Second),
		tokens: tokens,
	}

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader("Content-Type", "application/json")
		if isAuthPath(req.URL) {
			return nil
		}
		// The token is read per request and attached even when the backend
		// will reject it as stale; the client does not pre-validate.
		if token := c.tokens.AccessToken(); token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		return nil
	})

	return c
}

func isAuthPath(url string) bool {
	return strings.Contains(url, pathLogin) || strings.Contains(url, pathRegister)
}

// post issues a POST and returns the body on 2xx, nil otherwise.
func (c *Client) post(ctx context.Context, path string, body any) []byte {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	return c.accept(path, resp, err)
}

// get issues a GET with query params and returns the body on 2xx, nil
// otherwise.
func (c *Client) get(ctx context.Context, path string, query map[string]string) []byte {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return c.accept(path, resp, err)
}

func (c *Client) accept(path string, resp *resty.Response, err error) []byte {
	if err != nil {
		logrus.Errorf("API request %s failed: %v", path, err)
		return nil
	}
	if resp.IsError() {
		logrus.Errorf("API request %s returned status %d: %s", path, resp.StatusCode(), string(resp.Body()))
		return nil
	}
	return resp.Body()
}

// Login authenticates an account. Pure network call: recording the token in
// the session is the caller's job via session.ApplyAuth.
func (c *Client) Login(ctx context.Context, req LoginRequest) *LoginResponse {
	body := c.post(ctx, pathLogin, req)
	if body == nil {
		return nil
	}
	var res LoginResponse
	if err := json.Unmarshal(body, &res); err != nil {
		logrus.Errorf("Failed to decode login response: %v", err)
		return nil
	}
	return &res
}

// Register creates a user together with a default application. Like Login,
// it performs no session mutation.
func (c *Client) Register(ctx context.Context, req RegisterRequest) *RegisterResponse {
	body := c.post(ctx, pathRegister, req)
	if body == nil {
		return nil
	}
	var res RegisterResponse
	if err := json.Unmarshal(body, &res); err != nil {
		logrus.Errorf("Failed to decode register response: %v", err)
		return nil
	}
	return &res
}

// CreateProductWithKeywords creates a product and seeds its keywords,
// kicking off the first analysis run. Blank keywords are dropped, the
// website is normalized, and a missing application id falls back to the
// session value.
func (c *Client) CreateProductWithKeywords(ctx context.Context, req ProductRequest) *models.Product {
	return c.postProduct(ctx, pathCreateProductWithKeywords, req)
}

// GenerateWithKeywords triggers a re-analysis for an existing product. The
// product identity is untouched; only a new analytics record is produced.
func (c *Client) GenerateWithKeywords(ctx context.Context, req ProductRequest) *models.Product {
	return c.postProduct(ctx, pathGenerateWithKeywords, req)
}

func (c *Client) postProduct(ctx context.Context, path string, req ProductRequest) *models.Product {
	if req.ApplicationID == "" {
		req.ApplicationID = c.tokens.ApplicationID()
	}
	req.Website = NormalizeWebsite(req.Website)
	req.SearchKeywords = filterBlank(req.SearchKeywords)

	body := c.post(ctx, path, req)
	if body == nil {
		return nil
	}

	var envelope struct {
		Product *models.Product `json:"product"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Product != nil && envelope.Product.ID != "" {
		return envelope.Product
	}

	var product models.Product
	if err := json.Unmarshal(body, &product); err != nil || product.ID == "" {
		logrus.Errorf("Failed to decode product response from %s", path)
		return nil
	}
	return &product
}

// GetProductAnalytics fetches the analytics records of a product for a date
// (YYYY-MM-DD).
func (c *Client) GetProductAnalytics(ctx context.Context, productID, date string) *models.AnalyticsResponse {
	if productID == "" {
		return nil
	}
	body := c.get(ctx, productAnalyticsPath(productID), map[string]string{"date": date})
	if body == nil {
		return nil
	}
	var res models.AnalyticsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		logrus.Errorf("Failed to decode product analytics response: %v", err)
		return nil
	}
	return &res
}

// GetKeywordAnalytics fetches the analytics records of a single keyword.
func (c *Client) GetKeywordAnalytics(ctx context.Context, keywordID, date string) *models.AnalyticsResponse {
	if keywordID == "" {
		return nil
	}
	body := c.get(ctx, keywordAnalyticsPath(keywordID), map[string]string{"date": date})
	if body == nil {
		return nil
	}
	var res models.AnalyticsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		logrus.Errorf("Failed to decode keyword analytics response: %v", err)
		return nil
	}
	return &res
}

// GetProductsByApplication lists the products owned by an application.
func (c *Client) GetProductsByApplication(ctx context.Context, applicationID string) []models.Product {
	if applicationID == "" {
		return nil
	}
	body := c.get(ctx, productsByApplicationPath(applicationID), nil)
	if body == nil {
		return nil
	}

	var products []models.Product
	if err := json.Unmarshal(body, &products); err == nil {
		return products
	}

	var envelope struct {
		Products []models.Product `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		logrus.Errorf("Failed to decode products response: %v", err)
		return nil
	}
	return envelope.Products
}

// GetChatHistory returns up to limit past chat messages for a product.
func (c *Client) GetChatHistory(ctx context.Context, productID string, limit int) []models.ChatMessage {
	if productID == "" {
		return nil
	}
	body := c.get(ctx, chatHistoryPath(productID), map[string]string{"limit": fmt.Sprintf("%d", limit)})
	if body == nil {
		return nil
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal(body, &messages); err == nil {
		return messages
	}

	var envelope chatHistoryResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		logrus.Errorf("Failed to decode chat history response: %v", err)
		return nil
	}
	return envelope.Messages
}

// SendChatMessage asks the product-scoped assistant a question. Stateless
// pass-through: conversation state lives server side.
func (c *Client) SendChatMessage(ctx context.Context, productID, question string) *models.ChatbotResponse {
	if productID == "" || strings.TrimSpace(question) == "" {
		return nil
	}
	body := c.post(ctx, sendChatMessagePath(productID), chatRequest{Question: question})
	if body == nil {
		return nil
	}
	var res models.ChatbotResponse
	if err := json.Unmarshal(body, &res); err != nil {
		logrus.Errorf("Failed to decode chat response: %v", err)
		return nil
	}
	return &res
}

var schemePrefix = regexp.MustCompile(`(?i)^https?://`)

// NormalizeWebsite turns user input into the backend-ready form
// "https://<bare-domain>/": scheme and www stripped, lowercased, exactly one
// trailing slash.
func NormalizeWebsite(input string) string {
	domain := strings.ToLower(strings.TrimSpace(input))
	if domain == "" {
		return ""
	}
	domain = schemePrefix.ReplaceAllString(domain, "")
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.TrimRight(domain, "/")
	return "https://" + domain + "/"
}

func filterBlank(keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
