package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/georankers/visibility-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a fixed TokenSource for tests.
type staticTokens struct {
	token string
	appID string
}

func (s *staticTokens) AccessToken() string   { return s.token }
func (s *staticTokens) ApplicationID() string { return s.appID }

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]models.Product{})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok-123"})
	client.GetProductsByApplication(context.Background(), "app-1")

	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_AuthEndpointsSkipBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(LoginResponse{AccessToken: "fresh"})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "stale"})
	res := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: EncodePassword("pw")})

	require.NotNil(t, res)
	assert.Equal(t, "fresh", res.AccessToken)
	assert.Empty(t, gotAuth)
}

func TestClient_NilOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{})

	assert.Nil(t, client.Login(context.Background(), LoginRequest{}))
	assert.Nil(t, client.GetProductAnalytics(context.Background(), "p1", "2026-08-29"))
	assert.Nil(t, client.GetProductsByApplication(context.Background(), "app-1"))
}

func TestClient_NilOnTransportError(t *testing.T) {
	// Nothing listens here.
	client := NewClient("http://127.0.0.1:1", &staticTokens{})
	assert.Nil(t, client.GetProductAnalytics(context.Background(), "p1", "2026-08-29"))
}

func TestClient_CreateProduct(t *testing.T) {
	var gotReq ProductRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"product": models.Product{ID: "p1", Name: gotReq.Name, Website: gotReq.Website},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok", appID: "app-from-session"})
	product := client.CreateProductWithKeywords(context.Background(), ProductRequest{
		Name:           "Acme",
		Website:        "WWW.Acme.com",
		SearchKeywords: []string{"hiking packs", "  ", "", "trail gear"},
	})

	require.NotNil(t, product)
	assert.Equal(t, "p1", product.ID)

	// The request is normalized before it leaves the client.
	assert.Equal(t, "https://acme.com/", gotReq.Website)
	assert.Equal(t, []string{"hiking packs", "trail gear"}, gotReq.SearchKeywords)
	// Missing application id falls back to the session's.
	assert.Equal(t, "app-from-session", gotReq.ApplicationID)
}

func TestClient_CreateProductBareResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Product{ID: "p2", Name: "Acme"})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{})
	product := client.GenerateWithKeywords(context.Background(), ProductRequest{Name: "Acme", Website: "acme.com"})

	require.NotNil(t, product)
	assert.Equal(t, "p2", product.ID)
}

func TestClient_GetProductAnalytics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/analytics/p1", r.URL.Path)
		assert.Equal(t, "2026-08-29", r.URL.Query().Get("date"))
		json.NewEncoder(w).Encode(models.AnalyticsResponse{
			Analytics: []models.Record{{ID: "r1", Status: models.StatusCompleted}},
			Count:     1,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok"})
	res := client.GetProductAnalytics(context.Background(), "p1", "2026-08-29")

	require.NotNil(t, res)
	require.Len(t, res.Analytics, 1)
	assert.Equal(t, models.StatusCompleted, res.Analytics[0].Status)

	// An empty product id never reaches the wire.
	assert.Nil(t, client.GetProductAnalytics(context.Background(), "", "2026-08-29"))
}

func TestClient_ProductsEnvelopeFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"products": []models.Product{{ID: "p1"}, {ID: "p2"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok"})
	products := client.GetProductsByApplication(context.Background(), "app-1")

	assert.Len(t, products, 2)
}

func TestClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "How visible am I?", req.Question)
			json.NewEncoder(w).Encode(models.ChatbotResponse{Answer: "Quite visible."})
		default:
			json.NewEncoder(w).Encode([]models.ChatMessage{{ID: "m1"}})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok"})

	res := client.SendChatMessage(context.Background(), "p1", "How visible am I?")
	require.NotNil(t, res)
	assert.Equal(t, "Quite visible.", res.Answer)

	// Blank questions are rejected locally.
	assert.Nil(t, client.SendChatMessage(context.Background(), "p1", "   "))

	history := client.GetChatHistory(context.Background(), "p1", 50)
	assert.Len(t, history, 1)
}

func TestEncodePassword(t *testing.T) {
	encoded := EncodePassword("hunter2")
	assert.NotEqual(t, "hunter2", encoded)

	decoded, err := DecodePassword(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", decoded)

	_, err = DecodePassword("%%% not base64 %%%")
	assert.Error(t, err)
}

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Bare domain", input: "acme.com", expected: "https://acme.com/"},
		{name: "Scheme and www stripped", input: "https://www.Acme.com", expected: "https://acme.com/"},
		{name: "Trailing slashes collapse", input: "acme.com///", expected: "https://acme.com/"},
		{name: "Already normalized", input: "https://acme.com/", expected: "https://acme.com/"},
		{name: "Whitespace trimmed", input: "  acme.com  ", expected: "https://acme.com/"},
		{name: "Empty stays empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeWebsite(tt.input))
		})
	}
}
