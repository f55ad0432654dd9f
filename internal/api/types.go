package api

import "github.com/georankers/visibility-agent/internal/models"

// LoginRequest authenticates an existing account. Password carries the
// transport encoding from EncodePassword.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Application is one application owned by a user; its id scopes product
// listings.
type Application struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	ProjectToken string `json:"project_token,omitempty"`
}

// User is the account profile returned by the auth endpoints.
type User struct {
	ID                string        `json:"id"`
	Email             string        `json:"email"`
	FirstName         string        `json:"first_name"`
	LastName          string        `json:"last_name"`
	OwnedApplications []Application `json:"owned_applications,omitempty"`
}

// LoginResponse is the login result: token plus the user and their
// applications.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// ApplicationID returns the id of the user's first owned application, or
// empty when none exists.
func (r *LoginResponse) ApplicationID() string {
	if r == nil || r.User == nil || len(r.User.OwnedApplications) == 0 {
		return ""
	}
	return r.User.OwnedApplications[0].ID
}

// RegisterRequest creates a user together with a default application.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AppName   string `json:"app_name"`
}

// RegisterResponse is the registration result.
type RegisterResponse struct {
	User         User        `json:"user"`
	Application  Application `json:"application"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
}

// ProductRequest creates a product with seed keywords, or triggers a
// re-analysis via the generate endpoint.
type ProductRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Website        string   `json:"website"`
	BusinessDomain string   `json:"business_domain"`
	ApplicationID  string   `json:"application_id"`
	SearchKeywords []string `json:"search_keywords"`
}

// chatHistoryResponse tolerates the wrapped history envelope.
type chatHistoryResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

// chatRequest sends one question to the product-scoped assistant.
type chatRequest struct {
	Question string `json:"question"`
}
