package session

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Persisted session keys. Clear(Keys...) on logout must remove every one of
// them.
const (
	KeyAccessToken           = "access_token"
	KeyApplicationID         = "application_id"
	KeyProductID             = "product_id"
	KeyKeywords              = "keywords"
	KeyKeywordCount          = "keyword_count"
	KeyFirstName             = "first_name"
	KeyApplications          = "applications"
	KeyProducts              = "products"
	KeyAppInitialized        = "app_initialized"
	KeyLastAnalysisTimestamp = "last_analysis_timestamp"
)

// Keys lists every session-derived key, in the order they were introduced.
var Keys = []string{
	KeyAccessToken,
	KeyApplicationID,
	KeyProductID,
	KeyKeywords,
	KeyKeywordCount,
	KeyFirstName,
	KeyApplications,
	KeyProducts,
	KeyAppInitialized,
	KeyLastAnalysisTimestamp,
}

// Store is a durable key-value session store backed by a local SQLite
// database. Values persist across agent restarts until explicitly cleared.
// Writes are serialized by a mutex so concurrent flows (login racing a
// poller, for instance) keep single-writer-per-key semantics.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session database ping failed: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set stores value under key. Storage failures are logged and swallowed:
// losing a cached value must never crash the caller.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO session_kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		logrus.Warnf("Session store: failed to set %s: %v", key, err)
	}
}

// Get returns the value stored under key, and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session_kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			logrus.Warnf("Session store: failed to get %s: %v", key, err)
		}
		return "", false
	}
	return value, true
}

// Delete removes a single key. Missing keys are not an error.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM session_kv WHERE key = ?`, key); err != nil {
		logrus.Warnf("Session store: failed to delete %s: %v", key, err)
	}
}

// Clear removes the given keys sequentially. Used by logout with the full
// Keys list.
func (s *Store) Clear(keys ...string) {
	for _, key := range keys {
		s.Delete(key)
	}
}

// ApplyAuth records a successful login or registration. Kept separate from
// the network call itself so the client stays a pure transport layer.
func (s *Store) ApplyAuth(accessToken, applicationID string) {
	if accessToken != "" {
		s.Set(KeyAccessToken, accessToken)
	}
	if applicationID != "" {
		s.Set(KeyApplicationID, applicationID)
	}
}

// AccessToken returns the stored bearer token, or empty when logged out.
func (s *Store) AccessToken() string {
	token, _ := s.Get(KeyAccessToken)
	return token
}

// ApplicationID returns the stored application id, or empty when unknown.
func (s *Store) ApplicationID() string {
	id, _ := s.Get(KeyApplicationID)
	return id
}

// TokenExpired reports whether the stored access token carries an exp claim
// in the past. The token is decoded without signature verification: the
// agent holds no signing secret, and the backend is the authority either
// way. A missing or undecodable token counts as expired.
func (s *Store) TokenExpired() bool {
	tokenString := s.AccessToken()
	if tokenString == "" {
		return true
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		logrus.Debugf("Session store: could not decode access token: %v", err)
		return true
	}

	// required=false treats a missing exp claim as non-expiring.
	return !claims.VerifyExpiresAt(time.Now().Unix(), false)
}
