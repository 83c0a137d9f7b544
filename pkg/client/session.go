// Package client is a Go SDK for the Intervi API that keeps the signed-in
// user and persists the token pair between runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`
	Role       string     `json:"role"`
	Statistics Statistics `json:"statistics"`
}

type Statistics struct {
	TotalSessions    int     `json:"totalSessions"`
	AverageScore     float64 `json:"averageScore"`
	CurrentStreak    int     `json:"currentStreak"`
	BestStreak       int     `json:"bestStreak"`
	ExperiencePoints int     `json:"experiencePoints"`
}

// ProfileUpdate carries the fields UpdateProfile may overwrite; nil fields
// are left alone.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// Error is returned for every non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
	Code    string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("intervi api: %d %s", e.Status, e.Message)
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         User   `json:"user"`
}

type Option func(*Session)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) {
		s.httpClient = hc
	}
}

// Session holds the signed-in user. Login and Register are serialized per
// Session, so a double submit never races two token pairs into storage.
type Session struct {
	baseURL    string
	httpClient *http.Client
	storage    TokenStorage

	opMu sync.Mutex

	mu      sync.RWMutex
	user    *User
	tokens  *Tokens
	loading bool
}

func NewSession(baseURL string, storage TokenStorage, opts ...Option) *Session {
	if storage == nil {
		storage = NewMemoryStorage()
	}

	s := &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		storage:    storage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Tokens() (Tokens, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tokens == nil {
		return Tokens{}, false
	}
	return *s.tokens, true
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// RestoreSession loads persisted tokens and resolves the user behind them.
// Any failure clears the persisted tokens and reports false.
func (s *Session) RestoreSession(ctx context.Context) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setLoading(true)
	defer s.setLoading(false)

	tokens, err := s.storage.Load()
	if err != nil || tokens.AccessToken == "" {
		s.discard()
		return false
	}

	var user User
	if err := s.do(ctx, http.MethodGet, "/api/auth/me", tokens.AccessToken, nil, &user); err != nil {
		slog.Debug("session restore failed", "error", err)
		s.discard()
		return false
	}

	s.mu.Lock()
	s.user = &user
	s.tokens = &tokens
	s.mu.Unlock()
	return true
}

func (s *Session) discard() {
	if err := s.storage.Clear(); err != nil {
		slog.Warn("clear persisted tokens", "error", err)
	}

	s.mu.Lock()
	s.user = nil
	s.tokens = nil
	s.mu.Unlock()
}

func (s *Session) Login(ctx context.Context, email string, password string) error {
	return s.authenticate(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (s *Session) Register(ctx context.Context, email string, firstName string, lastName string, password string) error {
	return s.authenticate(ctx, "/api/auth/register", map[string]string{
		"email":     email,
		"password":  password,
		"firstName": firstName,
		"lastName":  lastName,
	})
}

// authenticate leaves the previous state untouched on failure.
func (s *Session) authenticate(ctx context.Context, path string, body any) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setLoading(true)
	defer s.setLoading(false)

	var resp authResponse
	if err := s.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return err
	}

	tokens := Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := s.storage.Save(tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	s.mu.Lock()
	s.user = &resp.User
	s.tokens = &tokens
	s.mu.Unlock()
	return nil
}

// Refresh exchanges the refresh token for a rotated pair.
func (s *Session) Refresh(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current, ok := s.Tokens()
	if !ok || current.RefreshToken == "" {
		return &Error{Status: http.StatusUnauthorized, Message: "Missing refresh token"}
	}

	var resp authResponse
	if err := s.do(ctx, http.MethodPost, "/api/auth/refresh", current.RefreshToken, nil, &resp); err != nil {
		return err
	}

	tokens := Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := s.storage.Save(tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	s.mu.Lock()
	s.tokens = &tokens
	s.mu.Unlock()
	return nil
}

// Logout always clears local state. The server call is best effort.
func (s *Session) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if tokens, ok := s.Tokens(); ok && !tokens.empty() {
		body := map[string]string{"refreshToken": tokens.RefreshToken}
		if err := s.do(ctx, http.MethodPost, "/api/auth/logout", tokens.AccessToken, body, nil); err != nil {
			slog.Debug("server logout failed", "error", err)
		}
	}

	s.discard()
}

// UpdateProfile changes the local copy of the user only.
func (s *Session) UpdateProfile(update ProfileUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return
	}
	if update.FirstName != nil {
		s.user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		s.user.LastName = *update.LastName
	}
	if update.AvatarURL != nil {
		s.user.AvatarURL = *update.AvatarURL
	}
}

func (s *Session) do(ctx context.Context, method string, path string, bearer string, body any, dst any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Message string `json:"message"`
			Code    string `json:"code"`
			Details any    `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
			apiErr.Message = payload.Message
			apiErr.Code = payload.Code
			apiErr.Details = payload.Details
		}
		return apiErr
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
