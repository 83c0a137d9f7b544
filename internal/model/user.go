package model

import (
	"strings"
	"time"
)

const (
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

type User struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	PasswordHash    string           `json:"-"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	AvatarURL       string           `json:"avatarUrl,omitempty"`
	Role            string           `json:"role"`
	Statistics      UserStatistics   `json:"statistics"`
	SocialProviders []SocialIdentity `json:"socialProviders,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type UserStatistics struct {
	TotalSessions    int        `json:"totalSessions"`
	AverageScore     float64    `json:"averageScore"`
	CurrentStreak    int        `json:"currentStreak"`
	BestStreak       int        `json:"bestStreak"`
	ExperiencePoints int        `json:"experiencePoints"`
	LastSessionAt    *time.Time `json:"lastSessionAt,omitempty"`
}

// SocialIdentity links an external login provider account to a user.
type SocialIdentity struct {
	Provider   string    `json:"provider"`
	ProviderID string    `json:"providerId"`
	LinkedAt   time.Time `json:"linkedAt"`
}

// UserSummary is the public view of a user returned alongside tokens.
type UserSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role"`
}

type UserProfile struct {
	UserSummary
	Statistics UserStatistics `json:"statistics"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
	}
}

func (u User) Profile() UserProfile {
	return UserProfile{UserSummary: u.Summary(), Statistics: u.Statistics}
}

func IsValidRole(role string) bool {
	return role == RoleCandidate || role == RoleAdmin
}

// NormalizeEmail is the single canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type AuthResult struct {
	TokenPair
	User UserSummary `json:"user"`
}
