package model

import "time"

const (
	SessionTypeMock  = "mock"
	SessionTypeAudio = "audio"
	SessionTypeVideo = "video"
	SessionTypeCase  = "case"
)

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var Emotions = []string{"neutral", "happy", "sad", "angry", "fearful", "disgusted", "surprised"}

type InterviewDomain struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Icon           string   `json:"icon"`
	DifficultyTags []string `json:"difficultyTags"`
}

type InterviewSession struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	DomainID        string          `json:"domainId"`
	SessionType     string          `json:"sessionType"`
	Status          string          `json:"status"`
	ScheduledAt     *time.Time      `json:"scheduledAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	OverallScore    *float64        `json:"overallScore,omitempty"`
	Feedback        []Feedback      `json:"feedback"`
	Recommendations []string        `json:"recommendations"`
	Metrics         *SessionMetrics `json:"metrics,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type Feedback struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Comments string  `json:"comments,omitempty"`
}

type SessionMetrics struct {
	PostureScore            float64           `json:"postureScore"`
	EyeContactScore         float64           `json:"eyeContactScore"`
	GestureScore            float64           `json:"gestureScore"`
	SpeechPaceWPM           float64           `json:"speechPaceWpm"`
	SpeechClarityScore      float64           `json:"speechClarityScore"`
	FillerWordFrequency     float64           `json:"fillerWordFrequency"`
	EmotionTimeline         []EmotionSnapshot `json:"emotionTimeline"`
	Recommendations         []string          `json:"recommendations"`
	OverallPerformanceScore float64           `json:"overallPerformanceScore"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}

type EmotionSnapshot struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Timestamp   int64   `json:"timestamp"`
}

type SessionFilter struct {
	UserID string
	Status string
	Limit  int
}

type DashboardAnalytics struct {
	UserID            string             `json:"userId"`
	TotalSessions     int                `json:"totalSessions"`
	CompletedSessions int                `json:"completedSessions"`
	AverageScore      float64            `json:"averageScore"`
	BestScore         float64            `json:"bestScore"`
	CurrentStreak     int                `json:"currentStreak"`
	BestStreak        int                `json:"bestStreak"`
	ExperiencePoints  int                `json:"experiencePoints"`
	ScoreTrend        []ScorePoint       `json:"scoreTrend"`
	DomainBreakdown   []DomainBreakdown  `json:"domainBreakdown"`
	MetricAverages    map[string]float64 `json:"metricAverages"`
	GeneratedAt       time.Time          `json:"generatedAt"`
}

type ScorePoint struct {
	SessionID   string    `json:"sessionId"`
	CompletedAt time.Time `json:"completedAt"`
	Score       float64   `json:"score"`
}

type DomainBreakdown struct {
	DomainID     string  `json:"domainId"`
	Sessions     int     `json:"sessions"`
	AverageScore float64 `json:"averageScore"`
}

type SessionAnalytics struct {
	Session             InterviewSession   `json:"session"`
	Metrics             *SessionMetrics    `json:"metrics,omitempty"`
	EmotionDistribution map[string]float64 `json:"emotionDistribution"`
	DominantEmotion     string             `json:"dominantEmotion,omitempty"`
	Strengths           []string           `json:"strengths"`
	Improvements        []string           `json:"improvements"`
}
