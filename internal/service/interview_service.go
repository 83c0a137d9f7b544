package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"intervi-api/internal/cache"
	"intervi-api/internal/event"
	"intervi-api/internal/model"
	"intervi-api/pkg/apierror"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 100
)

var difficultyTags = []string{model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced}

var domains = []model.InterviewDomain{
	{ID: "sde", Name: "Software Development", Slug: "software-dev", Icon: "Code"},
	{ID: "ds", Name: "Data Science", Slug: "data-science", Icon: "BarChart3"},
	{ID: "ml", Name: "Machine Learning", Slug: "machine-learning", Icon: "Brain"},
	{ID: "pm", Name: "Product Management", Slug: "product-management", Icon: "Target"},
	{ID: "ux", Name: "UX Design", Slug: "ux-design", Icon: "Palette"},
	{ID: "devops", Name: "DevOps", Slug: "devops", Icon: "Server"},
	{ID: "qa", Name: "QA Engineering", Slug: "qa-engineering", Icon: "Zap"},
	{ID: "ba", Name: "Business Analysis", Slug: "business-analysis", Icon: "Briefcase"},
	{ID: "sec", Name: "Security", Slug: "security", Icon: "Shield"},
	{ID: "infra", Name: "Infrastructure", Slug: "infrastructure", Icon: "Network"},
	{ID: "arch", Name: "System Architecture", Slug: "system-architecture", Icon: "Layers"},
	{ID: "cloud", Name: "Cloud Computing", Slug: "cloud-computing", Icon: "Cloud"},
	{ID: "db", Name: "Database Design", Slug: "database-design", Icon: "Database"},
	{ID: "frontend", Name: "Frontend Development", Slug: "frontend-development", Icon: "Monitor"},
	{ID: "backend", Name: "Backend Development", Slug: "backend-development", Icon: "Settings"},
}

var sessionTypes = []string{model.SessionTypeMock, model.SessionTypeAudio, model.SessionTypeVideo, model.SessionTypeCase}

var statuses = []string{model.StatusScheduled, model.StatusInProgress, model.StatusCompleted, model.StatusCancelled}

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	model.StatusScheduled:  {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted, model.StatusCancelled},
}

type SessionStore interface {
	Create(ctx context.Context, s model.InterviewSession) (model.InterviewSession, error)
	Get(ctx context.Context, id string) (model.InterviewSession, error)
	List(ctx context.Context, filter model.SessionFilter) ([]model.InterviewSession, error)
	Update(ctx context.Context, s model.InterviewSession, expectedStatus string) (model.InterviewSession, error)
	UpsertMetrics(ctx context.Context, sessionID string, m model.SessionMetrics) (model.SessionMetrics, error)
}

type StatisticsStore interface {
	UpdateStatistics(ctx context.Context, id string, fn func(model.UserStatistics) model.UserStatistics) (model.UserStatistics, error)
}

type InterviewService struct {
	sessions SessionStore
	stats    StatisticsStore
	bus      event.Bus
	cache    cache.Cache
	now      func() time.Time
}

func NewInterviewService(sessions SessionStore, stats StatisticsStore, bus event.Bus, c cache.Cache) *InterviewService {
	return &InterviewService{
		sessions: sessions,
		stats:    stats,
		bus:      bus,
		cache:    c,
		now:      time.Now,
	}
}

func (s *InterviewService) Domains() []model.InterviewDomain {
	out := make([]model.InterviewDomain, len(domains))
	for i, d := range domains {
		d.DifficultyTags = slices.Clone(difficultyTags)
		out[i] = d
	}
	return out
}

func findDomain(id string) (model.InterviewDomain, bool) {
	for _, d := range domains {
		if d.ID == id || d.Slug == id {
			return d, true
		}
	}
	return model.InterviewDomain{}, false
}

func (s *InterviewService) Create(ctx context.Context, actor model.User, req model.CreateSessionRequest) (model.InterviewSession, error) {
	req.DomainID = strings.TrimSpace(req.DomainID)
	req.SessionType = strings.ToLower(strings.TrimSpace(req.SessionType))

	fields := apierror.FieldErrors{}
	if req.DomainID == "" {
		fields.Add("domainId", "Domain is required")
	}
	if !slices.Contains(sessionTypes, req.SessionType) {
		fields.Add("sessionType", "Session type must be one of mock, audio, video, case")
	}
	if err := fields.Err(); err != nil {
		return model.InterviewSession{}, err
	}

	domain, ok := findDomain(req.DomainID)
	if !ok {
		return model.InterviewSession{}, model.ErrDomainNotFound
	}

	now := s.now().UTC()
	session, err := s.sessions.Create(ctx, model.InterviewSession{
		ID:              uuid.NewString(),
		UserID:          actor.ID,
		DomainID:        domain.ID,
		SessionType:     req.SessionType,
		Status:          model.StatusScheduled,
		ScheduledAt:     req.ScheduledAt,
		Feedback:        []model.Feedback{},
		Recommendations: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return model.InterviewSession{}, err
	}

	s.changed(ctx, event.TypeSessionCreated, session.UserID, session)
	return session, nil
}

// List returns the actor's sessions. Admins may list another user's.
func (s *InterviewService) List(ctx context.Context, actor model.User, userID string, status string, limit int) ([]model.InterviewSession, error) {
	if userID == "" {
		userID = actor.ID
	}
	if userID != actor.ID && actor.Role != model.RoleAdmin {
		return nil, model.ErrForbidden
	}

	if status != "" {
		if !slices.Contains(statuses, status) {
			return nil, apierror.BadRequest("Invalid request payload", map[string]string{"status": "Unknown session status"})
		}
	}

	switch {
	case limit <= 0:
		limit = defaultSessionLimit
	case limit > maxSessionLimit:
		limit = maxSessionLimit
	}

	return s.sessions.List(ctx, model.SessionFilter{UserID: userID, Status: status, Limit: limit})
}

// Get hides sessions the actor cannot see behind ErrSessionNotFound.
func (s *InterviewService) Get(ctx context.Context, actor model.User, id string) (model.InterviewSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return model.InterviewSession{}, err
	}
	if session.UserID != actor.ID && actor.Role != model.RoleAdmin {
		return model.InterviewSession{}, model.ErrSessionNotFound
	}
	return session, nil
}

func (s *InterviewService) UpdateMetrics(ctx context.Context, actor model.User, id string, m model.SessionMetrics) (model.SessionMetrics, error) {
	session, err := s.Get(ctx, actor, id)
	if err != nil {
		return model.SessionMetrics{}, err
	}
	if session.Status == model.StatusCancelled {
		return model.SessionMetrics{}, fmt.Errorf("%w: session is cancelled", model.ErrInvalidTransition)
	}

	if err := validateMetrics(m); err != nil {
		return model.SessionMetrics{}, err
	}
	if m.OverallPerformanceScore == 0 {
		m.OverallPerformanceScore = round2((m.PostureScore + m.EyeContactScore + m.GestureScore + m.SpeechClarityScore) / 4)
	}
	if m.EmotionTimeline == nil {
		m.EmotionTimeline = []model.EmotionSnapshot{}
	}
	if m.Recommendations == nil {
		m.Recommendations = []string{}
	}
	m.UpdatedAt = s.now().UTC()

	saved, err := s.sessions.UpsertMetrics(ctx, session.ID, m)
	if err != nil {
		return model.SessionMetrics{}, err
	}

	s.changed(ctx, event.TypeSessionMetricsUpdated, session.UserID, map[string]any{
		"sessionId": session.ID,
		"metrics":   saved,
	})
	return saved, nil
}

func (s *InterviewService) UpdateStatus(ctx context.Context, actor model.User, id string, req model.UpdateStatusRequest) (model.InterviewSession, error) {
	session, err := s.Get(ctx, actor, id)
	if err != nil {
		return model.InterviewSession{}, err
	}

	target := strings.ToLower(strings.TrimSpace(req.Status))
	if !slices.Contains(transitions[session.Status], target) {
		return model.InterviewSession{}, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, session.Status, target)
	}
	if err := validateFeedback(req.Feedback); err != nil {
		return model.InterviewSession{}, err
	}

	previous := session.Status
	now := s.now().UTC()
	session.Status = target
	session.UpdatedAt = now
	if len(req.Feedback) > 0 {
		session.Feedback = req.Feedback
	}

	if target == model.StatusCompleted {
		score := completionScore(session)
		session.CompletedAt = &now
		session.OverallScore = &score
		if session.Metrics != nil && len(session.Metrics.Recommendations) > 0 {
			session.Recommendations = slices.Clone(session.Metrics.Recommendations)
		}
	}

	updated, err := s.sessions.Update(ctx, session, previous)
	if err != nil {
		return model.InterviewSession{}, err
	}

	if target == model.StatusCompleted {
		score := *updated.OverallScore
		if _, err := s.stats.UpdateStatistics(ctx, updated.UserID, func(st model.UserStatistics) model.UserStatistics {
			return applyCompletion(st, score, now)
		}); err != nil {
			// The session is already committed as completed; report it as such.
			slog.Error("failed to update user statistics", "user_id", updated.UserID, "session_id", updated.ID, "error", err)
		}
	}

	s.changed(ctx, event.TypeSessionStatusChanged, updated.UserID, map[string]any{
		"sessionId": updated.ID,
		"from":      previous,
		"to":        updated.Status,
	})
	return updated, nil
}

// completionScore prefers the metrics overall score, then the feedback mean.
func completionScore(session model.InterviewSession) float64 {
	if session.Metrics != nil {
		return session.Metrics.OverallPerformanceScore
	}
	if len(session.Feedback) == 0 {
		return 0
	}

	var total float64
	for _, f := range session.Feedback {
		total += f.Score
	}
	return round2(total / float64(len(session.Feedback)))
}

// applyCompletion folds one completed session into the running statistics.
// Streaks count distinct UTC days.
func applyCompletion(st model.UserStatistics, score float64, at time.Time) model.UserStatistics {
	st.AverageScore = round2((st.AverageScore*float64(st.TotalSessions) + score) / float64(st.TotalSessions+1))
	st.TotalSessions++

	today := at.UTC().Truncate(24 * time.Hour)
	switch {
	case st.LastSessionAt == nil || st.CurrentStreak == 0:
		st.CurrentStreak = 1
	default:
		last := st.LastSessionAt.UTC().Truncate(24 * time.Hour)
		switch days := int(today.Sub(last).Hours() / 24); {
		case days <= 0:
		case days == 1:
			st.CurrentStreak++
		default:
			st.CurrentStreak = 1
		}
	}
	st.BestStreak = max(st.BestStreak, st.CurrentStreak)
	st.ExperiencePoints += 10 + int(math.Round(score/10))

	completed := at.UTC()
	st.LastSessionAt = &completed
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *InterviewService) changed(ctx context.Context, t event.Type, userID string, payload any) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, DashboardCacheKey(userID)); err != nil {
			slog.Warn("failed to invalidate dashboard cache", "user_id", userID, "error", err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(event.New(t, userID, payload))
	}
}
