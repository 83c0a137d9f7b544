package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"intervi-api/internal/cache"
	"intervi-api/internal/model"
)

const dashboardCacheKeyPrefix = "intervi:analytics:dashboard:"

const (
	strengthThreshold    = 75
	improvementThreshold = 60
)

func DashboardCacheKey(userID string) string {
	return dashboardCacheKeyPrefix + userID
}

type UserReader interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

type SessionReader interface {
	Get(ctx context.Context, id string) (model.InterviewSession, error)
	List(ctx context.Context, filter model.SessionFilter) ([]model.InterviewSession, error)
}

type AnalyticsService struct {
	users    UserReader
	sessions SessionReader
	cache    cache.Cache
	ttl      time.Duration
	now      func() time.Time
}

func NewAnalyticsService(users UserReader, sessions SessionReader, c cache.Cache, ttl time.Duration) *AnalyticsService {
	return &AnalyticsService{
		users:    users,
		sessions: sessions,
		cache:    c,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Dashboard aggregates every session of userID. Results are cached until
// the TTL passes or a session mutation invalidates the key.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string) (model.DashboardAnalytics, error) {
	key := DashboardCacheKey(userID)

	var cached model.DashboardAnalytics
	if s.cache != nil {
		found, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			slog.Warn("dashboard cache read failed", "user_id", userID, "error", err)
		}
		if found {
			return cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.DashboardAnalytics{}, err
	}

	sessions, err := s.sessions.List(ctx, model.SessionFilter{UserID: userID})
	if err != nil {
		return model.DashboardAnalytics{}, err
	}

	dashboard := buildDashboard(user, sessions, s.now().UTC())

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, key, dashboard, s.ttl); err != nil {
			slog.Warn("dashboard cache write failed", "user_id", userID, "error", err)
		}
	}

	return dashboard, nil
}

func buildDashboard(user model.User, sessions []model.InterviewSession, now time.Time) model.DashboardAnalytics {
	d := model.DashboardAnalytics{
		UserID:           user.ID,
		TotalSessions:    len(sessions),
		CurrentStreak:    user.Statistics.CurrentStreak,
		BestStreak:       user.Statistics.BestStreak,
		ExperiencePoints: user.Statistics.ExperiencePoints,
		ScoreTrend:       []model.ScorePoint{},
		DomainBreakdown:  []model.DomainBreakdown{},
		MetricAverages:   map[string]float64{},
		GeneratedAt:      now,
	}

	type domainAcc struct {
		sessions int
		scored   int
		total    float64
	}
	byDomain := map[string]*domainAcc{}

	var scoreTotal float64
	metricTotals := map[string]float64{}
	metricCount := 0

	for _, session := range sessions {
		acc, ok := byDomain[session.DomainID]
		if !ok {
			acc = &domainAcc{}
			byDomain[session.DomainID] = acc
		}
		acc.sessions++

		if session.Status == model.StatusCompleted && session.OverallScore != nil {
			score := *session.OverallScore
			d.CompletedSessions++
			scoreTotal += score
			d.BestScore = max(d.BestScore, score)
			acc.scored++
			acc.total += score

			point := model.ScorePoint{SessionID: session.ID, Score: score}
			if session.CompletedAt != nil {
				point.CompletedAt = *session.CompletedAt
			}
			d.ScoreTrend = append(d.ScoreTrend, point)
		}

		if m := session.Metrics; m != nil {
			metricCount++
			metricTotals["postureScore"] += m.PostureScore
			metricTotals["eyeContactScore"] += m.EyeContactScore
			metricTotals["gestureScore"] += m.GestureScore
			metricTotals["speechPaceWpm"] += m.SpeechPaceWPM
			metricTotals["speechClarityScore"] += m.SpeechClarityScore
			metricTotals["fillerWordFrequency"] += m.FillerWordFrequency
			metricTotals["overallPerformanceScore"] += m.OverallPerformanceScore
		}
	}

	if d.CompletedSessions > 0 {
		d.AverageScore = round2(scoreTotal / float64(d.CompletedSessions))
	}

	slices.SortFunc(d.ScoreTrend, func(a, b model.ScorePoint) int {
		return a.CompletedAt.Compare(b.CompletedAt)
	})

	for domainID, acc := range byDomain {
		entry := model.DomainBreakdown{DomainID: domainID, Sessions: acc.sessions}
		if acc.scored > 0 {
			entry.AverageScore = round2(acc.total / float64(acc.scored))
		}
		d.DomainBreakdown = append(d.DomainBreakdown, entry)
	}
	slices.SortFunc(d.DomainBreakdown, func(a, b model.DomainBreakdown) int {
		return cmp.Compare(a.DomainID, b.DomainID)
	})

	for name, total := range metricTotals {
		d.MetricAverages[name] = round2(total / float64(metricCount))
	}

	return d
}

// Session describes one session. Sessions the actor cannot see report
// ErrSessionNotFound.
func (s *AnalyticsService) Session(ctx context.Context, actor model.User, sessionID string) (model.SessionAnalytics, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.SessionAnalytics{}, err
	}
	if session.UserID != actor.ID && actor.Role != model.RoleAdmin {
		return model.SessionAnalytics{}, model.ErrSessionNotFound
	}

	result := model.SessionAnalytics{
		Session:             session,
		Metrics:             session.Metrics,
		EmotionDistribution: map[string]float64{},
		Strengths:           []string{},
		Improvements:        []string{},
	}

	m := session.Metrics
	if m == nil {
		return result, nil
	}

	result.EmotionDistribution, result.DominantEmotion = emotionDistribution(m.EmotionTimeline)

	scores := []struct {
		label string
		score float64
	}{
		{"Posture", m.PostureScore},
		{"Eye contact", m.EyeContactScore},
		{"Gestures", m.GestureScore},
		{"Speech clarity", m.SpeechClarityScore},
	}
	for _, sc := range scores {
		switch {
		case sc.score >= strengthThreshold:
			result.Strengths = append(result.Strengths, sc.label)
		case sc.score < improvementThreshold:
			result.Improvements = append(result.Improvements, sc.label)
		}
	}

	return result, nil
}

// emotionDistribution weights each snapshot by its probability and
// normalizes the totals to sum to 1.
func emotionDistribution(timeline []model.EmotionSnapshot) (map[string]float64, string) {
	totals := map[string]float64{}
	var sum float64
	for _, snap := range timeline {
		totals[snap.Label] += snap.Probability
		sum += snap.Probability
	}

	dist := map[string]float64{}
	if sum == 0 {
		return dist, ""
	}

	dominant := ""
	for _, label := range model.Emotions {
		total, ok := totals[label]
		if !ok {
			continue
		}
		dist[label] = round2(total / sum)
		if dominant == "" || total > totals[dominant] {
			dominant = label
		}
	}
	return dist, dominant
}
