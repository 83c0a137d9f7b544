package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"intervi-api/internal/model"
)

const sessionSelect = `SELECT s.id, s.user_id, s.domain_id, s.session_type, s.status, s.scheduled_at,
	s.completed_at, s.overall_score, s.feedback, s.recommendations, s.created_at, s.updated_at,
	m.session_id, m.posture_score, m.eye_contact_score, m.gesture_score, m.speech_pace_wpm,
	m.speech_clarity_score, m.filler_word_frequency, m.emotion_timeline, m.recommendations,
	m.overall_performance_score, m.updated_at
	FROM interview_sessions s
	LEFT JOIN session_metrics m ON m.session_id = s.id`

type InterviewRepository struct {
	pool *pgxpool.Pool
}

func NewInterviewRepository(pool *pgxpool.Pool) *InterviewRepository {
	return &InterviewRepository{pool: pool}
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanSession(row pgx.Row) (model.InterviewSession, error) {
	var (
		s                 model.InterviewSession
		metricsSessionID  *string
		posture, eye, gst *float64
		pace, clarity     *float64
		filler, overall   *float64
		timeline          []model.EmotionSnapshot
		recommendations   []string
		metricsUpdatedAt  *time.Time
	)

	err := row.Scan(&s.ID, &s.UserID, &s.DomainID, &s.SessionType, &s.Status, &s.ScheduledAt,
		&s.CompletedAt, &s.OverallScore, &s.Feedback, &s.Recommendations, &s.CreatedAt, &s.UpdatedAt,
		&metricsSessionID, &posture, &eye, &gst, &pace, &clarity, &filler, &timeline, &recommendations,
		&overall, &metricsUpdatedAt)
	if err != nil {
		return model.InterviewSession{}, err
	}

	if s.Feedback == nil {
		s.Feedback = []model.Feedback{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}

	if metricsSessionID != nil {
		s.Metrics = &model.SessionMetrics{
			PostureScore:            deref(posture),
			EyeContactScore:         deref(eye),
			GestureScore:            deref(gst),
			SpeechPaceWPM:           deref(pace),
			SpeechClarityScore:      deref(clarity),
			FillerWordFrequency:     deref(filler),
			EmotionTimeline:         timeline,
			Recommendations:         recommendations,
			OverallPerformanceScore: deref(overall),
		}
		if metricsUpdatedAt != nil {
			s.Metrics.UpdatedAt = *metricsUpdatedAt
		}
	}

	return s, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (r *InterviewRepository) Create(ctx context.Context, s model.InterviewSession) (model.InterviewSession, error) {
	if s.Feedback == nil {
		s.Feedback = []model.Feedback{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO interview_sessions (id, user_id, domain_id, session_type, status, scheduled_at,
		                                 feedback, recommendations, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.DomainID, s.SessionType, s.Status, s.ScheduledAt,
		s.Feedback, s.Recommendations, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return model.InterviewSession{}, fmt.Errorf("create interview session: %w", err)
	}
	return s, nil
}

func (r *InterviewRepository) Get(ctx context.Context, id string) (model.InterviewSession, error) {
	if !isUUID(id) {
		return model.InterviewSession{}, model.ErrSessionNotFound
	}

	s, err := scanSession(r.pool.QueryRow(ctx, sessionSelect+` WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.InterviewSession{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.InterviewSession{}, fmt.Errorf("get interview session: %w", err)
	}
	return s, nil
}

// List returns sessions newest first. An empty filter status matches all.
func (r *InterviewRepository) List(ctx context.Context, filter model.SessionFilter) ([]model.InterviewSession, error) {
	if !isUUID(filter.UserID) {
		return []model.InterviewSession{}, nil
	}

	query := sessionSelect + ` WHERE s.user_id = $1 AND ($2 = '' OR s.status = $2) ORDER BY s.created_at DESC`
	args := []any{filter.UserID, filter.Status}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interview sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.InterviewSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Update persists the mutable session fields only when the stored status still
// equals expectedStatus. A lost race reports ErrInvalidTransition.
func (r *InterviewRepository) Update(ctx context.Context, s model.InterviewSession, expectedStatus string) (model.InterviewSession, error) {
	if s.Feedback == nil {
		s.Feedback = []model.Feedback{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET status = $2, completed_at = $3, overall_score = $4, feedback = $5, recommendations = $6, updated_at = $7
		 WHERE id = $1 AND status = $8`,
		s.ID, s.Status, s.CompletedAt, s.OverallScore, s.Feedback, s.Recommendations, s.UpdatedAt, expectedStatus)
	if err != nil {
		return model.InterviewSession{}, fmt.Errorf("update interview session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, s.ID); getErr != nil {
			return model.InterviewSession{}, getErr
		}
		return model.InterviewSession{}, model.ErrInvalidTransition
	}
	return s, nil
}

func (r *InterviewRepository) UpsertMetrics(ctx context.Context, sessionID string, m model.SessionMetrics) (model.SessionMetrics, error) {
	if !isUUID(sessionID) {
		return model.SessionMetrics{}, model.ErrSessionNotFound
	}
	if m.EmotionTimeline == nil {
		m.EmotionTimeline = []model.EmotionSnapshot{}
	}
	if m.Recommendations == nil {
		m.Recommendations = []string{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_metrics (session_id, posture_score, eye_contact_score, gesture_score, speech_pace_wpm,
		                              speech_clarity_score, filler_word_frequency, emotion_timeline, recommendations,
		                              overall_performance_score, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (session_id) DO UPDATE SET
		     posture_score = EXCLUDED.posture_score,
		     eye_contact_score = EXCLUDED.eye_contact_score,
		     gesture_score = EXCLUDED.gesture_score,
		     speech_pace_wpm = EXCLUDED.speech_pace_wpm,
		     speech_clarity_score = EXCLUDED.speech_clarity_score,
		     filler_word_frequency = EXCLUDED.filler_word_frequency,
		     emotion_timeline = EXCLUDED.emotion_timeline,
		     recommendations = EXCLUDED.recommendations,
		     overall_performance_score = EXCLUDED.overall_performance_score,
		     updated_at = EXCLUDED.updated_at`,
		sessionID, m.PostureScore, m.EyeContactScore, m.GestureScore, m.SpeechPaceWPM,
		m.SpeechClarityScore, m.FillerWordFrequency, m.EmotionTimeline, m.Recommendations,
		m.OverallPerformanceScore, m.UpdatedAt)
	if err != nil {
		return model.SessionMetrics{}, fmt.Errorf("upsert session metrics: %w", err)
	}
	return m, nil
}
