package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"intervi-api/internal/model"
)

type InterviewStore struct {
	mu       sync.RWMutex
	sessions map[string]model.InterviewSession
}

func NewInterviewStore() *InterviewStore {
	return &InterviewStore{sessions: map[string]model.InterviewSession{}}
}

func (s *InterviewStore) Create(_ context.Context, session model.InterviewSession) (model.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session = cloneSession(session)
	s.sessions[session.ID] = session
	return cloneSession(session), nil
}

func (s *InterviewStore) Get(_ context.Context, id string) (model.InterviewSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.InterviewSession{}, model.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *InterviewStore) List(_ context.Context, filter model.SessionFilter) ([]model.InterviewSession, error) {
	s.mu.RLock()
	result := make([]model.InterviewSession, 0)
	for _, session := range s.sessions {
		if session.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		result = append(result, cloneSession(session))
	}
	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b model.InterviewSession) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *InterviewStore) Update(_ context.Context, session model.InterviewSession, expectedStatus string) (model.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	if !ok {
		return model.InterviewSession{}, model.ErrSessionNotFound
	}
	if current.Status != expectedStatus {
		return model.InterviewSession{}, model.ErrInvalidTransition
	}

	session.Metrics = current.Metrics
	session = cloneSession(session)
	s.sessions[session.ID] = session
	return cloneSession(session), nil
}

func (s *InterviewStore) UpsertMetrics(_ context.Context, sessionID string, metrics model.SessionMetrics) (model.SessionMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return model.SessionMetrics{}, model.ErrSessionNotFound
	}

	metrics = cloneMetrics(metrics)
	session.Metrics = &metrics
	s.sessions[sessionID] = session
	return cloneMetrics(metrics), nil
}

func cloneSession(s model.InterviewSession) model.InterviewSession {
	s.Feedback = slices.Clone(s.Feedback)
	if s.Feedback == nil {
		s.Feedback = []model.Feedback{}
	}
	s.Recommendations = slices.Clone(s.Recommendations)
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	if s.OverallScore != nil {
		v := *s.OverallScore
		s.OverallScore = &v
	}
	if s.Metrics != nil {
		m := cloneMetrics(*s.Metrics)
		s.Metrics = &m
	}
	return s
}

func cloneMetrics(m model.SessionMetrics) model.SessionMetrics {
	m.EmotionTimeline = slices.Clone(m.EmotionTimeline)
	m.Recommendations = slices.Clone(m.Recommendations)
	return m
}
