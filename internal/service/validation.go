package service

import (
	"net/mail"
	"slices"
	"strings"

	"intervi-api/internal/model"
	"intervi-api/pkg/apierror"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes; longer passwords are rejected.
	maxPasswordBytes = 72
)

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}

	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func checkEmail(fields apierror.FieldErrors, email string) {
	if email == "" {
		fields.Add("email", "Email is required")
		return
	}
	if !isValidEmail(email) {
		fields.Add("email", "Invalid email address")
	}
}

func checkPassword(fields apierror.FieldErrors, password string) {
	if len(password) < minPasswordLength {
		fields.Add("password", "Password must be at least 8 characters")
		return
	}
	if len(password) > maxPasswordBytes {
		fields.Add("password", "Password must be at most 72 bytes")
	}
}

func validateRegister(req *model.RegisterRequest) error {
	req.Email = model.NormalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	fields := apierror.FieldErrors{}
	checkEmail(fields, req.Email)
	checkPassword(fields, req.Password)
	if req.FirstName == "" {
		fields.Add("firstName", "First name is required")
	}
	if req.LastName == "" {
		fields.Add("lastName", "Last name is required")
	}
	return fields.Err()
}

func validateLogin(req *model.LoginRequest) error {
	req.Email = model.NormalizeEmail(req.Email)

	fields := apierror.FieldErrors{}
	checkEmail(fields, req.Email)
	if len(req.Password) < minPasswordLength {
		fields.Add("password", "Password must be at least 8 characters")
	}
	return fields.Err()
}

func checkScore(fields apierror.FieldErrors, name string, score float64) {
	if score < 0 || score > 100 {
		fields.Add(name, "Must be between 0 and 100")
	}
}

func validateMetrics(m model.SessionMetrics) error {
	fields := apierror.FieldErrors{}
	checkScore(fields, "postureScore", m.PostureScore)
	checkScore(fields, "eyeContactScore", m.EyeContactScore)
	checkScore(fields, "gestureScore", m.GestureScore)
	checkScore(fields, "speechClarityScore", m.SpeechClarityScore)
	checkScore(fields, "overallPerformanceScore", m.OverallPerformanceScore)
	if m.SpeechPaceWPM < 0 {
		fields.Add("speechPaceWpm", "Must not be negative")
	}
	if m.FillerWordFrequency < 0 {
		fields.Add("fillerWordFrequency", "Must not be negative")
	}
	for _, snap := range m.EmotionTimeline {
		if !slices.Contains(model.Emotions, snap.Label) {
			fields.Add("emotionTimeline", "Unknown emotion label "+snap.Label)
		}
		if snap.Probability < 0 || snap.Probability > 1 {
			fields.Add("emotionTimeline", "Probability must be between 0 and 1")
		}
	}
	return fields.Err()
}

func validateFeedback(feedback []model.Feedback) error {
	fields := apierror.FieldErrors{}
	for _, f := range feedback {
		if strings.TrimSpace(f.Category) == "" {
			fields.Add("feedback", "Feedback category is required")
		}
		checkScore(fields, "feedback", f.Score)
	}
	return fields.Err()
}
