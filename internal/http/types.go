package http

import (
	"github.com/vibecope/vibecope/internal/locale"
	"github.com/vibecope/vibecope/internal/scoring"
	"github.com/vibecope/vibecope/internal/settings"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ScoreRequest is the request body for POST /api/v1/score and
// POST /api/v1/score/explain.
type ScoreRequest struct {
	Text     string `json:"text"`
	Platform string `json:"platform,omitempty"`
}

// ScoreResponse is the response body for POST /api/v1/score.
type ScoreResponse struct {
	Score    int             `json:"score"`
	Reasons  []string        `json:"reasons"`
	Filtered bool            `json:"filtered"`
	Action   settings.Action `json:"action,omitempty"`
	Path     scoring.Path    `json:"path"`
}

// LocalesResponse is the response body for GET /api/v1/locales.
type LocalesResponse struct {
	Available []locale.Info `json:"available"`
	Enabled   []string      `json:"enabled"`
}

// SetLocalesRequest is the request body for PUT /api/v1/settings/locales.
type SetLocalesRequest struct {
	Locales []string `json:"locales"`
}
