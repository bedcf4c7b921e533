package types

import (
	"time"

	"github.com/google/uuid"
)

// Assessment is one Gemini mitigation assessment for a district hotspot.
// Fallback marks responses synthesised locally because the model was
// unavailable or rate limited.
type Assessment struct {
	ID           uuid.UUID `json:"id"`
	Station      string    `json:"station"`
	TemperatureC float64   `json:"temperature_c"`
	Model        string    `json:"model"`
	Markdown     string    `json:"markdown"`
	HTML         string    `json:"html"`
	Fallback     bool      `json:"fallback"`
	GeneratedAt  time.Time `json:"generated_at"`
}
