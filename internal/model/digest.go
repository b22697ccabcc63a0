package model

import "time"

// DigestAlert is one actionable note inside a digest.
type DigestAlert struct {
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
}

// DigestResponse is a precomputed daily summary. Metrics values are plain
// JSON primitives and collections so downstream formatters can template
// them without type knowledge.
type DigestResponse struct {
	DigestType  DigestType     `json:"digest_type"`
	DB          string         `json:"db"`
	Period      string         `json:"period"`
	GeneratedAt time.Time      `json:"generated_at"`
	Metrics     map[string]any `json:"metrics"`
	Alerts      []DigestAlert  `json:"alerts"`
}
