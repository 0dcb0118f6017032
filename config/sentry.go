package config

// SentryConfig defines settings for Sentry defect reporting. Solver
// failures and extraction errors are reported, scenario errors are not.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	ServerName       string  `json:"server_name"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}
