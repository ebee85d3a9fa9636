package app

import (
	"errors"
	"io"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PlanPath string // hcl file or directory

	LogFormat string
	LogLevel  string
	// LogFile, if set, additionally writes logs to a size-rotated file.
	LogFile string
	// ReportPath is where the YAML run report goes; "-" means ReportOut.
	ReportPath string
	// ReportOut receives the report when ReportPath is "-". Defaults to
	// stdout. It must not be the log writer.
	ReportOut       io.Writer
	HealthcheckPort int
	// Backend overrides the backend type chosen by the plan.
	Backend       string
	SuppressRetry bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PlanPath == "" {
		return nil, errors.New("PlanPath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 {
		return nil, errors.New("HealthcheckPort cannot be negative")
	}
	return &cfg, nil
}
