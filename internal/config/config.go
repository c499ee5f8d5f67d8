// Package config handles loading and validation of platform.yaml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/karstlabs/platform-infra/pkg/types"
)

// Defaults applied when platform.yaml leaves drift options unset.
const (
	DefaultParallelism   = 4
	DefaultPluginVersion = "v6.66.3"
)

// Load reads and parses platform.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, "platform.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *types.ProjectConfig) {
	if cfg.Drift.Parallelism == 0 {
		cfg.Drift.Parallelism = DefaultParallelism
	}
	if cfg.Drift.FailOn == "" {
		cfg.Drift.FailOn = types.SeverityWarning
	}
	if cfg.Drift.PluginVersion == "" {
		cfg.Drift.PluginVersion = DefaultPluginVersion
	}
}

func validate(cfg *types.ProjectConfig) error {
	if cfg.Project == "" {
		return fmt.Errorf("project is required")
	}
	if len(cfg.Environments) == 0 {
		return fmt.Errorf("at least one environment is required")
	}
	seen := make(map[string]bool, len(cfg.Environments))
	for _, env := range cfg.Environments {
		if env.Name == "" {
			return fmt.Errorf("environment name is required")
		}
		if env.Region == "" {
			return fmt.Errorf("environment %q: region is required", env.Name)
		}
		if seen[env.Name] {
			return fmt.Errorf("duplicate environment %q", env.Name)
		}
		seen[env.Name] = true
	}
	if cfg.Drift.Parallelism < 1 {
		return fmt.Errorf("drift.parallelism must be at least 1")
	}
	if cfg.Drift.FailOn.Rank() < 0 {
		return fmt.Errorf("drift.failOn must be one of OK, WARNING, CRITICAL")
	}
	for _, a := range cfg.Alerts {
		if err := validateAlert(a); err != nil {
			return err
		}
	}
	return nil
}

func validateAlert(a types.AlertConfig) error {
	switch a.Type {
	case types.AlertConsole:
		return nil
	case types.AlertFile:
		if a.Path == "" {
			return fmt.Errorf("file alert: path is required")
		}
	case types.AlertWebhook:
		if a.URL == "" {
			return fmt.Errorf("webhook alert: url is required")
		}
	case types.AlertSNS:
		if a.TopicARN == "" {
			return fmt.Errorf("sns alert: topicArn is required")
		}
	case types.AlertSQS:
		if a.QueueURL == "" {
			return fmt.Errorf("sqs alert: queueUrl is required")
		}
	case types.AlertEventBridge:
		// EventBus is optional; EventBridge falls back to the default bus.
	default:
		return fmt.Errorf("unknown alert type %q", a.Type)
	}
	return nil
}
