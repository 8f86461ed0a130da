package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/vrischmann/envconfig"

	"github.com/imamik/chainfleet/internal/util/ptr"
)

// Env holds the environment overrides. Empty values leave the file
// configuration untouched.
type Env struct {
	WatchdogTimeout string `envconfig:"CHAINFLEET_WATCHDOG_TIMEOUT"`
	MergeRetries    int    `envconfig:"CHAINFLEET_MERGE_RETRIES"`
	SessionStore    string `envconfig:"CHAINFLEET_SESSION_STORE"`
	TaskStore       string `envconfig:"CHAINFLEET_TASK_STORE"`
	KafkaBrokers    string `envconfig:"CHAINFLEET_KAFKA_BROKERS"`
	HCloudToken     string `envconfig:"HCLOUD_TOKEN"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	Debug           bool   `envconfig:"DEBUG"`
}

// LoadEnv reads the overrides from the process environment.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.InitWithOptions(&env, envconfig.Options{AllOptional: true}); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &env, nil
}

// Apply overrides cfg with every value set in env.
func (e *Env) Apply(cfg *Config) error {
	if e.WatchdogTimeout != "" {
		d, err := time.ParseDuration(e.WatchdogTimeout)
		if err != nil {
			return fmt.Errorf("CHAINFLEET_WATCHDOG_TIMEOUT: %w", err)
		}
		cfg.Deployment.WatchdogTimeout = ptr.To(d)
	}
	if e.MergeRetries != 0 {
		cfg.Tasks.MergeRetries = e.MergeRetries
	}
	if e.SessionStore != "" {
		cfg.Configuration.SessionStore = e.SessionStore
	}
	if e.TaskStore != "" {
		cfg.Tasks.Store = e.TaskStore
	}
	if e.KafkaBrokers != "" {
		cfg.Events.Brokers = splitList(e.KafkaBrokers)
	}
	if e.HCloudToken != "" {
		cfg.Sites.Token = e.HCloudToken
	}
	if e.S3AccessKey != "" {
		cfg.Configuration.S3.AccessKey = e.S3AccessKey
	}
	if e.S3SecretKey != "" {
		cfg.Configuration.S3.SecretKey = e.S3SecretKey
	}
	if e.DatabaseURL != "" {
		cfg.Tasks.DatabaseURL = e.DatabaseURL
	}
	if e.Debug {
		cfg.Debug = true
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
