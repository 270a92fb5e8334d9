package sync

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rmitchellscott/marquee/internal/config"
	"github.com/rmitchellscott/marquee/internal/logging"
)

// DownloadPolicy is the advisory retry/timeout block attached to every
// download chunk. Every device applies the same client-side behavior, so no
// per-request negotiation is needed.
type DownloadPolicy struct {
	MaxParallel          int   `yaml:"max_parallel" json:"max_parallel"`
	MaxAttempts          int   `yaml:"max_attempts" json:"max_attempts"`
	BackoffSec           []int `yaml:"backoff_sec" json:"backoff_sec"`
	RetryableStatusCodes []int `yaml:"retryable_status_codes" json:"retryable_status_codes"`
	ConnectTimeoutSec    int   `yaml:"connect_timeout_sec" json:"connect_timeout_sec"`
	ReadTimeoutSec       int   `yaml:"read_timeout_sec" json:"read_timeout_sec"`
	ResumeSupported      bool  `yaml:"resume_supported" json:"resume_supported"`
}

func DefaultPolicy() DownloadPolicy {
	return DownloadPolicy{
		MaxParallel:          2,
		MaxAttempts:          5,
		BackoffSec:           []int{1, 5, 15, 60, 300},
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
		ConnectTimeoutSec:    10,
		ReadTimeoutSec:       60,
		ResumeSupported:      true,
	}
}

// LoadPolicy returns the default policy, overridden by the YAML file named
// in SYNC_POLICY_FILE when set. A broken override file keeps the defaults.
func LoadPolicy() DownloadPolicy {
	policy := DefaultPolicy()
	path := config.Get("SYNC_POLICY_FILE", "")
	if path == "" {
		return policy
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logging.WarnWithComponent(logging.ComponentSync, "cannot read sync policy file, using defaults",
			"path", path, "error", err)
		return DefaultPolicy()
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		logging.WarnWithComponent(logging.ComponentSync, "cannot parse sync policy file, using defaults",
			"path", path, "error", err)
		return DefaultPolicy()
	}
	logging.InfoWithComponent(logging.ComponentSync, "loaded sync policy override", "path", path)
	return policy
}
