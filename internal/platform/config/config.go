package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds process-level configuration for the CLI. These are knobs
// for the tool itself; the provisioning state it manages lives in the
// separate configuration document (see trunk_service/repository).
type Settings struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// ConfigPath is the location of the persisted configuration document.
	ConfigPath string `mapstructure:"CONFIG_PATH"`

	HTTPTimeoutSeconds int `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	// Provider API base URLs. Defaults point at the public endpoints;
	// override for tests or self-hosted gateways.
	VapiAPIURL       string `mapstructure:"VAPI_API_URL"`
	RetellAPIURL     string `mapstructure:"RETELL_API_URL"`
	ElevenLabsAPIURL string `mapstructure:"ELEVENLABS_API_URL"`
	CloudonixAPIURL  string `mapstructure:"CLOUDONIX_API_URL"`
}

// HTTPTimeout returns the provider HTTP client timeout as a duration.
func (s *Settings) HTTPTimeout() time.Duration {
	if s.HTTPTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

// DefaultConfigPath returns the fixed user-scoped location of the
// configuration document: ~/.config/voiceai-connect/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to a relative path; better than refusing to start.
		return filepath.Join(".voiceai-connect", "config.yaml")
	}
	return filepath.Join(home, ".config", "voiceai-connect", "config.yaml")
}

// Load reads process settings from the environment (prefix VOICEAI, e.g.
// VOICEAI_LOG_LEVEL) with sane defaults for everything.
func Load() (*Settings, error) {
	v := viper.New()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("VOICEAI")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CONFIG_PATH", DefaultConfigPath())
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 15)
	v.SetDefault("VAPI_API_URL", "https://api.vapi.ai")
	v.SetDefault("RETELL_API_URL", "https://api.retellai.com")
	v.SetDefault("ELEVENLABS_API_URL", "https://api.elevenlabs.io")
	v.SetDefault("CLOUDONIX_API_URL", "https://api.cloudonix.io")

	// AutomaticEnv alone does not register keys for Unmarshal; touching the
	// defaults above does, so every field unmarshal-resolves.
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
