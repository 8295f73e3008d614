// Package configfile persists the configuration document as a single
// human-editable YAML file at a fixed user-scoped path.
//
// Reads go through viper for its decode-hook machinery (legacy shape
// migration); writes marshal the typed model with yaml.v3 directly, because
// viper serializes its internal settings map rather than the tagged structs
// and would not round-trip the canonical key names.
package configfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

// Store implements repository.ConfigStore on top of one YAML document.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store for the document at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With("component", "configfile"),
	}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// ReadAll loads and decodes the document. A missing file is not an error:
// it decodes as an empty configuration so first-run commands work.
func (s *Store) ReadAll(ctx context.Context) (*domain.Config, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.logger.DebugContext(ctx, "configuration document not found, starting empty", "path", s.path)
		return domain.NewConfig(), nil
	}

	// Domain names are map keys and contain dots. viper's default "."
	// key-path delimiter would split "domains.example.com" into nested
	// maps, so the reader uses a delimiter that cannot occur in a key.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration document %s: %w", s.path, err)
	}

	cfg := domain.NewConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(legacyNumberListHook())); err != nil {
		return nil, fmt.Errorf("failed to decode configuration document %s: %w", s.path, err)
	}
	if cfg.Domains == nil {
		cfg.Domains = make(map[string]*domain.DomainRecord)
	}
	normalize(cfg)
	return cfg, nil
}

// WriteAll atomically replaces the document: marshal, write a temp file next
// to the target, rename. The directory is created 0700 and the file written
// 0600 since the document carries API keys.
func (s *Store) WriteAll(ctx context.Context, cfg *domain.Config) error {
	normalize(cfg)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create configuration directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp configuration file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp configuration file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace configuration document %s: %w", s.path, err)
	}

	s.logger.DebugContext(ctx, "configuration document written", "path", s.path, "bytes", len(out))
	return nil
}

// ReadDomain returns a single domain record.
func (s *Store) ReadDomain(ctx context.Context, name string) (*domain.DomainRecord, error) {
	cfg, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := cfg.Domain(name)
	if !ok {
		return nil, fmt.Errorf("domain %q: %w", name, domain.ErrDomainNotFound)
	}
	return d, nil
}

// ListDomainNames returns the configured domain names, sorted.
func (s *Store) ListDomainNames(ctx context.Context) ([]string, error) {
	cfg, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.DomainNames(), nil
}

// normalize repairs derivable fields before use/persistence: map keys win
// over embedded names, nil entries are dropped.
func normalize(cfg *domain.Config) {
	for name, d := range cfg.Domains {
		if d == nil {
			delete(cfg.Domains, name)
			continue
		}
		d.DomainName = name
	}
}
