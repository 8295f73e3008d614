package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory ConfigStore. Like the real store it hands out
// deep copies on read, so callers mutating a snapshot without writing it
// back leave the stored state untouched.
type memStore struct {
	cfg        *domain.Config
	ReadCalls  int
	WriteCalls int
	ReadErr    error
	WriteErr   error
}

func newMemStore(cfg *domain.Config) *memStore {
	if cfg == nil {
		cfg = domain.NewConfig()
	}
	return &memStore{cfg: cfg}
}

func deepCopy(cfg *domain.Config) (*domain.Config, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	copied := domain.NewConfig()
	if err := yaml.Unmarshal(out, copied); err != nil {
		return nil, err
	}
	if copied.Domains == nil {
		copied.Domains = make(map[string]*domain.DomainRecord)
	}
	return copied, nil
}

func (m *memStore) ReadAll(ctx context.Context) (*domain.Config, error) {
	m.ReadCalls++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return deepCopy(m.cfg)
}

func (m *memStore) WriteAll(ctx context.Context, cfg *domain.Config) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	copied, err := deepCopy(cfg)
	if err != nil {
		return err
	}
	m.cfg = copied
	m.WriteCalls++
	return nil
}

func (m *memStore) ReadDomain(ctx context.Context, name string) (*domain.DomainRecord, error) {
	cfg, err := m.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := cfg.Domain(name)
	if !ok {
		return nil, fmt.Errorf("domain %q: %w", name, domain.ErrDomainNotFound)
	}
	return d, nil
}

func (m *memStore) ListDomainNames(ctx context.Context) ([]string, error) {
	cfg, err := m.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.DomainNames(), nil
}

func (m *memStore) Path() string { return "(in-memory)" }

// snapshot serializes the stored configuration for byte-for-byte
// unchanged assertions.
func (m *memStore) snapshot(t *testing.T) []byte {
	t.Helper()
	out, err := yaml.Marshal(m.cfg)
	require.NoError(t, err)
	return out
}

// stored returns the current persisted configuration (a deep copy).
func (m *memStore) stored(t *testing.T) *domain.Config {
	t.Helper()
	cfg, err := deepCopy(m.cfg)
	require.NoError(t, err)
	return cfg
}
