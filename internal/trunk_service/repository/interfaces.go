package repository

import (
	"context"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

// ConfigStore owns the persisted configuration document. A single CLI
// invocation reads the whole document once, mutates the in-memory copy, and
// writes it back at most once per workflow pass; concurrent writers are out
// of scope (last writer wins on the file).
type ConfigStore interface {
	// ReadAll returns the full configuration. A missing document yields an
	// empty configuration, not an error.
	ReadAll(ctx context.Context) (*domain.Config, error)
	// WriteAll atomically replaces the document with cfg.
	WriteAll(ctx context.Context, cfg *domain.Config) error
	// ReadDomain returns one domain record, or domain.ErrDomainNotFound.
	ReadDomain(ctx context.Context, name string) (*domain.DomainRecord, error)
	// ListDomainNames returns the configured domain names, sorted.
	ListDomainNames(ctx context.Context) ([]string, error)
	// Path reports where the document lives, for user-facing messages.
	Path() string
}
