package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/provider"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/repository"
)

// CloudonixGetter is the slice of the Cloudonix API the provisioning
// workflows need.
type CloudonixGetter interface {
	GetDomain(ctx context.Context, name string) (*provider.CloudonixDomain, error)
}

// CloudonixFactory builds a Cloudonix client for a given API key. Domain
// API keys arrive per-invocation, so the client cannot be constructed up
// front like the Voice-AI clients.
type CloudonixFactory func(apiKey string) CloudonixGetter

// ProvisionAppService implements the provisioning workflows: configure a
// Cloudonix domain, configure a Voice-AI provider (optionally creating a
// trunk), attach numbers, delete a domain. These are thin orchestrations
// over the provider clients and the configuration store; they produce the
// records the reconciliation engine later consumes.
type ProvisionAppService struct {
	store     repository.ConfigStore
	clients   provider.Factory
	cloudonix CloudonixFactory
	logger    *slog.Logger
}

// NewProvisionAppService creates the workflows service.
func NewProvisionAppService(store repository.ConfigStore, clients provider.Factory, cloudonix CloudonixFactory, logger *slog.Logger) *ProvisionAppService {
	return &ProvisionAppService{store: store, clients: clients, cloudonix: cloudonix, logger: logger}
}

// ConfigureDomain validates domainName against the Cloudonix API, derives
// the inbound SIP URI from the domain's auto alias (falling back to the
// domain name when no auto alias exists) and persists the domain record.
// Reconfiguring an existing domain preserves its provider sections.
func (s *ProvisionAppService) ConfigureDomain(ctx context.Context, domainName, apiKey string) (*domain.DomainRecord, error) {
	cd, err := s.cloudonix(apiKey).GetDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	cfg, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	d, ok := cfg.Domain(domainName)
	if !ok {
		d = &domain.DomainRecord{DomainName: domainName}
		cfg.Domains[domainName] = d
	}

	d.APIKey = apiKey
	d.Tenant = cd.Tenant
	if len(cd.Aliases) > 0 {
		d.Alias = cd.Aliases[0].Alias
	}
	autoAlias := cd.AutoAlias()
	if autoAlias == "" {
		s.logger.WarnContext(ctx, "domain has no auto alias, using domain name for the inbound SIP URI", "domain", domainName)
		autoAlias = domainName
	}
	d.AutoAlias = autoAlias
	d.InboundSipURI = cd.InboundSipURI()

	if err := s.store.WriteAll(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "domain configured", "domain", domainName, "inbound_sip_uri", d.InboundSipURI)
	return d, nil
}

// ConfigureProvider verifies and stores a provider API key. When both name
// and domainName are given it additionally creates a SIP trunk pointed at
// the domain's inbound SIP URI and records the credential id under that
// domain's provider section. Verification is permissive: only an
// unambiguous 401/403 rejection blocks configuration.
func (s *ProvisionAppService) ConfigureProvider(ctx context.Context, providerKey, apiKey, name, domainName string) error {
	key, err := domain.ParseProviderKey(providerKey)
	if err != nil {
		return err
	}
	if (name == "") != (domainName == "") {
		return fmt.Errorf("trunk creation needs both a trunk name and a domain")
	}

	cfg, err := s.store.ReadAll(ctx)
	if err != nil {
		return err
	}

	global := cfg.Provider(key)
	candidate := *global
	candidate.APIKey = apiKey
	client := s.clients.ClientFor(key, &candidate)

	if err := client.VerifyAPIKey(ctx); err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			return err
		}
		s.logger.WarnContext(ctx, "API key verification inconclusive, assuming valid", "provider", key, "error", err)
	}
	global.APIKey = apiKey

	if name != "" {
		d, ok := cfg.Domain(domainName)
		if !ok {
			return fmt.Errorf("domain %q: %w", domainName, domain.ErrDomainNotFound)
		}
		if d.InboundSipURI == "" {
			return fmt.Errorf("domain %q: %w", domainName, domain.ErrMissingInboundSipURI)
		}
		trunk, err := client.CreateSipTrunk(ctx, name, d.InboundSipURI)
		if err != nil {
			return err
		}
		d.Section(key).TrunkCredentialID = trunk.ID
		s.logger.InfoContext(ctx, "trunk credential stored", "provider", key, "domain", domainName, "credential_id", trunk.ID, "status", trunk.Status)
	}

	return s.store.WriteAll(ctx, cfg)
}

// AddNumber attaches an E.164 number to a domain's provider trunk, derives
// its SIP URI and stores the record under the domain's provider section.
func (s *ProvisionAppService) AddNumber(ctx context.Context, domainName, providerKey, number string) (*domain.PhoneNumberRecord, error) {
	key, err := domain.ParseProviderKey(providerKey)
	if err != nil {
		return nil, err
	}
	if !domain.ValidE164(number) {
		return nil, fmt.Errorf("%q: %w", number, domain.ErrInvalidNumber)
	}

	cfg, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := cfg.Domain(domainName)
	if !ok {
		return nil, fmt.Errorf("domain %q: %w", domainName, domain.ErrDomainNotFound)
	}
	if d.InboundSipURI == "" {
		return nil, fmt.Errorf("domain %q: %w", domainName, domain.ErrMissingInboundSipURI)
	}
	global := cfg.Provider(key)
	if !global.Configured() {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotConfigured)
	}

	sec := d.Section(key)
	if key == domain.ProviderVapi && sec.TrunkCredentialID == "" {
		return nil, fmt.Errorf("vapi needs a trunk credential for domain %q before numbers can be attached; run the service command with a trunk name first", domainName)
	}

	client := s.clients.ClientFor(key, global)
	info, err := client.AddNumber(ctx, provider.AddNumberRequest{
		Name:              domainName + "-" + strings.TrimPrefix(number, "+"),
		Number:            number,
		TrunkCredentialID: sec.TrunkCredentialID,
		InboundSipURI:     d.InboundSipURI,
	})
	if err != nil {
		return nil, err
	}

	sipURI := info.SipURI
	if sipURI == "" {
		sipURI = SipURI(key, number)
	}
	rec := domain.PhoneNumberRecord{
		Number:     number,
		ProviderID: info.ID,
		SipURI:     sipURI,
	}
	sec.PhoneNumbers[number] = rec
	// A number lives in exactly one scope per provider; attaching it to a
	// domain supersedes any stale global-map entry.
	delete(global.PhoneNumbers, number)

	if err := s.store.WriteAll(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "number attached", "provider", key, "domain", domainName, "number", number, "provider_id", rec.ProviderID)
	return &rec, nil
}

// DeleteDomain removes a domain record and everything under it. The
// interactive confirmation lives at the CLI boundary, not here.
func (s *ProvisionAppService) DeleteDomain(ctx context.Context, domainName string) error {
	cfg, err := s.store.ReadAll(ctx)
	if err != nil {
		return err
	}
	if _, ok := cfg.Domain(domainName); !ok {
		return fmt.Errorf("domain %q: %w", domainName, domain.ErrDomainNotFound)
	}
	delete(cfg.Domains, domainName)
	if err := s.store.WriteAll(ctx, cfg); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "domain deleted", "domain", domainName)
	return nil
}
