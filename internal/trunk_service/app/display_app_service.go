package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/normalize"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/provider"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/repository"
)

// Row sources for display output.
const (
	SourceRemote     = "remote"
	SourceLocalCache = "local-cache"
)

// DisplayRow is one number as shown to the user.
type DisplayRow struct {
	Number   string
	RemoteID string
	SipURI   string
	Status   string
	Source   string
}

// ProviderDisplayResult reports one provider's listing.
type ProviderDisplayResult struct {
	Provider   domain.ProviderKey
	Skipped    bool
	SkipReason string
	Rows       []DisplayRow
}

// DisplayAppService lists each provider's numbers. Unlike reconciliation it
// degrades gracefully: a failed or empty remote listing falls back to the
// locally cached records, clearly labeled as such, so the command stays
// useful while a provider endpoint is flaky.
type DisplayAppService struct {
	store   repository.ConfigStore
	clients provider.Factory
	logger  *slog.Logger
}

// NewDisplayAppService creates the display service.
func NewDisplayAppService(store repository.ConfigStore, clients provider.Factory, logger *slog.Logger) *DisplayAppService {
	return &DisplayAppService{store: store, clients: clients, logger: logger}
}

// Display lists numbers for one provider (providerFilter set) or all
// configured providers. It never mutates the configuration.
func (s *DisplayAppService) Display(ctx context.Context, providerFilter string) ([]ProviderDisplayResult, error) {
	targets := domain.AllProviderKeys()
	if providerFilter != "" {
		key, err := domain.ParseProviderKey(providerFilter)
		if err != nil {
			return nil, err
		}
		targets = []domain.ProviderKey{key}
	}

	cfg, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]ProviderDisplayResult, 0, len(targets))
	for _, key := range targets {
		results = append(results, s.displayProvider(ctx, cfg, key))
	}
	return results, nil
}

func (s *DisplayAppService) displayProvider(ctx context.Context, cfg *domain.Config, key domain.ProviderKey) ProviderDisplayResult {
	res := ProviderDisplayResult{Provider: key}

	global := cfg.Provider(key)
	if !global.Configured() {
		res.Skipped = true
		res.SkipReason = "not configured (no API key)"
		return res
	}

	client := s.clients.ClientFor(key, global)
	raw, err := client.ListNumbers(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "remote listing failed, showing locally cached numbers", "provider", key, "error", err)
		raw = nil // normalize treats nil as "fetch failed": local fallback
	}

	records := normalize.ForDisplay(key, raw, cfg, s.logger)
	res.Rows = make([]DisplayRow, 0, len(records))
	for _, rec := range records {
		row := DisplayRow{
			Number:   rec.Number,
			RemoteID: rec.RemoteID,
			SipURI:   s.localSipURI(cfg, key, rec.Number),
			Source:   SourceRemote,
		}
		if rec.LocalOnly {
			row.Source = SourceLocalCache
		} else if rec.RemoteID != "" {
			// Enrichment only; a failed detail fetch degrades to list data.
			row.Status = s.fetchStatus(ctx, client, rec.RemoteID)
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// fetchStatus pulls the status field out of the per-number detail payload
// when the provider exposes one.
func (s *DisplayAppService) fetchStatus(ctx context.Context, client provider.Client, id string) string {
	raw, err := client.GetNumberDetails(ctx, id)
	if err != nil {
		s.logger.DebugContext(ctx, "number detail fetch failed, leaving status blank", "provider", client.Name(), "id", id, "error", err)
		return ""
	}
	var detail struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		return ""
	}
	return detail.Status
}

// localSipURI looks up the stored SIP URI for a number, preferring the
// domain-scoped record over the global one.
func (s *DisplayAppService) localSipURI(cfg *domain.Config, key domain.ProviderKey, number string) string {
	for _, name := range cfg.DomainNames() {
		d, ok := cfg.Domain(name)
		if !ok {
			continue
		}
		if sec, ok := d.ExistingSection(key); ok {
			if rec, ok := sec.PhoneNumbers[number]; ok && rec.SipURI != "" {
				return rec.SipURI
			}
		}
	}
	if global := cfg.Provider(key); global != nil {
		if rec, ok := global.PhoneNumbers[number]; ok {
			return rec.SipURI
		}
	}
	return ""
}
