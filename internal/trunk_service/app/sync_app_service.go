package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/normalize"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/provider"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/repository"
)

// ScopeGlobal is the tracked scope of a number that only exists in a
// provider's global map.
const ScopeGlobal = "global"

// SyncOptions filters a reconciliation run. Provider is a raw user-supplied
// key (aliases are resolved here); empty means every provider. Domain
// restricts the per-domain maps considered; empty means all domains.
type SyncOptions struct {
	Provider string
	Domain   string
}

// RemovedNumber identifies one pruned record and the scope it was tracked
// under when the removal was decided.
type RemovedNumber struct {
	Number string
	Scope  string
}

// ProviderSyncResult reports one provider's reconciliation pass. Exactly one
// of these is produced per targeted provider; a failed pass carries Err and
// guarantees zero configuration changes for that provider.
type ProviderSyncResult struct {
	Provider    domain.ProviderKey
	Skipped     bool
	SkipReason  string
	Err         error
	Removed     []RemovedNumber
	LocalCount  int
	RemoteCount int
}

// SyncAppService is the reconciliation engine: it prunes locally recorded
// numbers that no longer exist on the remote side, per provider, optionally
// scoped to one domain.
type SyncAppService struct {
	store   repository.ConfigStore
	clients provider.Factory
	logger  *slog.Logger
}

// NewSyncAppService creates the engine.
func NewSyncAppService(store repository.ConfigStore, clients provider.Factory, logger *slog.Logger) *SyncAppService {
	return &SyncAppService{store: store, clients: clients, logger: logger}
}

// Sync runs reconciliation for every targeted provider. Providers are fully
// independent: one provider's fetch failure never aborts the others, and
// each provider's changes are persisted in their own single write. The
// returned error covers only run-level problems (unknown provider key,
// unknown domain filter, unreadable store); per-provider outcomes live in
// the results.
func (s *SyncAppService) Sync(ctx context.Context, opts SyncOptions) ([]ProviderSyncResult, error) {
	log := s.logger.With("sync_run_id", uuid.NewString())

	targets := domain.AllProviderKeys()
	if opts.Provider != "" {
		key, err := domain.ParseProviderKey(opts.Provider)
		if err != nil {
			return nil, err
		}
		targets = []domain.ProviderKey{key}
	}

	cfg, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Domain != "" {
		if _, ok := cfg.Domain(opts.Domain); !ok {
			return nil, fmt.Errorf("domain %q: %w", opts.Domain, domain.ErrDomainNotFound)
		}
	}

	results := make([]ProviderSyncResult, 0, len(targets))
	for _, key := range targets {
		results = append(results, s.syncProvider(ctx, log, cfg, key, opts.Domain))
	}
	return results, nil
}

// syncProvider runs steps 1-7 of one provider's pass against the shared
// in-memory configuration. Any remote failure returns before the first
// mutation, so a failed pass leaves the configuration untouched.
func (s *SyncAppService) syncProvider(ctx context.Context, log *slog.Logger, cfg *domain.Config, key domain.ProviderKey, domainFilter string) ProviderSyncResult {
	res := ProviderSyncResult{Provider: key}

	global := cfg.Provider(key)
	if !global.Configured() {
		res.Skipped = true
		res.SkipReason = "not configured (no API key)"
		log.InfoContext(ctx, "skipping provider", "provider", key, "reason", res.SkipReason)
		return res
	}

	// Local bookkeeping: number -> tracked scope. Global entries first so a
	// per-domain entry for the same number wins as the more specific scope;
	// domains are walked sorted, last one wins if the at-most-one-scope
	// invariant is already broken on disk.
	local := make(map[string]string)
	for number := range global.PhoneNumbers {
		local[number] = ScopeGlobal
	}
	domainsToScan := cfg.DomainNames()
	if domainFilter != "" {
		domainsToScan = []string{domainFilter}
	}
	for _, name := range domainsToScan {
		d, ok := cfg.Domain(name)
		if !ok {
			continue
		}
		sec, ok := d.ExistingSection(key)
		if !ok {
			continue
		}
		for number := range sec.PhoneNumbers {
			local[number] = name
		}
	}
	res.LocalCount = len(local)

	// The remote fetch must reflect true remote state: no local fallback
	// here, ever. Mistaking "remote API is down" for "number was deleted"
	// would destroy bookkeeping that cannot be rebuilt, because no other
	// source of truth retains the provider-issued ids.
	client := s.clients.ClientFor(key, global)
	raw, err := client.ListNumbers(ctx)
	if err != nil {
		res.Err = err
		log.ErrorContext(ctx, "remote listing failed, aborting provider pass with zero changes", "provider", key, "error", err)
		return res
	}

	remote := normalize.ForReconciliation(key, raw, log)
	res.RemoteCount = len(remote)
	remoteSet := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		remoteSet[r.Number] = struct{}{}
	}

	// toRemove = local - remote, minus anything scoped to a domain other
	// than the filter when one is set.
	toRemove := make([]RemovedNumber, 0)
	for number, scope := range local {
		if _, ok := remoteSet[number]; ok {
			continue
		}
		if domainFilter != "" && scope != ScopeGlobal && scope != domainFilter {
			continue
		}
		toRemove = append(toRemove, RemovedNumber{Number: number, Scope: scope})
	}
	sort.Slice(toRemove, func(i, j int) bool { return toRemove[i].Number < toRemove[j].Number })

	changed := false
	for _, rm := range toRemove {
		// Both deletions are attempted independently: a number can be
		// recorded in the global map and a domain map at once (historical
		// bug); reconciliation repairs that by clearing both.
		if _, ok := global.PhoneNumbers[rm.Number]; ok {
			delete(global.PhoneNumbers, rm.Number)
			changed = true
		}
		if rm.Scope != ScopeGlobal {
			if d, ok := cfg.Domain(rm.Scope); ok {
				if sec, ok := d.ExistingSection(key); ok {
					if _, ok := sec.PhoneNumbers[rm.Number]; ok {
						delete(sec.PhoneNumbers, rm.Number)
						changed = true
					}
				}
			}
		}
		log.InfoContext(ctx, "removed stale number", "provider", key, "number", rm.Number, "scope", rm.Scope)
	}
	res.Removed = toRemove

	if changed {
		if err := s.store.WriteAll(ctx, cfg); err != nil {
			res.Err = fmt.Errorf("removals computed but could not be persisted: %w", err)
			return res
		}
	}
	log.InfoContext(ctx, "provider pass complete", "provider", key, "local", res.LocalCount, "remote", res.RemoteCount, "removed", len(res.Removed))
	return res
}
