package domain

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// ProviderKey identifies one of the supported Voice-AI providers.
type ProviderKey string

const (
	ProviderVapi       ProviderKey = "vapi"
	ProviderRetell     ProviderKey = "retell"
	ProviderElevenLabs ProviderKey = "elevenlabs"
)

// providerAliases maps accepted alternate spellings to canonical keys.
// "11labs" is the documented alias for ElevenLabs.
var providerAliases = map[string]ProviderKey{
	"11labs": ProviderElevenLabs,
}

// AllProviderKeys returns the canonical provider keys in a stable order.
func AllProviderKeys() []ProviderKey {
	return []ProviderKey{ProviderVapi, ProviderRetell, ProviderElevenLabs}
}

// ParseProviderKey resolves a user-supplied provider name (case-insensitive,
// aliases applied) to a canonical ProviderKey. Every provider lookup in the
// system must go through this function so that "11labs" and "elevenlabs"
// address the identical stored section.
func ParseProviderKey(s string) (ProviderKey, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := providerAliases[k]; ok {
		return alias, nil
	}
	switch ProviderKey(k) {
	case ProviderVapi, ProviderRetell, ProviderElevenLabs:
		return ProviderKey(k), nil
	}
	return "", &UnsupportedProviderError{Key: s}
}

var e164Pattern = regexp.MustCompile(`^\+[0-9]{1,15}$`)

// ValidE164 reports whether number is in canonical E.164 form
// ("+" followed by 1-15 digits). Numbers are stored and compared verbatim,
// so callers must validate before persisting.
func ValidE164(number string) bool {
	return e164Pattern.MatchString(number)
}

// PhoneNumberRecord links one phone number to one provider. The number itself
// is the map key wherever records are stored; the scope (global vs. a single
// domain) is implied by which map holds the record.
type PhoneNumberRecord struct {
	Number     string `json:"number" yaml:"number" mapstructure:"number"`
	ProviderID string `json:"provider_id,omitempty" yaml:"provider_id,omitempty" mapstructure:"provider_id"`
	SipURI     string `json:"sip_uri,omitempty" yaml:"sip_uri,omitempty" mapstructure:"sip_uri"`
}

// ProviderSection is the per-provider part of a DomainRecord: the trunk
// credential the provider issued for this domain plus the numbers attached
// through it, keyed by E.164 number.
type ProviderSection struct {
	TrunkCredentialID string                       `json:"trunk_credential_id,omitempty" yaml:"trunk_credential_id,omitempty" mapstructure:"trunk_credential_id"`
	PhoneNumbers      map[string]PhoneNumberRecord `json:"phone_numbers,omitempty" yaml:"phone_numbers,omitempty" mapstructure:"phone_numbers"`
}

// DomainRecord describes one configured Cloudonix domain.
type DomainRecord struct {
	DomainName    string `json:"domain_name" yaml:"domain_name" mapstructure:"domain_name"`
	APIKey        string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	Alias         string `json:"alias,omitempty" yaml:"alias,omitempty" mapstructure:"alias"`
	AutoAlias     string `json:"auto_alias,omitempty" yaml:"auto_alias,omitempty" mapstructure:"auto_alias"`
	InboundSipURI string `json:"inbound_sip_uri,omitempty" yaml:"inbound_sip_uri,omitempty" mapstructure:"inbound_sip_uri"`
	Tenant        string `json:"tenant,omitempty" yaml:"tenant,omitempty" mapstructure:"tenant"`

	Providers map[ProviderKey]*ProviderSection `json:"providers,omitempty" yaml:"providers,omitempty" mapstructure:"providers"`
}

// Section returns the provider section for key, creating it if absent.
func (d *DomainRecord) Section(key ProviderKey) *ProviderSection {
	if d.Providers == nil {
		d.Providers = make(map[ProviderKey]*ProviderSection)
	}
	sec, ok := d.Providers[key]
	if !ok || sec == nil {
		sec = &ProviderSection{}
		d.Providers[key] = sec
	}
	if sec.PhoneNumbers == nil {
		sec.PhoneNumbers = make(map[string]PhoneNumberRecord)
	}
	return sec
}

// ExistingSection returns the provider section for key without creating it.
func (d *DomainRecord) ExistingSection(key ProviderKey) (*ProviderSection, bool) {
	if d == nil || d.Providers == nil {
		return nil, false
	}
	sec, ok := d.Providers[key]
	if !ok || sec == nil {
		return nil, false
	}
	return sec, true
}

// ProviderGlobalConfig holds a provider's credentials plus the global
// (domain-independent) phone-number map, keyed by E.164 number.
type ProviderGlobalConfig struct {
	APIKey       string                       `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	APIURL       string                       `json:"api_url,omitempty" yaml:"api_url,omitempty" mapstructure:"api_url"`
	PhoneNumbers map[string]PhoneNumberRecord `json:"phone_numbers,omitempty" yaml:"phone_numbers,omitempty" mapstructure:"phone_numbers"`
}

// Configured reports whether an API key is stored for the provider.
func (p *ProviderGlobalConfig) Configured() bool {
	return p != nil && strings.TrimSpace(p.APIKey) != ""
}

// Config is the root of the persisted configuration document. It is the sole
// persisted artifact; the store hands out full in-memory copies which are
// mutated by exactly one workflow invocation and written back atomically.
type Config struct {
	Domains    map[string]*DomainRecord `json:"domains,omitempty" yaml:"domains,omitempty" mapstructure:"domains"`
	Vapi       ProviderGlobalConfig     `json:"vapi,omitempty" yaml:"vapi,omitempty" mapstructure:"vapi"`
	Retell     ProviderGlobalConfig     `json:"retell,omitempty" yaml:"retell,omitempty" mapstructure:"retell"`
	ElevenLabs ProviderGlobalConfig     `json:"elevenlabs,omitempty" yaml:"elevenlabs,omitempty" mapstructure:"elevenlabs"`
}

// NewConfig returns an empty configuration with the domains map initialized.
func NewConfig() *Config {
	return &Config{Domains: make(map[string]*DomainRecord)}
}

// Provider returns the global section for a canonical provider key.
// The returned pointer aliases the Config, so mutations stick.
func (c *Config) Provider(key ProviderKey) *ProviderGlobalConfig {
	switch key {
	case ProviderVapi:
		return &c.Vapi
	case ProviderRetell:
		return &c.Retell
	case ProviderElevenLabs:
		return &c.ElevenLabs
	}
	return nil
}

// Domain looks up a domain record by name.
func (c *Config) Domain(name string) (*DomainRecord, bool) {
	if c.Domains == nil {
		return nil, false
	}
	d, ok := c.Domains[name]
	if !ok || d == nil {
		return nil, false
	}
	return d, true
}

// DomainNames returns the configured domain names sorted for deterministic
// iteration (the reconciliation engine depends on this ordering for its
// last-scope-wins rule).
func (c *Config) DomainNames() []string {
	names := make([]string, 0, len(c.Domains))
	for name := range c.Domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoteNumberRecord is the transient normalized shape of one remote phone
// number. Raw keeps the untouched provider payload for display only; the
// reconciliation diff compares by Number alone.
type RemoteNumberRecord struct {
	Number   string
	RemoteID string
	Raw      json.RawMessage

	// LocalOnly marks records synthesized from the local configuration when
	// the remote endpoint was unusable. Display paths may produce these;
	// reconciliation paths never do.
	LocalOnly bool
}
