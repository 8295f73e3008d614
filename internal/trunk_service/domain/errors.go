package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured indicates the provider has no stored API key; callers
	// skip the provider with a notice rather than failing.
	ErrNotConfigured = errors.New("provider is not configured")
	// ErrDomainNotFound indicates the referenced domain is absent from the
	// configuration document.
	ErrDomainNotFound = errors.New("domain not found")
	// ErrMissingInboundSipURI indicates the domain has not been configured
	// far enough for trunk creation (no derived inbound SIP URI yet).
	ErrMissingInboundSipURI = errors.New("domain has no inbound SIP URI; run configure first")
	// ErrInvalidNumber indicates a phone number is not in E.164 form.
	ErrInvalidNumber = errors.New("phone number must be E.164 (+ followed by 1-15 digits)")
)

// UnsupportedProviderError is returned when a provider key is unknown after
// alias resolution.
type UnsupportedProviderError struct {
	Key string
}

func (e *UnsupportedProviderError) Error() string {
	supported := make([]string, 0, len(AllProviderKeys()))
	for _, k := range AllProviderKeys() {
		supported = append(supported, string(k))
	}
	return fmt.Sprintf("unsupported provider %q (supported: %s, alias: 11labs)", e.Key, strings.Join(supported, ", "))
}

// AuthError indicates a provider rejected the stored credentials outright
// (HTTP 401/403). Ambiguous failures are deliberately not AuthErrors.
type AuthError struct {
	Provider   ProviderKey
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected the API key (status %d)", e.Provider, e.StatusCode)
}

// RemoteUnavailableError wraps a transport failure or an unusable response
// from a provider. For reconciliation it is fatal to that provider's pass;
// for display it triggers the clearly-labeled local fallback.
type RemoteUnavailableError struct {
	Provider ProviderKey
	Op       string
	Err      error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }
