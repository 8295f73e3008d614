// Package provider contains the per-provider API clients. Each client
// translates to and from one provider's wire format; everything above this
// package works with raw JSON list payloads (consumed via the normalize
// package) and the small typed results below.
package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

// TrunkInfo describes a provider-side SIP trunk credential.
type TrunkInfo struct {
	ID       string
	Name     string
	Provider string
	Status   string
}

// NumberInfo describes a provider-side phone number resource.
type NumberInfo struct {
	ID     string
	Number string
	SipURI string
	Raw    json.RawMessage
}

// AddNumberRequest carries everything a provider needs to attach a number
// to an existing trunk (or, for Retell, to its termination URI).
type AddNumberRequest struct {
	Name              string
	Number            string
	TrunkCredentialID string
	InboundSipURI     string
}

// Client is the capability set every Voice-AI provider adapter exposes.
//
// Error classification: methods return *domain.AuthError on an unambiguous
// credential rejection (HTTP 401/403) and *domain.RemoteUnavailableError for
// transport failures or unexpected statuses. Policy decisions (permissive
// verify, display fallback, reconciliation abort) live in the app layer.
type Client interface {
	Name() domain.ProviderKey
	VerifyAPIKey(ctx context.Context) error
	ListNumbers(ctx context.Context) (json.RawMessage, error)
	GetNumberDetails(ctx context.Context, id string) (json.RawMessage, error)
	CreateSipTrunk(ctx context.Context, name, inboundSipURI string) (*TrunkInfo, error)
	AddNumber(ctx context.Context, req AddNumberRequest) (*NumberInfo, error)
}

// Factory hands out a Client for a canonical provider key and that
// provider's stored global configuration.
type Factory interface {
	ClientFor(key domain.ProviderKey, global *domain.ProviderGlobalConfig) Client
}

// Defaults holds the fallback API base URLs used when the stored
// configuration does not pin one.
type Defaults struct {
	VapiAPIURL       string
	RetellAPIURL     string
	ElevenLabsAPIURL string
}

// HTTPFactory builds real HTTP-backed clients.
type HTTPFactory struct {
	logger     *slog.Logger
	httpClient *http.Client
	defaults   Defaults
}

// NewHTTPFactory creates a factory. httpClient may be nil, in which case a
// client with a 15 second timeout is used.
func NewHTTPFactory(logger *slog.Logger, defaults Defaults, httpClient *http.Client) *HTTPFactory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFactory{logger: logger, httpClient: httpClient, defaults: defaults}
}

// ClientFor returns the adapter for key. The stored api_url wins over the
// factory default so tests and self-hosted gateways can redirect a provider.
func (f *HTTPFactory) ClientFor(key domain.ProviderKey, global *domain.ProviderGlobalConfig) Client {
	apiURL := ""
	apiKey := ""
	if global != nil {
		apiURL = global.APIURL
		apiKey = global.APIKey
	}
	switch key {
	case domain.ProviderVapi:
		if apiURL == "" {
			apiURL = f.defaults.VapiAPIURL
		}
		return NewVapiClient(f.logger, apiURL, apiKey, f.httpClient)
	case domain.ProviderRetell:
		if apiURL == "" {
			apiURL = f.defaults.RetellAPIURL
		}
		return NewRetellClient(f.logger, apiURL, apiKey, f.httpClient)
	case domain.ProviderElevenLabs:
		if apiURL == "" {
			apiURL = f.defaults.ElevenLabsAPIURL
		}
		return NewElevenLabsClient(f.logger, apiURL, apiKey, f.httpClient)
	}
	return nil
}
