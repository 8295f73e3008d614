package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

const vapiDefaultAPIURL = "https://api.vapi.ai"

// VapiClient talks to the VAPI REST API. Numbers attached through us are
// BYO ("bring your own") numbers routed over a byo-sip-trunk credential.
type VapiClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewVapiClient creates a VAPI adapter. httpClient may be nil.
func NewVapiClient(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *VapiClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if apiURL == "" {
		apiURL = vapiDefaultAPIURL
	}
	return &VapiClient{
		logger:     logger.With("provider", "vapi"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

func (c *VapiClient) Name() domain.ProviderKey { return domain.ProviderVapi }

func (c *VapiClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// VerifyAPIKey hits the phone-number listing, the cheapest authenticated
// endpoint VAPI exposes.
func (c *VapiClient) VerifyAPIKey(ctx context.Context) error {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/phone-number", c.headers(), nil)
	if err != nil {
		return remoteErr(domain.ProviderVapi, "verify API key", err)
	}
	return classifyStatus(domain.ProviderVapi, "verify API key", status, body)
}

// ListNumbers returns the raw phone-number list payload (an array of number
// objects). Shape interpretation happens in the normalize package.
func (c *VapiClient) ListNumbers(ctx context.Context) (json.RawMessage, error) {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/phone-number", c.headers(), nil)
	if err != nil {
		return nil, remoteErr(domain.ProviderVapi, "list phone numbers", err)
	}
	if err := classifyStatus(domain.ProviderVapi, "list phone numbers", status, body); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// GetNumberDetails fetches one phone-number resource by its VAPI id.
func (c *VapiClient) GetNumberDetails(ctx context.Context, id string) (json.RawMessage, error) {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/phone-number/"+id, c.headers(), nil)
	if err != nil {
		return nil, remoteErr(domain.ProviderVapi, "get phone number", err)
	}
	if err := classifyStatus(domain.ProviderVapi, "get phone number", status, body); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

type vapiCreateCredentialRequest struct {
	Provider string        `json:"provider"`
	Name     string        `json:"name"`
	Gateways []vapiGateway `json:"gateways"`
}

type vapiGateway struct {
	IP string `json:"ip"`
}

type vapiCredentialResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

// CreateSipTrunk creates a byo-sip-trunk credential whose single gateway
// points at the Cloudonix inbound SIP URI.
func (c *VapiClient) CreateSipTrunk(ctx context.Context, name, inboundSipURI string) (*TrunkInfo, error) {
	req := vapiCreateCredentialRequest{
		Provider: "byo-sip-trunk",
		Name:     name,
		Gateways: []vapiGateway{{IP: inboundSipURI}},
	}
	c.logger.InfoContext(ctx, "creating VAPI SIP trunk credential", "name", name, "gateway", inboundSipURI)

	status, body, err := doJSON(ctx, c.httpClient, http.MethodPost, c.apiURL+"/credential", c.headers(), req)
	if err != nil {
		return nil, remoteErr(domain.ProviderVapi, "create SIP trunk", err)
	}
	if err := classifyStatus(domain.ProviderVapi, "create SIP trunk", status, body); err != nil {
		return nil, err
	}

	var resp vapiCredentialResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, remoteErr(domain.ProviderVapi, "create SIP trunk", fmt.Errorf("unparseable response: %w", err))
	}
	if resp.ID == "" {
		return nil, remoteErr(domain.ProviderVapi, "create SIP trunk", fmt.Errorf("response carried no credential id"))
	}
	if resp.Status == "" {
		resp.Status = "active"
	}
	return &TrunkInfo{ID: resp.ID, Name: resp.Name, Provider: resp.Provider, Status: resp.Status}, nil
}

type vapiCreateNumberRequest struct {
	Provider     string `json:"provider"`
	Name         string `json:"name,omitempty"`
	Number       string `json:"number"`
	CredentialID string `json:"credentialId"`
}

type vapiNumberResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

// AddNumber registers a BYO number against an existing trunk credential.
// VAPI requires the credential id, so callers must create the trunk first.
func (c *VapiClient) AddNumber(ctx context.Context, req AddNumberRequest) (*NumberInfo, error) {
	if req.TrunkCredentialID == "" {
		return nil, remoteErr(domain.ProviderVapi, "add phone number", fmt.Errorf("trunk credential id is required"))
	}
	payload := vapiCreateNumberRequest{
		Provider:     "byo-phone-number",
		Name:         req.Name,
		Number:       req.Number,
		CredentialID: req.TrunkCredentialID,
	}
	c.logger.InfoContext(ctx, "adding BYO number to VAPI", "number", req.Number, "credential_id", req.TrunkCredentialID)

	status, body, err := doJSON(ctx, c.httpClient, http.MethodPost, c.apiURL+"/phone-number", c.headers(), payload)
	if err != nil {
		return nil, remoteErr(domain.ProviderVapi, "add phone number", err)
	}
	if err := classifyStatus(domain.ProviderVapi, "add phone number", status, body); err != nil {
		return nil, err
	}

	var resp vapiNumberResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// The number usually exists at this point even when the body is
		// odd; surface what we have rather than failing the attach.
		c.logger.WarnContext(ctx, "VAPI add number succeeded but response was unparseable", "error", err)
		return &NumberInfo{Number: req.Number, Raw: json.RawMessage(body)}, nil
	}
	return &NumberInfo{ID: resp.ID, Number: resp.Number, Raw: json.RawMessage(body)}, nil
}
