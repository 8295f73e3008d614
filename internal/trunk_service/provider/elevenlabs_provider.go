package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

const elevenLabsDefaultAPIURL = "https://api.elevenlabs.io"

// ElevenLabsClient talks to the ElevenLabs Conversational AI REST API.
// Authentication uses the xi-api-key header rather than a bearer token.
type ElevenLabsClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewElevenLabsClient creates an ElevenLabs adapter. httpClient may be nil.
func NewElevenLabsClient(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *ElevenLabsClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if apiURL == "" {
		apiURL = elevenLabsDefaultAPIURL
	}
	return &ElevenLabsClient{
		logger:     logger.With("provider", "elevenlabs"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

func (c *ElevenLabsClient) Name() domain.ProviderKey { return domain.ProviderElevenLabs }

func (c *ElevenLabsClient) headers() map[string]string {
	return map[string]string{"xi-api-key": c.apiKey}
}

// VerifyAPIKey lists phone numbers under the convai surface.
func (c *ElevenLabsClient) VerifyAPIKey(ctx context.Context) error {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/v1/convai/phone-numbers", c.headers(), nil)
	if err != nil {
		return remoteErr(domain.ProviderElevenLabs, "verify API key", err)
	}
	return classifyStatus(domain.ProviderElevenLabs, "verify API key", status, body)
}

// ListNumbers returns the raw listing payload. ElevenLabs has returned both
// a bare array and envelope objects over time; the normalize package probes
// the known envelope keys, so the body is passed through untouched.
func (c *ElevenLabsClient) ListNumbers(ctx context.Context) (json.RawMessage, error) {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/v1/convai/phone-numbers", c.headers(), nil)
	if err != nil {
		return nil, remoteErr(domain.ProviderElevenLabs, "list phone numbers", err)
	}
	if err := classifyStatus(domain.ProviderElevenLabs, "list phone numbers", status, body); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// GetNumberDetails fetches one phone-number resource by id.
func (c *ElevenLabsClient) GetNumberDetails(ctx context.Context, id string) (json.RawMessage, error) {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/v1/convai/phone-numbers/"+url.PathEscape(id), c.headers(), nil)
	if err != nil {
		return nil, remoteErr(domain.ProviderElevenLabs, "get phone number", err)
	}
	if err := classifyStatus(domain.ProviderElevenLabs, "get phone number", status, body); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

type elevenLabsCreateTrunkRequest struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Transport string `json:"transport"`
}

type elevenLabsTrunkResponse struct {
	SipTrunkID string `json:"sip_trunk_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// CreateSipTrunk registers an origination trunk whose address is the
// Cloudonix inbound SIP URI.
func (c *ElevenLabsClient) CreateSipTrunk(ctx context.Context, name, inboundSipURI string) (*TrunkInfo, error) {
	req := elevenLabsCreateTrunkRequest{
		Name:      name,
		Address:   inboundSipURI,
		Transport: "udp",
	}
	c.logger.InfoContext(ctx, "creating ElevenLabs SIP trunk", "name", name, "address", inboundSipURI)

	status, body, err := doJSON(ctx, c.httpClient, http.MethodPost, c.apiURL+"/v1/convai/sip-trunks", c.headers(), req)
	if err != nil {
		return nil, remoteErr(domain.ProviderElevenLabs, "create SIP trunk", err)
	}
	if err := classifyStatus(domain.ProviderElevenLabs, "create SIP trunk", status, body); err != nil {
		return nil, err
	}

	var resp elevenLabsTrunkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, remoteErr(domain.ProviderElevenLabs, "create SIP trunk", fmt.Errorf("unparseable response: %w", err))
	}
	if resp.SipTrunkID == "" {
		return nil, remoteErr(domain.ProviderElevenLabs, "create SIP trunk", fmt.Errorf("response carried no sip_trunk_id"))
	}
	if resp.Status == "" {
		resp.Status = "active"
	}
	return &TrunkInfo{ID: resp.SipTrunkID, Name: resp.Name, Provider: "elevenlabs", Status: resp.Status}, nil
}

type elevenLabsCreateNumberRequest struct {
	PhoneNumber string `json:"phone_number"`
	Label       string `json:"label,omitempty"`
	SipTrunkID  string `json:"sip_trunk_id"`
}

type elevenLabsNumberResponse struct {
	PhoneNumberID string `json:"phone_number_id"`
	PhoneNumber   string `json:"phone_number"`
}

// AddNumber attaches a number to an existing SIP trunk.
func (c *ElevenLabsClient) AddNumber(ctx context.Context, req AddNumberRequest) (*NumberInfo, error) {
	payload := elevenLabsCreateNumberRequest{
		PhoneNumber: req.Number,
		Label:       req.Name,
		SipTrunkID:  req.TrunkCredentialID,
	}
	c.logger.InfoContext(ctx, "adding number to ElevenLabs", "number", req.Number, "sip_trunk_id", req.TrunkCredentialID)

	status, body, err := doJSON(ctx, c.httpClient, http.MethodPost, c.apiURL+"/v1/convai/phone-numbers", c.headers(), payload)
	if err != nil {
		return nil, remoteErr(domain.ProviderElevenLabs, "add phone number", err)
	}
	if err := classifyStatus(domain.ProviderElevenLabs, "add phone number", status, body); err != nil {
		return nil, err
	}

	var resp elevenLabsNumberResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.WarnContext(ctx, "ElevenLabs add number succeeded but response was unparseable", "error", err)
		return &NumberInfo{Number: req.Number, Raw: json.RawMessage(body)}, nil
	}
	number := resp.PhoneNumber
	if number == "" {
		number = req.Number
	}
	return &NumberInfo{ID: resp.PhoneNumberID, Number: number, Raw: json.RawMessage(body)}, nil
}
