package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

const retellDefaultAPIURL = "https://api.retellai.com"

// RetellTrunkCredentialID is the placeholder stored as a domain's Retell
// trunk credential. Retell has no trunk resource of its own; numbers are
// imported directly against a termination URI, so the credential id exists
// only to keep the per-domain bookkeeping uniform across providers.
const RetellTrunkCredentialID = "retell-sip-trunk"

// RetellClient talks to the Retell REST API.
type RetellClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewRetellClient creates a Retell adapter. httpClient may be nil.
func NewRetellClient(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *RetellClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if apiURL == "" {
		apiURL = retellDefaultAPIURL
	}
	return &RetellClient{
		logger:     logger.With("provider", "retell"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

func (c *RetellClient) Name() domain.ProviderKey { return domain.ProviderRetell }

func (c *RetellClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// VerifyAPIKey lists phone numbers, the cheapest authenticated call.
func (c *RetellClient) VerifyAPIKey(ctx context.Context) error {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/list-phone-numbers", c.headers(), nil)
	if err != nil {
		return remoteErr(domain.ProviderRetell, "verify API key", err)
	}
	return classifyStatus(domain.ProviderRetell, "verify API key", status, body)
}

// ListNumbers returns the raw phone-number array.
func (c *RetellClient) ListNumbers(ctx context.Context) (json.RawMessage, error) {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/list-phone-numbers", c.headers(), nil)
	if err != nil {
		return nil, remoteErr(domain.ProviderRetell, "list phone numbers", err)
	}
	if err := classifyStatus(domain.ProviderRetell, "list phone numbers", status, body); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// GetNumberDetails fetches one number. Retell keys numbers by the E.164
// string itself rather than an opaque id.
func (c *RetellClient) GetNumberDetails(ctx context.Context, id string) (json.RawMessage, error) {
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, c.apiURL+"/get-phone-number/"+url.PathEscape(id), c.headers(), nil)
	if err != nil {
		return nil, remoteErr(domain.ProviderRetell, "get phone number", err)
	}
	if err := classifyStatus(domain.ProviderRetell, "get phone number", status, body); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// CreateSipTrunk synthesizes the constant placeholder credential without a
// network call; see RetellTrunkCredentialID.
func (c *RetellClient) CreateSipTrunk(ctx context.Context, name, inboundSipURI string) (*TrunkInfo, error) {
	c.logger.InfoContext(ctx, "Retell has no trunk resource, using placeholder credential", "name", name)
	return &TrunkInfo{
		ID:       RetellTrunkCredentialID,
		Name:     name,
		Provider: "retell",
		Status:   "static",
	}, nil
}

type retellImportNumberRequest struct {
	PhoneNumber    string `json:"phone_number"`
	TerminationURI string `json:"termination_uri"`
	Nickname       string `json:"nickname,omitempty"`
}

type retellNumberResponse struct {
	PhoneNumberID string `json:"phone_number_id"`
	PhoneNumber   string `json:"phone_number"`
}

// AddNumber imports a number, pointing its termination URI at the Cloudonix
// inbound SIP host.
func (c *RetellClient) AddNumber(ctx context.Context, req AddNumberRequest) (*NumberInfo, error) {
	payload := retellImportNumberRequest{
		PhoneNumber:    req.Number,
		TerminationURI: req.InboundSipURI,
		Nickname:       req.Name,
	}
	c.logger.InfoContext(ctx, "importing number into Retell", "number", req.Number, "termination_uri", req.InboundSipURI)

	status, body, err := doJSON(ctx, c.httpClient, http.MethodPost, c.apiURL+"/import-phone-number", c.headers(), payload)
	if err != nil {
		return nil, remoteErr(domain.ProviderRetell, "import phone number", err)
	}
	if err := classifyStatus(domain.ProviderRetell, "import phone number", status, body); err != nil {
		return nil, err
	}

	var resp retellNumberResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.WarnContext(ctx, "Retell import succeeded but response was unparseable", "error", err)
		return &NumberInfo{Number: req.Number, Raw: json.RawMessage(body)}, nil
	}
	number := resp.PhoneNumber
	if number == "" {
		number = req.Number
	}
	return &NumberInfo{ID: resp.PhoneNumberID, Number: number, Raw: json.RawMessage(body)}, nil
}
