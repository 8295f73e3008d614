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

const cloudonixDefaultAPIURL = "https://api.cloudonix.io"

// inboundSipSuffix is appended to a domain's auto alias to derive the
// address Voice-AI trunks must dial to deliver calls into Cloudonix.
const inboundSipSuffix = ".sip.cloudonix.net"

// CloudonixAlias is one entry of a domain's alias list.
type CloudonixAlias struct {
	Alias string `json:"alias"`
	Type  string `json:"type"`
}

// CloudonixDomain is the subset of the Cloudonix domain resource the
// configure workflow consumes.
type CloudonixDomain struct {
	Name    string           `json:"name"`
	UUID    string           `json:"uuid"`
	Tenant  string           `json:"tenant"`
	Aliases []CloudonixAlias `json:"aliases"`
}

// AutoAlias returns the alias marked type "auto", or "" when the domain has
// none (callers fall back to the domain name itself).
func (d *CloudonixDomain) AutoAlias() string {
	for _, a := range d.Aliases {
		if a.Type == "auto" {
			return a.Alias
		}
	}
	return ""
}

// InboundSipURI derives the Cloudonix-side SIP address for the domain.
func (d *CloudonixDomain) InboundSipURI() string {
	alias := d.AutoAlias()
	if alias == "" {
		alias = d.Name
	}
	return alias + inboundSipSuffix
}

// CloudonixClient fetches domain details from the Cloudonix platform API.
// It is deliberately narrower than the Voice-AI Client interface: Cloudonix
// is the platform side of the interconnect, not a Voice-AI provider.
type CloudonixClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewCloudonixClient creates a Cloudonix adapter. httpClient may be nil.
func NewCloudonixClient(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *CloudonixClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if apiURL == "" {
		apiURL = cloudonixDefaultAPIURL
	}
	return &CloudonixClient{
		logger:     logger.With("provider", "cloudonix"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

// GetDomain fetches and validates one domain owned by the API key's
// customer. A 401/403 is a credential rejection; a 404 means the domain
// does not exist under this account.
func (c *CloudonixClient) GetDomain(ctx context.Context, name string) (*CloudonixDomain, error) {
	endpoint := c.apiURL + "/customers/self/domains/" + url.PathEscape(name)
	status, body, err := doJSON(ctx, c.httpClient, http.MethodGet, endpoint, map[string]string{"Authorization": "Bearer " + c.apiKey}, nil)
	if err != nil {
		return nil, &domain.RemoteUnavailableError{Provider: "cloudonix", Op: "get domain", Err: err}
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("cloudonix: domain %q: %w", name, domain.ErrDomainNotFound)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, &domain.AuthError{Provider: "cloudonix", StatusCode: status}
	}
	if status < 200 || status >= 300 {
		return nil, &domain.RemoteUnavailableError{
			Provider: "cloudonix",
			Op:       "get domain",
			Err:      fmt.Errorf("unexpected status %d%s", status, apiErrorDetail(body)),
		}
	}

	var d CloudonixDomain
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, &domain.RemoteUnavailableError{Provider: "cloudonix", Op: "get domain", Err: fmt.Errorf("unparseable response: %w", err)}
	}
	if d.Name == "" {
		d.Name = name
	}
	c.logger.DebugContext(ctx, "fetched Cloudonix domain", "domain", d.Name, "auto_alias", d.AutoAlias())
	return &d, nil
}
