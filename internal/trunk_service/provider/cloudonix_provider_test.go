package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

func TestCloudonixClient_GetDomain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/customers/self/domains/example.com", r.URL.Path)
		assert.Equal(t, "Bearer cx-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"name": "example.com",
			"uuid": "u-1",
			"tenant": "acme",
			"aliases": [
				{"alias": "friendly", "type": "custom"},
				{"alias": "a1b2c3", "type": "auto"}
			]
		}`))
	}))
	defer server.Close()

	client := NewCloudonixClient(testLogger(), server.URL, "cx-key", server.Client())
	d, err := client.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "acme", d.Tenant)
	assert.Equal(t, "a1b2c3", d.AutoAlias())
	assert.Equal(t, "a1b2c3.sip.cloudonix.net", d.InboundSipURI())
}

func TestCloudonixClient_GetDomain_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewCloudonixClient(testLogger(), server.URL, "cx-key", server.Client())
	_, err := client.GetDomain(context.Background(), "missing.example.com")
	require.ErrorIs(t, err, domain.ErrDomainNotFound)
}

func TestCloudonixClient_GetDomain_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewCloudonixClient(testLogger(), server.URL, "bad-key", server.Client())
	_, err := client.GetDomain(context.Background(), "example.com")

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.ProviderKey("cloudonix"), authErr.Provider)
}

func TestCloudonixDomain_InboundSipURI_FallsBackToName(t *testing.T) {
	d := &CloudonixDomain{Name: "example.com"}
	assert.Empty(t, d.AutoAlias())
	assert.Equal(t, "example.com.sip.cloudonix.net", d.InboundSipURI())
}
