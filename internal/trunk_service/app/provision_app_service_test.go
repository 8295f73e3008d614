package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/provider"
)

// stubCloudonix returns a canned domain or error regardless of API key.
type stubCloudonix struct {
	domain *provider.CloudonixDomain
	err    error

	gotName   string
	gotAPIKey string
}

func (s *stubCloudonix) GetDomain(ctx context.Context, name string) (*provider.CloudonixDomain, error) {
	s.gotName = name
	if s.err != nil {
		return nil, s.err
	}
	return s.domain, nil
}

func (s *stubCloudonix) factory() CloudonixFactory {
	return func(apiKey string) CloudonixGetter {
		s.gotAPIKey = apiKey
		return s
	}
}

func newProvisionFixture(t *testing.T, cfg *domain.Config, cx *stubCloudonix) (*ProvisionAppService, *memStore, *provider.MockFactory) {
	t.Helper()
	store := newMemStore(cfg)
	factory := provider.NewMockFactory(testLogger())
	return NewProvisionAppService(store, factory, cx.factory(), testLogger()), store, factory
}

func TestConfigureDomain_DerivesInboundSipURIFromAutoAlias(t *testing.T) {
	cx := &stubCloudonix{domain: &provider.CloudonixDomain{
		Name:   "example.com",
		Tenant: "acme",
		Aliases: []provider.CloudonixAlias{
			{Alias: "friendly", Type: "custom"},
			{Alias: "a1b2c3", Type: "auto"},
		},
	}}
	svc, store, _ := newProvisionFixture(t, nil, cx)

	d, err := svc.ConfigureDomain(context.Background(), "example.com", "cx-key")
	require.NoError(t, err)

	assert.Equal(t, "example.com", cx.gotName)
	assert.Equal(t, "cx-key", cx.gotAPIKey)
	assert.Equal(t, "a1b2c3", d.AutoAlias)
	assert.Equal(t, "a1b2c3.sip.cloudonix.net", d.InboundSipURI)
	assert.Equal(t, "friendly", d.Alias)
	assert.Equal(t, "acme", d.Tenant)

	stored := store.stored(t)
	got, ok := stored.Domains["example.com"]
	require.True(t, ok)
	assert.Equal(t, "cx-key", got.APIKey)
	assert.Equal(t, "a1b2c3.sip.cloudonix.net", got.InboundSipURI)
}

func TestConfigureDomain_NoAutoAlias_FallsBackToDomainName(t *testing.T) {
	cx := &stubCloudonix{domain: &provider.CloudonixDomain{Name: "example.com"}}
	svc, _, _ := newProvisionFixture(t, nil, cx)

	d, err := svc.ConfigureDomain(context.Background(), "example.com", "cx-key")
	require.NoError(t, err)
	assert.Equal(t, "example.com", d.AutoAlias)
	assert.Equal(t, "example.com.sip.cloudonix.net", d.InboundSipURI)
}

func TestConfigureDomain_PreservesProviderSections(t *testing.T) {
	cfg := domain.NewConfig()
	cfg.Domains["example.com"] = &domain.DomainRecord{
		DomainName: "example.com",
		Providers: map[domain.ProviderKey]*domain.ProviderSection{
			domain.ProviderVapi: {
				TrunkCredentialID: "cred-1",
				PhoneNumbers: map[string]domain.PhoneNumberRecord{
					"+12025551234": {Number: "+12025551234", ProviderID: "abc"},
				},
			},
		},
	}
	cx := &stubCloudonix{domain: &provider.CloudonixDomain{
		Name:    "example.com",
		Aliases: []provider.CloudonixAlias{{Alias: "xyz", Type: "auto"}},
	}}
	svc, store, _ := newProvisionFixture(t, cfg, cx)

	_, err := svc.ConfigureDomain(context.Background(), "example.com", "new-key")
	require.NoError(t, err)

	stored := store.stored(t)
	sec, ok := stored.Domains["example.com"].ExistingSection(domain.ProviderVapi)
	require.True(t, ok, "reconfiguring must keep existing provider sections")
	assert.Equal(t, "cred-1", sec.TrunkCredentialID)
	assert.Contains(t, sec.PhoneNumbers, "+12025551234")
}

func TestConfigureDomain_CloudonixErrorWritesNothing(t *testing.T) {
	cx := &stubCloudonix{err: errors.New("cloudonix down")}
	svc, store, _ := newProvisionFixture(t, nil, cx)

	_, err := svc.ConfigureDomain(context.Background(), "example.com", "cx-key")
	require.Error(t, err)
	assert.Equal(t, 0, store.WriteCalls)
}

func TestConfigureProvider_StoresKey(t *testing.T) {
	svc, store, factory := newProvisionFixture(t, nil, &stubCloudonix{})
	mock := factory.ClientFor(domain.ProviderRetell, nil).(*provider.MockClient)

	err := svc.ConfigureProvider(context.Background(), "retell", "retell-key", "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, mock.VerifyCalls)
	assert.Equal(t, "retell-key", store.stored(t).Retell.APIKey)
}

func TestConfigureProvider_AuthRejectionBlocks(t *testing.T) {
	svc, store, factory := newProvisionFixture(t, nil, &stubCloudonix{})
	mock := factory.ClientFor(domain.ProviderVapi, nil).(*provider.MockClient)
	mock.VerifyErr = &domain.AuthError{Provider: domain.ProviderVapi, StatusCode: 401}

	err := svc.ConfigureProvider(context.Background(), "vapi", "bad-key", "", "")
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 0, store.WriteCalls)
	assert.Empty(t, store.stored(t).Vapi.APIKey)
}

func TestConfigureProvider_InconclusiveVerifyProceeds(t *testing.T) {
	svc, store, factory := newProvisionFixture(t, nil, &stubCloudonix{})
	mock := factory.ClientFor(domain.ProviderVapi, nil).(*provider.MockClient)
	mock.VerifyErr = &domain.RemoteUnavailableError{
		Provider: domain.ProviderVapi, Op: "list phone numbers", Err: errors.New("timeout"),
	}

	err := svc.ConfigureProvider(context.Background(), "vapi", "maybe-key", "", "")
	require.NoError(t, err, "ambiguous verification must not block configuration")
	assert.Equal(t, "maybe-key", store.stored(t).Vapi.APIKey)
}

func TestConfigureProvider_TrunkCreationStoresCredential(t *testing.T) {
	cfg := domain.NewConfig()
	cfg.Domains["example.com"] = &domain.DomainRecord{
		DomainName:    "example.com",
		InboundSipURI: "abc.sip.cloudonix.net",
	}
	svc, store, _ := newProvisionFixture(t, cfg, &stubCloudonix{})

	err := svc.ConfigureProvider(context.Background(), "vapi", "vapi-key", "my-trunk", "example.com")
	require.NoError(t, err)

	stored := store.stored(t)
	sec, ok := stored.Domains["example.com"].ExistingSection(domain.ProviderVapi)
	require.True(t, ok)
	assert.NotEmpty(t, sec.TrunkCredentialID)
	assert.Equal(t, "vapi-key", stored.Vapi.APIKey)
}

func TestConfigureProvider_TrunkNeedsBothNameAndDomain(t *testing.T) {
	svc, _, _ := newProvisionFixture(t, nil, &stubCloudonix{})

	err := svc.ConfigureProvider(context.Background(), "vapi", "vapi-key", "my-trunk", "")
	require.Error(t, err)

	err = svc.ConfigureProvider(context.Background(), "vapi", "vapi-key", "", "example.com")
	require.Error(t, err)
}

func TestConfigureProvider_TrunkNeedsConfiguredDomain(t *testing.T) {
	svc, _, _ := newProvisionFixture(t, nil, &stubCloudonix{})

	err := svc.ConfigureProvider(context.Background(), "vapi", "vapi-key", "my-trunk", "missing.example.com")
	require.ErrorIs(t, err, domain.ErrDomainNotFound)
}

func TestConfigureProvider_TrunkNeedsInboundSipURI(t *testing.T) {
	cfg := domain.NewConfig()
	cfg.Domains["example.com"] = &domain.DomainRecord{DomainName: "example.com"}
	svc, _, _ := newProvisionFixture(t, cfg, &stubCloudonix{})

	err := svc.ConfigureProvider(context.Background(), "vapi", "vapi-key", "my-trunk", "example.com")
	require.ErrorIs(t, err, domain.ErrMissingInboundSipURI)
}

func addNumberConfig() *domain.Config {
	cfg := domain.NewConfig()
	cfg.Vapi.APIKey = "vapi-key"
	cfg.Retell.APIKey = "retell-key"
	cfg.Domains["example.com"] = &domain.DomainRecord{
		DomainName:    "example.com",
		InboundSipURI: "abc.sip.cloudonix.net",
		Providers: map[domain.ProviderKey]*domain.ProviderSection{
			domain.ProviderVapi: {TrunkCredentialID: "cred-1"},
		},
	}
	return cfg
}

func TestAddNumber_StoresRecordUnderDomainSection(t *testing.T) {
	svc, store, _ := newProvisionFixture(t, addNumberConfig(), &stubCloudonix{})

	rec, err := svc.AddNumber(context.Background(), "example.com", "vapi", "+12025551234")
	require.NoError(t, err)
	assert.Equal(t, "+12025551234", rec.Number)
	assert.NotEmpty(t, rec.ProviderID)
	assert.Equal(t, "sip:+12025551234@sip.vapi.ai", rec.SipURI)

	sec, ok := store.stored(t).Domains["example.com"].ExistingSection(domain.ProviderVapi)
	require.True(t, ok)
	assert.Equal(t, *rec, sec.PhoneNumbers["+12025551234"])
}

func TestAddNumber_SupersedesStaleGlobalEntry(t *testing.T) {
	cfg := addNumberConfig()
	cfg.Vapi.PhoneNumbers = map[string]domain.PhoneNumberRecord{
		"+12025551234": {Number: "+12025551234", ProviderID: "old"},
	}
	svc, store, _ := newProvisionFixture(t, cfg, &stubCloudonix{})

	_, err := svc.AddNumber(context.Background(), "example.com", "vapi", "+12025551234")
	require.NoError(t, err)

	stored := store.stored(t)
	assert.NotContains(t, stored.Vapi.PhoneNumbers, "+12025551234",
		"a number lives in exactly one scope per provider")
	sec, _ := stored.Domains["example.com"].ExistingSection(domain.ProviderVapi)
	assert.Contains(t, sec.PhoneNumbers, "+12025551234")
}

func TestAddNumber_RejectsNonE164(t *testing.T) {
	svc, store, _ := newProvisionFixture(t, addNumberConfig(), &stubCloudonix{})

	for _, bad := range []string{"12025551234", "+", "+1 202 555 1234", "+1202555123456789", "tel:+12025551234"} {
		_, err := svc.AddNumber(context.Background(), "example.com", "vapi", bad)
		assert.ErrorIs(t, err, domain.ErrInvalidNumber, "number %q", bad)
	}
	assert.Equal(t, 0, store.WriteCalls)
}

func TestAddNumber_UnknownDomain(t *testing.T) {
	svc, _, _ := newProvisionFixture(t, addNumberConfig(), &stubCloudonix{})

	_, err := svc.AddNumber(context.Background(), "missing.example.com", "vapi", "+12025551234")
	require.ErrorIs(t, err, domain.ErrDomainNotFound)
}

func TestAddNumber_ProviderNotConfigured(t *testing.T) {
	svc, _, _ := newProvisionFixture(t, addNumberConfig(), &stubCloudonix{})

	_, err := svc.AddNumber(context.Background(), "example.com", "elevenlabs", "+12025551234")
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestAddNumber_VapiRequiresTrunkCredential(t *testing.T) {
	cfg := addNumberConfig()
	cfg.Domains["example.com"].Providers[domain.ProviderVapi].TrunkCredentialID = ""
	svc, store, _ := newProvisionFixture(t, cfg, &stubCloudonix{})

	_, err := svc.AddNumber(context.Background(), "example.com", "vapi", "+12025551234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trunk credential")
	assert.Equal(t, 0, store.WriteCalls)
}

func TestAddNumber_RetellNeedsNoTrunkCredential(t *testing.T) {
	svc, _, _ := newProvisionFixture(t, addNumberConfig(), &stubCloudonix{})

	rec, err := svc.AddNumber(context.Background(), "example.com", "retell", "+19995551111")
	require.NoError(t, err)
	assert.Equal(t, "sip:+19995551111@sip.retellai.com", rec.SipURI)
}

func TestAddNumber_ProviderFailureWritesNothing(t *testing.T) {
	svc, store, factory := newProvisionFixture(t, addNumberConfig(), &stubCloudonix{})
	factory.ClientFor(domain.ProviderVapi, nil).(*provider.MockClient).FailAddNumber = true

	_, err := svc.AddNumber(context.Background(), "example.com", "vapi", "+12025551234")
	require.Error(t, err)
	assert.Equal(t, 0, store.WriteCalls)
}

func TestDeleteDomain(t *testing.T) {
	svc, store, _ := newProvisionFixture(t, addNumberConfig(), &stubCloudonix{})

	require.NoError(t, svc.DeleteDomain(context.Background(), "example.com"))
	assert.NotContains(t, store.stored(t).Domains, "example.com")

	err := svc.DeleteDomain(context.Background(), "example.com")
	require.ErrorIs(t, err, domain.ErrDomainNotFound)
}
