package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVapiClient_ListNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/phone-number", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"a","provider":"byo-phone-number","number":"+12025551234"}]`))
	}))
	defer server.Close()

	client := NewVapiClient(testLogger(), server.URL, "test-key", server.Client())
	raw, err := client.ListNumbers(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","provider":"byo-phone-number","number":"+12025551234"}]`, string(raw))
}

func TestVapiClient_VerifyAPIKey_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer server.Close()

	client := NewVapiClient(testLogger(), server.URL, "bad-key", server.Client())
	err := client.VerifyAPIKey(context.Background())

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.ProviderVapi, authErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestVapiClient_ListNumbers_ServerErrorIsRemoteUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	client := NewVapiClient(testLogger(), server.URL, "test-key", server.Client())
	_, err := client.ListNumbers(context.Background())

	var unavailable *domain.RemoteUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, err.Error(), "boom")
}

func TestVapiClient_CreateSipTrunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/credential", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "byo-sip-trunk", req["provider"])
		assert.Equal(t, "my-trunk", req["name"])
		gateways := req["gateways"].([]interface{})
		require.Len(t, gateways, 1)
		assert.Equal(t, "abc.sip.cloudonix.net", gateways[0].(map[string]interface{})["ip"])

		w.Write([]byte(`{"id":"cred-1","name":"my-trunk","provider":"byo-sip-trunk","status":"active"}`))
	}))
	defer server.Close()

	client := NewVapiClient(testLogger(), server.URL, "test-key", server.Client())
	trunk, err := client.CreateSipTrunk(context.Background(), "my-trunk", "abc.sip.cloudonix.net")
	require.NoError(t, err)
	assert.Equal(t, "cred-1", trunk.ID)
	assert.Equal(t, "active", trunk.Status)
}

func TestVapiClient_CreateSipTrunk_MissingIDFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"active"}`))
	}))
	defer server.Close()

	client := NewVapiClient(testLogger(), server.URL, "test-key", server.Client())
	_, err := client.CreateSipTrunk(context.Background(), "my-trunk", "abc.sip.cloudonix.net")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credential id")
}

func TestVapiClient_AddNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/phone-number", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "byo-phone-number", req["provider"])
		assert.Equal(t, "+12025551234", req["number"])
		assert.Equal(t, "cred-1", req["credentialId"])

		w.Write([]byte(`{"id":"num-1","number":"+12025551234"}`))
	}))
	defer server.Close()

	client := NewVapiClient(testLogger(), server.URL, "test-key", server.Client())
	info, err := client.AddNumber(context.Background(), AddNumberRequest{
		Name:              "example.com-12025551234",
		Number:            "+12025551234",
		TrunkCredentialID: "cred-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "num-1", info.ID)
	assert.Equal(t, "+12025551234", info.Number)
}

func TestVapiClient_AddNumber_RequiresCredential(t *testing.T) {
	client := NewVapiClient(testLogger(), "http://127.0.0.1:0", "test-key", nil)
	_, err := client.AddNumber(context.Background(), AddNumberRequest{Number: "+12025551234"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential id is required")
}

func TestVapiClient_AddNumber_UnparseableResponseDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewVapiClient(testLogger(), server.URL, "test-key", server.Client())
	info, err := client.AddNumber(context.Background(), AddNumberRequest{
		Number:            "+12025551234",
		TrunkCredentialID: "cred-1",
	})
	require.NoError(t, err, "a 2xx with an odd body still means the number was attached")
	assert.Equal(t, "+12025551234", info.Number)
	assert.Empty(t, info.ID)
}
