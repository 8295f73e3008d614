package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

// MockClient is a test implementation of Client. Knobs are exported so
// tests can steer each call; ids for created resources are synthesized
// with uuids the way a real provider would mint opaque ids.
type MockClient struct {
	logger *slog.Logger

	Key domain.ProviderKey

	VerifyErr    error
	ListResponse json.RawMessage
	ListErr      error
	DetailsByID  map[string]json.RawMessage
	DetailsErr   error

	FailCreateTrunk bool
	FailAddNumber   bool

	ListCalls   int
	VerifyCalls int
}

// NewMockClient creates a mock for the given provider key.
func NewMockClient(logger *slog.Logger, key domain.ProviderKey) *MockClient {
	return &MockClient{
		logger: logger.With("provider", "mock-"+string(key)),
		Key:    key,
	}
}

func (m *MockClient) Name() domain.ProviderKey { return m.Key }

func (m *MockClient) VerifyAPIKey(ctx context.Context) error {
	m.VerifyCalls++
	return m.VerifyErr
}

func (m *MockClient) ListNumbers(ctx context.Context) (json.RawMessage, error) {
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if m.ListResponse == nil {
		return json.RawMessage(`[]`), nil
	}
	return m.ListResponse, nil
}

func (m *MockClient) GetNumberDetails(ctx context.Context, id string) (json.RawMessage, error) {
	if m.DetailsErr != nil {
		return nil, m.DetailsErr
	}
	if raw, ok := m.DetailsByID[id]; ok {
		return raw, nil
	}
	return nil, &domain.RemoteUnavailableError{Provider: m.Key, Op: "get phone number", Err: fmt.Errorf("no such id %q", id)}
}

func (m *MockClient) CreateSipTrunk(ctx context.Context, name, inboundSipURI string) (*TrunkInfo, error) {
	if m.FailCreateTrunk {
		return nil, &domain.RemoteUnavailableError{Provider: m.Key, Op: "create SIP trunk", Err: fmt.Errorf("mock simulated failure")}
	}
	id := "mock-trunk-" + uuid.NewString()
	m.logger.InfoContext(ctx, "MockClient: trunk created (simulated)", "name", name, "id", id)
	return &TrunkInfo{ID: id, Name: name, Provider: string(m.Key), Status: "active"}, nil
}

func (m *MockClient) AddNumber(ctx context.Context, req AddNumberRequest) (*NumberInfo, error) {
	if m.FailAddNumber {
		return nil, &domain.RemoteUnavailableError{Provider: m.Key, Op: "add phone number", Err: fmt.Errorf("mock simulated failure")}
	}
	id := "mock-number-" + uuid.NewString()
	m.logger.InfoContext(ctx, "MockClient: number added (simulated)", "number", req.Number, "id", id)
	return &NumberInfo{ID: id, Number: req.Number}, nil
}

// MockFactory returns a fixed client per provider key; unknown keys get a
// fresh empty mock so tests never nil-panic.
type MockFactory struct {
	logger  *slog.Logger
	Clients map[domain.ProviderKey]*MockClient
}

// NewMockFactory creates a factory over the given mocks.
func NewMockFactory(logger *slog.Logger, clients ...*MockClient) *MockFactory {
	byKey := make(map[domain.ProviderKey]*MockClient, len(clients))
	for _, c := range clients {
		byKey[c.Key] = c
	}
	return &MockFactory{logger: logger, Clients: byKey}
}

func (f *MockFactory) ClientFor(key domain.ProviderKey, _ *domain.ProviderGlobalConfig) Client {
	if c, ok := f.Clients[key]; ok {
		return c
	}
	c := NewMockClient(f.logger, key)
	f.Clients[key] = c
	return c
}
