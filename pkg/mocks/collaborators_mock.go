package mocks

import (
	"context"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockContactStore is a mock implementation of protocol.ContactStore interface.
type MockContactStore struct {
	mock.Mock
}

func (m *MockContactStore) GetContact(ctx context.Context, contactID string) (map[string]any, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}

// MockContactMutator is a mock implementation of protocol.ContactMutator interface.
type MockContactMutator struct {
	mock.Mock
}

func (m *MockContactMutator) Update(ctx context.Context, contactID string, fields map[string]any) error {
	args := m.Called(ctx, contactID, fields)

	return args.Error(0)
}

// MockListService is a mock implementation of protocol.ListService interface.
type MockListService struct {
	mock.Mock
}

func (m *MockListService) AddMember(ctx context.Context, contactID, listID string) error {
	args := m.Called(ctx, contactID, listID)

	return args.Error(0)
}

func (m *MockListService) RemoveMember(ctx context.Context, contactID, listID string) error {
	args := m.Called(ctx, contactID, listID)

	return args.Error(0)
}

func (m *MockListService) Members(ctx context.Context, listID string) ([]string, error) {
	args := m.Called(ctx, listID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// MockChannelSender is a mock implementation of protocol.ChannelSender interface.
type MockChannelSender struct {
	mock.Mock
}

func (m *MockChannelSender) SendEmail(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	args := m.Called(ctx, contactID, config)

	return args.String(0), args.Error(1)
}

func (m *MockChannelSender) SendSMS(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	args := m.Called(ctx, contactID, config)

	return args.String(0), args.Error(1)
}

func (m *MockChannelSender) SendWhatsApp(ctx context.Context, contactID string, config models.MessageConfig) (string, error) {
	args := m.Called(ctx, contactID, config)

	return args.String(0), args.Error(1)
}

// MockWebhookClient is a mock implementation of protocol.WebhookClient interface.
type MockWebhookClient struct {
	mock.Mock
}

func (m *MockWebhookClient) Post(ctx context.Context, request protocol.WebhookRequest) (int, error) {
	args := m.Called(ctx, request)

	return args.Int(0), args.Error(1)
}
