package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/service"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) CreatePrivateChat(ctx context.Context, userID int, username string) (models.Chat, error) {
	args := m.Called(ctx, userID, username)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ServiceMock) CreateGroupChat(ctx context.Context, userID int, name, description string, memberUsernames []string) (models.Chat, error) {
	args := m.Called(ctx, userID, name, description, memberUsernames)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ServiceMock) UpdateGroupChat(ctx context.Context, chatID, actorID int, patch service.GroupPatch) (models.Chat, error) {
	args := m.Called(ctx, chatID, actorID, patch)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ServiceMock) AddParticipant(ctx context.Context, chatID, actorID int, username string) (service.ParticipantView, error) {
	args := m.Called(ctx, chatID, actorID, username)
	var view service.ParticipantView
	if val := args.Get(0); val != nil {
		view = val.(service.ParticipantView)
	}
	return view, args.Error(1)
}

func (m *ServiceMock) RemoveParticipant(ctx context.Context, chatID, actorID, targetID int) error {
	args := m.Called(ctx, chatID, actorID, targetID)
	return args.Error(0)
}

func (m *ServiceMock) LeaveChat(ctx context.Context, chatID, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *ServiceMock) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ServiceMock) ListParticipants(ctx context.Context, chatID, userID int) ([]service.ParticipantView, error) {
	args := m.Called(ctx, chatID, userID)
	var list []service.ParticipantView
	if val := args.Get(0); val != nil {
		list = val.([]service.ParticipantView)
	}
	return list, args.Error(1)
}

func (m *ServiceMock) Messages(ctx context.Context, chatID, userID int) ([]models.MessageView, error) {
	args := m.Called(ctx, chatID, userID)
	var list []models.MessageView
	if val := args.Get(0); val != nil {
		list = val.([]models.MessageView)
	}
	return list, args.Error(1)
}

func (m *ServiceMock) SendMessage(ctx context.Context, chatID, userID int, in service.SendMessageInput) (models.MessageView, error) {
	args := m.Called(ctx, chatID, userID, in)
	var msg models.MessageView
	if val := args.Get(0); val != nil {
		msg = val.(models.MessageView)
	}
	return msg, args.Error(1)
}

func (m *ServiceMock) EditMessage(ctx context.Context, chatID, messageID, userID int, content string) (models.MessageView, error) {
	args := m.Called(ctx, chatID, messageID, userID, content)
	var msg models.MessageView
	if val := args.Get(0); val != nil {
		msg = val.(models.MessageView)
	}
	return msg, args.Error(1)
}

func (m *ServiceMock) DeleteMessage(ctx context.Context, chatID, messageID, userID int) error {
	args := m.Called(ctx, chatID, messageID, userID)
	return args.Error(0)
}

func (m *ServiceMock) SetReaction(ctx context.Context, chatID, messageID, userID int, reaction string) (models.ReactionEvent, error) {
	args := m.Called(ctx, chatID, messageID, userID, reaction)
	var event models.ReactionEvent
	if val := args.Get(0); val != nil {
		event = val.(models.ReactionEvent)
	}
	return event, args.Error(1)
}

func (m *ServiceMock) RemoveReaction(ctx context.Context, chatID, messageID, userID int) error {
	args := m.Called(ctx, chatID, messageID, userID)
	return args.Error(0)
}
