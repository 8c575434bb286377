package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/clients"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreatePrivateChat(ctx context.Context, userID, peerID int) (models.Chat, bool, error) {
	args := m.Called(ctx, userID, peerID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Bool(1), args.Error(2)
}

func (m *ChatRepositoryMock) CreateGroupChat(ctx context.Context, creatorID int, name, description string, memberIDs []int) (models.Chat, error) {
	args := m.Called(ctx, creatorID, name, description, memberIDs)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) UpdateGroup(ctx context.Context, chatID int, name, description *string) error {
	args := m.Called(ctx, chatID, name, description)
	return args.Error(0)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) GetParticipant(ctx context.Context, chatID, userID int) (models.ChatParticipant, error) {
	args := m.Called(ctx, chatID, userID)
	var p models.ChatParticipant
	if val := args.Get(0); val != nil {
		p = val.(models.ChatParticipant)
	}
	return p, args.Error(1)
}

func (m *ChatRepositoryMock) ListParticipants(ctx context.Context, chatID int) ([]models.ChatParticipant, error) {
	args := m.Called(ctx, chatID)
	var list []models.ChatParticipant
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatParticipant)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) AddParticipant(ctx context.Context, chatID, userID int, role string) error {
	args := m.Called(ctx, chatID, userID, role)
	return args.Error(0)
}

func (m *ChatRepositoryMock) RemoveParticipant(ctx context.Context, chatID, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *ChatRepositoryMock) LeaveChat(ctx context.Context, chatID, userID int) (repositories.LeaveResult, error) {
	args := m.Called(ctx, chatID, userID)
	var result repositories.LeaveResult
	if val := args.Get(0); val != nil {
		result = val.(repositories.LeaveResult)
	}
	return result, args.Error(1)
}

func (m *ChatRepositoryMock) ListChatsForUser(ctx context.Context, userID int) ([]repositories.ChatListRow, error) {
	args := m.Called(ctx, userID)
	var rows []repositories.ChatListRow
	if val := args.Get(0); val != nil {
		rows = val.([]repositories.ChatListRow)
	}
	return rows, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, chatID, senderID int, content *string, replyToID *int, assetIDs []int) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, replyToID, assetIDs)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessageAssets(ctx context.Context, messageIDs []int) ([]models.MessageAsset, error) {
	args := m.Called(ctx, messageIDs)
	var list []models.MessageAsset
	if val := args.Get(0); val != nil {
		list = val.([]models.MessageAsset)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) SetReaction(ctx context.Context, messageID, userID int, reaction string) (string, error) {
	args := m.Called(ctx, messageID, userID, reaction)
	return args.String(0), args.Error(1)
}

func (m *ReactionRepositoryMock) RemoveReaction(ctx context.Context, messageID, userID int) (bool, error) {
	args := m.Called(ctx, messageID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) ListReactions(ctx context.Context, messageIDs []int) ([]models.Reaction, error) {
	args := m.Called(ctx, messageIDs)
	var list []models.Reaction
	if val := args.Get(0); val != nil {
		list = val.([]models.Reaction)
	}
	return list, args.Error(1)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) ResolveUsername(ctx context.Context, username string) (clients.User, error) {
	args := m.Called(ctx, username)
	var user clients.User
	if val := args.Get(0); val != nil {
		user = val.(clients.User)
	}
	return user, args.Error(1)
}

func (m *DirectoryMock) GetUser(ctx context.Context, userID int) (clients.User, error) {
	args := m.Called(ctx, userID)
	var user clients.User
	if val := args.Get(0); val != nil {
		user = val.(clients.User)
	}
	return user, args.Error(1)
}

func (m *DirectoryMock) BulkUsers(ctx context.Context, ids []int) ([]clients.User, error) {
	args := m.Called(ctx, ids)
	var users []clients.User
	if val := args.Get(0); val != nil {
		users = val.([]clients.User)
	}
	return users, args.Error(1)
}

type AssetStoreMock struct {
	mock.Mock
}

func (m *AssetStoreMock) BulkAssets(ctx context.Context, ids []int) ([]models.AssetView, error) {
	args := m.Called(ctx, ids)
	var assets []models.AssetView
	if val := args.Get(0); val != nil {
		assets = val.([]models.AssetView)
	}
	return assets, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MessageCreated(chatID int, msg models.MessageView) {
	m.Called(chatID, msg)
}

func (m *NotifierMock) MessageUpdated(chatID int, msg models.MessageView) {
	m.Called(chatID, msg)
}

func (m *NotifierMock) MessageDeleted(chatID int, messageID int) {
	m.Called(chatID, messageID)
}

func (m *NotifierMock) ReactionChanged(chatID int, event models.ReactionEvent) {
	m.Called(chatID, event)
}
