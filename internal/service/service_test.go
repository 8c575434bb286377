package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/clients"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/service"
)

type testDeps struct {
	chats     *mocks.ChatRepositoryMock
	messages  *mocks.MessageRepositoryMock
	reactions *mocks.ReactionRepositoryMock
	directory *mocks.DirectoryMock
	assets    *mocks.AssetStoreMock
	notifier  *mocks.NotifierMock
}

func newTestService() (service.Service, *testDeps) {
	deps := &testDeps{
		chats:     new(mocks.ChatRepositoryMock),
		messages:  new(mocks.MessageRepositoryMock),
		reactions: new(mocks.ReactionRepositoryMock),
		directory: new(mocks.DirectoryMock),
		assets:    new(mocks.AssetStoreMock),
		notifier:  new(mocks.NotifierMock),
	}
	svc := service.New(deps.chats, deps.messages, deps.reactions, deps.directory, deps.assets, deps.notifier)
	return svc, deps
}

func (d *testDeps) expectMembership(chatID, userID int, kind, role string) {
	d.chats.On("GetChat", mock.Anything, chatID).Return(models.Chat{ID: chatID, Kind: kind}, nil).Once()
	d.chats.On("GetParticipant", mock.Anything, chatID, userID).
		Return(models.ChatParticipant{ChatID: chatID, UserID: userID, Role: role}, nil).Once()
}

func TestCreatePrivateChatWithSelf(t *testing.T) {
	svc, deps := newTestService()

	deps.directory.On("ResolveUsername", mock.Anything, "alice").Return(clients.User{ID: 1, Username: "alice"}, nil).Once()

	_, err := svc.CreatePrivateChat(context.Background(), 1, "alice")
	require.ErrorIs(t, err, service.ErrBadRequest)
	deps.directory.AssertExpectations(t)
}

func TestCreatePrivateChatUnknownUser(t *testing.T) {
	svc, deps := newTestService()

	deps.directory.On("ResolveUsername", mock.Anything, "ghost").Return(clients.User{}, clients.ErrUserNotFound).Once()

	_, err := svc.CreatePrivateChat(context.Background(), 1, "ghost")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestCreatePrivateChatReturnsExisting(t *testing.T) {
	svc, deps := newTestService()

	deps.directory.On("ResolveUsername", mock.Anything, "bob").Return(clients.User{ID: 2, Username: "bob"}, nil).Once()
	deps.chats.On("CreatePrivateChat", mock.Anything, 1, 2).
		Return(models.Chat{ID: 9, Kind: models.ChatKindPrivate}, false, nil).Once()

	chat, err := svc.CreatePrivateChat(context.Background(), 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, 9, chat.ID)
	deps.chats.AssertExpectations(t)
}

func TestCreateGroupChatSkipsUnresolvableMembers(t *testing.T) {
	svc, deps := newTestService()

	deps.directory.On("ResolveUsername", mock.Anything, "bob").Return(clients.User{ID: 2, Username: "bob"}, nil).Once()
	deps.directory.On("ResolveUsername", mock.Anything, "ghost").Return(clients.User{}, clients.ErrUserNotFound).Once()
	deps.chats.On("CreateGroupChat", mock.Anything, 1, "team", "", []int{2}).
		Return(models.Chat{ID: 4, Kind: models.ChatKindGroup, Name: "team"}, nil).Once()

	chat, err := svc.CreateGroupChat(context.Background(), 1, "team", "", []string{"bob", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 4, chat.ID)
	deps.chats.AssertExpectations(t)
}

func TestCreateGroupChatEmptyName(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateGroupChat(context.Background(), 1, "   ", "", nil)
	require.ErrorIs(t, err, service.ErrBadRequest)
}

func TestMissingMembershipReadsAsNotFound(t *testing.T) {
	svc, deps := newTestService()

	deps.chats.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, Kind: models.ChatKindGroup}, nil).Once()
	deps.chats.On("GetParticipant", mock.Anything, 5, 1).
		Return(models.ChatParticipant{}, repositories.ErrNotParticipant).Once()

	_, err := svc.ListParticipants(context.Background(), 5, 1)
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.NotErrorIs(t, err, service.ErrForbidden)
}

func TestUpdateGroupChatRequiresAdmin(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(5, 1, models.ChatKindGroup, models.RoleMember)

	name := "renamed"
	_, err := svc.UpdateGroupChat(context.Background(), 5, 1, service.GroupPatch{Name: &name})
	require.ErrorIs(t, err, service.ErrForbidden)
}

func TestAddParticipantAlreadyMember(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(5, 1, models.ChatKindGroup, models.RoleAdmin)
	deps.directory.On("ResolveUsername", mock.Anything, "bob").Return(clients.User{ID: 2, Username: "bob"}, nil).Once()
	deps.chats.On("AddParticipant", mock.Anything, 5, 2, models.RoleMember).
		Return(repositories.ErrAlreadyParticipant).Once()

	_, err := svc.AddParticipant(context.Background(), 5, 1, "bob")
	require.ErrorIs(t, err, service.ErrConflict)
}

func TestAddParticipantToPrivateChat(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)

	_, err := svc.AddParticipant(context.Background(), 3, 1, "bob")
	require.ErrorIs(t, err, service.ErrBadRequest)
}

func TestRemoveParticipantSelf(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(5, 1, models.ChatKindGroup, models.RoleAdmin)

	err := svc.RemoveParticipant(context.Background(), 5, 1, 1)
	require.ErrorIs(t, err, service.ErrBadRequest)
	deps.chats.AssertNotCalled(t, "RemoveParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeavePrivateChat(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)

	err := svc.LeaveChat(context.Background(), 3, 1)
	require.ErrorIs(t, err, service.ErrBadRequest)
}

func TestLeaveChatWithSuccession(t *testing.T) {
	svc, deps := newTestService()

	newAdmin := 2
	deps.expectMembership(5, 1, models.ChatKindGroup, models.RoleAdmin)
	deps.chats.On("LeaveChat", mock.Anything, 5, 1).
		Return(repositories.LeaveResult{NewAdminID: &newAdmin}, nil).Once()

	err := svc.LeaveChat(context.Background(), 5, 1)
	require.NoError(t, err)
	deps.chats.AssertExpectations(t)
}

func TestListChatsMasksDeletedLastMessage(t *testing.T) {
	svc, deps := newTestService()

	content := "gone"
	msgID, senderID, deleted := 7, 2, true
	peer := 2
	deps.chats.On("ListChatsForUser", mock.Anything, 1).Return([]repositories.ChatListRow{
		{
			Chat:          models.Chat{ID: 3, Kind: models.ChatKindPrivate},
			PeerID:        &peer,
			LastMessageID: &msgID,
			LastSenderID:  &senderID,
			LastContent:   &content,
			LastDeleted:   &deleted,
		},
	}, nil).Once()
	deps.directory.On("BulkUsers", mock.Anything, []int{2}).Return([]clients.User{{ID: 2, Username: "bob"}}, nil).Once()

	summaries, err := svc.ListChats(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].LastMessage)
	assert.True(t, summaries[0].LastMessage.Deleted)
	assert.Nil(t, summaries[0].LastMessage.Content)
	assert.Equal(t, "bob", summaries[0].PeerName)
}

func TestListParticipantsDegradesWithoutDirectory(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(5, 1, models.ChatKindGroup, models.RoleMember)
	deps.chats.On("ListParticipants", mock.Anything, 5).Return([]models.ChatParticipant{
		{ChatID: 5, UserID: 1, Role: models.RoleMember},
		{ChatID: 5, UserID: 2, Role: models.RoleAdmin},
	}, nil).Once()
	deps.directory.On("BulkUsers", mock.Anything, []int{1, 2}).Return(([]clients.User)(nil), assert.AnError).Once()

	views, err := svc.ListParticipants(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Empty(t, views[0].Username)
}
