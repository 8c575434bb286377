package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/clients"
	"messenger-service/internal/models"
	"messenger-service/internal/service"
)

func strPtr(s string) *string { return &s }

func TestSendMessageRequiresContentOrAttachments(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)

	_, err := svc.SendMessage(context.Background(), 3, 1, service.SendMessageInput{Content: "   "})
	require.ErrorIs(t, err, service.ErrBadRequest)
	deps.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageBroadcastsPersistedView(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)

	persisted := models.Message{ID: 11, ChatID: 3, SenderID: 1, Content: strPtr("hi")}
	deps.messages.On("CreateMessage", mock.Anything, 3, 1, strPtr("hi"), (*int)(nil), []int(nil)).
		Return(persisted, nil).Once()
	deps.directory.On("GetUser", mock.Anything, 1).Return(clients.User{ID: 1, Username: "alice"}, nil).Once()

	var broadcast models.MessageView
	deps.notifier.On("MessageCreated", 3, mock.Anything).Run(func(args mock.Arguments) {
		broadcast = args.Get(1).(models.MessageView)
	}).Once()

	view, err := svc.SendMessage(context.Background(), 3, 1, service.SendMessageInput{Content: "hi"})
	require.NoError(t, err)

	assert.Equal(t, 11, view.ID)
	assert.Equal(t, "alice", view.SenderName)
	assert.Equal(t, view, broadcast)
	deps.messages.AssertExpectations(t)
	deps.notifier.AssertExpectations(t)
}

func TestSendMessageAttachmentOnly(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)

	persisted := models.Message{ID: 12, ChatID: 3, SenderID: 1}
	deps.messages.On("CreateMessage", mock.Anything, 3, 1, (*string)(nil), (*int)(nil), []int{40, 41}).
		Return(persisted, nil).Once()
	deps.directory.On("GetUser", mock.Anything, 1).Return(clients.User{ID: 1, Username: "alice"}, nil).Once()
	deps.assets.On("BulkAssets", mock.Anything, []int{40, 41}).Return([]models.AssetView{
		{ID: 40, MimeType: "image/png"},
		{ID: 41, MimeType: "image/jpeg"},
	}, nil).Once()
	deps.notifier.On("MessageCreated", 3, mock.Anything).Once()

	view, err := svc.SendMessage(context.Background(), 3, 1, service.SendMessageInput{AssetIDs: []int{40, 41}})
	require.NoError(t, err)
	require.Len(t, view.Assets, 2)
	assert.Equal(t, 40, view.Assets[0].ID)
	assert.Equal(t, 41, view.Assets[1].ID)
}

func TestSendMessageReplyFromAnotherChat(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)

	replyTo := 50
	deps.messages.On("GetMessage", mock.Anything, 50).
		Return(models.Message{ID: 50, ChatID: 99, SenderID: 2}, nil).Once()

	_, err := svc.SendMessage(context.Background(), 3, 1, service.SendMessageInput{Content: "hi", ReplyToID: &replyTo})
	require.ErrorIs(t, err, service.ErrBadRequest)
}

func TestEditMessageNotSender(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)
	deps.messages.On("GetMessage", mock.Anything, 11).
		Return(models.Message{ID: 11, ChatID: 3, SenderID: 2, Content: strPtr("hi")}, nil).Once()

	_, err := svc.EditMessage(context.Background(), 3, 11, 1, "edited")
	require.ErrorIs(t, err, service.ErrForbidden)
}

func TestEditMessageKeepsAttachments(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)
	deps.messages.On("GetMessage", mock.Anything, 11).
		Return(models.Message{ID: 11, ChatID: 3, SenderID: 1, Content: strPtr("hi")}, nil).Once()
	deps.messages.On("EditMessage", mock.Anything, 11, "edited").
		Return(models.Message{ID: 11, ChatID: 3, SenderID: 1, Content: strPtr("edited"), IsEdited: true}, nil).Once()
	deps.messages.On("ListMessageAssets", mock.Anything, []int{11}).Return([]models.MessageAsset{
		{MessageID: 11, AssetID: 40, OrderIndex: 0},
	}, nil).Once()
	deps.directory.On("GetUser", mock.Anything, 1).Return(clients.User{ID: 1, Username: "alice"}, nil).Once()
	deps.assets.On("BulkAssets", mock.Anything, []int{40}).Return([]models.AssetView{
		{ID: 40, MimeType: "image/png"},
	}, nil).Once()

	var broadcast models.MessageView
	deps.notifier.On("MessageUpdated", 3, mock.Anything).Run(func(args mock.Arguments) {
		broadcast = args.Get(1).(models.MessageView)
	}).Once()

	view, err := svc.EditMessage(context.Background(), 3, 11, 1, "edited")
	require.NoError(t, err)
	require.Len(t, view.Assets, 1)
	assert.Equal(t, 40, view.Assets[0].ID)
	assert.Equal(t, view, broadcast)
}

func TestDeleteMessageBroadcastsID(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)
	deps.messages.On("GetMessage", mock.Anything, 11).
		Return(models.Message{ID: 11, ChatID: 3, SenderID: 1, Content: strPtr("hi")}, nil).Once()
	deps.messages.On("SoftDeleteMessage", mock.Anything, 11).Return(nil).Once()
	deps.notifier.On("MessageDeleted", 3, 11).Once()

	err := svc.DeleteMessage(context.Background(), 3, 11, 1)
	require.NoError(t, err)
	deps.notifier.AssertExpectations(t)
}

func TestSetReactionReplacesPrevious(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)
	deps.messages.On("GetMessage", mock.Anything, 11).
		Return(models.Message{ID: 11, ChatID: 3, SenderID: 2, Content: strPtr("hi")}, nil).Once()
	deps.reactions.On("SetReaction", mock.Anything, 11, 1, "❤️").Return(models.ReactionUpdated, nil).Once()
	deps.notifier.On("ReactionChanged", 3, models.ReactionEvent{
		MessageID: 11,
		UserID:    1,
		Change:    models.ReactionUpdated,
		Reaction:  "❤️",
	}).Once()

	event, err := svc.SetReaction(context.Background(), 3, 11, 1, "❤️")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionUpdated, event.Change)
	deps.notifier.AssertExpectations(t)
}

func TestSetReactionOnMessageFromAnotherChat(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)
	deps.messages.On("GetMessage", mock.Anything, 11).
		Return(models.Message{ID: 11, ChatID: 99, SenderID: 2, Content: strPtr("hi")}, nil).Once()

	_, err := svc.SetReaction(context.Background(), 3, 11, 1, "❤️")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestRemoveReactionNoopIsSilent(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)
	deps.messages.On("GetMessage", mock.Anything, 11).
		Return(models.Message{ID: 11, ChatID: 3, SenderID: 2, Content: strPtr("hi")}, nil).Once()
	deps.reactions.On("RemoveReaction", mock.Anything, 11, 1).Return(false, nil).Once()

	err := svc.RemoveReaction(context.Background(), 3, 11, 1)
	require.NoError(t, err)
	deps.notifier.AssertNotCalled(t, "ReactionChanged", mock.Anything, mock.Anything)
}

func TestMessagesStripDeletedContentAndAssets(t *testing.T) {
	svc, deps := newTestService()

	deps.expectMembership(3, 1, models.ChatKindPrivate, models.RoleMember)
	deps.messages.On("ListMessages", mock.Anything, 3).Return([]models.Message{
		{ID: 10, ChatID: 3, SenderID: 1, Content: strPtr("first")},
		{ID: 11, ChatID: 3, SenderID: 2, Content: strPtr("second"), Deleted: true},
	}, nil).Once()
	deps.messages.On("ListMessageAssets", mock.Anything, []int{10, 11}).Return([]models.MessageAsset{
		{MessageID: 11, AssetID: 40, OrderIndex: 0},
	}, nil).Once()
	deps.reactions.On("ListReactions", mock.Anything, []int{10, 11}).Return(([]models.Reaction)(nil), nil).Once()
	deps.directory.On("BulkUsers", mock.Anything, []int{1, 2}).Return([]clients.User{
		{ID: 1, Username: "alice"},
		{ID: 2, Username: "bob"},
	}, nil).Once()
	deps.assets.On("BulkAssets", mock.Anything, []int{40}).Return([]models.AssetView{{ID: 40}}, nil).Once()

	views, err := svc.Messages(context.Background(), 3, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "first", *views[0].Content)
	assert.Nil(t, views[1].Content)
	assert.Empty(t, views[1].Assets)
	assert.Equal(t, "bob", views[1].SenderName)
}
