package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// Messages returns the chat's history in committed order, hydrated with
// sender handles, ordered attachments and reactions. Deleted messages stay in
// place as tombstones with their content and attachments stripped.
func (s *chatService) Messages(ctx context.Context, chatID, userID int) ([]models.MessageView, error) {
	if _, _, err := s.authorize(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListMessages(ctx, chatID)
	if err != nil {
		return nil, unavailable(err)
	}

	messageIDs := make([]int, 0, len(msgs))
	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	links, err := s.messages.ListMessageAssets(ctx, messageIDs)
	if err != nil {
		return nil, unavailable(err)
	}
	reactions, err := s.reactions.ListReactions(ctx, messageIDs)
	if err != nil {
		return nil, unavailable(err)
	}

	names := s.usernames(ctx, senderIDs)
	assetsByMessage := s.assetViews(ctx, links)
	reactionsByMessage := map[int][]models.Reaction{}
	for _, reaction := range reactions {
		reactionsByMessage[reaction.MessageID] = append(reactionsByMessage[reaction.MessageID], reaction)
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := models.MessageView{
			Message:    m,
			SenderName: names[m.SenderID],
			Reactions:  reactionsByMessage[m.ID],
		}
		if m.Deleted {
			view.Content = nil
		} else {
			view.Assets = assetsByMessage[m.ID]
		}
		views = append(views, view)
	}
	return views, nil
}

// SendMessage persists the message, its attachment links and the chat's
// recency bump in one transaction, then hands the hydrated result to the
// notifier. The returned view and the broadcast payload are the same value.
func (s *chatService) SendMessage(ctx context.Context, chatID, userID int, in SendMessageInput) (models.MessageView, error) {
	if _, _, err := s.authorize(ctx, chatID, userID); err != nil {
		return models.MessageView{}, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.AssetIDs) == 0 {
		return models.MessageView{}, badRequest("message needs content or attachments")
	}
	var contentPtr *string
	if content != "" {
		contentPtr = &content
	}

	if in.ReplyToID != nil {
		target, err := s.messages.GetMessage(ctx, *in.ReplyToID)
		if err != nil {
			if errors.Is(err, repositories.ErrMessageNotFound) {
				return models.MessageView{}, badRequest("reply target not found")
			}
			return models.MessageView{}, unavailable(err)
		}
		if target.ChatID != chatID {
			return models.MessageView{}, badRequest("reply target belongs to another chat")
		}
	}

	msg, err := s.messages.CreateMessage(ctx, chatID, userID, contentPtr, in.ReplyToID, in.AssetIDs)
	if err != nil {
		return models.MessageView{}, unavailable(err)
	}

	view := s.hydrate(ctx, msg, in.AssetIDs)
	s.notifier.MessageCreated(chatID, view)
	return view, nil
}

// EditMessage replaces the content of the caller's own message and broadcasts
// the updated view.
func (s *chatService) EditMessage(ctx context.Context, chatID, messageID, userID int, content string) (models.MessageView, error) {
	msg, err := s.ownMessage(ctx, chatID, messageID, userID)
	if err != nil {
		return models.MessageView{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, badRequest("content required")
	}
	if msg.Deleted {
		return models.MessageView{}, badRequest("message is deleted")
	}

	updated, err := s.messages.EditMessage(ctx, messageID, content)
	if err != nil {
		return models.MessageView{}, unavailable(err)
	}

	// Editing touches only the content; the stored attachment links must
	// survive into the returned and broadcast view.
	var assetIDs []int
	links, err := s.messages.ListMessageAssets(ctx, []int{messageID})
	if err != nil {
		log.Printf("edit message %d: load asset links: %v", messageID, err)
	} else {
		for _, link := range links {
			assetIDs = append(assetIDs, link.AssetID)
		}
	}

	view := s.hydrate(ctx, updated, assetIDs)
	s.notifier.MessageUpdated(chatID, view)
	return view, nil
}

// DeleteMessage soft deletes the caller's own message and broadcasts the id.
func (s *chatService) DeleteMessage(ctx context.Context, chatID, messageID, userID int) error {
	if _, err := s.ownMessage(ctx, chatID, messageID, userID); err != nil {
		return err
	}

	if err := s.messages.SoftDeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return notFound("message")
		}
		return unavailable(err)
	}

	s.notifier.MessageDeleted(chatID, messageID)
	return nil
}

// SetReaction upserts the caller's reaction on a message and broadcasts the
// resulting tri-state change.
func (s *chatService) SetReaction(ctx context.Context, chatID, messageID, userID int, reaction string) (models.ReactionEvent, error) {
	msg, err := s.chatMessage(ctx, chatID, messageID, userID)
	if err != nil {
		return models.ReactionEvent{}, err
	}
	if msg.Deleted {
		return models.ReactionEvent{}, badRequest("message is deleted")
	}
	reaction = strings.TrimSpace(reaction)
	if reaction == "" {
		return models.ReactionEvent{}, badRequest("reaction required")
	}

	change, err := s.reactions.SetReaction(ctx, messageID, userID, reaction)
	if err != nil {
		return models.ReactionEvent{}, unavailable(err)
	}

	event := models.ReactionEvent{MessageID: messageID, UserID: userID, Change: change, Reaction: reaction}
	s.notifier.ReactionChanged(chatID, event)
	return event, nil
}

// RemoveReaction deletes the caller's reaction; removing a reaction that does
// not exist is a no-op and nothing is broadcast.
func (s *chatService) RemoveReaction(ctx context.Context, chatID, messageID, userID int) error {
	if _, err := s.chatMessage(ctx, chatID, messageID, userID); err != nil {
		return err
	}

	removed, err := s.reactions.RemoveReaction(ctx, messageID, userID)
	if err != nil {
		return unavailable(err)
	}
	if removed {
		s.notifier.ReactionChanged(chatID, models.ReactionEvent{
			MessageID: messageID,
			UserID:    userID,
			Change:    models.ReactionRemoved,
		})
	}
	return nil
}

// chatMessage authorizes membership and loads a message, verifying it belongs
// to the chat. A message from another chat reads as absent.
func (s *chatService) chatMessage(ctx context.Context, chatID, messageID, userID int) (models.Message, error) {
	if _, _, err := s.authorize(ctx, chatID, userID); err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.Message{}, notFound("message")
		}
		return models.Message{}, unavailable(err)
	}
	if msg.ChatID != chatID {
		return models.Message{}, notFound("message")
	}
	return msg, nil
}

// ownMessage is chatMessage plus a sender check for edit and delete.
func (s *chatService) ownMessage(ctx context.Context, chatID, messageID, userID int) (models.Message, error) {
	msg, err := s.chatMessage(ctx, chatID, messageID, userID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != userID {
		return models.Message{}, forbidden("only the sender may modify a message")
	}
	return msg, nil
}

// hydrate decorates a persisted message with the sender handle and attachment
// metadata. Decoration is best effort: a directory or asset-store hiccup must
// not lose a committed message.
func (s *chatService) hydrate(ctx context.Context, msg models.Message, assetIDs []int) models.MessageView {
	view := models.MessageView{Message: msg}

	if sender, err := s.directory.GetUser(ctx, msg.SenderID); err == nil {
		view.SenderName = sender.Username
	} else {
		log.Printf("sender lookup failed user=%d: %v", msg.SenderID, err)
	}

	if len(assetIDs) > 0 {
		links := make([]models.MessageAsset, 0, len(assetIDs))
		for i, id := range assetIDs {
			links = append(links, models.MessageAsset{MessageID: msg.ID, AssetID: id, OrderIndex: i})
		}
		view.Assets = s.assetViewsFor(ctx, links, msg.ID)
	}
	return view
}

// assetViews resolves attachment metadata grouped by message, preserving
// attachment order. Unresolvable assets fall back to bare ids.
func (s *chatService) assetViews(ctx context.Context, links []models.MessageAsset) map[int][]models.AssetView {
	result := map[int][]models.AssetView{}
	if len(links) == 0 {
		return result
	}

	ids := make([]int, 0, len(links))
	seen := map[int]struct{}{}
	for _, link := range links {
		if _, ok := seen[link.AssetID]; !ok {
			seen[link.AssetID] = struct{}{}
			ids = append(ids, link.AssetID)
		}
	}

	byID := map[int]models.AssetView{}
	assets, err := s.assets.BulkAssets(ctx, ids)
	if err != nil {
		log.Printf("asset lookup failed: %v", err)
	} else {
		for _, a := range assets {
			byID[a.ID] = a
		}
	}

	for _, link := range links {
		view, ok := byID[link.AssetID]
		if !ok {
			view = models.AssetView{ID: link.AssetID}
		}
		result[link.MessageID] = append(result[link.MessageID], view)
	}
	return result
}

func (s *chatService) assetViewsFor(ctx context.Context, links []models.MessageAsset, messageID int) []models.AssetView {
	return s.assetViews(ctx, links)[messageID]
}
