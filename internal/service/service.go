package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"messenger-service/internal/clients"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// Notifier receives persisted events after commit. Implementations must not
// block on slow receivers; delivery failures are theirs to swallow.
type Notifier interface {
	MessageCreated(chatID int, msg models.MessageView)
	MessageUpdated(chatID int, msg models.MessageView)
	MessageDeleted(chatID int, messageID int)
	ReactionChanged(chatID int, event models.ReactionEvent)
}

// GroupPatch carries optional group metadata changes.
type GroupPatch struct {
	Name        *string
	Description *string
}

// SendMessageInput is the payload of a send operation.
type SendMessageInput struct {
	Content   string
	ReplyToID *int
	AssetIDs  []int
}

// ParticipantView is a membership row annotated with the display handle.
type ParticipantView struct {
	models.ChatParticipant
	Username string `json:"username,omitempty"`
}

// Service is the conversation manager: all chat, membership, message and
// reaction operations behind the HTTP and websocket surfaces.
type Service interface {
	CreatePrivateChat(ctx context.Context, userID int, username string) (models.Chat, error)
	CreateGroupChat(ctx context.Context, userID int, name, description string, memberUsernames []string) (models.Chat, error)
	UpdateGroupChat(ctx context.Context, chatID, actorID int, patch GroupPatch) (models.Chat, error)
	AddParticipant(ctx context.Context, chatID, actorID int, username string) (ParticipantView, error)
	RemoveParticipant(ctx context.Context, chatID, actorID, targetID int) error
	LeaveChat(ctx context.Context, chatID, userID int) error
	ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error)
	ListParticipants(ctx context.Context, chatID, userID int) ([]ParticipantView, error)
	Messages(ctx context.Context, chatID, userID int) ([]models.MessageView, error)
	SendMessage(ctx context.Context, chatID, userID int, in SendMessageInput) (models.MessageView, error)
	EditMessage(ctx context.Context, chatID, messageID, userID int, content string) (models.MessageView, error)
	DeleteMessage(ctx context.Context, chatID, messageID, userID int) error
	SetReaction(ctx context.Context, chatID, messageID, userID int, reaction string) (models.ReactionEvent, error)
	RemoveReaction(ctx context.Context, chatID, messageID, userID int) error
}

type chatService struct {
	chats     repositories.ChatRepository
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
	directory clients.Directory
	assets    clients.AssetStore
	notifier  Notifier
}

// New constructs the conversation manager.
func New(
	chats repositories.ChatRepository,
	messages repositories.MessageRepository,
	reactions repositories.ReactionRepository,
	directory clients.Directory,
	assets clients.AssetStore,
	notifier Notifier,
) Service {
	return &chatService{
		chats:     chats,
		messages:  messages,
		reactions: reactions,
		directory: directory,
		assets:    assets,
		notifier:  notifier,
	}
}

// authorize loads the chat and the caller's membership. Absent chats and
// absent memberships both come back as ErrNotFound.
func (s *chatService) authorize(ctx context.Context, chatID, userID int) (models.Chat, models.ChatParticipant, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return models.Chat{}, models.ChatParticipant{}, notFound("chat")
		}
		return models.Chat{}, models.ChatParticipant{}, unavailable(err)
	}

	participant, err := s.chats.GetParticipant(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotParticipant) {
			return models.Chat{}, models.ChatParticipant{}, notFound("chat")
		}
		return models.Chat{}, models.ChatParticipant{}, unavailable(err)
	}

	return chat, participant, nil
}

// authorizeGroupAdmin gates group management operations. The kind check comes
// first: roles carry no meaning in private chats, so a private-chat member
// gets bad request, not forbidden.
func (s *chatService) authorizeGroupAdmin(ctx context.Context, chatID, actorID int) (models.Chat, error) {
	chat, participant, err := s.authorize(ctx, chatID, actorID)
	if err != nil {
		return models.Chat{}, err
	}
	if chat.Kind != models.ChatKindGroup {
		return models.Chat{}, badRequest("not a group chat")
	}
	if participant.Role != models.RoleAdmin {
		return models.Chat{}, forbidden("admin role required")
	}
	return chat, nil
}

// CreatePrivateChat looks up or creates the private chat between the caller
// and the resolved target. Idempotent and commutative in the pair.
func (s *chatService) CreatePrivateChat(ctx context.Context, userID int, username string) (models.Chat, error) {
	target, err := s.directory.ResolveUsername(ctx, username)
	if err != nil {
		if errors.Is(err, clients.ErrUserNotFound) {
			return models.Chat{}, notFound("user")
		}
		return models.Chat{}, unavailable(err)
	}
	if target.ID == userID {
		return models.Chat{}, badRequest("cannot chat with yourself")
	}

	chat, created, err := s.chats.CreatePrivateChat(ctx, userID, target.ID)
	if err != nil {
		return models.Chat{}, unavailable(err)
	}
	if created {
		log.Printf("private chat created id=%d pair=%s", chat.ID, repositories.PairKey(userID, target.ID))
	}
	return chat, nil
}

// CreateGroupChat resolves the member handles, skipping ones that cannot be
// resolved: a partial group is still a valid group. The creator is always a
// member and holds the admin role.
func (s *chatService) CreateGroupChat(ctx context.Context, userID int, name, description string, memberUsernames []string) (models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Chat{}, badRequest("group name required")
	}

	memberIDs := make([]int, 0, len(memberUsernames))
	for _, username := range memberUsernames {
		user, err := s.directory.ResolveUsername(ctx, username)
		if err != nil {
			log.Printf("group member skipped username=%q: %v", username, err)
			continue
		}
		memberIDs = append(memberIDs, user.ID)
	}

	chat, err := s.chats.CreateGroupChat(ctx, userID, name, description, memberIDs)
	if err != nil {
		return models.Chat{}, unavailable(err)
	}
	return chat, nil
}

// UpdateGroupChat applies metadata changes. Admin only; rejected for private
// chats, which carry no metadata.
func (s *chatService) UpdateGroupChat(ctx context.Context, chatID, actorID int, patch GroupPatch) (models.Chat, error) {
	if _, err := s.authorizeGroupAdmin(ctx, chatID, actorID); err != nil {
		return models.Chat{}, err
	}

	if err := s.chats.UpdateGroup(ctx, chatID, patch.Name, patch.Description); err != nil {
		return models.Chat{}, unavailable(err)
	}

	updated, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return models.Chat{}, unavailable(err)
	}
	return updated, nil
}

// AddParticipant adds the resolved user as a member. Admin only; private
// membership is fixed at two.
func (s *chatService) AddParticipant(ctx context.Context, chatID, actorID int, username string) (ParticipantView, error) {
	if _, err := s.authorizeGroupAdmin(ctx, chatID, actorID); err != nil {
		return ParticipantView{}, err
	}

	target, err := s.directory.ResolveUsername(ctx, username)
	if err != nil {
		if errors.Is(err, clients.ErrUserNotFound) {
			return ParticipantView{}, notFound("user")
		}
		return ParticipantView{}, unavailable(err)
	}

	if err := s.chats.AddParticipant(ctx, chatID, target.ID, models.RoleMember); err != nil {
		if errors.Is(err, repositories.ErrAlreadyParticipant) {
			return ParticipantView{}, conflict("already a member")
		}
		return ParticipantView{}, unavailable(err)
	}

	participant, err := s.chats.GetParticipant(ctx, chatID, target.ID)
	if err != nil {
		return ParticipantView{}, unavailable(err)
	}
	return ParticipantView{ChatParticipant: participant, Username: target.Username}, nil
}

// RemoveParticipant kicks a member. Admin only; removing oneself goes through
// LeaveChat so admin succession applies.
func (s *chatService) RemoveParticipant(ctx context.Context, chatID, actorID, targetID int) error {
	if _, err := s.authorizeGroupAdmin(ctx, chatID, actorID); err != nil {
		return err
	}
	if targetID == actorID {
		return badRequest("use leave to remove yourself")
	}

	if err := s.chats.RemoveParticipant(ctx, chatID, targetID); err != nil {
		if errors.Is(err, repositories.ErrNotParticipant) {
			return notFound("participant")
		}
		return unavailable(err)
	}
	return nil
}

// LeaveChat removes the caller's membership. The last member leaving deletes
// the chat; a departing admin hands the role to the earliest-joined member.
func (s *chatService) LeaveChat(ctx context.Context, chatID, userID int) error {
	chat, _, err := s.authorize(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if chat.Kind != models.ChatKindGroup {
		return badRequest("cannot leave a private chat")
	}

	result, err := s.chats.LeaveChat(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotParticipant) {
			return notFound("chat")
		}
		return unavailable(err)
	}
	if result.ChatDeleted {
		log.Printf("chat deleted id=%d: last member left", chatID)
	}
	if result.NewAdminID != nil {
		log.Printf("chat %d admin transferred to user %d", chatID, *result.NewAdminID)
	}
	return nil
}

// ListChats returns the caller's chats by recency, annotated with their last
// message and peer handles. Directory failures degrade to missing names.
func (s *chatService) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	rows, err := s.chats.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, unavailable(err)
	}

	peerIDs := make([]int, 0, len(rows))
	seen := map[int]struct{}{}
	for _, row := range rows {
		if row.PeerID != nil {
			if _, ok := seen[*row.PeerID]; !ok {
				seen[*row.PeerID] = struct{}{}
				peerIDs = append(peerIDs, *row.PeerID)
			}
		}
	}
	names := s.usernames(ctx, peerIDs)

	summaries := make([]models.ChatSummary, 0, len(rows))
	for _, row := range rows {
		summary := models.ChatSummary{Chat: row.Chat}
		if row.PeerID != nil {
			summary.PeerID = *row.PeerID
			summary.PeerName = names[*row.PeerID]
		}
		if row.LastMessageID != nil {
			last := models.Message{
				ID:       *row.LastMessageID,
				ChatID:   row.Chat.ID,
				SenderID: *row.LastSenderID,
				Content:  row.LastContent,
			}
			if row.LastCreatedAt.Valid {
				last.CreatedAt = row.LastCreatedAt.Time
			}
			if row.LastDeleted != nil && *row.LastDeleted {
				last.Deleted = true
				last.Content = nil
			}
			summary.LastMessage = &last
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListParticipants returns the roster with display handles. Membership gated.
func (s *chatService) ListParticipants(ctx context.Context, chatID, userID int) ([]ParticipantView, error) {
	if _, _, err := s.authorize(ctx, chatID, userID); err != nil {
		return nil, err
	}

	participants, err := s.chats.ListParticipants(ctx, chatID)
	if err != nil {
		return nil, unavailable(err)
	}

	ids := make([]int, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	names := s.usernames(ctx, ids)

	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, ParticipantView{ChatParticipant: p, Username: names[p.UserID]})
	}
	return views, nil
}

// usernames resolves display handles best-effort; lookups never fail a read.
func (s *chatService) usernames(ctx context.Context, ids []int) map[int]string {
	names := map[int]string{}
	if len(ids) == 0 {
		return names
	}
	users, err := s.directory.BulkUsers(ctx, ids)
	if err != nil {
		log.Printf("bulk user lookup failed: %v", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}
