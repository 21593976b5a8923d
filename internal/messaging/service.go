// Package messaging keeps one conversation per unordered user pair and the
// messages exchanged in it.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"github.com/zfogg/bizfeed/backend/internal/telemetry"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConversationNotFound = apierrors.NotFound("conversation")
	ErrRecipientNotFound    = apierrors.NotFound("recipient")
	ErrSelfMessage          = apierrors.ValidationError("recipientId", "cannot send a message to yourself")
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000

	lastMessageLength = 100
)

// Notifier is told about every delivered message
type Notifier interface {
	MessageSent(ctx context.Context, sender, recipient *models.User, text, postID string)
}

type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	notifier Notifier
	now      func() time.Time
}

func NewService(db *gorm.DB, users repository.UserRepository, notifier Notifier) *Service {
	return &Service{db: db, users: users, notifier: notifier, now: time.Now}
}

// ConversationView is a conversation from one participant's point of view
type ConversationView struct {
	models.Conversation
	OtherUserID   string `json:"otherUserId"`
	OtherUsername string `json:"otherUsername"`
	UnreadCount   int    `json:"unreadCount"`
	Timestamp     string `json:"timestamp"`
}

// SendInput addresses a message by user id or username
type SendInput struct {
	RecipientID       string `json:"recipientId"`
	RecipientUsername string `json:"recipientUsername"`
	MessageText       string `json:"messageText"`
	PostID            string `json:"postId"`
}

func pairQuery(q *gorm.DB, a, b string) *gorm.DB {
	return q.Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a)
}

// GetOrCreateConversation returns the single conversation between a and b,
// creating it on first contact. A create that loses a race against a
// concurrent first message reads the winner's row.
func (s *Service) GetOrCreateConversation(ctx context.Context, a, b *models.User) (*models.Conversation, error) {
	if conv, err := s.findPair(ctx, a.ID, b.ID); err == nil {
		return conv, nil
	} else if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}

	first, second := a, b
	if second.ID < first.ID {
		first, second = second, first
	}

	conv := &models.Conversation{
		User1ID:       first.ID,
		User1Username: first.Username,
		User2ID:       second.ID,
		User2Username: second.Username,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(conv).Error
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return s.findPair(ctx, a.ID, b.ID)
}

func (s *Service) findPair(ctx context.Context, a, b string) (*models.Conversation, error) {
	var conv models.Conversation
	err := pairQuery(s.db.WithContext(ctx), a, b).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return &conv, nil
}

// Send delivers a message, updates the conversation's last-message cache
// and bumps the recipient's unread counter.
func (s *Service) Send(ctx context.Context, sender *models.User, in SendInput) (*models.Message, error) {
	ctx, span := telemetry.TraceMessageSend(ctx, sender.ID, "")
	defer span.End()

	text := strings.TrimSpace(in.MessageText)
	if text == "" {
		return nil, apierrors.ValidationError("messageText", "message text is required")
	}

	ref := strings.TrimSpace(in.RecipientID)
	if ref == "" {
		ref = strings.TrimSpace(in.RecipientUsername)
	}
	if ref == "" {
		return nil, apierrors.ValidationError("recipientId", "recipient is required")
	}

	recipient, err := s.users.ResolveUser(ctx, ref)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, ErrSelfMessage
	}

	conv, err := s.GetOrCreateConversation(ctx, sender, recipient)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID:    conv.ID,
		SenderID:          sender.ID,
		SenderUsername:    sender.Username,
		RecipientID:       recipient.ID,
		RecipientUsername: recipient.Username,
		MessageText:       text,
	}
	if in.PostID != "" {
		postID := in.PostID
		msg.PostID = &postID
	}

	unreadCol := "unread_count_user2"
	if conv.User1ID == recipient.ID {
		unreadCol = "unread_count_user1"
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]interface{}{
				"last_message_id":   msg.ID,
				"last_message_text": util.Truncate(text, lastMessageLength),
				"last_message_at":   msg.CreatedAt,
				unreadCol:           gorm.Expr(unreadCol + " + 1"),
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	metrics.Get().MessagesSentTotal.Inc()
	logger.Log.Debug("Message sent",
		logger.WithConversationID(conv.ID),
		logger.WithUserID(sender.ID),
		zap.String("recipient_id", recipient.ID),
	)

	s.notifier.MessageSent(ctx, sender, recipient, text, in.PostID)
	return msg, nil
}

// GetMessages returns the newest limit messages oldest-first. Fetching
// acknowledges: messages addressed to the requester become read and the
// requester's unread counter resets.
func (s *Service) GetMessages(ctx context.Context, conversationID, requesterID string, limit int) ([]models.Message, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !conv.HasParticipant(requesterID) {
		return nil, ErrConversationNotFound
	}

	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var messages []models.Message
	err = s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	unreadCol := "unread_count_user2"
	if conv.User1ID == requesterID {
		unreadCol = "unread_count_user1"
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, requesterID, false).
			Update("is_read", true).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conversationID).Update(unreadCol, 0).Error
	})
	if err != nil {
		return nil, fmt.Errorf("acknowledge messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	for i := range messages {
		if messages[i].RecipientID == requesterID {
			messages[i].IsRead = true
		}
	}
	return messages, nil
}

// ListConversations returns the user's conversations, most recent activity first
func (s *Service) ListConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	views := make([]ConversationView, len(convs))
	for i := range convs {
		views[i] = s.toView(convs[i], userID)
	}
	return views, nil
}

// GetConversationWith returns the conversation between requester and the
// user named by ref, or nil when they have never exchanged a message.
func (s *Service) GetConversationWith(ctx context.Context, requesterID, ref string) (*ConversationView, error) {
	other, err := s.users.ResolveUser(ctx, ref)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conv, err := s.findPair(ctx, requesterID, other.ID)
	if errors.Is(err, ErrConversationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := s.toView(*conv, requesterID)
	return &view, nil
}

// UnreadCount counts unread messages addressed to userID across all conversations
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

func (s *Service) toView(c models.Conversation, userID string) ConversationView {
	view := ConversationView{
		Conversation: c,
		UnreadCount:  c.UnreadFor(userID),
	}
	if c.User1ID == userID {
		view.OtherUserID, view.OtherUsername = c.User2ID, c.User2Username
	} else {
		view.OtherUserID, view.OtherUsername = c.User1ID, c.User1Username
	}

	at := c.CreatedAt
	if c.LastMessageAt != nil {
		at = *c.LastMessageAt
	}
	view.Timestamp = util.RelativeTime(at, s.now())
	return view
}
