package messaging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/bizfeed/backend/internal/database/dbtest"
	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"gorm.io/gorm"
)

type sentMessage struct {
	from, to, text string
}

type recordingNotifier struct {
	sent []sentMessage
}

func (r *recordingNotifier) MessageSent(_ context.Context, sender, recipient *models.User, text, _ string) {
	r.sent = append(r.sent, sentMessage{from: sender.Username, to: recipient.Username, text: text})
}

type MessagingTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	svc      *Service
	notifier *recordingNotifier
	alice    *models.User
	bob      *models.User
}

func (suite *MessagingTestSuite) SetupTest() {
	db, err := dbtest.Open()
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()
	suite.notifier = &recordingNotifier{}
	suite.svc = NewService(db, repository.NewUserRepository(db), suite.notifier)

	suite.alice = suite.createUser("alice")
	suite.bob = suite.createUser("bob")
}

func (suite *MessagingTestSuite) TearDownTest() {
	dbtest.Close(suite.db)
}

func (suite *MessagingTestSuite) createUser(username string) *models.User {
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(suite.T(), suite.db.Create(u).Error)
	return u
}

func (suite *MessagingTestSuite) conversation(id string) models.Conversation {
	var conv models.Conversation
	require.NoError(suite.T(), suite.db.First(&conv, "id = ?", id).Error)
	return conv
}

func (suite *MessagingTestSuite) TestConversationIsOrderIndependent() {
	t := suite.T()
	ab, err := suite.svc.GetOrCreateConversation(suite.ctx, suite.alice, suite.bob)
	require.NoError(t, err)
	ba, err := suite.svc.GetOrCreateConversation(suite.ctx, suite.bob, suite.alice)
	require.NoError(t, err)

	assert.Equal(t, ab.ID, ba.ID)
	assert.True(t, ab.User1ID < ab.User2ID)

	var count int64
	require.NoError(t, suite.db.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func (suite *MessagingTestSuite) TestLegacyOrientationIsFound() {
	t := suite.T()
	hi, lo := suite.alice, suite.bob
	if hi.ID < lo.ID {
		hi, lo = lo, hi
	}
	legacy := &models.Conversation{User1ID: hi.ID, User1Username: hi.Username, User2ID: lo.ID, User2Username: lo.Username}
	require.NoError(t, suite.db.Create(legacy).Error)

	conv, err := suite.svc.GetOrCreateConversation(suite.ctx, suite.alice, suite.bob)
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, conv.ID)
}

func (suite *MessagingTestSuite) TestSendUpdatesCacheAndUnread() {
	t := suite.T()
	msg, err := suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "bob", MessageText: "hi"})
	require.NoError(t, err)
	assert.Equal(t, suite.bob.ID, msg.RecipientID)
	assert.False(t, msg.IsRead)

	conv := suite.conversation(msg.ConversationID)
	assert.True(t, conv.HasParticipant(suite.alice.ID))
	assert.True(t, conv.HasParticipant(suite.bob.ID))
	assert.Equal(t, "hi", conv.LastMessageText)
	require.NotNil(t, conv.LastMessageID)
	assert.Equal(t, msg.ID, *conv.LastMessageID)
	assert.NotNil(t, conv.LastMessageAt)
	assert.Equal(t, 1, conv.UnreadFor(suite.bob.ID))
	assert.Equal(t, 0, conv.UnreadFor(suite.alice.ID))

	require.Len(t, suite.notifier.sent, 1)
	assert.Equal(t, sentMessage{from: "alice", to: "bob", text: "hi"}, suite.notifier.sent[0])

	unread, err := suite.svc.UnreadCount(suite.ctx, suite.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func (suite *MessagingTestSuite) TestSendByIDAndTruncatesCache() {
	t := suite.T()
	long := strings.Repeat("x", 150)
	msg, err := suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientID: suite.bob.ID, MessageText: long, PostID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, long, msg.MessageText)
	require.NotNil(t, msg.PostID)

	conv := suite.conversation(msg.ConversationID)
	assert.Len(t, conv.LastMessageText, 100)
}

func (suite *MessagingTestSuite) TestSendValidation() {
	t := suite.T()

	_, err := suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "ghost", MessageText: "hi"})
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "alice", MessageText: "hi"})
	assert.ErrorIs(t, err, ErrSelfMessage)

	_, err = suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "bob", MessageText: "  "})
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "messageText", apiErr.Field)

	assert.Empty(t, suite.notifier.sent)
}

func (suite *MessagingTestSuite) TestFetchAcknowledgesOnlyForRecipient() {
	t := suite.T()
	first, err := suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "bob", MessageText: "hi"})
	require.NoError(t, err)
	_, err = suite.svc.Send(suite.ctx, suite.bob, SendInput{RecipientUsername: "alice", MessageText: "hey"})
	require.NoError(t, err)

	conv := suite.conversation(first.ConversationID)
	assert.Equal(t, 1, conv.UnreadFor(suite.bob.ID))
	assert.Equal(t, 1, conv.UnreadFor(suite.alice.ID))

	// The sender fetching leaves the other side's state alone
	_, err = suite.svc.GetMessages(suite.ctx, conv.ID, suite.alice.ID, 0)
	require.NoError(t, err)
	conv = suite.conversation(conv.ID)
	assert.Equal(t, 0, conv.UnreadFor(suite.alice.ID))
	assert.Equal(t, 1, conv.UnreadFor(suite.bob.ID))

	var stored models.Message
	require.NoError(t, suite.db.First(&stored, "id = ?", first.ID).Error)
	assert.False(t, stored.IsRead)

	messages, err := suite.svc.GetMessages(suite.ctx, conv.ID, suite.bob.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	conv = suite.conversation(conv.ID)
	assert.Equal(t, 0, conv.UnreadFor(suite.bob.ID))

	require.NoError(t, suite.db.First(&stored, "id = ?", first.ID).Error)
	assert.True(t, stored.IsRead)

	unread, err := suite.svc.UnreadCount(suite.ctx, suite.bob.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func (suite *MessagingTestSuite) TestMessagesOldestFirstWithLimit() {
	t := suite.T()
	base := time.Now().UTC().Add(-time.Hour)
	var convID string
	for i, text := range []string{"one", "two", "three"} {
		msg, err := suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "bob", MessageText: text})
		require.NoError(t, err)
		convID = msg.ConversationID
		require.NoError(t, suite.db.Model(&models.Message{}).Where("id = ?", msg.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	messages, err := suite.svc.GetMessages(suite.ctx, convID, suite.bob.ID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "two", messages[0].MessageText)
	assert.Equal(t, "three", messages[1].MessageText)
	assert.True(t, messages[1].IsRead)
}

func (suite *MessagingTestSuite) TestMessagesRestrictedToParticipants() {
	t := suite.T()
	carol := suite.createUser("carol")
	msg, err := suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "bob", MessageText: "secret"})
	require.NoError(t, err)

	_, err = suite.svc.GetMessages(suite.ctx, msg.ConversationID, carol.ID, 10)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = suite.svc.GetMessages(suite.ctx, "missing", suite.bob.ID, 10)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func (suite *MessagingTestSuite) TestListAndLookupConversations() {
	t := suite.T()
	carol := suite.createUser("carol")

	_, err := suite.svc.Send(suite.ctx, suite.alice, SendInput{RecipientUsername: "bob", MessageText: "first"})
	require.NoError(t, err)
	msg, err := suite.svc.Send(suite.ctx, carol, SendInput{RecipientUsername: "alice", MessageText: "later"})
	require.NoError(t, err)
	require.NoError(t, suite.db.Model(&models.Conversation{}).Where("id <> ?", msg.ConversationID).
		Update("last_message_at", time.Now().UTC().Add(-time.Hour)).Error)

	list, err := suite.svc.ListConversations(suite.ctx, suite.alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "carol", list[0].OtherUsername)
	assert.Equal(t, 1, list[0].UnreadCount)
	assert.Equal(t, "bob", list[1].OtherUsername)
	assert.Zero(t, list[1].UnreadCount)

	withBob, err := suite.svc.GetConversationWith(suite.ctx, suite.alice.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, withBob)
	assert.Equal(t, "first", withBob.LastMessageText)

	none, err := suite.svc.GetConversationWith(suite.ctx, suite.bob.ID, "carol")
	require.NoError(t, err)
	assert.Nil(t, none)

	ghost, err := suite.svc.GetConversationWith(suite.ctx, suite.bob.ID, "ghost")
	require.NoError(t, err)
	assert.Nil(t, ghost)
}

func TestMessagingTestSuite(t *testing.T) {
	suite.Run(t, new(MessagingTestSuite))
}
