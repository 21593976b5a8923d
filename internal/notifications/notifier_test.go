package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/bizfeed/backend/internal/database/dbtest"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	events []Event
}

func (r *recordingDispatcher) Dispatch(_ context.Context, ev Event) {
	r.events = append(r.events, ev)
}

type NotifierTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	sink     *recordingDispatcher
	notifier *Notifier
	alice    *models.User
	bob      *models.User
	post     *models.Post
}

func (suite *NotifierTestSuite) SetupTest() {
	t := suite.T()
	db, err := dbtest.Open()
	require.NoError(t, err)
	suite.db = db
	suite.ctx = context.Background()
	suite.sink = &recordingDispatcher{}
	suite.notifier = NewNotifier(suite.sink, repository.NewUserRepository(db), repository.NewPostRepository(db))

	suite.alice = &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", ProfileImage: "https://cdn.example.com/alice.png"}
	suite.bob = &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(suite.alice).Error)
	require.NoError(t, db.Create(suite.bob).Error)

	suite.post = &models.Post{UserID: suite.bob.ID, Caption: "new menu"}
	require.NoError(t, db.Create(suite.post).Error)
}

func (suite *NotifierTestSuite) TearDownTest() {
	dbtest.Close(suite.db)
}

func (suite *NotifierTestSuite) only() Event {
	require.Len(suite.T(), suite.sink.events, 1)
	return suite.sink.events[0]
}

func (suite *NotifierTestSuite) TestPostLikedAddressesOwner() {
	t := suite.T()
	suite.notifier.PostLiked(suite.ctx, suite.post.ID, suite.alice)

	ev := suite.only()
	require.NotNil(t, ev.RecipientUsername)
	assert.Equal(t, "bob", *ev.RecipientUsername)
	assert.Equal(t, "alice", ev.ActorUsername)
	assert.Equal(t, suite.alice.ID, ev.ActorID)
	assert.Equal(t, "https://cdn.example.com/alice.png", ev.Avatar)
	assert.Equal(t, models.NotificationLike, ev.Type)
	assert.Equal(t, "liked your post", ev.Message)
	assert.Equal(t, suite.post.ID, ev.PostID)
}

func (suite *NotifierTestSuite) TestUnknownPostSkipped() {
	suite.notifier.PostLiked(suite.ctx, "missing", suite.alice)
	assert.Empty(suite.T(), suite.sink.events)
}

func (suite *NotifierTestSuite) TestPostRated() {
	suite.notifier.PostRated(suite.ctx, suite.post.ID, suite.alice, 4.5)

	ev := suite.only()
	assert.Equal(suite.T(), models.NotificationReview, ev.Type)
	assert.Equal(suite.T(), "rated your post 4.5 stars", ev.Message)
	assert.Equal(suite.T(), "4.5", ev.RelatedID)
}

func (suite *NotifierTestSuite) TestPostCommentedTruncates() {
	long := "This is a very long comment that definitely goes past the fifty character preview"
	suite.notifier.PostCommented(suite.ctx, suite.post.ID, suite.alice, long)

	ev := suite.only()
	assert.Equal(suite.T(), models.NotificationComment, ev.Type)
	assert.Equal(suite.T(), `commented: "This is a very long comment that definitely goes p..."`, ev.Message)
}

func (suite *NotifierTestSuite) TestMentionedSkipsSelfAndUnknown() {
	t := suite.T()
	suite.notifier.Mentioned(suite.ctx, suite.post.ID, suite.alice, []string{"Alice", "ghost", "bob"})

	ev := suite.only()
	require.NotNil(t, ev.RecipientUsername)
	assert.Equal(t, "bob", *ev.RecipientUsername)
	assert.Equal(t, models.NotificationMention, ev.Type)
	assert.Equal(t, "mentioned you in a comment", ev.Message)
}

func (suite *NotifierTestSuite) TestMessageSent() {
	suite.notifier.MessageSent(suite.ctx, suite.alice, suite.bob, "hi", "")

	ev := suite.only()
	assert.Equal(suite.T(), TypeMessage, ev.Type)
	assert.Equal(suite.T(), `sent you a message: "hi"`, ev.Message)
	assert.Equal(suite.T(), "bob", *ev.RecipientUsername)
}

func (suite *NotifierTestSuite) TestFollowedNeverToSelf() {
	suite.notifier.Followed(suite.ctx, suite.alice, suite.alice)
	assert.Empty(suite.T(), suite.sink.events)

	suite.notifier.Followed(suite.ctx, suite.alice, suite.bob)
	ev := suite.only()
	assert.Equal(suite.T(), models.NotificationFollow, ev.Type)
	assert.False(suite.T(), ev.HasAction)
}

func (suite *NotifierTestSuite) TestBroadcast() {
	suite.notifier.Broadcast(suite.ctx, "admin", "welcome")

	ev := suite.only()
	assert.Nil(suite.T(), ev.RecipientUsername)
	assert.Equal(suite.T(), models.NotificationSystem, ev.Type)
}

func TestNotifierTestSuite(t *testing.T) {
	suite.Run(t, new(NotifierTestSuite))
}

func TestRatingMessage(t *testing.T) {
	assert.Equal(t, "rated your post 1 star", RatingMessage(1))
	assert.Equal(t, "rated your post 0 star", RatingMessage(0))
	assert.Equal(t, "rated your post 5 stars", RatingMessage(5))
}
