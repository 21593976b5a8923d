package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/bizfeed/backend/internal/database/dbtest"
	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"gorm.io/gorm"
)

type ServiceTestSuite struct {
	suite.Suite
	db  *gorm.DB
	svc *Service
	ctx context.Context
}

func (suite *ServiceTestSuite) SetupTest() {
	db, err := dbtest.Open()
	require.NoError(suite.T(), err)
	suite.db = db
	suite.svc = NewService(db)
	suite.ctx = context.Background()
}

func (suite *ServiceTestSuite) TearDownTest() {
	dbtest.Close(suite.db)
}

func to(username string) *string {
	return &username
}

func (suite *ServiceTestSuite) create(ev Event) *View {
	view, err := suite.svc.Create(suite.ctx, ev)
	require.NoError(suite.T(), err)
	return view
}

func (suite *ServiceTestSuite) TestBroadcastVisibleToEveryone() {
	t := suite.T()
	suite.create(Event{ActorUsername: "admin", Type: models.NotificationSystem, Message: "maintenance tonight"})
	suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationLike, Message: "liked your post"})

	bob, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "bob"})
	require.NoError(t, err)
	assert.Len(t, bob.Items, 2)
	assert.Equal(t, int64(2), bob.UnreadCount)

	carol, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "carol"})
	require.NoError(t, err)
	require.Len(t, carol.Items, 1)
	assert.Equal(t, models.NotificationSystem, carol.Items[0].Type)
	assert.Nil(t, carol.Items[0].RecipientUsername)

	anon, err := suite.svc.List(suite.ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, anon.Items, 1)
}

func (suite *ServiceTestSuite) TestListFiltersAndOrdering() {
	t := suite.T()
	older := suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationLike, Message: "liked your post"})
	require.NoError(t, suite.db.Model(&models.Notification{}).Where("id = ?", older.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	newer := suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationComment, Message: "commented"})

	all, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "bob"})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, newer.ID, all.Items[0].ID)

	likes, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "bob", Type: models.NotificationLike})
	require.NoError(t, err)
	require.Len(t, likes.Items, 1)
	assert.Equal(t, older.ID, likes.Items[0].ID)

	_, err = suite.svc.MarkRead(suite.ctx, newer.ID, "bob")
	require.NoError(t, err)
	unread, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "bob", Unread: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)
	assert.Equal(t, older.ID, unread.Items[0].ID)
	assert.Equal(t, int64(1), unread.UnreadCount)

	paged, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "bob", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, older.ID, paged.Items[0].ID)
}

func (suite *ServiceTestSuite) TestMessageStoredAsMention() {
	t := suite.T()
	view := suite.create(Event{
		RecipientUsername: to("bob"),
		ActorUsername:     "alice",
		Avatar:            "https://cdn.example.com/alice.png",
		Type:              TypeMessage,
		Message:           `sent you a message: "hi"`,
		HasAction:         true,
	})

	assert.Equal(t, models.NotificationMention, view.Type)
	assert.Equal(t, "message", view.Metadata["originalType"])
	require.NotNil(t, view.Avatar)
	assert.Equal(t, "https://cdn.example.com/alice.png", *view.Avatar)
	assert.True(t, view.HasAction)
	assert.Equal(t, "just now", view.Timestamp)
}

func (suite *ServiceTestSuite) TestCreateResolvesActorID() {
	t := suite.T()
	alice := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, suite.db.Create(alice).Error)

	view := suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationFollow})

	var row models.Notification
	require.NoError(t, suite.db.First(&row, "id = ?", view.ID).Error)
	assert.Equal(t, alice.ID, row.UserID)
}

func (suite *ServiceTestSuite) TestCreateRequiresType() {
	_, err := suite.svc.Create(suite.ctx, Event{ActorUsername: "alice"})
	var apiErr *apierrors.APIError
	require.ErrorAs(suite.T(), err, &apiErr)
	assert.Equal(suite.T(), 400, apiErr.Status)
}

func (suite *ServiceTestSuite) TestMalformedMetadataDegrades() {
	t := suite.T()
	garbage := "{not json"
	array := `["a", "b"]`
	require.NoError(t, suite.db.Create(&models.Notification{RecipientUsername: to("bob"), Type: models.NotificationLike, Content: "x", Metadata: &garbage}).Error)
	require.NoError(t, suite.db.Create(&models.Notification{RecipientUsername: to("bob"), Type: models.NotificationLike, Content: "y", Metadata: &array}).Error)
	require.NoError(t, suite.db.Create(&models.Notification{RecipientUsername: to("bob"), Type: models.NotificationLike, Content: "z"}).Error)

	list, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "bob"})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	for _, item := range list.Items {
		assert.Nil(t, item.Metadata)
		assert.Nil(t, item.Avatar)
		assert.False(t, item.HasAction)
		assert.Equal(t, "Unknown", item.Username)
	}
}

func (suite *ServiceTestSuite) TestMarkReadScopedAndMonotonic() {
	t := suite.T()
	n := suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationLike})

	_, err := suite.svc.MarkRead(suite.ctx, n.ID, "carol")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	view, err := suite.svc.MarkRead(suite.ctx, n.ID, "bob")
	require.NoError(t, err)
	assert.True(t, view.Read)

	view, err = suite.svc.MarkRead(suite.ctx, n.ID, "bob")
	require.NoError(t, err)
	assert.True(t, view.Read)
}

func (suite *ServiceTestSuite) TestMarkAllRead() {
	t := suite.T()
	suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationLike})
	suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationComment})
	suite.create(Event{RecipientUsername: to("carol"), ActorUsername: "alice", Type: models.NotificationLike})

	changed, err := suite.svc.MarkAllRead(suite.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	carol, err := suite.svc.List(suite.ctx, Filter{RecipientUsername: "carol"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), carol.UnreadCount)
}

func (suite *ServiceTestSuite) TestGetAndDeleteScoped() {
	t := suite.T()
	n := suite.create(Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationLike})

	_, err := suite.svc.Get(suite.ctx, n.ID, "")
	assert.True(t, apierrors.IsNotFound(err))

	got, err := suite.svc.Get(suite.ctx, n.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	assert.ErrorIs(t, suite.svc.Delete(suite.ctx, n.ID, "carol"), ErrNotificationNotFound)
	require.NoError(t, suite.svc.Delete(suite.ctx, n.ID, "bob"))
	_, err = suite.svc.Get(suite.ctx, n.ID, "bob")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
