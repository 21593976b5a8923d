package feed

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

type FeedTestSuite struct {
	suite.Suite
	db        *gorm.DB
	assembler *Assembler
	ctx       context.Context
	owner     *models.User
}

func (suite *FeedTestSuite) SetupTest() {
	db, err := dbtest.Open()
	require.NoError(suite.T(), err)
	suite.db = db
	suite.assembler = NewAssembler(db)
	suite.ctx = context.Background()

	suite.owner = &models.User{
		Username:     "bakery",
		Email:        "bakery@example.com",
		PasswordHash: "x",
		DisplayName:  "Corner Bakery",
		ProfileImage: "https://cdn.example.com/bakery.png",
		AccountType:  models.AccountBusiness,
	}
	require.NoError(suite.T(), db.Create(suite.owner).Error)
}

func (suite *FeedTestSuite) TearDownTest() {
	dbtest.Close(suite.db)
}

func (suite *FeedTestSuite) createPost(caption, category string, createdAt time.Time) *models.Post {
	post := &models.Post{UserID: suite.owner.ID, Caption: caption, Category: category}
	require.NoError(suite.T(), suite.db.Create(post).Error)
	require.NoError(suite.T(), suite.db.Model(post).Update("created_at", createdAt).Error)
	return post
}

func (suite *FeedTestSuite) TestListPostsEnrichesFacets() {
	t := suite.T()
	post := suite.createPost("fresh bread", "food", time.Now().UTC().Add(-2*time.Hour))
	pid := post.ID

	require.NoError(t, suite.db.Create(&models.PostImage{PostID: &pid, ImageData: []byte{0xff, 0xd8}, MimeType: "image/jpeg"}).Error)
	require.NoError(t, suite.db.Create(&models.PostImage{PostID: &pid, ImageURL: "https://cdn.example.com/a.jpg"}).Error)
	require.NoError(t, suite.db.Create(&models.PostVideo{PostID: &pid, VideoURL: "https://cdn.example.com/v.mp4"}).Error)
	require.NoError(t, suite.db.Create(&models.PostTag{PostID: pid, Tag: "bread"}).Error)
	require.NoError(t, suite.db.Create(&models.PostLike{PostID: pid, UserID: "u1"}).Error)
	require.NoError(t, suite.db.Create(&models.PostLike{PostID: pid, UserID: "u2"}).Error)
	require.NoError(t, suite.db.Create(&models.Comment{PostID: pid, UserID: "u1", Content: "yum"}).Error)
	hidden := &models.Comment{PostID: pid, UserID: "u2", Content: "spam"}
	require.NoError(t, suite.db.Create(hidden).Error)
	require.NoError(t, suite.db.Model(hidden).Update("is_active", false).Error)
	require.NoError(t, suite.db.Create(&models.PostRating{PostID: pid, UserID: "u1", Rating: 4}).Error)
	require.NoError(t, suite.db.Create(&models.PostRating{PostID: pid, UserID: "u2", Rating: 5}).Error)

	posts, err := suite.assembler.ListPosts(suite.ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, pid, p.ID)
	assert.Equal(t, "bakery", p.Username)
	assert.Equal(t, "Corner Bakery", p.BusinessName)
	assert.True(t, p.IsPro)
	assert.Len(t, p.Images, 2)
	assert.Contains(t, p.Images, "https://cdn.example.com/a.jpg")
	assert.Contains(t, p.Images[0]+p.Images[1], "/images/")
	assert.Equal(t, []string{"https://cdn.example.com/v.mp4"}, p.Videos)
	assert.Equal(t, []string{"bread"}, p.Tags)
	assert.Equal(t, int64(2), p.Likes)
	assert.Equal(t, int64(1), p.Comments)
	assert.InDelta(t, 4.5, p.Rating, 0.0001)
	assert.Equal(t, int64(2), p.RatingCount)
	assert.Equal(t, "2h ago", p.Timestamp)
	assert.Equal(t, "food", p.Category)
}

func (suite *FeedTestSuite) TestListPostsDefaultsWhenNoChildren() {
	t := suite.T()
	suite.createPost("plain", "", time.Now().UTC())

	posts, err := suite.assembler.ListPosts(suite.ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.NotNil(t, p.Images)
	assert.Empty(t, p.Images)
	assert.Empty(t, p.Videos)
	assert.Empty(t, p.Tags)
	assert.Zero(t, p.Likes)
	assert.Zero(t, p.RatingCount)
	assert.Equal(t, "all", p.Category)
	assert.Equal(t, "just now", p.Timestamp)
}

func (suite *FeedTestSuite) TestCategoryFilterAndPagination() {
	t := suite.T()
	now := time.Now().UTC()
	suite.createPost("one", "Food", now.Add(-3*time.Minute))
	suite.createPost("two", "food", now.Add(-2*time.Minute))
	suite.createPost("three", "retail", now.Add(-1*time.Minute))

	food, err := suite.assembler.ListPosts(suite.ctx, Filter{Category: "FOOD"})
	require.NoError(t, err)
	require.Len(t, food, 2)
	assert.Equal(t, "two", food[0].Description, "newest first")

	all, err := suite.assembler.ListPosts(suite.ctx, Filter{Category: "all", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "two", all[0].Description)
	assert.Equal(t, "one", all[1].Description)
}

func (suite *FeedTestSuite) TestInactivePostsHiddenFromList() {
	t := suite.T()
	post := suite.createPost("gone", "food", time.Now().UTC())
	require.NoError(t, suite.db.Model(post).Update("is_active", false).Error)

	posts, err := suite.assembler.ListPosts(suite.ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func (suite *FeedTestSuite) TestLegacyNumericIDsMatchChildRows() {
	t := suite.T()
	post := &models.Post{ID: "42", UserID: suite.owner.ID, Caption: "legacy"}
	require.NoError(t, suite.db.Create(post).Error)
	require.NoError(t, suite.db.Create(&models.PostLike{PostID: "42", UserID: "u1"}).Error)

	view, err := suite.assembler.GetPost(suite.ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Likes)
}

func (suite *FeedTestSuite) TestFailedFacetDegradesToEmpty() {
	t := suite.T()
	post := suite.createPost("tagged", "food", time.Now().UTC())
	require.NoError(t, suite.db.Create(&models.PostLike{PostID: post.ID, UserID: "u1"}).Error)
	require.NoError(t, suite.db.Migrator().DropTable(&models.PostTag{}))

	posts, err := suite.assembler.ListPosts(suite.ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].Tags)
	assert.Equal(t, int64(1), posts[0].Likes, "other facets still load")
}

func (suite *FeedTestSuite) TestGetPostNotFound() {
	_, err := suite.assembler.GetPost(suite.ctx, "missing")
	assert.True(suite.T(), apierrors.IsNotFound(err))
}

func (suite *FeedTestSuite) TestUnknownAuthorFallbacks() {
	t := suite.T()
	post := &models.Post{UserID: "ghost", Caption: "orphan"}
	require.NoError(t, suite.db.Create(post).Error)

	view, err := suite.assembler.GetPost(suite.ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "unknown", view.Username)
	assert.Equal(t, "Business", view.BusinessName)
	assert.False(t, view.IsPro)
}

func TestFeedTestSuite(t *testing.T) {
	suite.Run(t, new(FeedTestSuite))
}

func TestRelativeTimestampLabels(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	a := &Assembler{now: func() time.Time { return now }}

	cases := map[time.Duration]string{
		30 * time.Second:   "just now",
		5 * time.Minute:    "5m ago",
		3 * time.Hour:      "3h ago",
		2 * 24 * time.Hour: "2d ago",
	}
	for ago, want := range cases {
		v := a.shape(baseRow{ID: "p", CreatedAt: now.Add(-ago)}, emptyFacets(), now)
		assert.Equal(t, want, v.Timestamp)
	}

	old := a.shape(baseRow{ID: "p", CreatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}, emptyFacets(), now)
	assert.Equal(t, "Jan 3, 2024", old.Timestamp)
}

func emptyFacets() *facets {
	f := &facets{}
	f.fillNil()
	return f
}
