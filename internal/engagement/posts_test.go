package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
)

func (suite *EngagementTestSuite) TestCreatePostAttachesUploads() {
	t := suite.T()
	upload := &models.PostImage{UserID: suite.alice.ID, ImageData: []byte{0x89, 0x50}, MimeType: "image/png"}
	require.NoError(t, suite.db.Create(upload).Error)
	clip := &models.PostVideo{UserID: suite.alice.ID, VideoData: []byte{0x00}, MimeType: "video/mp4"}
	require.NoError(t, suite.db.Create(clip).Error)

	post, err := suite.svc.CreatePost(suite.ctx, suite.alice, CreatePostInput{
		Description: "Fresh #Coffee and #pastries",
		Category:    "food",
		Images:      []string{"/api/images/" + upload.ID, "https://cdn.example.com/menu.jpg", " "},
		Video:       "/videos/" + clip.ID,
		Tags:        []string{"coffee", "#Brunch"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Fresh #Coffee and #pastries", post.Description)
	assert.Equal(t, "alice", post.Username)
	assert.ElementsMatch(t, []string{"/images/" + upload.ID, "https://cdn.example.com/menu.jpg"}, post.Images)
	assert.Equal(t, []string{"/videos/" + clip.ID}, post.Videos)
	assert.ElementsMatch(t, []string{"coffee", "brunch", "pastries"}, post.Tags)

	var attached models.PostImage
	require.NoError(t, suite.db.First(&attached, "id = ?", upload.ID).Error)
	require.NotNil(t, attached.PostID)
	assert.Equal(t, post.ID, *attached.PostID)
}

func (suite *EngagementTestSuite) TestCreatePostClaimsObjectStoreUpload() {
	t := suite.T()
	url := "https://media.example.com/media/2024/05/" + suite.alice.ID + "/a.jpg"
	upload := &models.PostImage{UserID: suite.alice.ID, ImageURL: url, MimeType: "image/jpeg"}
	require.NoError(t, suite.db.Create(upload).Error)

	post, err := suite.svc.CreatePost(suite.ctx, suite.alice, CreatePostInput{Description: "menu", Images: []string{url}})
	require.NoError(t, err)
	assert.Equal(t, []string{url}, post.Images)

	var count int64
	require.NoError(t, suite.db.Model(&models.PostImage{}).Where("image_url = ?", url).Count(&count).Error)
	assert.Equal(t, int64(1), count, "upload row reused, not duplicated")
}

func (suite *EngagementTestSuite) TestCreatePostValidation() {
	t := suite.T()

	_, err := suite.svc.CreatePost(suite.ctx, suite.alice, CreatePostInput{Images: []string{"https://x/y.jpg"}})
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "description", apiErr.Field)

	_, err = suite.svc.CreatePost(suite.ctx, suite.alice, CreatePostInput{Description: "no media"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "images", apiErr.Field)
}

func (suite *EngagementTestSuite) TestCreatePostDefaultsCategory() {
	post, err := suite.svc.CreatePost(suite.ctx, suite.alice, CreatePostInput{
		Description: "hello",
		Images:      []string{"https://cdn.example.com/a.jpg"},
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "all", post.Category)
}

func (suite *EngagementTestSuite) TestDeletePostOwnerOnly() {
	t := suite.T()
	_, _, err := suite.svc.ToggleLike(suite.ctx, suite.post.ID, suite.alice)
	require.NoError(t, err)

	assert.ErrorIs(t, suite.svc.DeletePost(suite.ctx, suite.post.ID, suite.alice), ErrNotPostOwner)

	require.NoError(t, suite.svc.DeletePost(suite.ctx, suite.post.ID, suite.bob))

	var likes int64
	require.NoError(t, suite.db.Model(&models.PostLike{}).Count(&likes).Error)
	assert.Zero(t, likes)

	assert.ErrorIs(t, suite.svc.DeletePost(suite.ctx, suite.post.ID, suite.bob), repository.ErrPostNotFound)
}

func TestMediaID(t *testing.T) {
	cases := []struct {
		ref string
		id  string
		ok  bool
	}{
		{"/images/abc", "abc", true},
		{"/api/images/abc", "abc", true},
		{"/images/", "", false},
		{"https://cdn.example.com/images/abc", "", false},
		{"photo.jpg", "", false},
	}
	for _, tc := range cases {
		id, ok := mediaID(tc.ref, imagePathPrefix)
		assert.Equal(t, tc.ok, ok, tc.ref)
		assert.Equal(t, tc.id, id, tc.ref)
	}
}

func TestPostTags(t *testing.T) {
	tags := postTags([]string{" Deals ", "#deals", ""}, "Weekend #sale on #Deals")
	assert.Equal(t, []string{"deals", "sale"}, tags)
}
