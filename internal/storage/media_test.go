package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/bizfeed/backend/internal/database/dbtest"
	"github.com/zfogg/bizfeed/backend/internal/config"
	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"gorm.io/gorm"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

type fakeObjectStore struct {
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = data
	return publicURL("https://media.example.com", key), nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) CheckBucketAccess(context.Context) error { return nil }

type MediaTestSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context
}

func (suite *MediaTestSuite) SetupTest() {
	db, err := dbtest.Open()
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()
}

func (suite *MediaTestSuite) TearDownTest() {
	dbtest.Close(suite.db)
}

func (suite *MediaTestSuite) TestDatabaseDriverStoresBlob() {
	t := suite.T()
	svc := NewMediaService(suite.db, nil, 1<<20)

	res, err := svc.Store(suite.ctx, Upload{UserID: "u1", Filename: "logo.png", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, KindImage, res.Kind)
	assert.Equal(t, "/images/"+res.ID, res.URL)
	assert.Empty(t, res.Key)

	var row models.PostImage
	require.NoError(t, suite.db.First(&row, "id = ?", res.ID).Error)
	assert.Nil(t, row.PostID, "unattached until a post claims it")
	assert.Equal(t, pngHeader, row.ImageData)
	assert.Equal(t, int64(len(pngHeader)), row.FileSize)

	blob, err := svc.Blob(suite.ctx, KindImage, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.MimeType)
	assert.Equal(t, pngHeader, blob.Data)
}

func (suite *MediaTestSuite) TestVideoUpload() {
	t := suite.T()
	svc := NewMediaService(suite.db, nil, 1<<20)

	res, err := svc.Store(suite.ctx, Upload{UserID: "u1", Filename: "clip.mp4", ContentType: "video/mp4", Data: []byte("not really a video")})
	require.NoError(t, err)
	assert.Equal(t, KindVideo, res.Kind)
	assert.Equal(t, "/videos/"+res.ID, res.URL)

	_, err = svc.Blob(suite.ctx, KindImage, res.ID)
	assert.True(t, errors.Is(err, ErrMediaNotFound), "videos are not served as images")
}

func (suite *MediaTestSuite) TestObjectStoreDriver() {
	t := suite.T()
	objects := newFakeObjectStore()
	svc := NewMediaService(suite.db, objects, 1<<20)
	svc.now = func() time.Time { return time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC) }

	res, err := svc.Store(suite.ctx, Upload{UserID: "u1", Filename: "Logo.PNG", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^media/2024/05/u1/[0-9a-f-]{36}\.png$`), res.Key)
	assert.Equal(t, "https://media.example.com/"+res.Key, res.URL)
	assert.Contains(t, objects.objects, res.Key)

	var row models.PostImage
	require.NoError(t, suite.db.First(&row, "id = ?", res.ID).Error)
	assert.Equal(t, res.URL, row.ImageURL)
	assert.Empty(t, row.ImageData)

	_, err = svc.Blob(suite.ctx, KindImage, res.ID)
	assert.True(t, errors.Is(err, ErrMediaNotFound), "url-only rows have no blob to serve")
}

func (suite *MediaTestSuite) TestObjectRemovedWhenRowFails() {
	t := suite.T()
	objects := newFakeObjectStore()
	svc := NewMediaService(suite.db, objects, 1<<20)
	require.NoError(t, suite.db.Migrator().DropTable(&models.PostImage{}))

	_, err := svc.Store(suite.ctx, Upload{UserID: "u1", ContentType: "image/png", Data: pngHeader})
	require.Error(t, err)
	require.Len(t, objects.deleted, 1)
	assert.Empty(t, objects.objects)
}

func (suite *MediaTestSuite) TestObjectStoreFailure() {
	objects := newFakeObjectStore()
	objects.putErr = errors.New("bucket gone")
	svc := NewMediaService(suite.db, objects, 1<<20)

	_, err := svc.Store(suite.ctx, Upload{UserID: "u1", ContentType: "image/png", Data: pngHeader})
	require.Error(suite.T(), err)

	var count int64
	require.NoError(suite.T(), suite.db.Model(&models.PostImage{}).Count(&count).Error)
	assert.Zero(suite.T(), count)
}

func (suite *MediaTestSuite) TestRejectedUploads() {
	t := suite.T()
	svc := NewMediaService(suite.db, nil, 8)

	_, err := svc.Store(suite.ctx, Upload{UserID: "u1", ContentType: "image/png"})
	assert.True(t, errors.Is(err, ErrEmptyUpload))

	_, err = svc.Store(suite.ctx, Upload{UserID: "u1", ContentType: "image/png", Data: pngHeader})
	apiErr := apierrors.FromError(err)
	assert.Equal(t, 413, apiErr.Status)

	_, err = svc.Store(suite.ctx, Upload{UserID: "u1", Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hi")})
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))
}

func (suite *MediaTestSuite) TestBlobMissing() {
	svc := NewMediaService(suite.db, nil, 0)
	_, err := svc.Blob(suite.ctx, KindVideo, "missing")
	assert.True(suite.T(), apierrors.IsNotFound(err))
}

func (suite *MediaTestSuite) TestBlobDefaultsMimeType() {
	t := suite.T()
	row := &models.PostVideo{UserID: "u1", VideoData: []byte{1, 2, 3}}
	require.NoError(t, suite.db.Create(row).Error)

	blob, err := NewMediaService(suite.db, nil, 0).Blob(suite.ctx, KindVideo, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", blob.MimeType)
}

func TestMediaTestSuite(t *testing.T) {
	suite.Run(t, new(MediaTestSuite))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		data        []byte
		kind        Kind
		mime        string
		ok          bool
	}{
		{"declared image", "image/webp", "", nil, KindImage, "image/webp", true},
		{"params stripped", "video/mp4; codecs=avc1", "", nil, KindVideo, "video/mp4", true},
		{"extension fallback", "application/octet-stream", "clip.MOV", nil, KindVideo, "video/quicktime", true},
		{"sniffed", "", "upload", pngHeader, KindImage, "image/png", true},
		{"text rejected", "text/plain", "a.txt", []byte("hello"), "", "text/plain", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, mime, ok := KindOf(tt.contentType, tt.filename, tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.mime, mime)
		})
	}
}

func TestGetContentType(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".jpg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".webp", "image/webp"},
		{".mp4", "video/mp4"},
		{".mov", "video/quicktime"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.expected, getContentType(tt.extension))
		})
	}
}

func TestMediaKey(t *testing.T) {
	key := MediaKey(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), "user-7", ".JPG")
	assert.Regexp(t, `^media/2025/01/user-7/[0-9a-f-]{36}\.jpg$`, key)
	assert.NotEqual(t, key, MediaKey(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), "user-7", ".JPG"))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("a.png", "image/jpeg"))
	assert.Equal(t, ".jpg", extensionFor("blob", "image/jpeg"))
	assert.Equal(t, "", extensionFor("blob", "image/x-unknown"))
}

func TestNewObjectStoreDatabaseDriver(t *testing.T) {
	store, err := NewObjectStore(context.Background(), testStorageConfig("database"))
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = NewObjectStore(context.Background(), testStorageConfig("ftp"))
	assert.Error(t, err)
}

func testStorageConfig(driver string) config.StorageConfig {
	return config.StorageConfig{Driver: driver}
}
