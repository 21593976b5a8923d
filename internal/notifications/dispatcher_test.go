package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/bizfeed/backend/internal/database/dbtest"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/queue"
)

type published struct {
	key   string
	value []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{key: key, value: value})
	return nil
}

func droppedCount(typ string) float64 {
	return testutil.ToFloat64(metrics.Get().NotificationsDroppedTotal.WithLabelValues(typ))
}

func TestKafkaDispatcherRoundTrip(t *testing.T) {
	pub := &fakePublisher{}
	d := NewKafkaDispatcher(pub)

	d.Dispatch(context.Background(), Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationLike, Message: "liked your post", PostID: "p1"})
	d.Dispatch(context.Background(), Event{ActorUsername: "admin", Type: models.NotificationSystem, Message: "hello"})

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "bob", pub.sent[0].key)
	assert.Equal(t, "broadcast", pub.sent[1].key)

	ev, err := DecodeEvent(pub.sent[0].value)
	require.NoError(t, err)
	require.NotNil(t, ev.RecipientUsername)
	assert.Equal(t, "bob", *ev.RecipientUsername)
	assert.Equal(t, "p1", ev.PostID)

	broadcast, err := DecodeEvent(pub.sent[1].value)
	require.NoError(t, err)
	assert.Nil(t, broadcast.RecipientUsername)

	_, err = DecodeEvent([]byte("nope"))
	assert.Error(t, err)
}

func TestKafkaDispatcherSwallowsPublishErrors(t *testing.T) {
	before := droppedCount(models.NotificationComment)
	d := NewKafkaDispatcher(&fakePublisher{err: errors.New("broker down")})

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), Event{RecipientUsername: to("bob"), Type: models.NotificationComment})
	})
	assert.Equal(t, before+1, droppedCount(models.NotificationComment))
}

func TestDirectDispatcherSwallowsStoreErrors(t *testing.T) {
	db, err := dbtest.Open()
	require.NoError(t, err)
	defer dbtest.Close(db)

	d := NewDirectDispatcher(NewService(db))
	d.Dispatch(context.Background(), Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationLike})

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.Migrator().DropTable(&models.Notification{}))
	before := droppedCount(models.NotificationReview)
	d.Dispatch(context.Background(), Event{RecipientUsername: to("bob"), Type: models.NotificationReview})
	assert.Equal(t, before+1, droppedCount(models.NotificationReview))
}

func TestAsyncDispatcherWritesOnPool(t *testing.T) {
	db, err := dbtest.Open()
	require.NoError(t, err)
	defer dbtest.Close(db)

	pool := queue.NewPool("notifications", 2, 16)
	pool.Start()
	d := NewAsyncDispatcher(NewService(db), pool)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, Event{RecipientUsername: to("bob"), ActorUsername: "alice", Type: models.NotificationFollow})
	cancel()
	pool.Stop()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "request cancellation does not abort the insert")

	before := droppedCount(models.NotificationMention)
	d.Dispatch(context.Background(), Event{Type: models.NotificationMention})
	assert.Equal(t, before+1, droppedCount(models.NotificationMention), "stopped pool drops the event")
}

func TestPublishFailedCountsUndeliveredEvents(t *testing.T) {
	before := droppedCount(models.NotificationReview)
	payload := []byte(`{"recipientUsername":"bob","actorUsername":"alice","type":"review","message":"rated your post 4 stars"}`)

	PublishFailed([]byte("bob"), payload, errors.New("broker down"))
	assert.Equal(t, before+1, droppedCount(models.NotificationReview))

	garbled := droppedCount("unknown")
	PublishFailed(nil, []byte("{"), errors.New("broker down"))
	assert.Equal(t, garbled+1, droppedCount("unknown"))
}
