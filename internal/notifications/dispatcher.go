package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/queue"
	"github.com/zfogg/bizfeed/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Dispatcher delivers events without ever failing the caller
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

// DirectDispatcher writes the notification in the request path
type DirectDispatcher struct {
	svc *Service
}

func NewDirectDispatcher(svc *Service) *DirectDispatcher {
	return &DirectDispatcher{svc: svc}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, ev Event) {
	ctx, span := telemetry.TraceNotificationDispatch(ctx, "direct", ev.Type)
	defer span.End()

	if _, err := d.svc.Create(ctx, ev); err != nil {
		dropped(ev, err)
	}
}

// Submitter is the slice of queue.Pool the async dispatcher needs
type Submitter interface {
	Submit(job queue.Job) error
}

// AsyncDispatcher hands inserts to a worker pool so the request returns
// before the notification row is written.
type AsyncDispatcher struct {
	svc  *Service
	pool Submitter
}

func NewAsyncDispatcher(svc *Service, pool Submitter) *AsyncDispatcher {
	return &AsyncDispatcher{svc: svc, pool: pool}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, ev Event) {
	_, span := telemetry.TraceNotificationDispatch(ctx, "async", ev.Type)
	defer span.End()

	// The request context is cancelled once the response is written, so the
	// job runs on the pool's own context.
	err := d.pool.Submit(func(ctx context.Context) {
		if _, err := d.svc.Create(ctx, ev); err != nil {
			dropped(ev, err)
		}
	})
	if err != nil {
		dropped(ev, err)
	}
}

// Publisher is the slice of queue.Producer the Kafka dispatcher needs
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaDispatcher publishes events for cmd/notifier to persist
type KafkaDispatcher struct {
	pub Publisher
}

func NewKafkaDispatcher(pub Publisher) *KafkaDispatcher {
	return &KafkaDispatcher{pub: pub}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, ev Event) {
	ctx, span := telemetry.TraceNotificationDispatch(ctx, "kafka", ev.Type)
	defer span.End()

	payload, err := json.Marshal(ev)
	if err != nil {
		dropped(ev, fmt.Errorf("encode event: %w", err))
		return
	}

	key := "broadcast"
	if ev.RecipientUsername != nil {
		key = *ev.RecipientUsername
	}
	if err := d.pub.Publish(ctx, key, payload); err != nil {
		dropped(ev, err)
	}
}

// PublishFailed records an event the Kafka producer could not deliver after
// Dispatch already returned.
func PublishFailed(key, payload []byte, err error) {
	ev, decodeErr := DecodeEvent(payload)
	if decodeErr != nil {
		ev = Event{Type: "unknown"}
	}
	dropped(ev, err)
}

// DecodeEvent parses a payload produced by KafkaDispatcher
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode notification event: %w", err)
	}
	return ev, nil
}

func dropped(ev Event, err error) {
	metrics.Get().NotificationsDroppedTotal.WithLabelValues(ev.Type).Inc()

	recipient := "<broadcast>"
	if ev.RecipientUsername != nil {
		recipient = *ev.RecipientUsername
	}
	logger.WarnWithFields("notification dropped", err,
		zap.String("type", ev.Type),
		zap.String("recipient", recipient),
		zap.String("actor", ev.ActorUsername),
		zap.String("post_id", ev.PostID),
	)
}
