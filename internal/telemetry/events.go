package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zfogg/bizfeed/backend"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// TraceListPosts starts the span around one feed page assembly
func TraceListPosts(ctx context.Context, category, userID string, limit, offset int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.Int("feed.limit", limit),
		attribute.Int("feed.offset", offset),
	}
	if category != "" {
		attrs = append(attrs, attribute.String("feed.category", category))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String("feed.user_id", userID))
	}
	return tracer().Start(ctx, "feed.list_posts", trace.WithAttributes(attrs...))
}

// FacetFailed marks a degraded enrichment facet on the active span
func FacetFailed(ctx context.Context, facet string, err error) {
	trace.SpanFromContext(ctx).AddEvent("feed.facet_failed", trace.WithAttributes(
		attribute.String("feed.facet", facet),
		attribute.String("error", err.Error()),
	))
}

// TraceEngagement starts a span for a like, rating or comment on postID
func TraceEngagement(ctx context.Context, action, postID, userID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "engagement."+action, trace.WithAttributes(
		attribute.String("post.id", postID),
		attribute.String("user.id", userID),
	))
}

// TraceNotificationDispatch starts a span for handing one event to a dispatcher
func TraceNotificationDispatch(ctx context.Context, mode, notificationType string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "notification.dispatch", trace.WithAttributes(
		attribute.String("notification.mode", mode),
		attribute.String("notification.type", notificationType),
	))
}

// TraceMessageSend starts a span for a direct message
func TraceMessageSend(ctx context.Context, senderID, conversationID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("user.id", senderID)}
	if conversationID != "" {
		attrs = append(attrs, attribute.String("conversation.id", conversationID))
	}
	return tracer().Start(ctx, "messaging.send", trace.WithAttributes(attrs...))
}

// End records err, if any, and ends span
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
