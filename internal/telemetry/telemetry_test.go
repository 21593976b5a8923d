package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/database/dbtest"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestGORMTracingPlugin(t *testing.T) {
	recorder := installRecorder(t)

	db, err := dbtest.Open()
	require.NoError(t, err)
	defer dbtest.Close(db)
	require.NoError(t, db.Use(GORMTracingPlugin()))

	ctx := context.Background()
	user := &models.User{Username: "traced", Email: "traced@example.com", PasswordHash: "x"}
	require.NoError(t, db.WithContext(ctx).Create(user).Error)

	var found models.User
	require.NoError(t, db.WithContext(ctx).First(&found, "id = ?", user.ID).Error)

	var missing models.User
	err = db.WithContext(ctx).First(&missing, "id = ?", "nope").Error
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "db.insert", spans[0].Name())
	system, ok := attr(spans[0].Attributes(), "db.system")
	require.True(t, ok)
	assert.Equal(t, "sqlite", system.AsString())
	table, _ := attr(spans[0].Attributes(), "db.sql.table")
	assert.Equal(t, "users", table.AsString())

	assert.Equal(t, "db.select", spans[1].Name())
	stmt, ok := attr(spans[1].Attributes(), "db.statement")
	require.True(t, ok)
	assert.Contains(t, stmt.AsString(), "users")

	assert.NotEqual(t, codes.Error, spans[2].Status().Code, "a miss is not a span error")
}

func TestDomainSpans(t *testing.T) {
	recorder := installRecorder(t)
	ctx := context.Background()

	ctx, span := TraceListPosts(ctx, "food", "", 20, 0)
	FacetFailed(ctx, "tags", errors.New("no such table"))
	End(span, nil)

	_, span = TraceEngagement(context.Background(), "like", "p1", "u1")
	End(span, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	feed := spans[0]
	assert.Equal(t, "feed.list_posts", feed.Name())
	category, _ := attr(feed.Attributes(), "feed.category")
	assert.Equal(t, "food", category.AsString())
	_, hasUser := attr(feed.Attributes(), "feed.user_id")
	assert.False(t, hasUser)
	require.Len(t, feed.Events(), 1)
	assert.Equal(t, "feed.facet_failed", feed.Events()[0].Name)

	like := spans[1]
	assert.Equal(t, "engagement.like", like.Name())
	assert.Equal(t, codes.Error, like.Status().Code)
}

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), config.TelemetryConfig{Enabled: false}, "test")
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestDBSystem(t *testing.T) {
	assert.Equal(t, "postgresql", dbSystem("postgres"))
	assert.Equal(t, "sqlite", dbSystem("sqlite"))
	assert.Equal(t, "mysql", dbSystem("mysql"))
}
