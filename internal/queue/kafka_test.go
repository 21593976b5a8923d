package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/bizfeed/backend/internal/logger"
)

func TestProducerPublishDoesNotWaitForBroker(t *testing.T) {
	logger.InitializeNop()

	var (
		mu     sync.Mutex
		failed [][]byte
	)
	// Nothing listens on port 1, so every delivery attempt fails
	p := NewProducer([]string{"127.0.0.1:1"}, "notifications", func(key, value []byte, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.Error(t, err)
		assert.Equal(t, "bob", string(key))
		failed = append(failed, value)
	})
	defer p.Close()

	start := time.Now()
	require.NoError(t, p.Publish(context.Background(), "bob", []byte(`{"type":"like"}`)))
	assert.Less(t, time.Since(start), time.Second)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 1
	}, 30*time.Second, 50*time.Millisecond)
}
