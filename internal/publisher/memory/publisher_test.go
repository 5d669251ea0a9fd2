package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csk-sniffer/imagefetch/internal/publisher/memory"
)

func TestPublishRecordsMessages(t *testing.T) {
	pub := memory.New()

	id, err := pub.Publish(context.Background(), "fetch-complete", map[string]any{"keyword": "boats"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "fetch-complete", map[string]any{"keyword": "planes"})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	messages := pub.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "fetch-complete", messages[0].Topic)
	assert.Equal(t, map[string]any{"keyword": "boats"}, messages[0].Payload)
}

func TestMessagesReturnsCopy(t *testing.T) {
	pub := memory.New()
	_, err := pub.Publish(context.Background(), "t", "payload")
	require.NoError(t, err)

	first := pub.Messages()
	first[0].Topic = "mutated"
	assert.Equal(t, "t", pub.Messages()[0].Topic)
}
