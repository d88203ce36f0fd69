package audit

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const streamWriteTimeout = 2 * time.Second

// StreamSink appends events to a Redis stream. Each entry carries the
// event type and the JSON-encoded event. With MaxLen set the stream is
// trimmed to roughly that many entries.
type StreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
	failed atomic.Uint64
}

func NewStreamSink(client redis.UniversalClient, stream string, maxLen int64) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Emit(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"type":  event.EventType,
			"event": string(data),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		s.failed.Add(1)
		log.Printf("learnauth: audit stream %s: %v", s.stream, err)
	}
}

// Failed returns how many events were not appended.
func (s *StreamSink) Failed() uint64 {
	return s.failed.Load()
}
