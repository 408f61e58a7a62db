package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamClient is the subset of the Redis client used by the mirror.
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// StreamMirror fans status updates out to a Redis stream so consumers on
// other instances can follow a calculation. Publishing is best-effort: a
// failed write is logged and dropped, never surfaced to the calculation.
type StreamMirror struct {
	client  StreamClient
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *slog.Logger
}

// NewStreamMirror creates a mirror writing to the given stream key.
func NewStreamMirror(client StreamClient, stream string) *StreamMirror {
	return &StreamMirror{
		client:  client,
		stream:  stream,
		maxLen:  1000,
		timeout: 2 * time.Second,
		logger:  slog.Default().With("component", "status_mirror"),
	}
}

// Publish writes one update to the stream, tagged with its request id.
func (m *StreamMirror) Publish(requestID string, update Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		m.logger.Error("failed to marshal status update", "request_id", requestID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		MaxLen: m.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"request_id": requestID,
			"status":     string(payload),
		},
	}).Err()
	if err != nil {
		m.logger.Error("failed to publish status update", "request_id", requestID, "error", err)
	}
}
