package store

import (
	"context"

	"github.com/go-redis/redis/v8"

	rediscommon "github.com/codemonkey0612/aikan-cloud-sub001/internal/common/redis"
)

// StreamPublisher 将事件写入 Redis Streams
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish 发布 JSON 事件，返回消息 ID
func (p *StreamPublisher) Publish(ctx context.Context, event any) (string, error) {
	return rediscommon.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, event)
}
