package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProgressLedger stores passed segment ids in one Redis set per client and video so every
// service instance sees the same progress:
//
//	SADD progress:{clientID}:{videoID} {segmentID}
//
// Each pass slides the key's TTL; a zero TTL keeps keys until Redis evicts them.
type ProgressLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressLedger(client *redis.Client, ttl time.Duration) *ProgressLedger {
	return &ProgressLedger{client: client, ttl: ttl}
}

// Passed returns the passed set. A missing key is an empty set.
func (l *ProgressLedger) Passed(ctx context.Context, clientID, videoID string) (map[string]struct{}, error) {
	members, err := l.client.SMembers(ctx, l.key(clientID, videoID)).Result()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	return set, nil
}

func (l *ProgressLedger) MarkPassed(ctx context.Context, clientID, videoID, segmentID string) error {
	key := l.key(clientID, videoID)
	pipe := l.client.TxPipeline()
	pipe.SAdd(ctx, key, segmentID)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (l *ProgressLedger) key(clientID, videoID string) string {
	return "progress:" + clientID + ":" + videoID
}
