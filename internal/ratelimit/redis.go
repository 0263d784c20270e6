package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the distributed variant of Limiter: the same rolling
// (timestamp, weight) log algorithm, but the log lives in a Redis sorted
// set keyed per provider so every process sharing one provider's weight
// budget is throttled together.
//
// Opt-in: the default deployment uses the in-process Limiter; RedisLimiter
// is for a multi-instance deployment that needs a shared budget, not a
// requirement of a single-instance one.
type RedisLimiter struct {
	client *redis.Client
	key    string
	budget int

	now   func() time.Time
	sleep func(time.Duration)
}

var _ WindowLimiter = (*RedisLimiter)(nil)

// NewRedisLimiter builds a distributed limiter sharing budget with every
// other process using the same client and key.
func NewRedisLimiter(client *redis.Client, key string, budget int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		key:    key,
		budget: budget,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// AcquireContext blocks until weight w fits within the shared 60s rolling
// window, identically to Limiter.AcquireContext but coordinated through
// Redis: each member of the sorted set is "<nanos>-<weight>" scored by its
// timestamp, evicted with ZREMRANGEBYSCORE, summed by scanning the
// surviving members.
func (r *RedisLimiter) AcquireContext(ctx context.Context, w int) error {
	for {
		now := r.now()
		cutoff := now.Add(-window)

		pipe := r.client.TxPipeline()
		pipe.ZRemRangeByScore(ctx, r.key, "-inf", scoreOf(cutoff))
		membersCmd := pipe.ZRangeWithScores(ctx, r.key, 0, -1)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}

		sum := 0
		var oldest time.Time
		for i, m := range membersCmd.Val() {
			weight := weightOf(m.Member.(string))
			sum += weight
			ts := scoreToTime(m.Score)
			if i == 0 || ts.Before(oldest) {
				oldest = ts
			}
		}

		if sum+w <= r.budget || len(membersCmd.Val()) == 0 {
			member := memberOf(now, w)
			if err := r.client.ZAdd(ctx, r.key, redis.Z{Score: scoreOf(now), Member: member}).Err(); err != nil {
				return err
			}
			return nil
		}

		wait := window - now.Sub(oldest) + buffer
		if wait < 0 {
			wait = buffer
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.sleep(wait)
	}
}

func scoreOf(t time.Time) float64 { return float64(t.UnixNano()) }

func scoreToTime(score float64) time.Time { return time.Unix(0, int64(score)) }

// memberOf encodes (timestamp, weight) into one sorted-set member; the
// timestamp is also the score, so the encoding only needs to carry the
// weight back out, but including it keeps entries unique under concurrent
// writers at the same nanosecond.
func memberOf(t time.Time, weight int) string {
	return fmt.Sprintf("%d-%d", t.UnixNano(), weight)
}

func weightOf(member string) int {
	parts := strings.SplitN(member, "-", 2)
	if len(parts) != 2 {
		return 0
	}
	w, _ := strconv.Atoi(parts[1])
	return w
}
