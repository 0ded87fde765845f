package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/stay"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// 世代が読み取り時から変わっていなければ保存する
var setIfGenerationScript = redis.NewScript(`
	local gen = redis.call("GET", KEYS[2])
	if (gen or "0") ~= ARGV[1] then
		return 0
	end
	redis.call("HSET", KEYS[1], ARGV[2], ARGV[3])
	redis.call("PEXPIRE", KEYS[1], ARGV[4])
	return 1
`)

// AvailabilityCacheInterface は空室判定結果のキャッシュ
type AvailabilityCacheInterface interface {
	Get(ctx context.Context, roomID string, r stay.Range) (bool, error)
	Generation(ctx context.Context, roomID string) (int64, error)
	Set(ctx context.Context, roomID string, r stay.Range, gen int64, available bool, ttl time.Duration) error
	Invalidate(ctx context.Context, roomID string) error
}

// AvailabilityCache は客室ごとのハッシュに期間単位の空室判定を保存する
// 予約の作成・変更時に客室単位で丸ごと無効化し、世代を1つ進める
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// Get はキャッシュ済みの空室判定を返す
func (c *AvailabilityCache) Get(ctx context.Context, roomID string, r stay.Range) (bool, error) {
	val, err := c.client.HGet(ctx, roomKey(roomID), rangeField(r)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, ErrCacheMiss
		}
		return false, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val == "1", nil
}

// Generation は客室キャッシュの現在の世代を返す
// 判定の材料を読む前に取得し、Set に渡す
func (c *AvailabilityCache) Generation(ctx context.Context, roomID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(roomID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("キャッシュ世代の取得に失敗: %w", err)
	}
	return gen, nil
}

// Set は空室判定を保存する
// gen 取得後に無効化されていた場合は何も保存しない
// TTL は客室のハッシュ全体に掛かる
func (c *AvailabilityCache) Set(ctx context.Context, roomID string, r stay.Range, gen int64, available bool, ttl time.Duration) error {
	val := "0"
	if available {
		val = "1"
	}
	keys := []string{roomKey(roomID), generationKey(roomID)}
	if err := setIfGenerationScript.Run(ctx, c.client, keys, gen, rangeField(r), val, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は客室のキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, roomID string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, generationKey(roomID))
	pipe.Del(ctx, roomKey(roomID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func roomKey(roomID string) string {
	return fmt.Sprintf("availability:room:%s", roomID)
}

func generationKey(roomID string) string {
	return fmt.Sprintf("availability:gen:room:%s", roomID)
}

func rangeField(r stay.Range) string {
	return r.CheckIn.UTC().Format(time.RFC3339) + "|" + r.CheckOut.UTC().Format(time.RFC3339)
}

var _ AvailabilityCacheInterface = (*AvailabilityCache)(nil)
