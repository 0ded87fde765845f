package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	redisinfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
)

// ErrRoomBusy は同じ客室への書き込みが処理中で分散ロックを取得できなかった場合のエラー
var ErrRoomBusy = fmt.Errorf("%w: 客室は他のリクエストが処理中です", reservation.ErrConflict)

// lockRoom は客室単位の分散ロックを取得し、解放関数を返す
// Redis 自体に到達できない場合は行ロックのみで続行する
func lockRoom(ctx context.Context, lm redisinfra.LockManagerInterface, o *serviceOptions, roomID string) (func(), error) {
	if lm == nil {
		return func() {}, nil
	}
	lock, err := lm.AcquireLockWithRetry(ctx, redisinfra.RoomLockKey(roomID), o.lockTTL, defaultLockRetries, defaultLockRetryDelay)
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return nil, ErrRoomBusy
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("分散ロックを取得できないため行ロックのみで続行します", zap.String("room_id", roomID), zap.Error(err))
		return func() {}, nil
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("分散ロックの解放に失敗", zap.String("room_id", roomID), zap.Error(err))
		}
	}, nil
}

// invalidateAvailability は客室の空室キャッシュを破棄する
func invalidateAvailability(ctx context.Context, cache redisinfra.AvailabilityCacheInterface, roomID string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, roomID); err != nil {
		logger.Warn("空室キャッシュの無効化に失敗", zap.String("room_id", roomID), zap.Error(err))
	}
}
