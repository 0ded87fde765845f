package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
)

const (
	DefaultBatchSize = 100
	DefaultInterval  = 10 * time.Minute
)

// StayCompleter はチェックアウト済みの確定予約を完了にするインターフェース
type StayCompleter interface {
	CompleteFinishedStays(ctx context.Context, limit int) (int, error)
}

// StayCompletionSweeper はチェックアウトを過ぎた確定予約を定期的に完了にするワーカー
type StayCompletionSweeper struct {
	reservationService StayCompleter
	interval           time.Duration
	batchSize          int
	stopCh             chan struct{}
	doneCh             chan struct{}
}

// NewStayCompletionSweeper は新しいスイーパーを作成
// 0以下の interval と batchSize は既定値に置き換える
func NewStayCompletionSweeper(rs StayCompleter, interval time.Duration, batchSize int) *StayCompletionSweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &StayCompletionSweeper{
		reservationService: rs,
		interval:           interval,
		batchSize:          batchSize,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start はスイーパーを開始
// 起動直後に1回実行し、以降は interval ごとに実行する
func (s *StayCompletionSweeper) Start(ctx context.Context) {
	logger.Info("滞在完了スイーパー開始",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("滞在完了スイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("滞在完了スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *StayCompletionSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep はバッチが埋まっている間は続けて処理する
func (s *StayCompletionSweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("滞在完了処理の開始")

	total := 0
	for {
		count, err := s.reservationService.CompleteFinishedStays(ctx, s.batchSize)
		total += count
		if err != nil {
			log.Error("滞在完了処理に失敗", zap.Error(err), zap.Int("completed", total))
			return
		}
		if count == 0 || count < s.batchSize || ctx.Err() != nil {
			break
		}
	}

	if total > 0 {
		log.Info("予約を完了にしました", zap.Int("count", total))
	} else {
		log.Debug("完了対象の予約なし")
	}
}
