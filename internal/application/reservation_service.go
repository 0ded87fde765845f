package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/pricing"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/stay"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
	kafkainfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/kafka"
	redisinfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/refcode"
)

const defaultUpcomingDays = 7

type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	roomRepo        room.Repository
	paymentRepo     payment.Repository
	lockManager     redisinfra.LockManagerInterface
	cache           redisinfra.AvailabilityCacheInterface
	opts            serviceOptions
}

// NewReservationService は予約サービスを作成する
// lockManager と cache は nil 可（Redis 無効時）
func NewReservationService(
	txm transaction.Manager,
	rr reservation.Repository,
	roomRepo room.Repository,
	pr payment.Repository,
	lm redisinfra.LockManagerInterface,
	cache redisinfra.AvailabilityCacheInterface,
	opts ...Option,
) *ReservationService {
	return &ReservationService{
		txManager:       txm,
		reservationRepo: rr,
		roomRepo:        roomRepo,
		paymentRepo:     pr,
		lockManager:     lm,
		cache:           cache,
		opts:            newServiceOptions(opts),
	}
}

type CheckAvailabilityInput struct {
	RoomID               string
	CheckIn              time.Time
	CheckOut             time.Time
	ExcludeReservationID string
}

// CheckAvailability は客室が期間内に予約可能かを返す
// 書き込みを伴わないため何度呼んでも同じ結果になる
func (s *ReservationService) CheckAvailability(ctx context.Context, input CheckAvailabilityInput) (bool, error) {
	period, err := stay.NewRange(input.CheckIn, input.CheckOut)
	if err != nil {
		return false, err
	}
	rm, err := s.roomRepo.GetByID(ctx, input.RoomID)
	if err != nil {
		return false, err
	}
	if !rm.IsAvailable {
		return false, nil
	}

	// 自分自身を除外する判定はキャッシュしない
	useCache := s.cache != nil && input.ExcludeReservationID == ""
	if useCache {
		free, err := s.cache.Get(ctx, rm.ID, period)
		switch {
		case err == nil:
			s.observeCache("hit")
			return free, nil
		case errors.Is(err, redisinfra.ErrCacheMiss):
			s.observeCache("miss")
		default:
			s.observeCache("error")
			logger.Warn("空室キャッシュの取得に失敗", zap.String("room_id", rm.ID), zap.Error(err))
		}
	}

	// 読み取り中に無効化された判定を書き戻さないよう、先に世代を控える
	var gen int64
	if useCache {
		if gen, err = s.cache.Generation(ctx, rm.ID); err != nil {
			logger.Warn("空室キャッシュの世代取得に失敗", zap.String("room_id", rm.ID), zap.Error(err))
			useCache = false
		}
	}

	active, err := s.reservationRepo.ListActiveByRoom(ctx, nil, rm.ID)
	if err != nil {
		return false, fmt.Errorf("客室の予約取得に失敗: %w", err)
	}
	free := stay.IsFree(rm.IsAvailable, period, reservation.Blocks(active), input.ExcludeReservationID)

	if useCache {
		if err := s.cache.Set(ctx, rm.ID, period, gen, free, s.opts.cacheTTL); err != nil {
			logger.Warn("空室キャッシュの保存に失敗", zap.String("room_id", rm.ID), zap.Error(err))
		}
	}
	return free, nil
}

func (s *ReservationService) observeCache(result string) {
	if s.opts.metrics != nil {
		s.opts.metrics.AvailabilityCacheTotal.WithLabelValues(result).Inc()
	}
}

type CreateReservationInput struct {
	UserID     string
	RoomID     string
	CheckIn    time.Time
	CheckOut   time.Time
	GuestCount int
	Notes      string
}

// CreateReservation は保留中の予約を作成する
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (res *reservation.Reservation, err error) {
	defer func() { s.opts.observeReservation("create", err) }()

	if input.UserID == "" {
		return nil, reservation.ErrUserIDRequired
	}
	if input.RoomID == "" {
		return nil, reservation.ErrRoomIDRequired
	}
	period, err := stay.NewRange(input.CheckIn, input.CheckOut)
	if err != nil {
		return nil, err
	}
	now := s.opts.now()
	if period.CheckInBefore(now) {
		return nil, reservation.ErrCheckInInPast
	}
	if input.GuestCount <= 0 {
		return nil, reservation.ErrInvalidGuestCount
	}

	release, err := lockRoom(ctx, s.lockManager, &s.opts, input.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	// 予約番号の衝突は番号を作り直して再試行する
	for attempt := 0; attempt < refcode.DefaultAttempts; attempt++ {
		var ref string
		ref, err = refcode.Unique(ctx, refcode.Reservation, s.reservationRepo.ExistsByReference, refcode.DefaultAttempts)
		if err != nil {
			return nil, err
		}
		err = s.opts.withRetry("create", func() error {
			res, err = s.create(ctx, input, period, ref, now)
			return err
		})
		if !errors.Is(err, reservation.ErrReferenceCollision) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	invalidateAvailability(ctx, s.cache, res.RoomID)
	s.opts.publishReservation(ctx, kafkainfra.EventReservationCreated, res)
	logger.Info("予約を作成しました",
		zap.String("reservation_id", res.ID),
		zap.String("reference", res.Reference),
		zap.String("room_id", res.RoomID),
	)
	return res, nil
}

func (s *ReservationService) create(ctx context.Context, input CreateReservationInput, period stay.Range, ref string, now time.Time) (*reservation.Reservation, error) {
	var res *reservation.Reservation
	err := runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
		rm, err := s.roomRepo.GetByIDForUpdate(ctx, tx, input.RoomID)
		if err != nil {
			return err
		}
		if !rm.IsAvailable {
			return reservation.ErrRoomUnavailable
		}
		if !rm.Accommodates(input.GuestCount) {
			return fmt.Errorf("%w: 定員 %d 名に対して %d 名", reservation.ErrCapacityExceeded, rm.Capacity, input.GuestCount)
		}
		quote, err := pricing.Calculate(period, rm.PricePerNight)
		if err != nil {
			return err
		}
		if err := s.ensureFree(ctx, tx, rm.ID, period, ""); err != nil {
			return err
		}

		res = reservation.NewReservation(input.UserID, rm.ID, period, input.GuestCount, input.Notes, quote, now)
		res.Reference = ref
		if err := res.Validate(); err != nil {
			return err
		}
		return s.reservationRepo.Create(ctx, tx, res)
	})
	return res, err
}

// ensureFree はロック下で客室の占有中予約と期間が重ならないことを確認する
func (s *ReservationService) ensureFree(ctx context.Context, tx transaction.Tx, roomID string, period stay.Range, excludeID string) error {
	active, err := s.reservationRepo.ListActiveByRoom(ctx, tx, roomID)
	if err != nil {
		return err
	}
	if b, ok := stay.FindConflict(period, reservation.Blocks(active), excludeID); ok {
		return fmt.Errorf("%w: 予約 %s と期間が重なります", reservation.ErrConflict, b.ReservationID)
	}
	return nil
}

// ConfirmReservation は保留中の予約を確定する（管理者のみ）
// 確定時点で空室を再確認する
func (s *ReservationService) ConfirmReservation(ctx context.Context, id string, actor reservation.Actor) (res *reservation.Reservation, err error) {
	defer func() { s.opts.observeReservation("confirm", err) }()

	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	current, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := lockRoom(ctx, s.lockManager, &s.opts, current.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.opts.withRetry("confirm", func() error {
		return runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
			rm, err := s.roomRepo.GetByIDForUpdate(ctx, tx, current.RoomID)
			if err != nil {
				return err
			}
			res, err = s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if !res.IsPending() {
				return reservation.ErrReservationNotPending
			}
			if !rm.IsAvailable {
				return reservation.ErrRoomUnavailable
			}
			if err := s.ensureFree(ctx, tx, rm.ID, res.Stay(), res.ID); err != nil {
				return err
			}
			if err := res.Confirm(s.opts.now()); err != nil {
				return err
			}
			return s.reservationRepo.Update(ctx, tx, res)
		})
	})
	if err != nil {
		return nil, err
	}

	s.opts.publishReservation(ctx, kafkainfra.EventReservationConfirmed, res)
	logger.Info("予約を確定しました", zap.String("reservation_id", res.ID))
	return res, nil
}

// CancelReservation は予約をキャンセルする（所有者または管理者）
func (s *ReservationService) CancelReservation(ctx context.Context, id string, actor reservation.Actor) (res *reservation.Reservation, err error) {
	defer func() { s.opts.observeReservation("cancel", err) }()

	err = s.opts.withRetry("cancel", func() error {
		return runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
			res, err = s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := actor.CanAccess(res); err != nil {
				return err
			}
			if err := res.Cancel(s.opts.now()); err != nil {
				return err
			}
			return s.reservationRepo.Update(ctx, tx, res)
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateAvailability(ctx, s.cache, res.RoomID)
	s.opts.publishReservation(ctx, kafkainfra.EventReservationCancelled, res)
	logger.Info("予約をキャンセルしました", zap.String("reservation_id", res.ID))
	return res, nil
}

// UpdateReservationInput は変更する項目のみ設定する
type UpdateReservationInput struct {
	CheckIn    *time.Time
	CheckOut   *time.Time
	GuestCount *int
	Notes      *string
}

func (in UpdateReservationInput) changesDates() bool {
	return in.CheckIn != nil || in.CheckOut != nil
}

// UpdateReservation は日程・人数・備考を変更する
// 日程変更時は自分自身を除いて空室を再確認し、現在の料金で再計算する
func (s *ReservationService) UpdateReservation(ctx context.Context, id string, input UpdateReservationInput, actor reservation.Actor) (res *reservation.Reservation, err error) {
	defer func() { s.opts.observeReservation("update", err) }()

	current, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.CheckMutable(actor); err != nil {
		return nil, err
	}

	if input.changesDates() {
		release, err := lockRoom(ctx, s.lockManager, &s.opts, current.RoomID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var rescheduled bool
	err = s.opts.withRetry("update", func() error {
		return runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
			rm, err := s.roomRepo.GetByIDForUpdate(ctx, tx, current.RoomID)
			if err != nil {
				return err
			}
			res, err = s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := res.CheckMutable(actor); err != nil {
				return err
			}
			now := s.opts.now()

			if input.changesDates() {
				rescheduled, err = s.reschedule(ctx, tx, res, rm, input, now)
				if err != nil {
					return err
				}
			}
			if input.GuestCount != nil {
				if err := res.ChangeGuestCount(*input.GuestCount, rm.Capacity, now); err != nil {
					if errors.Is(err, reservation.ErrCapacityExceeded) {
						return fmt.Errorf("%w: 定員 %d 名に対して %d 名", err, rm.Capacity, *input.GuestCount)
					}
					return err
				}
			}
			if input.Notes != nil {
				res.ChangeNotes(*input.Notes, now)
			}
			return s.reservationRepo.Update(ctx, tx, res)
		})
	})
	if err != nil {
		return nil, err
	}

	if rescheduled {
		invalidateAvailability(ctx, s.cache, res.RoomID)
	}
	s.opts.publishReservation(ctx, kafkainfra.EventReservationUpdated, res)
	return res, nil
}

func (s *ReservationService) reschedule(ctx context.Context, tx transaction.Tx, res *reservation.Reservation, rm *room.Room, input UpdateReservationInput, now time.Time) (bool, error) {
	period := res.Stay()
	if input.CheckIn != nil {
		period.CheckIn = *input.CheckIn
	}
	if input.CheckOut != nil {
		period.CheckOut = *input.CheckOut
	}
	if period.CheckIn.Equal(res.CheckIn) && period.CheckOut.Equal(res.CheckOut) {
		return false, nil
	}
	if err := period.Validate(); err != nil {
		return false, err
	}
	if !period.CheckIn.Equal(res.CheckIn) && period.CheckInBefore(now) {
		return false, reservation.ErrCheckInInPast
	}
	if !rm.IsAvailable {
		return false, reservation.ErrRoomUnavailable
	}
	quote, err := pricing.Calculate(period, rm.PricePerNight)
	if err != nil {
		return false, err
	}
	if err := s.ensureFree(ctx, tx, rm.ID, period, res.ID); err != nil {
		return false, err
	}
	res.Reschedule(period, quote, now)
	return true, nil
}

// DeleteReservation は支払いのない予約を削除する（管理者のみ）
func (s *ReservationService) DeleteReservation(ctx context.Context, id string, actor reservation.Actor) (err error) {
	defer func() { s.opts.observeReservation("delete", err) }()

	if err := actor.RequireAdmin(); err != nil {
		return err
	}

	var res *reservation.Reservation
	err = s.opts.withRetry("delete", func() error {
		return runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
			res, err = s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			count, err := s.paymentRepo.CountByReservation(ctx, tx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: 支払い %d 件", reservation.ErrHasPayments, count)
			}
			return s.reservationRepo.Delete(ctx, tx, id)
		})
	})
	if err != nil {
		return err
	}

	invalidateAvailability(ctx, s.cache, res.RoomID)
	s.opts.publishReservation(ctx, kafkainfra.EventReservationDeleted, res)
	logger.Info("予約を削除しました", zap.String("reservation_id", id))
	return nil
}

// GetReservation は予約を取得する（所有者または管理者）
func (s *ReservationService) GetReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CanAccess(res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListReservations は予約一覧を取得する
// 管理者以外は自分の予約のみ
func (s *ReservationService) ListReservations(ctx context.Context, filter reservation.ListFilter, actor reservation.Actor) ([]*reservation.Reservation, error) {
	if !actor.IsAdmin {
		filter.UserID = actor.UserID
	}
	return s.reservationRepo.List(ctx, filter)
}

// GetReservationStats は予約の集計値を取得する（管理者のみ）
func (s *ReservationService) GetReservationStats(ctx context.Context, hotelID string, actor reservation.Actor) (*reservation.Stats, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	now := s.opts.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	stats, err := s.reservationRepo.Stats(ctx, hotelID, monthStart)
	if err != nil {
		return nil, err
	}
	if m := s.opts.metrics; m != nil && hotelID == "" {
		m.ReservationsByStatus.WithLabelValues(string(reservation.StatusPending)).Set(float64(stats.Pending))
		m.ReservationsByStatus.WithLabelValues(string(reservation.StatusConfirmed)).Set(float64(stats.Confirmed))
		m.ReservationsByStatus.WithLabelValues(string(reservation.StatusCancelled)).Set(float64(stats.Cancelled))
		m.ReservationsByStatus.WithLabelValues(string(reservation.StatusCompleted)).Set(float64(stats.Completed))
	}
	return stats, nil
}

// ListUpcomingReservations は今日から daysAhead 日後までにチェックインする確定済み予約を取得する（管理者のみ）
func (s *ReservationService) ListUpcomingReservations(ctx context.Context, daysAhead int, actor reservation.Actor) ([]*reservation.Reservation, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if daysAhead <= 0 {
		daysAhead = defaultUpcomingDays
	}
	today := stay.DateOf(s.opts.now())
	return s.reservationRepo.ListUpcoming(ctx, today, today.AddDate(0, 0, daysAhead+1))
}

// ListCurrentGuests は現在滞在中の確定済み予約を取得する（管理者のみ）
func (s *ReservationService) ListCurrentGuests(ctx context.Context, hotelID string, actor reservation.Actor) ([]*reservation.Reservation, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.reservationRepo.ListCurrentGuests(ctx, hotelID, s.opts.now())
}

// CompleteFinishedStays はチェックアウトを過ぎた確定済み予約を完了にし、完了件数を返す
// 1件ごとに別トランザクションで処理し、失敗した予約は次回に持ち越す
func (s *ReservationService) CompleteFinishedStays(ctx context.Context, limit int) (int, error) {
	now := s.opts.now()
	candidates, err := s.reservationRepo.ListFinishedConfirmed(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("完了対象の予約取得に失敗: %w", err)
	}

	completed := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		var res *reservation.Reservation
		err := s.opts.withRetry("complete", func() error {
			return runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
				var err error
				res, err = s.reservationRepo.GetByIDForUpdate(ctx, tx, c.ID)
				if err != nil {
					return err
				}
				if err := res.Complete(now); err != nil {
					return err
				}
				return s.reservationRepo.Update(ctx, tx, res)
			})
		})
		s.opts.observeReservation("complete", err)
		if err != nil {
			if !errors.Is(err, reservation.ErrInvalidTransition) && !errors.Is(err, reservation.ErrReservationNotFound) {
				logger.Error("予約の完了処理に失敗", zap.String("reservation_id", c.ID), zap.Error(err))
			}
			continue
		}
		s.opts.publishReservation(ctx, kafkainfra.EventReservationCompleted, res)
		completed++
	}
	return completed, nil
}
