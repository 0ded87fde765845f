package reservation

import (
	"errors"
	"fmt"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/stay"
)

// エラー種別
var (
	ErrInvalidRange      = stay.ErrInvalidRange
	ErrConflict          = errors.New("指定期間は既に予約されています")
	ErrInvalidTransition = errors.New("現在の状態では操作できません")
	ErrForbidden         = errors.New("この予約を操作する権限がありません")
)

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound         = errors.New("予約が見つかりません")
	ErrUserIDRequired              = errors.New("ユーザーIDは必須です")
	ErrRoomIDRequired              = errors.New("客室IDは必須です")
	ErrInvalidGuestCount           = errors.New("宿泊人数は1以上である必要があります")
	ErrCapacityExceeded            = errors.New("宿泊人数が客室の定員を超えています")
	ErrCheckInInPast               = fmt.Errorf("%w: チェックイン日を過去にすることはできません", ErrInvalidRange)
	ErrRoomUnavailable             = fmt.Errorf("%w: 客室は販売停止中です", ErrConflict)
	ErrReservationNotPending       = fmt.Errorf("%w: 予約は保留中ではありません", ErrInvalidTransition)
	ErrReservationNotConfirmed     = fmt.Errorf("%w: 予約は確定されていません", ErrInvalidTransition)
	ErrReservationAlreadyCancelled = fmt.Errorf("%w: 予約は既にキャンセルされています", ErrInvalidTransition)
	ErrReservationCompleted        = fmt.Errorf("%w: 予約は既に完了しています", ErrInvalidTransition)
	ErrReservationAlreadyStarted   = fmt.Errorf("%w: チェックイン日以降はキャンセルできません", ErrInvalidTransition)
	ErrReservationNotModifiable    = fmt.Errorf("%w: 確定済みの予約は管理者のみ変更できます", ErrInvalidTransition)
	ErrStayNotFinished             = fmt.Errorf("%w: チェックアウト前の予約は完了にできません", ErrInvalidTransition)
	ErrHasPayments                 = errors.New("支払いが存在する予約は削除できません")
	ErrAdminRequired               = fmt.Errorf("%w: 管理者権限が必要です", ErrForbidden)
	ErrReferenceCollision          = errors.New("予約番号が重複しました")
)
