package payment

import (
	"errors"
	"fmt"
)

// エラー種別
var (
	ErrInvalidTransition   = errors.New("現在の支払い状態では操作できません")
	ErrOverpaymentRejected = errors.New("支払い合計が予約金額を超えます")
)

// Payment ドメインのエラー定義
var (
	ErrPaymentNotFound         = errors.New("支払いが見つかりません")
	ErrReservationIDRequired   = errors.New("予約IDは必須です")
	ErrInvalidAmount           = errors.New("支払い金額は正の値である必要があります")
	ErrInvalidMethod           = errors.New("支払い方法が不正です")
	ErrPaymentNotPending       = fmt.Errorf("%w: 支払いは保留中ではありません", ErrInvalidTransition)
	ErrPaymentCompleted        = fmt.Errorf("%w: 支払いは既に完了しています", ErrInvalidTransition)
	ErrPaymentFailed           = fmt.Errorf("%w: 支払いは既に失敗しています", ErrInvalidTransition)
	ErrReservationNotConfirmed = fmt.Errorf("%w: 確定済みの予約にのみ支払いを登録できます", ErrInvalidTransition)
	ErrReferenceCollision      = errors.New("支払い番号が重複しました")
)
