package room

import "errors"

// Room ドメインのエラー定義
var (
	ErrRoomNotFound          = errors.New("客室が見つかりません")
	ErrHotelIDRequired       = errors.New("ホテルIDは必須です")
	ErrRoomNumberRequired    = errors.New("部屋番号は必須です")
	ErrInvalidPrice          = errors.New("1泊料金は正の値である必要があります")
	ErrInvalidCapacity       = errors.New("定員は1以上である必要があります")
	ErrRoomNumberAlreadyUsed = errors.New("同じホテルに同じ部屋番号が既に存在します")
)
