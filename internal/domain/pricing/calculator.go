package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/stay"
)

// 料金計算のエラー定義
var (
	ErrInvalidRate   = errors.New("1泊料金は正の値である必要があります")
	ErrTooFewNights  = fmt.Errorf("%w: 宿泊数は1泊以上である必要があります", stay.ErrInvalidRange)
	ErrTotalOverflow = errors.New("合計金額が上限を超えています")
)

// Quote は宿泊数と合計金額（最小通貨単位の整数）
type Quote struct {
	Nights      int
	NightlyRate int64
	Total       int64
}

// Calculate は宿泊期間と1泊料金から宿泊数と合計金額を計算する
func Calculate(r stay.Range, nightlyRate int64) (Quote, error) {
	if err := r.Validate(); err != nil {
		return Quote{}, err
	}
	if nightlyRate <= 0 {
		return Quote{}, ErrInvalidRate
	}
	nights := r.Nights()
	if nights < 1 {
		return Quote{}, ErrTooFewNights
	}
	if nightlyRate > math.MaxInt64/int64(nights) {
		return Quote{}, ErrTotalOverflow
	}
	return Quote{
		Nights:      nights,
		NightlyRate: nightlyRate,
		Total:       nightlyRate * int64(nights),
	}, nil
}
