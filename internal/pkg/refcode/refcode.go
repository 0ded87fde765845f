package refcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const (
	alphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	reservationLength = 8
	paymentPrefix     = "PAY-"
	paymentHexLength  = 8

	// 36 の倍数未満のバイトだけを使い偏りをなくす
	acceptBelow = 256 - 256%len(alphabet)

	// DefaultAttempts は使用済み番号に当たった場合の再生成回数
	DefaultAttempts = 5
)

// ErrExhausted は再生成しても未使用の番号が得られなかった場合のエラー
var ErrExhausted = errors.New("一意な参照番号を生成できませんでした")

// ExistsFunc は番号が使用済みかを判定する
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Reservation は8文字の英大文字・数字からなる予約番号を生成する
func Reservation() string {
	code, err := reservationFrom(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("乱数の取得に失敗: %v", err))
	}
	return code
}

func reservationFrom(r io.Reader) (string, error) {
	var b strings.Builder
	b.Grow(reservationLength)
	buf := make([]byte, reservationLength)
	for b.Len() < reservationLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if int(c) >= acceptBelow || b.Len() == reservationLength {
				continue
			}
			b.WriteByte(alphabet[int(c)%len(alphabet)])
		}
	}
	return b.String(), nil
}

// Payment は "PAY-" に続く8桁の16進大文字からなる支払い番号を生成する
func Payment() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return paymentPrefix + strings.ToUpper(hex[:paymentHexLength])
}

// Unique は未使用の番号が得られるまで generate を繰り返す
func Unique(ctx context.Context, generate func() string, exists ExistsFunc, attempts int) (string, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for i := 0; i < attempts; i++ {
		code := generate()
		used, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("参照番号の重複確認に失敗: %w", err)
		}
		if !used {
			return code, nil
		}
	}
	return "", ErrExhausted
}
