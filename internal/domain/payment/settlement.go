package payment

import (
	"fmt"
	"math"
)

// Settlement は予約の精算状況
type Settlement struct {
	ReservationID string
	Total         int64
	Paid          int64 // 完了済みの合計
	Pending       int64 // 保留中の合計
	Remaining     int64 // Total - Paid
	FullyPaid     bool
	PaymentCount  int
}

// Summarize は予約の合計金額と支払い一覧から精算状況を算出する
func Summarize(reservationID string, total int64, payments []*Payment) Settlement {
	s := Settlement{ReservationID: reservationID, Total: total, PaymentCount: len(payments)}
	for _, p := range payments {
		switch p.Status {
		case StatusCompleted:
			s.Paid += p.Amount
		case StatusPending:
			s.Pending = addCapped(s.Pending, p.Amount)
		}
	}
	s.Remaining = s.Total - s.Paid
	s.FullyPaid = s.Remaining <= 0
	return s
}

// CompletedSum は完了済み支払いの合計を返す（excludeID の支払いは除く）
func CompletedSum(payments []*Payment, excludeID string) int64 {
	var sum int64
	for _, p := range payments {
		if p.Status != StatusCompleted {
			continue
		}
		if excludeID != "" && p.ID == excludeID {
			continue
		}
		sum += p.Amount
	}
	return sum
}

// EnsureWithinTotal は完了済み合計に amount を加えても予約合計を超えないことを確認する
func EnsureWithinTotal(total int64, payments []*Payment, excludeID string, amount int64) error {
	paid := CompletedSum(payments, excludeID)
	// paid <= total が保たれているので total-paid は溢れない
	if amount > total-paid {
		return fmt.Errorf("%w: 支払済み %d + 今回 %d > 合計 %d", ErrOverpaymentRejected, paid, amount, total)
	}
	return nil
}

// addCapped は int64 の上限で頭打ちにする加算
func addCapped(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
